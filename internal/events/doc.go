// Package events provides types and interfaces for in-process domain events.
//
// Services emit events after a state change is durable; handlers such as
// the realtime broadcast engine react to them without the service knowing
// who is listening.
package events
