// Package service contains the application use cases. It coordinates the
// domain entities with the persistence interfaces defined in internal/store
// and publishes domain events once changes are durable.
//
// Services return sentinel errors for expected conditions (for example
// store.ErrTaskNotFound or ErrNotOwned); the API layer maps them to HTTP
// status codes with errors.Is.
package service
