// Package realtime implements the live comment channel for tasks.
//
// Every task has at most one room: the set of sessions currently connected
// to /ws/tasks/{taskID}. The Registry owns those rooms, the Session owns one
// connection's send queue and typing state, and the Engine performs the
// handshake, dispatches inbound messages and tears sessions down.
//
// Comments are persisted before they are fanned out. The Engine subscribes to
// events.TypeCommentCreated, so comments created over REST reach the room in
// the same shape as comments sent over the socket. Senders receive their own
// new_comment and are expected to deduplicate by comment id.
package realtime
