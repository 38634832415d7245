// Package domain holds the entities of the task board: users, tasks and their
// comments, plus the Principal an authenticated connection acts as.
package domain
