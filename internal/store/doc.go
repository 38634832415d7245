// Package store declares the persistence contracts for users, tasks and
// comments, along with the error values and transaction helper shared by
// every implementation.
package store
