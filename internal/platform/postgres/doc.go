// Package postgres provides PostgreSQL implementations of the store
// interfaces, the embedded schema migrations and connection setup.
package postgres
