// Package mocks provides hand-written mock implementations of the store,
// auth and event interfaces for tests.
//
// Each mock exposes function fields (e.g. CreateFn) that override the
// default behavior. Store mocks default to a simple in-memory implementation
// and return themselves from WithTx, so services that run in a transaction
// can be tested with a go-sqlmock database that only expects Begin/Commit.
package mocks
