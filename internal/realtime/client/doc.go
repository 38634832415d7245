// Package client is a consumer of the live task comment channel.
//
// Controller keeps one connection open, reconnecting after abnormal closes
// with exponential backoff. The channel does not replay frames missed while
// disconnected, so callers resynchronize from the REST comment list on every
// connection (see Resync) and fold both sources into a CommentView, which
// deduplicates by comment id.
package client
