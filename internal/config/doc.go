// Package config loads server settings from TASKLANE_* environment variables,
// an optional .env file and an optional config.yaml, then validates them.
//
// Settings are grouped into server, database, auth and realtime sections. The
// realtime section sizes per-connection queues and heartbeats for live comment
// rooms.
package config
