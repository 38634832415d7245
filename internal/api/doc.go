// Package api handles incoming HTTP requests, request validation and
// response formatting for accounts, tasks and task comments. Handlers are
// thin adapters over the service layer; errors are mapped to status codes
// and safe messages in one place (MapErrorToStatusCode, GetSafeErrorMessage).
package api
