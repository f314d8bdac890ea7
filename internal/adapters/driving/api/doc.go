// Package api is the HTTP driving adapter. It exposes the catalogue, chat
// sessions and job status over JSON, and streams answers as server-sent events.
//
// Every route under /api requires a bearer token signed with the configured
// HS256 secret. The token carries the caller's numeric "id" and "role".
package api
