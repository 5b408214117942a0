// Package app assembles the codecompass service: it loads configuration,
// registers infrastructure components, wires the auth service into the HTTP
// API and runs until SIGINT or SIGTERM.
//
// Lifecycle:
//
//	Phase 1  start infrastructure (database, redis, events, telemetry)
//	Phase 2  wire the auth service, routes and admin bootstrap
//	Phase 3  start the HTTP server and background jobs
//	Stop     components in reverse order within the graceful timeout
package app
