// Package api exposes the authentication HTTP routes under /api/v1.
//
//	POST /auth/register   201 user + tokens
//	POST /auth/login      200 user + tokens
//	POST /auth/refresh    200 tokens
//	POST /auth/logout     200
//	GET  /auth/me         RequireAuth
//	GET  /auth/session    OptionalAuth
//	GET  /admin/overview  RequireAdmin
//
// Handlers decode and validate the payload, call the auth service and render
// the success or error envelope. They never inspect tokens themselves.
package api
