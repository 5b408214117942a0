// Package server hosts the gin engine behind an h2c-capable http.Server.
//
// The net/http middleware chain (recovery, request ID, CORS, body limit,
// request logging) wraps the whole engine so it also covers unmatched
// routes. Unknown routes and methods answer with the ROUTE_NOT_FOUND error
// envelope, and the probe endpoints report component health:
//
//	srv := server.New(cfg, log)
//	srv.ApplyMiddleware()
//	srv.RegisterProbes("codecompass", registry.HealthAll)
//	api.Register(srv.GinEngine().Group("/api/v1"), handlers)
package server
