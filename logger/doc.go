// Package logger provides structured logging backed by zerolog.
//
// Loggers are component-scoped and accept optional field maps:
//
//	log := logger.New(&cfg, "codecompass").WithComponent("auth")
//	log.Info("user registered", map[string]interface{}{"user_id": id})
//
// Request-scoped identifiers (request ID, user ID) travel in the context and
// are attached with WithContext.
package logger
