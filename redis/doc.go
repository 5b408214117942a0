// Package redis provides a Redis client component built on go-redis with
// connection pooling, lifecycle management and health checks.
//
// The service uses Redis for the refresh-token denylist and for shared
// rate-limit windows across instances:
//
//	redis:
//	  enabled: true
//	  url: redis://localhost:6379/0
//
// Either url (REDIS_URL) or addr may be set; url wins when both are present.
package redis
