// Package events publishes authentication lifecycle events to Kafka.
//
// Publishing is best-effort: events are queued and written by a background
// goroutine, so a slow broker never delays a request. A full queue drops the
// event and callers log it. When Kafka is disabled the Nop publisher is
// wired instead.
//
//	events:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  topic: auth.events
package events
