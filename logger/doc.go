// Package logger provides structured logging for inflight using zerolog.
//
// A Logger is scoped to a service and, optionally, a component. Call sites
// attach domain fields (request key, entry id, subscriber count) through
// the Field constants so that every line about one coalesced call can be
// correlated.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("flight")
//	log.Debug("joined in-flight call", logger.Fields(logger.FieldRequestKey, key))
package logger
