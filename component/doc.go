// Package component defines the lifecycle interface shared by the
// long-lived parts of inflight (the HTTP transport and the multiplexer)
// and a registry that starts them in order and stops them in reverse.
package component
