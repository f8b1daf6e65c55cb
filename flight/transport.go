package flight

import (
	"context"

	"github.com/google/uuid"
)

// Transport performs a network call. Perform blocks until the call ends and
// must return promptly once ctx is cancelled.
//
// Returning both a response and an error reports a failure that carried a
// status code; the published error's DomainCode becomes that status.
type Transport interface {
	Perform(ctx context.Context, ep Endpoint) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ep Endpoint) (*Response, error)

// Perform calls f.
func (f TransportFunc) Perform(ctx context.Context, ep Endpoint) (*Response, error) {
	return f(ctx, ep)
}

type entryIDKey struct{}

// ContextWithEntryID stores the id of the call being performed.
func ContextWithEntryID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, entryIDKey{}, id)
}

// EntryIDFromContext returns the id of the call being performed, if any.
// Transports use it to correlate the wire request with multiplexer logs.
func EntryIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(entryIDKey{}).(uuid.UUID)
	return id, ok
}
