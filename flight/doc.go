// Package flight coalesces concurrent requests for the same endpoint into a
// single network call and exposes the result as a stream.
//
// A Multiplexer resolves each target to an Endpoint, derives its RequestKey
// and keeps at most one outstanding call per key. Every caller gets its own
// stream; all streams for a key observe the same outcome. The call is
// cancelled when its last subscriber cancels, and its registry entry is
// removed as soon as the call ends, so the next request always starts fresh.
//
//	mux, err := flight.NewEndpointMultiplexer(transport)
//	users := flight.RequestDecode[[]User](mux, flight.Get(url),
//	    flight.WithStatusFilter(flight.FilterSuccessfulStatusCodes))
//	list, err := users.Await(ctx)
//
// Status filters and payload decoders are stream operators and may also be
// applied by hand:
//
//	s := flight.MapJSONArray(flight.FilterSuccessfulStatusCodes(mux.Request(ep)))
package flight
