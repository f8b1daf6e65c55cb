package flight

// Resolver maps a logical request to the Endpoint to call. Resolve must be
// deterministic: equal targets resolve to equal endpoints.
type Resolver[T any] interface {
	Resolve(target T) (Endpoint, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[T any] func(target T) (Endpoint, error)

// Resolve calls f.
func (f ResolverFunc[T]) Resolve(target T) (Endpoint, error) {
	return f(target)
}

// EndpointResolver resolves an Endpoint to itself.
type EndpointResolver struct{}

// Resolve returns ep unchanged.
func (EndpointResolver) Resolve(ep Endpoint) (Endpoint, error) {
	return ep, nil
}

// Target is a request description that knows its own endpoint.
type Target interface {
	Endpoint() (Endpoint, error)
}

// TargetResolver resolves any Target by asking it for its endpoint.
func TargetResolver[T Target]() Resolver[T] {
	return ResolverFunc[T](func(t T) (Endpoint, error) {
		return t.Endpoint()
	})
}
