// Package stream provides Stream, a lazy single-outcome value that any
// number of observers can subscribe to.
//
// A Stream runs its producer when the first observer subscribes and shares
// that one run with every observer that subscribes while it is in progress.
// Once the producer emits, the outcome is stored and replayed to observers
// that subscribe later. When the last observer cancels before the outcome
// arrives, the producer's dispose function runs and the stream returns to
// its initial state; a later Subscribe starts the producer again.
//
//	s := stream.Map(src, strings.ToUpper)
//	v, err := s.Await(ctx)
package stream
