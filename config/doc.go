// Package config loads the configuration of an inflight client process.
//
// Configuration is read from a config.yml found in the usual service
// locations, then overridden by environment variables and an optional
// .env file. Environment keys map onto nested keys by underscore, so
// TRANSPORT_TIMEOUT=5s sets transport.timeout.
//
//	cfg, err := config.Load("catalog-client")
//	if err != nil {
//	    return err
//	}
//	mux := flight.NewEndpointMultiplexer(transport, flight.WithConfig(cfg.Multiplexer))
package config
