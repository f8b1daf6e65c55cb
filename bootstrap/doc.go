// Package bootstrap assembles an inflight client process from a loaded
// config.Config.
//
// NewApp wires the telemetry providers, the HTTP transport and the endpoint
// multiplexer into a component registry so they start in order and stop in
// reverse.
//
//	cfg, err := config.Load("catalog-client")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    users, err := flight.RequestDecode[[]User](app.Mux, app.Endpoint(http.MethodGet, "/users")).Await(ctx)
//	    ...
//	})
package bootstrap
