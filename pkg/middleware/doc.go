// Package middleware provides observability middleware for navigations
// and for the HTTP server.
//
// # Prometheus Metrics
//
// NewMetrics registers collectors on a registry. Its Navigation method
// returns router middleware; HTTP wraps a chi router:
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r := router.New(table, router.WithMiddleware(m.Navigation()))
//	mux.Use(m.HTTP)
//	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # OpenTelemetry
//
// OpenTelemetry traces each navigation; Tracing traces each HTTP request.
// Both use the global tracer provider unless WithTracerProvider is given.
//
//	router.WithMiddleware(middleware.OpenTelemetry(
//	    middleware.WithNavigationFilter(func(nav *router.Navigation) bool {
//	        return nav.Found()
//	    }),
//	))
package middleware
