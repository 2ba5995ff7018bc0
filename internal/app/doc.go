// Package app wires the framework into a running HTTP service.
//
// # Initialization Flow
//
//	1. Initialize logging and OpenTelemetry from the configuration
//	2. Fill the class catalog through the register functions
//	3. Run the bootstrap sequence (scan, populate, inject, build routes)
//	4. Create the dispatcher over the resulting application context
//	5. Build the chi router and the http.Server
//
// # Routing
//
// Requests pass RequestID and RealIP, then tracing, request logging, panic
// recovery and, when enabled, rate limiting. The admin surface is mounted
// under server.adminPrefix and Prometheus metrics under /metrics. Every
// other request, whatever its method, reaches the dispatcher.
//
// # Usage
//
//	application, err := app.NewApplication(ctx, cfg, nil, demo.Register)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run stops on SIGINT, SIGTERM or cancellation of its context, draining
// active requests within server.shutdownTimeout. Errors are returned to the
// caller; the package never calls os.Exit.
package app
