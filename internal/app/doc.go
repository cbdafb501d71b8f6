// Package app wires the calculation service together: configuration,
// logging, OpenTelemetry, the upstream connectors, the workflow service
// with its result store, the WebSocket hub and the HTTP router.
//
//	application, err := app.Load(configPath)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run blocks until SIGINT or SIGTERM and then shuts down in order: the HTTP
// server drains, background workflow runs are cancelled, WebSocket clients
// are closed and telemetry is flushed. Nothing here calls os.Exit.
package app
