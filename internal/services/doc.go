// Package services sits between the HTTP handlers and the workflow engine.
//
// WorkflowService runs the household workflows (SIFO, Finn, mortgage,
// restructure and tax), either synchronously or in the background, and
// keeps every result in a ResultStore until its TTL has passed. Step and
// result events go to an EventPublisher, normally the WebSocket hub.
//
//	store := services.NewResultStore(cfg.Workflow.ResultTTL, metrics, logger)
//	svc := services.NewWorkflowService(sources, store, cfg.Workflow, logger,
//	    services.WithPublisher(hub),
//	    services.WithMetrics(metrics),
//	)
//	result, err := svc.Run(ctx, domain.WorkflowMortgage, form)
//
// HealthService answers the liveness, readiness and version endpoints.
package services
