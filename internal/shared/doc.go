// Package shared holds helpers used by several packages that do not belong
// to a single layer.
//
// The testutil subpackage provides a capturing slog handler and stub
// upstream sources with fixture documents, so workflow, service and HTTP
// tests can run every process without touching the network:
//
//	sources := testutil.NewStubSources()
//	sources.Errs["SSB"] = workflow.NewUpstreamTimeoutError("SSB", context.DeadlineExceeded)
//	runner, _ := processes.New(domain.WorkflowMortgage, sources)
package shared
