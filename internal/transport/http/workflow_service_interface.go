package http

import (
	"context"

	"husholdning/pkg/contracts/domain"
)

// WorkflowService defines the workflow operations the handlers need
type WorkflowService interface {
	Run(ctx context.Context, kind domain.WorkflowKind, form any) (domain.Result, error)
	Start(ctx context.Context, kind domain.WorkflowKind, form any) (domain.Result, error)
	Get(id string) (domain.Result, error)
	Completed(id string) (domain.Result, error)
	Diagram(id string) (string, error)
	List() []domain.Result
}
