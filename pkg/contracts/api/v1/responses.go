package api

import (
	"time"

	"husholdning/pkg/contracts/domain"
)

// ResultResponse is a stored result with links to its related resources
type ResultResponse struct {
	domain.Result
	Links map[string]string `json:"links,omitempty"`
}

// ResultSummary is the list view of a result, without payload and steps
type ResultSummary struct {
	ID          string              `json:"id"`
	Kind        domain.WorkflowKind `json:"kind"`
	Status      domain.ResultStatus `json:"status"`
	ErrorType   string              `json:"error_type,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Elapsed     time.Duration       `json:"elapsed"`
}

// ResultList is the response of the result listing
type ResultList struct {
	Results []ResultSummary `json:"results"`
	Count   int             `json:"count"`
}

// NewResultResponse links result to its export and diagram resources
func NewResultResponse(result domain.Result, basePath string) ResultResponse {
	self := basePath + "/results/" + result.ID
	links := map[string]string{"self": self}
	if result.Status != domain.ResultStatusRunning {
		links["xlsx"] = self + "/export.xlsx"
		links["csv"] = self + "/export.csv"
		if result.Diagram != "" {
			links["diagram"] = self + "/diagram"
		}
	}
	return ResultResponse{Result: result, Links: links}
}

// Summarize drops payload and steps from result
func Summarize(result domain.Result) ResultSummary {
	return ResultSummary{
		ID:          result.ID,
		Kind:        result.Kind,
		Status:      result.Status,
		ErrorType:   result.ErrorType,
		CreatedAt:   result.CreatedAt,
		CompletedAt: result.CompletedAt,
		Elapsed:     result.Elapsed,
	}
}
