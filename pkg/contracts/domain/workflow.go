package domain

import (
	"time"
)

// WorkflowKind names a calculation the service can run
type WorkflowKind string

const (
	WorkflowSifo        WorkflowKind = "sifo"
	WorkflowFinn        WorkflowKind = "finn"
	WorkflowMortgage    WorkflowKind = "mortgage"
	WorkflowRestructure WorkflowKind = "restructure"
	WorkflowTax         WorkflowKind = "tax"
)

// Valid reports whether k is a known workflow
func (k WorkflowKind) Valid() bool {
	switch k {
	case WorkflowSifo, WorkflowFinn, WorkflowMortgage, WorkflowRestructure, WorkflowTax:
		return true
	}
	return false
}

// ResultStatus is the state of a stored calculation
type ResultStatus string

const (
	ResultStatusRunning   ResultStatus = "running"
	ResultStatusCompleted ResultStatus = "completed"
	ResultStatusFailed    ResultStatus = "failed"
)

// Result is a stored calculation outcome
type Result struct {
	ID          string         `json:"id"`
	Kind        WorkflowKind   `json:"kind"`
	Status      ResultStatus   `json:"status"`
	Payload     any            `json:"payload,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorType   string         `json:"error_type,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Elapsed     time.Duration  `json:"elapsed"`
	Steps       []StepSnapshot `json:"steps,omitempty"`
	Diagram     string         `json:"-"`
}

// StepSnapshot is the public view of one workflow step
type StepSnapshot struct {
	Key       string        `json:"key"`
	Operation string        `json:"operation"`
	Status    string        `json:"status"`
	Duration  time.Duration `json:"duration"`
}
