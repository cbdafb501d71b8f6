package services

import "errors"

// Service errors
var (
	ErrResultNotFound  = errors.New("result not found")
	ErrResultPending   = errors.New("result still running")
	ErrUnknownWorkflow = errors.New("unknown workflow")
	ErrShuttingDown    = errors.New("service shutting down")
	ErrNoDiagram       = errors.New("no diagram recorded")
)
