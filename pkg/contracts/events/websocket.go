// Package events contains the event contracts pushed to WebSocket clients
// while workflows run.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Workflow progress
	MessageTypeWorkflowStep      MessageType = "workflow:step"
	MessageTypeWorkflowCompleted MessageType = "workflow:completed"
	MessageTypeWorkflowFailed    MessageType = "workflow:failed"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data any `json:"data,omitempty"`
}

// StepEvent reports a status change of one workflow step
type StepEvent struct {
	ResultID  string    `json:"result_id"`
	Kind      string    `json:"kind"`
	Process   string    `json:"process"`
	Key       string    `json:"key"`
	Operation string    `json:"operation,omitempty"`
	Status    string    `json:"status"` // pending|active|completed|failed|skipped
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// ResultEvent reports the end of a workflow run
type ResultEvent struct {
	ResultID  string        `json:"result_id"`
	Kind      string        `json:"kind"`
	Status    string        `json:"status"` // completed|failed
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
