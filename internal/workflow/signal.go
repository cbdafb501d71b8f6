package workflow

import (
	"encoding/json"

	"github.com/google/uuid"
)

// RenderOptions are hints for drawing a signal in a diagram
type RenderOptions struct {
	Style    string `json:"style,omitempty"`
	Color    string `json:"color,omitempty"`
	Wrap     int    `json:"wrap,omitempty"`
	Prettify bool   `json:"prettify,omitempty"`
}

// DefaultRenderOptions returns the options used when none are given
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Style: "filled",
		Color: "white",
		Wrap:  50,
	}
}

// SignalOption customizes a Signal at construction
type SignalOption func(*RenderOptions)

// WithStyle sets the node style
func WithStyle(style string) SignalOption {
	return func(o *RenderOptions) { o.Style = style }
}

// WithColor sets the node fill color
func WithColor(color string) SignalOption {
	return func(o *RenderOptions) { o.Color = color }
}

// WithWrap sets the label line-wrap length
func WithWrap(n int) SignalOption {
	return func(o *RenderOptions) { o.Wrap = n }
}

// WithPrettify renders the payload as indented JSON in the diagram
func WithPrettify() SignalOption {
	return func(o *RenderOptions) { o.Prettify = true }
}

// Signal is a labeled payload passed between operations. It has no setters;
// a new value is a new Signal.
type Signal struct {
	id          string
	payload     any
	description string
	options     RenderOptions
}

// NewSignal wraps payload under a fresh id
func NewSignal(payload any, description string, opts ...SignalOption) Signal {
	options := DefaultRenderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return Signal{
		id:          uuid.NewString(),
		payload:     payload,
		description: description,
		options:     options,
	}
}

func (s Signal) ID() string             { return s.id }
func (s Signal) Payload() any           { return s.payload }
func (s Signal) Description() string    { return s.description }
func (s Signal) Options() RenderOptions { return s.options }

// IsZero reports whether s is the zero Signal
func (s Signal) IsZero() bool { return s.id == "" }

// Mapping returns the payload as a Mapping when it is one
func (s Signal) Mapping() (Mapping, bool) {
	return AsMapping(s.payload)
}

// MarshalJSON encodes the signal for diagnostics and API responses
func (s Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string        `json:"id"`
		Description string        `json:"description"`
		Payload     any           `json:"payload"`
		Options     RenderOptions `json:"options"`
	}{s.id, s.description, s.payload, s.options})
}
