package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// EventKind classifies trace events
type EventKind string

const (
	EventInput     EventKind = "input"
	EventOperation EventKind = "operation"
	EventSkip      EventKind = "skip"
	EventFailure   EventKind = "failure"
	EventNotice    EventKind = "notice"
	EventOutput    EventKind = "output"
	EventSubModel  EventKind = "submodel"
)

// maxSummary caps payload summaries kept in the trace
const maxSummary = 240

// Event is one entry of the structured run log
type Event struct {
	Seq         int           `json:"seq"`
	Time        time.Time     `json:"time"`
	Kind        EventKind     `json:"kind"`
	Node        string        `json:"node"`
	Operation   string        `json:"operation,omitempty"`
	Description string        `json:"description,omitempty"`
	Inputs      []string      `json:"inputs,omitempty"`
	Summary     string        `json:"summary,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Error       string        `json:"error,omitempty"`
	Options     RenderOptions `json:"options"`
}

// Trace is the append-only event log of one process run
type Trace struct {
	mu       sync.Mutex
	name     string
	events   []Event
	children []*Trace
}

// NewTrace creates an empty trace
func NewTrace(name string) *Trace {
	return &Trace{name: name}
}

// Name returns the process name the trace belongs to
func (t *Trace) Name() string { return t.name }

// Record appends e, stamping its sequence number and time
func (t *Trace) Record(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.Seq = len(t.events) + 1
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	t.events = append(t.events, e)
}

// Notice records an observable condition that did not change the result
func (t *Trace) Notice(node, message string) {
	t.Record(Event{Kind: EventNotice, Node: node, Summary: message})
}

// Attach nests the trace of a sub-process
func (t *Trace) Attach(child *Trace) {
	if child == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children = append(t.children, child)
}

// Events returns a copy of the recorded events
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Children returns the attached sub-process traces
func (t *Trace) Children() []*Trace {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Trace, len(t.children))
	copy(out, t.children)
	return out
}

// Filter returns the events of the given kind
func (t *Trace) Filter(kind EventKind) []Event {
	var out []Event
	for _, e := range t.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// MarshalJSON encodes the trace with its children
func (t *Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string   `json:"name"`
		Events   []Event  `json:"events"`
		Children []*Trace `json:"children,omitempty"`
	}{t.name, t.Events(), t.Children()})
}

// summarize renders a payload for the trace. Long output is truncated.
func summarize(payload any, opts RenderOptions) string {
	var (
		raw []byte
		err error
	)
	if opts.Prettify {
		raw, err = json.MarshalIndent(payload, "", "  ")
	} else {
		raw, err = json.Marshal(payload)
	}
	text := string(raw)
	if err != nil {
		text = fmt.Sprintf("%v", payload)
	}

	if runes := []rune(text); len(runes) > maxSummary {
		text = string(runes[:maxSummary]) + "..."
	}
	if opts.Wrap > 0 && !opts.Prettify {
		text = wrap(text, opts.Wrap)
	}
	return text
}

func wrap(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	var b strings.Builder
	for len(runes) > width {
		b.WriteString(string(runes[:width]))
		b.WriteByte('\n')
		runes = runes[width:]
	}
	b.WriteString(string(runes))
	return b.String()
}
