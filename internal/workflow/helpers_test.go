package workflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"husholdning/internal/workflow"
)

// logCapture captures structured log output for testing
type logCapture struct {
	mu     sync.Mutex
	buffer *bytes.Buffer
	logger *slog.Logger
}

type lockedWriter struct {
	lc *logCapture
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.lc.mu.Lock()
	defer w.lc.mu.Unlock()
	return w.lc.buffer.Write(p)
}

func newLogCapture() *logCapture {
	lc := &logCapture{buffer: &bytes.Buffer{}}
	lc.logger = slog.New(slog.NewJSONHandler(lockedWriter{lc}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return lc
}

// entries parses captured log entries
func (lc *logCapture) entries() []map[string]any {
	lc.mu.Lock()
	raw := lc.buffer.String()
	lc.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			out = append(out, entry)
		}
	}
	return out
}

// find returns the first entry with the given message
func (lc *logCapture) find(msg string) map[string]any {
	for _, e := range lc.entries() {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

// constOp returns an operation yielding v
func constOp(name string, v any) workflow.Operation {
	return workflow.Value(name, name+" result", v)
}

// failOp returns an operation failing with err
func failOp(name string, err error) workflow.Operation {
	return workflow.Func(name, name, func(context.Context) (any, error) { return nil, err })
}
