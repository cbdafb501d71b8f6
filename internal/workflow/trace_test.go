package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceRecordsSequence(t *testing.T) {
	tr := NewTrace("seq")
	tr.Record(Event{Kind: EventInput, Node: "form"})
	tr.Notice("shares", "denominator is zero")

	events := tr.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Seq)
	assert.Equal(t, 2, events[1].Seq)
	assert.False(t, events[1].Time.IsZero())
	assert.Equal(t, EventNotice, events[1].Kind)
}

func TestTraceDOT(t *testing.T) {
	p := New("budget")
	ctx, _ := p.Start(context.Background())
	p.Input("form", Mapping{"a": "1"}, "household", WithColor("lightgrey"))
	_, err := p.Execute(ctx, "shares", Value("Divide", "shares of total", Mapping{"a": "100 %"}), "form")
	require.NoError(t, err)
	_, _ = p.Execute(ctx, "optional", Func("Postal", "postal", func(context.Context) (any, error) {
		return nil, ErrSkip
	}))

	dot := p.Trace().DOT()
	assert.True(t, strings.HasPrefix(dot, `digraph "budget" {`))
	assert.True(t, strings.HasSuffix(dot, "}\n"))
	assert.Contains(t, dot, `"sig:form" [shape=box, style="filled", fillcolor="lightgrey"`)
	assert.Contains(t, dot, `"sig:form" -> "op:2"`)
	assert.Contains(t, dot, `"op:2" -> "sig:shares"`)
	assert.Contains(t, dot, `(skipped)`)
}

func TestSummarizeTruncatesAndWraps(t *testing.T) {
	long := strings.Repeat("æ", maxSummary*2)
	out := summarize(long, RenderOptions{})
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len([]rune(out)), maxSummary+3)

	wrapped := summarize(Mapping{"key": strings.Repeat("x", 30)}, RenderOptions{Wrap: 10})
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 10)
	}

	pretty := summarize(Mapping{"a": 1}, RenderOptions{Prettify: true})
	assert.Contains(t, pretty, "\n  \"a\": 1")
}

func TestTraceMarshalJSON(t *testing.T) {
	parent := NewTrace("parent")
	parent.Record(Event{Kind: EventInput, Node: "form"})
	child := NewTrace("child")
	parent.Attach(child)
	parent.Attach(nil)

	raw, err := json.Marshal(parent)
	require.NoError(t, err)

	var decoded struct {
		Name     string `json:"name"`
		Events   []any  `json:"events"`
		Children []struct {
			Name string `json:"name"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "parent", decoded.Name)
	assert.Len(t, decoded.Events, 1)
	require.Len(t, decoded.Children, 1)
	assert.Equal(t, "child", decoded.Children[0].Name)
}
