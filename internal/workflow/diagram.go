package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DOT renders the trace as a Graphviz digraph. Signals are boxes, operations
// are ellipses, edges follow the data.
func (t *Trace) DOT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", strconv.Quote(t.name))
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [fontname=\"Helvetica\", fontsize=10];\n")
	t.writeBody(&b, "  ", "")
	b.WriteString("}\n")
	return b.String()
}

func (t *Trace) writeBody(b *strings.Builder, indent, prefix string) {
	signalID := func(key string) string { return strconv.Quote(prefix + "sig:" + key) }

	for _, e := range t.Events() {
		opID := strconv.Quote(fmt.Sprintf("%sop:%d", prefix, e.Seq))

		switch e.Kind {
		case EventInput, EventOutput:
			writeSignalNode(b, indent, signalID(e.Node), e)
			for _, in := range e.Inputs {
				fmt.Fprintf(b, "%s%s -> %s;\n", indent, signalID(in), signalID(e.Node))
			}

		case EventOperation, EventSubModel:
			shape := "ellipse"
			if e.Kind == EventSubModel {
				shape = "doubleoctagon"
			}
			fmt.Fprintf(b, "%s%s [shape=%s, label=%s];\n", indent, opID, shape,
				strconv.Quote(fmt.Sprintf("%s\n%s", e.Operation, e.Duration)))
			for _, in := range e.Inputs {
				fmt.Fprintf(b, "%s%s -> %s;\n", indent, signalID(in), opID)
			}
			writeSignalNode(b, indent, signalID(e.Node), e)
			fmt.Fprintf(b, "%s%s -> %s;\n", indent, opID, signalID(e.Node))

		case EventSkip:
			fmt.Fprintf(b, "%s%s [shape=box, style=dashed, color=gray, label=%s];\n",
				indent, signalID(e.Node), strconv.Quote(e.Node+"\n(skipped)"))
			for _, in := range e.Inputs {
				fmt.Fprintf(b, "%s%s -> %s [style=dashed];\n", indent, signalID(in), signalID(e.Node))
			}

		case EventFailure:
			fmt.Fprintf(b, "%s%s [shape=ellipse, style=filled, fillcolor=salmon, label=%s];\n",
				indent, opID, strconv.Quote(fmt.Sprintf("%s\n%s", e.Operation, e.Error)))
			for _, in := range e.Inputs {
				fmt.Fprintf(b, "%s%s -> %s;\n", indent, signalID(in), opID)
			}

		case EventNotice:
			fmt.Fprintf(b, "%s%s [shape=note, style=filled, fillcolor=lightyellow, label=%s];\n",
				indent, opID, strconv.Quote(e.Summary))
			if e.Node != "" {
				fmt.Fprintf(b, "%s%s -> %s [style=dotted, arrowhead=none];\n", indent, opID, signalID(e.Node))
			}
		}
	}

	for i, child := range t.Children() {
		childPrefix := fmt.Sprintf("%s%d/", prefix, i)
		fmt.Fprintf(b, "%ssubgraph %s {\n", indent, strconv.Quote(fmt.Sprintf("cluster_%s%d", prefix, i)))
		fmt.Fprintf(b, "%s  label=%s;\n", indent, strconv.Quote(child.Name()))
		child.writeBody(b, indent+"  ", childPrefix)
		fmt.Fprintf(b, "%s}\n", indent)
	}
}

func writeSignalNode(b *strings.Builder, indent, id string, e Event) {
	label := e.Node
	if e.Description != "" {
		label = e.Description
	}
	if e.Summary != "" {
		label += "\n" + e.Summary
	}
	style := e.Options.Style
	if style == "" {
		style = "filled"
	}
	color := e.Options.Color
	if color == "" {
		color = "white"
	}
	fmt.Fprintf(b, "%s%s [shape=box, style=%s, fillcolor=%s, label=%s];\n",
		indent, id, strconv.Quote(style), strconv.Quote(color), strconv.Quote(label))
}

// WriteDOT writes the diagram to dir/<name>.dot and returns the path
func (t *Trace) WriteDOT(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagram directory: %w", err)
	}
	path := filepath.Join(dir, name+".dot")
	if err := os.WriteFile(path, []byte(t.DOT()), 0o644); err != nil {
		return "", fmt.Errorf("write diagram: %w", err)
	}
	return path, nil
}
