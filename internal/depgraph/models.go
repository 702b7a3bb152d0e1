package depgraph

import (
	"fmt"
	"strings"
)

// Edge records that From includes To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Format selects the textual encoding of an emitted graph.
type Format string

const (
	FormatDOT     Format = "dot"     // Graphviz digraph
	FormatMermaid Format = "mermaid" // Mermaid flowchart
	FormatJSONL   Format = "jsonl"   // one JSON object per edge
)

// Formats lists the supported formats in display order.
func Formats() []Format {
	return []Format{FormatDOT, FormatMermaid, FormatJSONL}
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown graph format %q (want dot, mermaid or jsonl)", s)
}
