package depgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Emitter streams a graph as it is discovered. Begin is called once before
// the first edge and End once after the last; Edge is called for every
// include in discovery order, duplicates included.
type Emitter interface {
	Begin(ctx context.Context, name string) error
	Edge(ctx context.Context, e Edge) error
	End(ctx context.Context) error
}

// NewEmitter returns a streaming encoder for format writing to w.
func NewEmitter(format Format, w io.Writer) (Emitter, error) {
	switch format {
	case FormatDOT:
		return &dotEmitter{w: w}, nil
	case FormatMermaid:
		return &mermaidEmitter{w: w, ids: make(map[string]string)}, nil
	case FormatJSONL:
		return &jsonlEmitter{enc: json.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown graph format %q", format)
	}
}

// dotEmitter writes a Graphviz digraph.
type dotEmitter struct {
	w io.Writer
}

func (d *dotEmitter) Begin(_ context.Context, name string) error {
	_, err := fmt.Fprintf(d.w, "digraph %s {\n", dotGraphID(name))
	return err
}

func (d *dotEmitter) Edge(_ context.Context, e Edge) error {
	_, err := fmt.Fprintf(d.w, "    \"%s\" -> \"%s\";\n", escapeDOT(e.From), escapeDOT(e.To))
	return err
}

func (d *dotEmitter) End(context.Context) error {
	_, err := io.WriteString(d.w, "}\n")
	return err
}

// mermaidEmitter writes a left-to-right Mermaid flowchart. Node ids are
// assigned in order of first appearance so distinct paths never collide
// after sanitizing.
type mermaidEmitter struct {
	w   io.Writer
	ids map[string]string
}

func (m *mermaidEmitter) Begin(_ context.Context, name string) error {
	_, err := fmt.Fprintf(m.w, "---\ntitle: %s\n---\ngraph LR\n", name)
	return err
}

func (m *mermaidEmitter) Edge(_ context.Context, e Edge) error {
	_, err := fmt.Fprintf(m.w, "  %s --> %s\n", m.node(e.From), m.node(e.To))
	return err
}

func (m *mermaidEmitter) End(context.Context) error { return nil }

func (m *mermaidEmitter) node(path string) string {
	if id, ok := m.ids[path]; ok {
		return id
	}
	id := fmt.Sprintf("n%d_%s", len(m.ids), sanitizeMermaidID(path))
	m.ids[path] = id
	return fmt.Sprintf("%s[\"%s\"]", id, strings.ReplaceAll(path, `"`, "#quot;"))
}

// jsonlEmitter writes one JSON object per edge.
type jsonlEmitter struct {
	enc  *json.Encoder
	name string
}

type jsonlRecord struct {
	Graph string `json:"graph"`
	Edge
}

func (j *jsonlEmitter) Begin(_ context.Context, name string) error {
	j.name = name
	return nil
}

func (j *jsonlEmitter) Edge(_ context.Context, e Edge) error {
	return j.enc.Encode(jsonlRecord{Graph: j.name, Edge: e})
}

func (j *jsonlEmitter) End(context.Context) error { return nil }

// Multi fans every call out to all emitters in order, stopping at the first
// error.
func Multi(emitters ...Emitter) Emitter {
	return multiEmitter(emitters)
}

type multiEmitter []Emitter

func (m multiEmitter) Begin(ctx context.Context, name string) error {
	for _, e := range m {
		if err := e.Begin(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (m multiEmitter) Edge(ctx context.Context, edge Edge) error {
	for _, e := range m {
		if err := e.Edge(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

func (m multiEmitter) End(ctx context.Context) error {
	var errs []error
	for _, e := range m {
		errs = append(errs, e.End(ctx))
	}
	return errors.Join(errs...)
}

// dotGraphID leaves plain identifiers bare and quotes everything else.
func dotGraphID(name string) string {
	if isDOTID(name) {
		return name
	}
	return "\"" + escapeDOT(name) + "\""
}

func isDOTID(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, r := range s {
		if !isWordRune(r) {
			return false
		}
	}
	return true
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeDOT(s string) string {
	return dotEscaper.Replace(s)
}

func sanitizeMermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return '_'
	}, s)
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
