package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/efebarandurmaz/cppig/internal/traverse"
)

// RunMetrics collects statistics for one traversal.
type RunMetrics struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Duration   time.Duration  `json:"duration_ms,omitempty"`
	Graph      string         `json:"graph"`
	Format     string         `json:"format"`
	Seeds      int            `json:"seeds"`
	Traversal  traverse.Stats `json:"traversal"`
	Limits     LimitMetrics   `json:"limits"`
	Error      string         `json:"error,omitempty"`
}

// LimitMetrics records the configured bounds next to what was used.
type LimitMetrics struct {
	MaxQueue   int `json:"max_queue"`
	MaxVisited int `json:"max_visited"`
	FileArena  int `json:"file_arena"`
	GraphArena int `json:"graph_arena"`
}

// New starts tracking a run.
func New(graph, format string, seeds int, limits traverse.Limits) *RunMetrics {
	return &RunMetrics{
		StartedAt: time.Now(),
		Graph:     graph,
		Format:    format,
		Seeds:     seeds,
		Limits: LimitMetrics{
			MaxQueue:   limits.MaxQueue,
			MaxVisited: limits.MaxVisited,
			FileArena:  limits.FileArena,
			GraphArena: limits.GraphArena,
		},
	}
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish(stats traverse.Stats, err error) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Traversal = stats
	if err != nil {
		m.Error = err.Error()
	}
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	s := m.Traversal
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║         INCLUDE GRAPH REPORT         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Graph:       %-23s║\n", m.Graph)
	fmt.Fprintf(w, "║ Format:      %-23s║\n", m.Format)
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ FILES\n")
	fmt.Fprintf(w, "║   Seeds:       %d\n", m.Seeds)
	fmt.Fprintf(w, "║   Visited:     %d\n", s.FilesVisited)
	fmt.Fprintf(w, "║   Failed:      %d\n", s.FilesFailed)
	fmt.Fprintf(w, "║   Read:        %s\n", humanize.IBytes(uint64(s.BytesRead)))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ GRAPH\n")
	fmt.Fprintf(w, "║   Edges:       %d\n", s.Edges)
	fmt.Fprintf(w, "║   Duplicates:  %d\n", s.DuplicateDequeues)
	fmt.Fprintf(w, "║   Rejected:    %d\n", s.RejectedLines)
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ MEMORY\n")
	fmt.Fprintf(w, "║   Queue:       %d / %d\n", s.MaxQueueDepth, m.Limits.MaxQueue)
	fmt.Fprintf(w, "║   Visited:     %d / %d\n", s.FilesVisited, m.Limits.MaxVisited)
	fmt.Fprintf(w, "║   File arena:  %s / %s\n", ibytes(s.FileArenaPeak), ibytes(m.Limits.FileArena))
	fmt.Fprintf(w, "║   Graph arena: %s / %s\n", ibytes(s.GraphArenaUsed), ibytes(m.Limits.GraphArena))
	if m.Error != "" {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERROR\n")
		fmt.Fprintf(w, "║   • %s\n", m.Error)
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func ibytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
