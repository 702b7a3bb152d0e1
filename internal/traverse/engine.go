// Package traverse discovers an include graph breadth-first from a set of
// seed files.
//
// All discovered path strings live in a persistent arena owned by the run
// that found them; file contents are read into a transient arena that is
// reset before every file. The work queue, visited set and both arenas are bounded. Exceeding
// any bound other than the transient arena aborts the run with
// ErrLimitExceeded, since a truncated graph is worse than a failed one.
package traverse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/cppig/internal/arena"
	"github.com/efebarandurmaz/cppig/internal/depgraph"
	"github.com/efebarandurmaz/cppig/internal/include"
	"github.com/efebarandurmaz/cppig/internal/observability"
)

var (
	// ErrNoSeeds is returned by Run when no seed files are given.
	ErrNoSeeds = errors.New("no files are provided")
	// ErrLimitExceeded wraps every fatal capacity failure.
	ErrLimitExceeded = errors.New("memory limit exceeded")

	ErrQueueFull   = errors.New("work queue full")
	ErrVisitedFull = errors.New("visited set full")
)

// Reader loads the whole contents of a file into dst. The returned slice must
// be allocated from dst.
type Reader interface {
	ReadFile(path string, dst *arena.Arena) ([]byte, error)
}

// Limits bounds the memory a run may use.
type Limits struct {
	MaxQueue   int // pending identifiers, duplicates included
	MaxVisited int // distinct processed files
	FileArena  int // bytes for the contents of one file
	GraphArena int // bytes for all discovered path strings
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxQueue:   4096,
		MaxVisited: 4096,
		FileArena:  20 << 20,
		GraphArena: 20 << 20,
	}
}

// Options configures an Engine.
type Options struct {
	Limits Limits
	// Silent suppresses the per-file open failure warnings.
	Silent bool
	Logger *slog.Logger
}

// Engine performs the traversal. It is single-threaded; one Engine must not
// be used by concurrent Runs.
type Engine struct {
	reader  Reader
	emitter depgraph.Emitter
	logger  *slog.Logger
	silent  bool
	limits  Limits

	files   *arena.Arena
	paths   *arena.Arena
	queue   *Queue
	visited *VisitedSet
	stats   Stats
}

// New creates an engine that reads through reader and streams edges to
// emitter. Zero limits fall back to DefaultLimits.
func New(reader Reader, emitter depgraph.Emitter, opts Options) *Engine {
	limits := opts.Limits
	def := DefaultLimits()
	if limits.MaxQueue <= 0 {
		limits.MaxQueue = def.MaxQueue
	}
	if limits.MaxVisited <= 0 {
		limits.MaxVisited = def.MaxVisited
	}
	if limits.FileArena <= 0 {
		limits.FileArena = def.FileArena
	}
	if limits.GraphArena <= 0 {
		limits.GraphArena = def.GraphArena
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		reader:  reader,
		emitter: emitter,
		logger:  logger,
		silent:  opts.Silent,
		limits:  limits,
		files:   arena.New("file", limits.FileArena),
	}
}

// Run traverses the include graph reachable from seeds and emits one edge per
// include directive found, framed by the emitter's Begin and End. Files that
// cannot be read are reported and skipped. On a fatal error End is not
// called.
func (e *Engine) Run(ctx context.Context, name string, seeds []string) (Stats, error) {
	if len(seeds) == 0 {
		return Stats{}, ErrNoSeeds
	}

	ctx, span := observability.StartRunSpan(ctx, name, len(seeds))
	defer span.End()

	err := e.run(ctx, name, seeds)
	e.stats.MaxQueueDepth = e.queue.Peak()
	e.stats.FileArenaPeak = e.files.Peak()
	e.stats.GraphArenaUsed = e.paths.Len()
	observability.RecordRunResult(span, e.stats.FilesVisited, e.stats.FilesFailed, e.stats.Edges, err)
	return e.stats, err
}

func (e *Engine) run(ctx context.Context, name string, seeds []string) error {
	e.stats = Stats{}
	e.queue = NewQueue(e.limits.MaxQueue)
	e.visited = NewVisitedSet(e.limits.MaxVisited)
	e.files.Reset()
	// Edges from earlier runs still reference the previous arena.
	e.paths = arena.New("graph", e.limits.GraphArena)

	for _, seed := range seeds {
		if err := e.queue.Push(seed); err != nil {
			return fmt.Errorf("%w: seeding: %w", ErrLimitExceeded, err)
		}
	}

	if err := e.emitter.Begin(ctx, name); err != nil {
		return fmt.Errorf("begin graph: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, ok := e.queue.Pop()
		if !ok {
			break
		}
		if e.visited.Has(id) {
			e.stats.DuplicateDequeues++
			continue
		}
		if err := e.visit(ctx, id); err != nil {
			return err
		}
	}

	if err := e.emitter.End(ctx); err != nil {
		return fmt.Errorf("end graph: %w", err)
	}
	return nil
}

// visit reads one file, emits its edges and queues its targets. It returns
// an error only for fatal conditions.
func (e *Engine) visit(ctx context.Context, id string) error {
	ctx, span := observability.StartFileSpan(ctx, id)
	defer span.End()

	e.files.Reset()
	content, err := e.reader.ReadFile(id, e.files)
	if err != nil {
		e.stats.FilesFailed++
		observability.RecordFileFailure(span, err)
		if !e.silent {
			e.logger.Warn("could not open file", "file", id, "error", err)
		}
		return nil
	}
	e.stats.BytesRead += int64(len(content))

	edges := 0
	for len(content) > 0 {
		var line []byte
		line, content = chopLine(content)

		target, err := include.ParseLine(line)
		if err != nil {
			if include.IsDirective(err) {
				e.stats.RejectedLines++
				if e.logger.Enabled(ctx, slog.LevelDebug) {
					e.logger.Debug("skipping malformed include", "file", id, "line", string(line), "reason", err)
				}
			}
			continue
		}

		// target points into the file arena; it must be owned before the
		// next Reset.
		owned, err := e.paths.CopyString(target)
		if err != nil {
			return fmt.Errorf("%w: storing include of %s: %w", ErrLimitExceeded, id, err)
		}
		if err := e.emitter.Edge(ctx, depgraph.Edge{From: id, To: owned}); err != nil {
			return fmt.Errorf("emit edge %s -> %s: %w", id, owned, err)
		}
		edges++
		e.stats.Edges++
		if err := e.queue.Push(owned); err != nil {
			return fmt.Errorf("%w: %w", ErrLimitExceeded, err)
		}
	}

	if err := e.visited.Add(id); err != nil {
		return fmt.Errorf("%w: %w", ErrLimitExceeded, err)
	}
	e.stats.FilesVisited++
	observability.RecordFileResult(span, e.files.Len(), edges)
	return nil
}

func chopLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:]
	}
	return b, nil
}
