package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ShutdownHook is a function called during shutdown.
type ShutdownHook struct {
	Name     string
	Priority int // lower runs first
	Fn       func(ctx context.Context) error
}

// Shutdown runs registered hooks in priority order under one deadline.
type Shutdown struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration
	logger  *slog.Logger
	once    sync.Once
	err     error
}

// NewShutdown creates a shutdown sequence bounded by timeout (30s if zero).
func NewShutdown(timeout time.Duration, logger *slog.Logger) *Shutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Shutdown{timeout: timeout, logger: logger}
}

// Register adds a hook. Hooks of equal priority run in registration order.
func (s *Shutdown) Register(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, ShutdownHook{Name: name, Priority: priority, Fn: fn})
	sort.SliceStable(s.hooks, func(i, j int) bool { return s.hooks[i].Priority < s.hooks[j].Priority })
}

// Run executes every hook once, continuing past failures, and returns the
// joined errors. Later calls return the first result.
func (s *Shutdown) Run() error {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.mu.Lock()
		hooks := append([]ShutdownHook(nil), s.hooks...)
		s.mu.Unlock()

		var errs []error
		for _, hook := range hooks {
			if err := hook.Fn(ctx); err != nil {
				s.logger.Warn("shutdown hook failed", "hook", hook.Name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
				continue
			}
			s.logger.Debug("shutdown hook done", "hook", hook.Name)
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}
