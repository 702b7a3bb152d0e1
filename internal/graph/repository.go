// Package graph stores discovered include edges in a graph database.
package graph

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/cppig/internal/depgraph"
)

// Repository provides graph storage for include edges.
type Repository interface {
	// ResetGraph removes every edge previously stored under graphName.
	ResetGraph(ctx context.Context, graphName string) error
	// StoreInclude records that from includes to within graphName.
	StoreInclude(ctx context.Context, graphName, from, to string) error
	// Close releases resources.
	Close(ctx context.Context) error
}

// Sink adapts a Repository to depgraph.Emitter so edges are stored as they
// are discovered. Each run replaces the previously stored graph of the same
// name.
type Sink struct {
	repo Repository
	name string
}

// NewSink creates an emitter writing to repo.
func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo}
}

func (s *Sink) Begin(ctx context.Context, name string) error {
	s.name = name
	if err := s.repo.ResetGraph(ctx, name); err != nil {
		return fmt.Errorf("reset stored graph %s: %w", name, err)
	}
	return nil
}

func (s *Sink) Edge(ctx context.Context, e depgraph.Edge) error {
	if err := s.repo.StoreInclude(ctx, s.name, e.From, e.To); err != nil {
		return fmt.Errorf("store %s -> %s: %w", e.From, e.To, err)
	}
	return nil
}

func (s *Sink) End(context.Context) error { return nil }

var _ depgraph.Emitter = (*Sink)(nil)
