package traverse

import "fmt"

// VisitedSet records identifiers whose contents have been read and parsed.
// Identifiers compare by their exact bytes.
type VisitedSet struct {
	seen  map[string]struct{}
	limit int
}

// NewVisitedSet creates a set holding at most limit identifiers.
func NewVisitedSet(limit int) *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{}), limit: limit}
}

func (v *VisitedSet) Has(id string) bool {
	_, ok := v.seen[id]
	return ok
}

// Add marks id as processed. Adding an identifier twice is a no-op.
func (v *VisitedSet) Add(id string) error {
	if _, ok := v.seen[id]; ok {
		return nil
	}
	if len(v.seen) >= v.limit {
		return fmt.Errorf("%w: %d files", ErrVisitedFull, len(v.seen))
	}
	v.seen[id] = struct{}{}
	return nil
}

func (v *VisitedSet) Len() int { return len(v.seen) }
