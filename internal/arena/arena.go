// Package arena provides a fixed-capacity linear allocator.
//
// An Arena hands out byte ranges from a single preallocated region. Ranges are
// never freed individually; Reset reclaims all of them at once. When a request
// does not fit in the remaining capacity the Arena reports ErrCapacityExceeded
// instead of growing.
package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrCapacityExceeded is returned when an allocation does not fit.
var ErrCapacityExceeded = errors.New("arena capacity exceeded")

// Arena is a bump allocator over a fixed byte region. It is not safe for
// concurrent use.
type Arena struct {
	name string
	buf  []byte
	used int
	peak int
}

// New creates an arena with the given capacity in bytes.
func New(name string, capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{name: name, buf: make([]byte, capacity)}
}

// Alloc returns a range of n bytes. Its capacity is capped at n, so an append
// reallocates instead of spilling into the next allocation.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%s arena: negative allocation %d", a.name, n)
	}
	if n > len(a.buf)-a.used {
		return nil, fmt.Errorf("%s arena: requested %d bytes with %d of %d free: %w",
			a.name, n, len(a.buf)-a.used, len(a.buf), ErrCapacityExceeded)
	}
	start := a.used
	a.used += n
	if a.used > a.peak {
		a.peak = a.used
	}
	return a.buf[start:a.used:a.used], nil
}

// CopyString copies b into the arena and returns a string backed by the
// arena's memory. The string stays valid until the next Reset.
func (a *Arena) CopyString(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	dst, err := a.Alloc(len(b))
	if err != nil {
		return "", err
	}
	copy(dst, b)
	return unsafe.String(&dst[0], len(dst)), nil
}

// Reset marks the whole region free. Every range and string previously
// handed out is invalidated.
func (a *Arena) Reset() {
	a.used = 0
}

// Name returns the label used in error messages.
func (a *Arena) Name() string { return a.name }

// Len returns the number of bytes currently allocated.
func (a *Arena) Len() int { return a.used }

// Cap returns the total capacity.
func (a *Arena) Cap() int { return len(a.buf) }

// Peak returns the high-water mark across resets.
func (a *Arena) Peak() int { return a.peak }
