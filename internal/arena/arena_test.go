package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlloc_WithinCapacity(t *testing.T) {
	a := New("test", 16)

	first, err := a.Alloc(10)
	require.NoError(t, err)
	assert.Len(t, first, 10)
	assert.Equal(t, 10, cap(first))

	second, err := a.Alloc(6)
	require.NoError(t, err)
	assert.Len(t, second, 6)
	assert.Equal(t, 16, a.Len())
	assert.Equal(t, 16, a.Peak())
}

func TestAlloc_ExceedsCapacity(t *testing.T) {
	a := New("graph", 8)

	_, err := a.Alloc(5)
	require.NoError(t, err)

	_, err = a.Alloc(4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.Contains(t, err.Error(), "graph arena")
	assert.Equal(t, 5, a.Len(), "failed allocation must not move the high-water mark")
}

func TestAlloc_Negative(t *testing.T) {
	a := New("test", 8)
	_, err := a.Alloc(-1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCapacityExceeded))
}

func TestAlloc_ZeroCapacity(t *testing.T) {
	a := New("empty", 0)

	buf, err := a.Alloc(0)
	require.NoError(t, err)
	assert.Empty(t, buf)

	_, err = a.Alloc(1)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestAlloc_NoSpillOnAppend(t *testing.T) {
	a := New("test", 8)
	first, err := a.Alloc(2)
	require.NoError(t, err)
	second, err := a.Alloc(2)
	require.NoError(t, err)
	copy(second, "cd")

	first = append(first, 'x')
	first[0] = 'a'
	assert.Equal(t, "cd", string(second))
}

func TestReset(t *testing.T) {
	a := New("file", 4)
	_, err := a.Alloc(4)
	require.NoError(t, err)

	a.Reset()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 4, a.Peak())

	_, err = a.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Peak())
}

func TestCopyString(t *testing.T) {
	a := New("graph", 32)
	src := []byte("stdio.h")

	s, err := a.CopyString(src)
	require.NoError(t, err)
	src[0] = 'X'
	assert.Equal(t, "stdio.h", s)
	assert.Equal(t, 7, a.Len())

	empty, err := a.CopyString(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty)
	assert.Equal(t, 7, a.Len())
}

func TestCopyString_Exhausted(t *testing.T) {
	a := New("graph", 4)
	_, err := a.CopyString([]byte("vector.h"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 0, a.Len())
}
