package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRingDropsOldest 超出容量丢弃最旧快照
func TestRingDropsOldest(t *testing.T) {
	r := New[int](0)
	require.Equal(t, DefaultDepth, r.Cap())
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Items())

	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, 5, v)
	v, _ = r.Peek()
	assert.Equal(t, 4, v)
	r.Push(9)
	assert.Equal(t, []int{3, 4, 9}, r.Items())
}

// TestRingEmpty 空环
func TestRingEmpty(t *testing.T) {
	r := New[string](2)
	_, ok := r.Pop()
	assert.False(t, ok)
	_, ok = r.Peek()
	assert.False(t, ok)
	assert.Empty(t, r.Items())
}

// TestRingUndoSequence 连续撤销直到耗尽
func TestRingUndoSequence(t *testing.T) {
	r := New[string](3)
	for _, s := range []string{"a", "b", "c", "d"} {
		r.Push(s)
	}
	var got []string
	for {
		v, ok := r.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []string{"d", "c", "b"}, got)
	assert.Equal(t, 0, r.Len())
}
