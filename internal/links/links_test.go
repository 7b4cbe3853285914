package links

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatools/pkg/contract"
)

func TestCompose(t *testing.T) {
	assert.Equal(t, "Username: john", Compose(" Username: john ", ""))
	assert.Equal(t, "Receipt: https://x/r.jpg", Compose("", "https://x/r.jpg"))
	assert.Equal(t, "hi\n\nReceipt: https://x/r.jpg", Compose("hi", " https://x/r.jpg "))
	assert.Equal(t, "", Compose("  ", ""))
}

func TestURL(t *testing.T) {
	u, err := URL("", "+92 300-123 4567", "hi there & more")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/+923001234567?text=hi%20there%20%26%20more", u)

	u, err = URL("https://example.test", "8613800000000", "a+b\n")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/8613800000000?text=a%2Bb%0A", u)

	_, err = URL("", "abc", "x")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = URL("", "+", "x")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func newTestGenerator() *Generator {
	g := NewGenerator("")
	n := 0
	g.NewID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	g.Now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return g
}

// TestHistoryKeepsLastTen 历史仅保留最近 10 条，新在前
func TestHistoryKeepsLastTen(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 12; i++ {
		_, err := g.Generate(Request{Number: fmt.Sprintf("+92300%07d", i), Message: "m"})
		require.NoError(t, err)
	}
	h := g.History()
	require.Len(t, h, HistoryDepth)
	assert.Equal(t, "id-12", h[0].ID)
	assert.Equal(t, "id-3", h[len(h)-1].ID)
}

func TestRemoveAndReuse(t *testing.T) {
	g := newTestGenerator()
	l, err := g.Generate(Request{Number: "+92 300 1", Message: "user: a", Receipt: "https://r"})
	require.NoError(t, err)
	assert.Equal(t, "+923001", l.Number)
	_, err = g.Generate(Request{Number: "+1 555"})
	require.NoError(t, err)

	req, ok := g.Reuse(l.ID)
	require.True(t, ok)
	assert.Equal(t, Request{Number: "+923001", Message: "user: a", Receipt: "https://r"}, req)

	assert.True(t, g.Remove(l.ID))
	assert.False(t, g.Remove(l.ID))
	assert.Len(t, g.History(), 1)
	_, ok = g.Reuse(l.ID)
	assert.False(t, ok)

	_, err = g.Generate(Request{Number: ""})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	assert.Len(t, g.History(), 1)
}
