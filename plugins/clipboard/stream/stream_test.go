package stream

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCopy(t *testing.T) {
	var buf bytes.Buffer
	s := NewTo(&buf, nil)
	require.NoError(t, s.Copy(context.Background(), "a\tb"))
	require.NoError(t, s.Copy(context.Background(), "c\n"))
	assert.Equal(t, "a\tb\nc\n", buf.String())

	buf.Reset()
	s = NewTo(&buf, &Options{Separator: "\n---\n"})
	require.NoError(t, s.Copy(context.Background(), "x"))
	assert.Equal(t, "x\n---\n", buf.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Copy(ctx, "y"), context.Canceled)
}
