//go:build !windows

package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"datatools/pkg/contract"
)

// TestMapPathInvalidUnix Unix 路径校验
func TestMapPathInvalidUnix(t *testing.T) {
	flat := false
	w, _ := New(&Options{OutputDir: t.TempDir(), Flat: &flat})
	for _, name := range []string{"/abs", "..", "."} {
		_, err := w.mapPath(name)
		assert.ErrorIs(t, err, contract.ErrPathInvalid, name)
	}
}
