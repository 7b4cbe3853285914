//go:build windows

package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"datatools/pkg/contract"
)

// TestMapPathInvalidWindows Windows 路径校验
func TestMapPathInvalidWindows(t *testing.T) {
	flat := false
	w, _ := New(&Options{OutputDir: t.TempDir(), Flat: &flat})
	for _, name := range []string{"C:\\abs", "..", "."} {
		_, err := w.mapPath(name)
		assert.ErrorIs(t, err, contract.ErrPathInvalid, name)
	}
}
