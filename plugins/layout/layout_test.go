package layout

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroups(t *testing.T) {
	re := regexp.MustCompile(`^(?P<a>\w+)\s+(?P<b>\w+)?$`)
	g, ok := Groups(re, "x y")
	assert.True(t, ok)
	assert.Equal(t, "x", g["a"])
	assert.Equal(t, "y", g["b"])
	_, ok = Groups(re, "")
	assert.False(t, ok)
}

func TestPhone(t *testing.T) {
	p, ok := Phone("+1 925 216", 6)
	assert.True(t, ok)
	assert.Equal(t, "+1925216", p)
	_, ok = Phone("+12", 6)
	assert.False(t, ok)
	_, ok = Phone("12+345678", 6)
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "", Status(" x ", false))
	assert.Equal(t, "x", Status(" x ", true))
}
