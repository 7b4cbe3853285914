package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"datatools/pkg/contract"
)

func node(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return &doc
}

// TestStrictDecode 验证严格解码逻辑。
func TestStrictDecode(t *testing.T) {
	type opt struct {
		A int `yaml:"a"`
	}
	var o opt
	require.NoError(t, strictDecode(nil, &o))
	assert.Equal(t, 0, o.A)
	require.NoError(t, strictDecode(&yaml.Node{}, &o))
	require.NoError(t, strictDecode(node(t, "a: 1"), &o))
	assert.Equal(t, 1, o.A)
	assert.Error(t, strictDecode(node(t, "a: 1\nb: 2"), &o))
	require.NoError(t, strictDecode(node(t, "null"), &o))
}

// TestFactories 遍历注册表入口：合法选项成功，未知字段失败。
func TestFactories(t *testing.T) {
	empty := node(t, "{}")
	unknown := node(t, "x: 1")

	for name, f := range Layout {
		_, err := f(empty)
		assert.NoError(t, err, name)
		_, err = f(unknown)
		assert.Error(t, err, name)
	}
	for name, f := range Reader {
		_, err := f(empty)
		assert.NoError(t, err, name)
		_, err = f(unknown)
		assert.Error(t, err, name)
	}
	for name, f := range Clipboard {
		_, err := f(empty)
		assert.NoError(t, err, name)
		_, err = f(unknown)
		assert.Error(t, err, name)
	}
	for name, f := range Opener {
		_, err := f(empty)
		assert.NoError(t, err, name)
		_, err = f(unknown)
		assert.Error(t, err, name)
	}
	for name, f := range Transport {
		_, err := f(empty)
		assert.NoError(t, err, name)
		_, err = f(unknown)
		assert.Error(t, err, name)
	}

	// exporter 需要 output_dir
	_, err := Exporter["fs"](empty)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Exporter["fs"](node(t, "output_dir: "+t.TempDir()+"\nformat: csv"))
	assert.NoError(t, err)
}

// TestLayouts 默认顺序、自定义选项与未知名称
func TestLayouts(t *testing.T) {
	ls, err := Layouts(nil, nil)
	require.NoError(t, err)
	var names []string
	for _, l := range ls {
		names = append(names, l.Name())
	}
	assert.Equal(t, DefaultLayouts, names)

	ls, err = Layouts([]string{"recruiter"}, map[string]yaml.Node{"recruiter": *node(t, "min_phone_digits: 9")})
	require.NoError(t, err)
	require.Len(t, ls, 1)

	_, err = Layouts([]string{"fancy"}, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Layouts([]string{"labeled"}, map[string]yaml.Node{"labeled": *node(t, "bogus: true")})
	assert.Error(t, err)
}
