package matcher

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatools/pkg/contract"
)

func rec(phone, status string) contract.Record {
	return contract.Record{Phone: phone, Status: status, Raw: phone}
}

// TestMatchBasic 命中/未命中，保持顺序与长度
func TestMatchBasic(t *testing.T) {
	base := []contract.Record{rec("+1111111", "stale"), rec("+2222222", ""), rec("+3333333", "")}
	status := []contract.Record{rec("+3333333", "Offline"), rec("+1111111", "On Details")}
	out, err := Match(base, status)
	require.NoError(t, err)
	require.Len(t, out, len(base))
	assert.Equal(t, "On Details", out[0].Status)
	assert.Equal(t, "", out[1].Status)
	assert.Equal(t, "Offline", out[2].Status)
	for i := range base {
		assert.Equal(t, base[i].Phone, out[i].Phone)
	}
	// 输入未被修改
	assert.Equal(t, "stale", base[0].Status)

	hit, miss := Stats(out)
	assert.Equal(t, 2, hit)
	assert.Equal(t, 1, miss)
}

// TestMatchLastWriterWins 状态集同号重复：后写者胜出，并报告被覆盖号码
func TestMatchLastWriterWins(t *testing.T) {
	base := []contract.Record{rec("+1111111", "")}
	status := []contract.Record{
		rec("+1111111", "Offline"),
		rec("+1 111 111", "Blocked"),
		rec("+1111111", "Recharged"),
	}
	out, err := Match(base, status)
	require.NoError(t, err)
	assert.Equal(t, "Recharged", out[0].Status)

	idx := NewIndex(status)
	assert.Equal(t, []string{"+1111111", "+1111111"}, idx.Overwritten)
	assert.Equal(t, 1, idx.Len())
}

// TestMatchEmpty 空基础集快速失败；空状态集合法
func TestMatchEmpty(t *testing.T) {
	_, err := Match(nil, []contract.Record{rec("+1", "x")})
	assert.ErrorIs(t, err, contract.ErrNoData)

	out, err := Match([]contract.Record{rec("+1234567", "old")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", out[0].Status)
}

// TestMatchIdempotent 重复执行结果一致，长度不变
func TestMatchIdempotent(t *testing.T) {
	for n := 1; n <= 50; n += 7 {
		base := make([]contract.Record, n)
		var status []contract.Record
		for i := 0; i < n; i++ {
			p := fmt.Sprintf("+100000%03d", i%5)
			base[i] = rec(p, "")
			if i%3 == 0 {
				status = append(status, rec(p, fmt.Sprintf("s%d", i)))
			}
		}
		a, err := Match(base, status)
		require.NoError(t, err)
		b, err := Match(base, status)
		require.NoError(t, err)
		assert.Len(t, a, n)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("两次结果不一致 (-a +b):\n%s", diff)
		}
	}
}

// TestIndexSkipsEmptyPhone 无号码的状态记录不入索引
func TestIndexSkipsEmptyPhone(t *testing.T) {
	idx := NewIndex([]contract.Record{rec("", "x"), rec("abc", "y")})
	assert.Equal(t, 0, idx.Len())
	_, ok := idx.Lookup("")
	assert.False(t, ok)
}
