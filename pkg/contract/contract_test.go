package contract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizePhone 验证匹配键只保留数字与 '+'。
func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"空格分组", "+1 925 216 6220", "+19252166220"},
		{"连字符与括号", "(925) 216-6220", "9252166220"},
		{"已规范", "+447700900123", "+447700900123"},
		{"空串", "", ""},
		{"全是杂字符", "abc -()", ""},
		{"中间换行", "+1\n925", "+1925"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

// TestComputeAverage 覆盖公式与分母为 0 的未定义分支。
func TestComputeAverage(t *testing.T) {
	a := ComputeAverage(10, 4, 0)
	require.True(t, a.Defined())
	assert.InDelta(t, 2.5, a.Value(), 1e-9)

	a = ComputeAverage(10, 4, 2)
	assert.InDelta(t, 2.0, a.Value(), 1e-9)

	u := ComputeAverage(0, 0, 0)
	assert.False(t, u.Defined())
	assert.Equal(t, DivZero, u.String())

	// 分母为 0 时追加分配后变为已定义
	assert.True(t, ComputeAverage(0, 0, 3).Defined())
}

// TestAverageBelow 未定义均值永不低于任何阈值。
func TestAverageBelow(t *testing.T) {
	assert.True(t, DefinedAverage(1.5).Below(2))
	assert.False(t, DefinedAverage(2).Below(2))
	assert.False(t, Undefined().Below(1e9))
}

// TestAverageString 两位小数展示。
func TestAverageString(t *testing.T) {
	assert.Equal(t, "2.5", DefinedAverage(2.5).String())
	assert.Equal(t, "0.33", DefinedAverage(1.0/3).String())
	assert.Equal(t, "4", DefinedAverage(4).String())
}

// TestTeamMemberRecompute 验证 CurrentData 与 Recompute 不修改原值。
func TestTeamMemberRecompute(t *testing.T) {
	m := TeamMember{Name: "Alpha", PriorCount: 4, PriorMonthlyTotal: 6, PriorItemCount: 2, Average: ComputeAverage(6, 2, 0)}
	m2 := m
	m2.AssignedCount = 2
	m2 = m2.Recompute()
	assert.Equal(t, 6, m2.CurrentData())
	assert.InDelta(t, 2.0, m2.Average.Value(), 1e-9)
	assert.InDelta(t, 3.0, m.Average.Value(), 1e-9)
	assert.Equal(t, 4, m.CurrentData())
}

// TestNewLineWarning 预览按 rune 截断。
func TestNewLineWarning(t *testing.T) {
	long := strings.Repeat("编", 50)
	w := NewLineWarning(7, long)
	assert.Equal(t, 7, w.Line)
	assert.Equal(t, PreviewLen, len([]rune(w.Preview)))

	short := NewLineWarning(1, "abc")
	assert.Equal(t, "abc", short.Preview)
}

// TestRecordWithStatus 返回副本。
func TestRecordWithStatus(t *testing.T) {
	r := Record{Phone: "+1"}
	r2 := r.WithStatus("Offline")
	assert.Equal(t, "", r.Status)
	assert.Equal(t, "Offline", r2.Status)
	assert.False(t, Assignment{}.Assigned())
	assert.True(t, Assignment{Member: "a"}.Assigned())
}
