package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatools/pkg/contract"
)

// TestParseRosterSample 名单样例：姓名、编号并入、计数位置可选
func TestParseRosterSample(t *testing.T) {
	res, err := ParseRoster("Master122\nAlpha 411 4\nPikki 4\nJutt 420 2\nMike 431\n")
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	got := make(map[string]int)
	var names []string
	for _, m := range res.Members {
		got[m.Name] = m.PriorCount
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Master122", "Alpha 411", "Pikki", "Jutt 420", "Mike 431"}, names)
	assert.Equal(t, map[string]int{"Master122": 0, "Alpha 411": 4, "Pikki": 4, "Jutt 420": 2, "Mike 431": 0}, got)
}

// TestParseRosterFullLine 全字段行；均值按公式重算
func TestParseRosterFullLine(t *testing.T) {
	res, err := ParseRoster("Alpha 411 4 10 5 9.99\nBeta 0 0 0 #DIV/0!\nGamma Ray 3 7 2 Infinity")
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.Len(t, res.Members, 3)

	a := res.Members[0]
	assert.Equal(t, "Alpha 411", a.Name)
	assert.Equal(t, 4, a.PriorCount)
	assert.Equal(t, 10, a.PriorMonthlyTotal)
	assert.Equal(t, 5, a.PriorItemCount)
	require.True(t, a.Average.Defined())
	assert.InDelta(t, 2.0, a.Average.Value(), 1e-9)

	assert.False(t, res.Members[1].Average.Defined())
	assert.Equal(t, "Gamma Ray", res.Members[2].Name)
	assert.InDelta(t, 3.5, res.Members[2].Average.Value(), 1e-9)
}

// TestParseRosterWarnings 非法数字、字段过多、重名、缺姓名
func TestParseRosterWarnings(t *testing.T) {
	in := "Bob 4 x\nCarl 1 2 3 4 5\nDan 2\nDan 3\n411 4\nEve 1 2 3 abc\nFay 2"
	res, err := ParseRoster(in)
	require.NoError(t, err)
	var names []string
	for _, m := range res.Members {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Dan", "Fay"}, names)
	var lines []int
	for _, w := range res.Warnings {
		lines = append(lines, w.Line)
	}
	assert.Equal(t, []int{1, 2, 4, 5, 6}, lines)
}

// TestParseRosterEmpty 空白输入
func TestParseRosterEmpty(t *testing.T) {
	_, err := ParseRoster(" \n ")
	assert.ErrorIs(t, err, contract.ErrNoData)
}
