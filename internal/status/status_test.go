package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatools/pkg/contract"
)

func statuses(ss ...string) []contract.Record {
	out := make([]contract.Record, len(ss))
	for i, s := range ss {
		out[i] = contract.Record{Status: s}
	}
	return out
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// TestSummarizeOrder 计数降序，同计数按首次出现
func TestSummarizeOrder(t *testing.T) {
	s := Summarize(statuses("Offline", "Blocked", " Offline ", "", "On Details", "Blocked", "Zed"))
	assert.Equal(t, []contract.StatusEntry{
		{Label: "Offline", Count: 2},
		{Label: "Blocked", Count: 2},
		{Label: "On Details", Count: 1},
		{Label: "Zed", Count: 1},
	}, s.Entries)
	assert.Equal(t, 6, s.GrandTotal)
	assert.Len(t, s.Records, 7)
}

// TestSummarizeCaseSensitive 标签精确匹配（区分大小写）
func TestSummarizeCaseSensitive(t *testing.T) {
	s := Summarize(statuses("offline", "Offline"))
	assert.Len(t, s.Entries, 2)
	sum := 0
	for _, e := range s.Entries {
		sum += e.Count
	}
	assert.LessOrEqual(t, sum, len(s.Records))
}

// TestMergeLabels rispose(5) 合并到 Response(10) 得到 Response(15)
func TestMergeLabels(t *testing.T) {
	in := append(repeat("Response", 10), repeat("rispose", 5)...)
	in = append(in, "Offline")
	s := Summarize(statuses(in...))
	require.Equal(t, 5, s.Count("rispose"))

	m, err := MergeLabels(s, "rispose", "Response")
	require.NoError(t, err)
	assert.Equal(t, 15, m.Count("Response"))
	assert.Equal(t, 0, m.Count("rispose"))
	for _, e := range m.Entries {
		assert.NotEqual(t, "rispose", e.Label)
	}
	assert.Equal(t, s.GrandTotal, m.GrandTotal)
	// 底层记录被改写，原汇总不变
	for _, r := range m.Records {
		assert.NotEqual(t, "rispose", r.Status)
	}
	assert.Equal(t, 5, s.Count("rispose"))
	assert.Equal(t, "Response", m.Entries[0].Label)
}

// TestMergeLabelsResort 合并后重新排序
func TestMergeLabelsResort(t *testing.T) {
	s := Summarize(statuses("A", "A", "A", "B", "B", "C", "C"))
	m, err := MergeLabels(s, "B", "C")
	require.NoError(t, err)
	assert.Equal(t, contract.StatusEntry{Label: "C", Count: 4}, m.Entries[0])
	assert.Equal(t, contract.StatusEntry{Label: "A", Count: 3}, m.Entries[1])
}

// TestMergeLabelsErrors 自合并、缺失标签、空标签
func TestMergeLabelsErrors(t *testing.T) {
	s := Summarize(statuses("A", "B"))
	_, err := MergeLabels(s, "A", "A")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = MergeLabels(s, "X", "A")
	assert.ErrorIs(t, err, contract.ErrLabelNotFound)
	_, err = MergeLabels(s, "A", " ")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

// TestMergeIntoNewLabel 目标标签不存在时相当于改名
func TestMergeIntoNewLabel(t *testing.T) {
	s := Summarize(statuses("A", "A"))
	m, err := MergeLabels(s, "A", "Z")
	require.NoError(t, err)
	assert.Equal(t, []contract.StatusEntry{{Label: "Z", Count: 2}}, m.Entries)
}

// TestFromLines 一行一个状态
func TestFromLines(t *testing.T) {
	recs, err := FromLines("Online but no reply\r\n\n  Offline  \nBlocked\n")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Offline", recs[1].Status)
	assert.Equal(t, 3, recs[1].Line)

	_, err = FromLines(" \n\n")
	assert.ErrorIs(t, err, contract.ErrNoData)
}

// TestPercent 一位小数
func TestPercent(t *testing.T) {
	assert.Equal(t, "33.3%", Percent(1, 3))
	assert.Equal(t, "100.0%", Percent(4, 4))
	assert.Equal(t, "0.0%", Percent(1, 0))
}

func BenchmarkSummarize(b *testing.B) {
	recs := statuses(strings.Split(strings.Repeat("Offline,Blocked,On Details,", 1000), ",")...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Summarize(recs)
	}
}
