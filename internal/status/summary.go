// Package status 统计状态分布、合并相近标签并按固定类别归类。
package status

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"datatools/pkg/contract"
)

// Summary: 汇总结果及其底层记录集（合并标签时改写的是记录集本身）。
type Summary struct {
	Records []contract.Record
	Entries []contract.StatusEntry
	// GrandTotal: 状态非空的记录数。
	GrandTotal int
}

// FromLines 将“一行一个状态”的文本转为记录集；空行跳过。
func FromLines(raw string) ([]contract.Record, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	var out []contract.Record
	for i, l := range lines {
		s := strings.TrimSpace(l)
		if s == "" {
			continue
		}
		out = append(out, contract.Record{Status: s, Line: i + 1, Raw: s})
	}
	if len(out) == 0 {
		return nil, contract.ErrNoData
	}
	return out, nil
}

// Summarize 按去首尾空白后的精确标签计数。
// 排序：计数降序；计数相同按首次出现顺序。空状态不计入。
func Summarize(records []contract.Record) Summary {
	recs := make([]contract.Record, len(records))
	copy(recs, records)

	pos := make(map[string]int)
	var entries []contract.StatusEntry
	total := 0
	for _, r := range recs {
		label := strings.TrimSpace(r.Status)
		if label == "" {
			continue
		}
		total++
		if i, ok := pos[label]; ok {
			entries[i].Count++
			continue
		}
		pos[label] = len(entries)
		entries = append(entries, contract.StatusEntry{Label: label, Count: 1})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	return Summary{Records: recs, Entries: entries, GrandTotal: total}
}

// Count 返回标签计数；不存在为 0。
func (s Summary) Count(label string) int {
	for _, e := range s.Entries {
		if e.Label == label {
			return e.Count
		}
	}
	return 0
}

// MergeLabels 将底层记录中的 from 全部改写为 to 后重新汇总。
// 合并后 count(to) = 原 count(from) + 原 count(to)。
func MergeLabels(s Summary, from, to string) (Summary, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return s, fmt.Errorf("merge: %w: empty label", contract.ErrInvalidInput)
	}
	if from == to {
		return s, fmt.Errorf("merge: %w: %q onto itself", contract.ErrInvalidInput, from)
	}
	if s.Count(from) == 0 {
		return s, fmt.Errorf("merge %q: %w", from, contract.ErrLabelNotFound)
	}
	recs := make([]contract.Record, len(s.Records))
	for i, r := range s.Records {
		if strings.TrimSpace(r.Status) == from {
			r = r.WithStatus(to)
		}
		recs[i] = r
	}
	return Summarize(recs), nil
}

// Percent 返回一位小数的百分比文本；total 为 0 时为 "0.0%"。
func Percent(count, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return strconv.FormatFloat(float64(count)*100/float64(total), 'f', 1, 64) + "%"
}
