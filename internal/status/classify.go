package status

import (
	"strings"

	"datatools/pkg/contract"
)

// Category: 报表类别名。
type Category string

const (
	NotReply      Category = "not-reply"
	Replied       Category = "replied"
	Intent        Category = "intent"
	NotInterested Category = "not-interested"
	SingleTick    Category = "single-tick"
	Registered    Category = "registered"
	Recharge      Category = "recharge"
)

type rule struct {
	cat     Category
	needles []string
}

// 类别之间不互斥：同一状态可同时命中多个类别。
var taxonomy = []rule{
	{NotReply, []string{"online but no reply"}},
	{Replied, []string{"on training", "on details", "on deposit", "recharged"}},
	{Intent, []string{"on deposit", "recharged"}},
	{NotInterested, []string{"blocked", "not interested"}},
	{SingleTick, []string{"offline"}},
	{Registered, []string{"on training", "on deposit"}},
	{Recharge, []string{"recharged"}},
}

// AllCategories 按报表顺序返回全部类别。
func AllCategories() []Category {
	out := make([]Category, len(taxonomy))
	for i, r := range taxonomy {
		out[i] = r.cat
	}
	return out
}

// Categories 返回状态命中的全部类别（大小写不敏感的子串匹配）。
func Categories(status string) []Category {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return nil
	}
	var out []Category
	for _, r := range taxonomy {
		for _, n := range r.needles {
			if strings.Contains(s, n) {
				out = append(out, r.cat)
				break
			}
		}
	}
	return out
}

// Has 报告状态是否命中类别。
func Has(status string, c Category) bool {
	for _, got := range Categories(status) {
		if got == c {
			return true
		}
	}
	return false
}

// CategoryCounts: 各类别命中的记录数。
type CategoryCounts map[Category]int

// Classify 对记录集逐条归类计数。
func Classify(records []contract.Record) CategoryCounts {
	out := make(CategoryCounts, len(taxonomy))
	for _, c := range AllCategories() {
		out[c] = 0
	}
	for _, r := range records {
		for _, c := range Categories(r.Status) {
			out[c]++
		}
	}
	return out
}

// TotalData = not-reply + replied + not-interested + single-tick。
func (c CategoryCounts) TotalData() int {
	return c[NotReply] + c[Replied] + c[NotInterested] + c[SingleTick]
}
