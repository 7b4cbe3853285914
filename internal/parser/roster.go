package parser

import (
	"strconv"
	"strings"

	"datatools/pkg/contract"
)

// RosterResult: 名单解析结果。
type RosterResult struct {
	Members  []contract.TeamMember
	Warnings []contract.LineWarning
}

// 名单行最多携带的位置字段：count, monthly-total, item-count, average。
const rosterNumericFields = 4

// idMinDigits: 紧随姓名的纯数字 token 长度超过 2 视为编号并并入姓名。
const idMinDigits = 3

// ParseRoster 解析名单文本，每行：
//
//	<name> [<numeric id>] [<count>] [<monthly-total>] [<item-count>] [<average-or-DIV0>]
//
// 平均值列仅做格式校验，实际值按公式重算。
// 格式错误或重名的行记为警告并丢弃。
func ParseRoster(raw string) (RosterResult, error) {
	if strings.TrimSpace(raw) == "" {
		return RosterResult{}, contract.ErrNoData
	}
	var res RosterResult
	seen := make(map[string]struct{})
	for i, line := range SplitLines(raw) {
		norm := Normalize(line)
		if norm == "" {
			continue
		}
		m, ok := parseMember(norm)
		if !ok {
			res.Warnings = append(res.Warnings, contract.NewLineWarning(i+1, norm))
			continue
		}
		if _, dup := seen[m.Name]; dup {
			res.Warnings = append(res.Warnings, contract.NewLineWarning(i+1, norm))
			continue
		}
		seen[m.Name] = struct{}{}
		res.Members = append(res.Members, m)
	}
	return res, nil
}

func parseMember(line string) (contract.TeamMember, bool) {
	toks := strings.Fields(line)
	n := 0
	for n < len(toks) && !isDigits(toks[n]) {
		n++
	}
	if n == 0 {
		return contract.TeamMember{}, false
	}
	name := strings.Join(toks[:n], " ")
	rest := toks[n:]
	if len(rest) > 0 && len(rest[0]) >= idMinDigits {
		name += " " + rest[0]
		rest = rest[1:]
	}
	if len(rest) > rosterNumericFields {
		return contract.TeamMember{}, false
	}
	var nums [rosterNumericFields - 1]int
	for i, tok := range rest {
		if i == rosterNumericFields-1 {
			if !validAverage(tok) {
				return contract.TeamMember{}, false
			}
			break
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			return contract.TeamMember{}, false
		}
		nums[i] = v
	}
	m := contract.TeamMember{
		Name:              name,
		PriorCount:        nums[0],
		PriorMonthlyTotal: nums[1],
		PriorItemCount:    nums[2],
	}
	return m.Recompute(), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// divZeroTokens: 表格软件导出的“除零”写法。
var divZeroTokens = map[string]struct{}{
	"#div/0!":   {},
	"div0":      {},
	"#div/0":    {},
	"infinity":  {},
	"-infinity": {},
	"∞":         {},
	"nan":       {},
}

func validAverage(tok string) bool {
	if _, ok := divZeroTokens[strings.ToLower(tok)]; ok {
		return true
	}
	v, err := strconv.ParseFloat(tok, 64)
	return err == nil && v >= 0
}
