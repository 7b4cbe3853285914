// Package adjust 处理分配完成后的手工数量修正。
package adjust

import (
	"fmt"

	"datatools/internal/distribute"
	"datatools/pkg/contract"
)

// Reason: 拒绝原因。
type Reason string

const (
	ReasonNegative    Reason = "negative"
	ReasonExceedsPool Reason = "exceeds-pool"
)

// Rejection: 单次调整被拒绝；原状态不变。
type Rejection struct {
	Member    string
	Requested int
	Reason    Reason
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("adjust %q to %d rejected: %s", r.Member, r.Requested, r.Reason)
}

// Unwrap 映射到对应哨兵错误。
func (r *Rejection) Unwrap() error {
	if r.Reason == ReasonNegative {
		return contract.ErrNegativeCount
	}
	return contract.ErrExceedsPool
}

// Adjust 校验并返回调整后的成员副本。
// 拒绝：newCount < 0；或 currentTotal - m.AssignedCount + newCount > poolSize。
func Adjust(m contract.TeamMember, newCount, poolSize, currentTotal int) (contract.TeamMember, error) {
	if newCount < 0 {
		return m, &Rejection{Member: m.Name, Requested: newCount, Reason: ReasonNegative}
	}
	if currentTotal-m.AssignedCount+newCount > poolSize {
		return m, &Rejection{Member: m.Name, Requested: newCount, Reason: ReasonExceedsPool}
	}
	m.AssignedCount = newCount
	return m.Recompute(), nil
}

// Apply 将成员 name 的分配量改为 newCount，并基于原始池顺序重新物化：
// 缩减时保留其原有项中池顺序靠前的部分；增加时按池顺序领取空闲项。
func Apply(res distribute.Result, name string, newCount int) (distribute.Result, error) {
	m, ok := res.Member(name)
	if !ok {
		return res, fmt.Errorf("adjust %q: %w", name, contract.ErrUnknownMember)
	}
	updated, err := Adjust(m, newCount, len(res.Assignments), res.TotalAssigned())
	if err != nil {
		return res, err
	}
	roster := make([]contract.TeamMember, len(res.Roster))
	for i, r := range res.Roster {
		if r.Name == name {
			r = updated
		}
		roster[i] = r
	}
	owners := Materialize(roster, res.Owners())
	return distribute.Build(roster, res.Pool(), owners), nil
}

// Materialize 以各成员目标 AssignedCount 重新计算逐项归属。
// 规则：
// 1) 每名成员保留其原有项中前 min(目标, 原数量) 项（池顺序）；
// 2) 其余原有项释放；
// 3) 需增加者按名单顺序依次从池顺序的空闲项中领取。
func Materialize(roster []contract.TeamMember, previous []string) []string {
	target := make(map[string]int, len(roster))
	for _, m := range roster {
		target[m.Name] = m.AssignedCount
	}
	owners := make([]string, len(previous))
	kept := make(map[string]int, len(roster))
	for i, o := range previous {
		if o == "" {
			continue
		}
		if kept[o] < target[o] {
			owners[i] = o
			kept[o]++
		}
	}
	next := 0
	for _, m := range roster {
		for kept[m.Name] < target[m.Name] {
			for next < len(owners) && owners[next] != "" {
				next++
			}
			if next >= len(owners) {
				return owners
			}
			owners[next] = m.Name
			kept[m.Name]++
		}
	}
	return owners
}
