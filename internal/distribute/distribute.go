// Package distribute 按选定策略将记录池分配给名单成员。
package distribute

import (
	"fmt"
	"sort"
	"strings"

	"datatools/pkg/contract"
)

// Policy: 分配策略名。
type Policy string

const (
	Equal   Policy = "equal"
	Minimum Policy = "minimum"
	Average Policy = "average"
)

// ParsePolicy 解析策略名（大小写不敏感）。
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Equal, Minimum, Average:
		return p, nil
	default:
		return "", fmt.Errorf("policy %q: %w", s, contract.ErrUnknownPolicy)
	}
}

// Params: 策略参数。
type Params struct {
	Policy Policy
	// Minimum: minimum 策略下每名成员首轮保底数量（>=0）。
	Minimum int
	// Threshold: average 策略下的均值上限（严格小于才有资格）。
	Threshold float64
	// MaxPerMember: 单成员新分配上限；0 表示不限。
	MaxPerMember int
}

// Result: 分配结果。
// Assignments 覆盖池中每一项恰好一次：按成员名字典序分组，组内保持池顺序，未分配项排最后。
type Result struct {
	Assignments []contract.Assignment
	Roster      []contract.TeamMember
	Unassigned  int
}

// Distribute 执行一次分配。输入的 roster 与 pool 不会被修改。
func Distribute(roster []contract.TeamMember, pool []contract.Record, p Params) (Result, error) {
	if len(roster) == 0 || len(pool) == 0 {
		return Result{}, contract.ErrNoData
	}
	if err := validateRoster(roster); err != nil {
		return Result{}, err
	}
	if p.Minimum < 0 || p.MaxPerMember < 0 {
		return Result{}, fmt.Errorf("distribute: %w: negative parameter", contract.ErrInvalidInput)
	}

	a := newAllocator(len(roster), len(pool), p.MaxPerMember)
	switch p.Policy {
	case Equal:
		a.roundRobin(allMembers(len(roster)))
	case Minimum:
		for m := range roster {
			a.firstFit(m, p.Minimum)
		}
		a.roundRobin(allMembers(len(roster)))
	case Average:
		var eligible []int
		for i, m := range roster {
			if contract.ComputeAverage(m.PriorMonthlyTotal, m.PriorItemCount, 0).Below(p.Threshold) {
				eligible = append(eligible, i)
			}
		}
		if len(eligible) == 0 {
			return Result{}, fmt.Errorf("distribute: threshold %g: %w", p.Threshold, contract.ErrNoEligible)
		}
		a.roundRobin(eligible)
	default:
		return Result{}, fmt.Errorf("distribute %q: %w", p.Policy, contract.ErrUnknownPolicy)
	}

	owners := make([]string, len(pool))
	for i, m := range a.owner {
		if m >= 0 {
			owners[i] = roster[m].Name
		}
	}
	return Build(roster, pool, owners), nil
}

// allocator 记录每个池项的归属（成员下标，-1 为未分配）。
type allocator struct {
	owner  []int
	counts []int
	limit  int
	next   int // 首个未分配池项
}

func newAllocator(members, items, limit int) *allocator {
	owner := make([]int, items)
	for i := range owner {
		owner[i] = -1
	}
	return &allocator{owner: owner, counts: make([]int, members), limit: limit}
}

func (a *allocator) hasRoom(m int) bool { return a.limit == 0 || a.counts[m] < a.limit }

func (a *allocator) take(item, m int) {
	a.owner[item] = m
	a.counts[m]++
}

// advance 跳到下一个未分配项；返回 false 表示池已耗尽。
func (a *allocator) advance() bool {
	for a.next < len(a.owner) && a.owner[a.next] >= 0 {
		a.next++
	}
	return a.next < len(a.owner)
}

// firstFit 为成员 m 按池顺序连续领取至多 k 项。
func (a *allocator) firstFit(m, k int) {
	for n := 0; n < k && a.hasRoom(m) && a.advance(); n++ {
		a.take(a.next, m)
	}
}

// roundRobin 将剩余项按池顺序轮转分给 members，游标从 0 开始；
// 跳过已达上限的成员，全部满员时其余项保持未分配。
func (a *allocator) roundRobin(members []int) {
	cursor := 0
	for a.advance() {
		picked := -1
		for step := 0; step < len(members); step++ {
			c := (cursor + step) % len(members)
			if a.hasRoom(members[c]) {
				picked = c
				break
			}
		}
		if picked < 0 {
			return
		}
		a.take(a.next, members[picked])
		cursor = (picked + 1) % len(members)
	}
}

func allMembers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func validateRoster(roster []contract.TeamMember) error {
	seen := make(map[string]struct{}, len(roster))
	for _, m := range roster {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("distribute: %w: empty member name", contract.ErrInvalidInput)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("distribute: %w: duplicate member %q", contract.ErrInvalidInput, m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

// Build 由逐项归属（成员名，空串为未分配）物化结果：
// 重算各成员 AssignedCount 与 Average，并按分组规则排序。
func Build(roster []contract.TeamMember, pool []contract.Record, owners []string) Result {
	counts := make(map[string]int, len(roster))
	for _, o := range owners {
		if o != "" {
			counts[o]++
		}
	}
	out := Result{Roster: make([]contract.TeamMember, len(roster))}
	for i, m := range roster {
		m.AssignedCount = counts[m.Name]
		out.Roster[i] = m.Recompute()
	}

	names := make([]string, 0, len(roster))
	for _, m := range roster {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	rank := make(map[string]int, len(names))
	for i, n := range names {
		rank[n] = i
	}
	out.Assignments = make([]contract.Assignment, len(pool))
	for i, r := range pool {
		out.Assignments[i] = contract.Assignment{PoolIndex: i, Member: owners[i], Record: r}
	}
	unassignedRank := len(names)
	key := func(a contract.Assignment) int {
		if a.Member == "" {
			return unassignedRank
		}
		return rank[a.Member]
	}
	sort.SliceStable(out.Assignments, func(i, j int) bool {
		return key(out.Assignments[i]) < key(out.Assignments[j])
	})
	for _, o := range owners {
		if o == "" {
			out.Unassigned++
		}
	}
	return out
}

// Pool 按 PoolIndex 还原原始池顺序。
func (r Result) Pool() []contract.Record {
	out := make([]contract.Record, len(r.Assignments))
	for _, a := range r.Assignments {
		out[a.PoolIndex] = a.Record
	}
	return out
}

// Owners 按 PoolIndex 返回逐项归属。
func (r Result) Owners() []string {
	out := make([]string, len(r.Assignments))
	for _, a := range r.Assignments {
		out[a.PoolIndex] = a.Member
	}
	return out
}

// Group 返回某成员的分配项（池顺序）。
func (r Result) Group(name string) []contract.Assignment {
	var out []contract.Assignment
	for _, a := range r.Assignments {
		if a.Member == name {
			out = append(out, a)
		}
	}
	return out
}

// Member 按名字查找成员。
func (r Result) Member(name string) (contract.TeamMember, bool) {
	for _, m := range r.Roster {
		if m.Name == name {
			return m, true
		}
	}
	return contract.TeamMember{}, false
}

// TotalAssigned 返回已分配项总数。
func (r Result) TotalAssigned() int { return len(r.Assignments) - r.Unassigned }
