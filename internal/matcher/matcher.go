// Package matcher 以规范化号码为键，将状态集合并入基础记录集。
package matcher

import (
	"datatools/pkg/contract"
)

// Index: 号码 → 状态映射。
// 同号重复时后写者胜出（Overwritten 记录被覆盖的号码，按出现顺序，可重复）。
type Index struct {
	status      map[string]string
	Overwritten []string
}

// NewIndex 由状态记录集构造映射；键经 NormalizePhone 处理。
func NewIndex(status []contract.Record) Index {
	idx := Index{status: make(map[string]string, len(status))}
	for _, r := range status {
		key := contract.NormalizePhone(r.Phone)
		if key == "" {
			continue
		}
		if _, dup := idx.status[key]; dup {
			idx.Overwritten = append(idx.Overwritten, key)
		}
		idx.status[key] = r.Status
	}
	return idx
}

// Lookup 查询号码对应状态。
func (i Index) Lookup(phone string) (string, bool) {
	s, ok := i.status[contract.NormalizePhone(phone)]
	return s, ok
}

// Len 返回不同号码数量。
func (i Index) Len() int { return len(i.status) }

// Match 返回与 base 等长、同序的副本，Status 取自 status 集合；未命中置空。
// base 为空返回 ErrNoData；status 为空合法（全部未命中）。
func Match(base, status []contract.Record) ([]contract.Record, error) {
	if len(base) == 0 {
		return nil, contract.ErrNoData
	}
	return Apply(base, NewIndex(status)), nil
}

// Apply 使用已构建的映射合并状态。
func Apply(base []contract.Record, idx Index) []contract.Record {
	out := make([]contract.Record, len(base))
	for i, r := range base {
		s, _ := idx.Lookup(r.Phone)
		out[i] = r.WithStatus(s)
	}
	return out
}

// Stats 统计已命中（状态非空）与未命中数量。
func Stats(matched []contract.Record) (hit, miss int) {
	for _, r := range matched {
		if r.Status != "" {
			hit++
		} else {
			miss++
		}
	}
	return hit, miss
}
