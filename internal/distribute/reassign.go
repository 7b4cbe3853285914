package distribute

import (
	"fmt"

	"datatools/pkg/contract"
)

// ReassignItem 将池中第 poolIndex 项改归 to（空串表示取消分配）。
// 仅改动该项归属，双方成员的计数与均值随之重算；原结果不变。
func ReassignItem(res Result, poolIndex int, to string) (Result, error) {
	if poolIndex < 0 || poolIndex >= len(res.Assignments) {
		return res, fmt.Errorf("reassign #%d: %w", poolIndex, contract.ErrUnknownItem)
	}
	if to != "" {
		if _, ok := res.Member(to); !ok {
			return res, fmt.Errorf("reassign to %q: %w", to, contract.ErrUnknownMember)
		}
	}
	owners := res.Owners()
	owners[poolIndex] = to
	return Build(res.Roster, res.Pool(), owners), nil
}
