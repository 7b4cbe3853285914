package contract

import "errors"

// 核心哨兵错误；调用方以 errors.Is 判定。
var (
	// ErrNoData: 输入为空（空白文本、空名单或空池）。
	ErrNoData = errors.New("no data")
	// ErrNoEligible: 按均值阈值筛选后无可分配成员。
	ErrNoEligible = errors.New("no eligible members")
	// ErrNegativeCount: 手工调整的目标数量为负。
	ErrNegativeCount = errors.New("negative count")
	// ErrExceedsPool: 手工调整后总分配量超过池大小。
	ErrExceedsPool = errors.New("exceeds pool size")
	// ErrInvalidInput: 参数非法（通用哨兵）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownMember: 名单中不存在该成员。
	ErrUnknownMember = errors.New("unknown member")
	// ErrUnknownItem: 池中不存在该索引。
	ErrUnknownItem = errors.New("unknown item")
	// ErrLabelNotFound: 汇总中不存在该状态标签。
	ErrLabelNotFound = errors.New("label not found")
	// ErrUnknownPolicy: 未注册的分配策略名。
	ErrUnknownPolicy = errors.New("unknown policy")
	// ErrPathInvalid: 目标名映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrTransport: 外部投递失败（邮件网关返回失败等）。
	ErrTransport = errors.New("transport failed")
)
