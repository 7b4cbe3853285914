package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"datatools/internal/adjust"
	"datatools/internal/distribute"
	"datatools/internal/history"
	"datatools/internal/parser"
	"datatools/internal/rate"
	"datatools/pkg/contract"
)

// Session: 一次分配会话。当前结果 + 可撤销的历史快照。
type Session struct {
	Result distribute.Result
	hist   *history.Ring[distribute.Result]
}

// Undo 回到上一次编辑前的结果；无可撤销项时返回 false。
func (s *Session) Undo() bool {
	prev, ok := s.hist.Pop()
	if !ok {
		return false
	}
	s.Result = prev
	return true
}

// CanUndo 报告是否存在可撤销的快照。
func (s *Session) CanUndo() bool { return s.hist.Len() > 0 }

func (s *Session) commit(next distribute.Result) {
	s.hist.Push(s.Result)
	s.Result = next
}

// EditKind: 手工编辑类型。
type EditKind string

const (
	EditAdjust   EditKind = "adjust"
	EditReassign EditKind = "reassign"
	EditUndo     EditKind = "undo"
)

// Edit: 一次手工编辑。Adjust 使用 Member+Count；Reassign 使用 Index+Member（空串为取消分配）。
type Edit struct {
	Kind   EditKind
	Member string
	Count  int
	Index  int
}

// ParseAdjust 解析 "name=count"。
func ParseAdjust(s string) (Edit, error) {
	name, n, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Edit{}, fmt.Errorf("adjust %q: %w: want name=count", s, contract.ErrInvalidInput)
	}
	c, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil {
		return Edit{}, fmt.Errorf("adjust %q: %w: count is not an integer", s, contract.ErrInvalidInput)
	}
	return Edit{Kind: EditAdjust, Member: name, Count: c}, nil
}

// ParseReassign 解析 "index=name"（index 为池中从 1 开始的序号；name 为空表示取消分配）。
func ParseReassign(s string) (Edit, error) {
	idx, name, ok := strings.Cut(s, "=")
	if !ok {
		return Edit{}, fmt.Errorf("reassign %q: %w: want index=name", s, contract.ErrInvalidInput)
	}
	i, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil || i < 1 {
		return Edit{}, fmt.Errorf("reassign %q: %w: index must be >= 1", s, contract.ErrInvalidInput)
	}
	return Edit{Kind: EditReassign, Index: i - 1, Member: strings.TrimSpace(name)}, nil
}

// Distribute 读取名单与池并按配置策略分配；返回可编辑的会话。
func (r *Runner) Distribute(ctx context.Context, rosterPath, poolPath string) (*Session, error) {
	var roster parser.RosterResult
	err := r.stage("roster", "parse", map[string]string{"input": rosterPath}, func() (int, error) {
		raw, err := r.comp.Source.ReadText(ctx, rosterPath)
		if err != nil {
			return 0, err
		}
		roster, err = parser.ParseRoster(raw)
		if err != nil {
			return 0, err
		}
		r.warn("roster", rosterPath, roster.Warnings)
		return len(roster.Members), nil
	})
	if err != nil {
		return nil, err
	}
	pool, err := r.read(ctx, "pool", poolPath, false)
	if err != nil {
		return nil, err
	}
	p := r.set.Distribution
	var res distribute.Result
	err = r.stage("distribute", "assign", map[string]string{
		"policy":  string(p.Policy),
		"members": strconv.Itoa(len(roster.Members)),
		"pool":    strconv.Itoa(len(pool.Records)),
	}, func() (int, error) {
		var err error
		res, err = distribute.Distribute(roster.Members, pool.Records, p)
		if err != nil {
			return 0, err
		}
		return res.TotalAssigned(), nil
	})
	if err != nil {
		return nil, err
	}
	r.term.Step("distribute", fmt.Sprintf("已分配 %d | 未分配 %d", res.TotalAssigned(), res.Unassigned))
	return &Session{Result: res, hist: history.New[distribute.Result](r.set.HistoryDepth)}, nil
}

// Apply 执行一次手工编辑；被拒绝时会话不变。
func (r *Runner) Apply(s *Session, e Edit) error {
	kv := map[string]string{"kind": string(e.Kind), "member": e.Member}
	return r.stage("adjust", "edit", kv, func() (int, error) {
		switch e.Kind {
		case EditUndo:
			if !s.Undo() {
				return 0, fmt.Errorf("undo: %w: nothing to undo", contract.ErrInvalidInput)
			}
			r.term.Step("undo", "已撤销上一次编辑")
			return 0, nil
		case EditAdjust:
			next, err := adjust.Apply(s.Result, e.Member, e.Count)
			if err != nil {
				return 0, err
			}
			s.commit(next)
			r.term.Step("adjust", fmt.Sprintf("%s → %d", e.Member, e.Count))
			return e.Count, nil
		case EditReassign:
			next, err := distribute.ReassignItem(s.Result, e.Index, e.Member)
			if err != nil {
				return 0, err
			}
			s.commit(next)
			to := e.Member
			if to == "" {
				to = "(未分配)"
			}
			r.term.Step("reassign", fmt.Sprintf("#%d → %s", e.Index+1, to))
			return 1, nil
		default:
			return 0, fmt.Errorf("edit: %w: unknown kind %q", contract.ErrInvalidInput, e.Kind)
		}
	})
}

// SendReport: 逐成员投递结果。
type SendReport struct {
	Opened  []string
	Skipped []string
}

// SendGroups 为每个分到新项的成员打开消息深链，正文为其分组载荷。
// 未在 Members 中配置标识的成员跳过并记录告警。
func (r *Runner) SendGroups(ctx context.Context, res distribute.Result) (SendReport, error) {
	if r.comp.Opener == nil {
		return SendReport{}, fmt.Errorf("opener: %w: not configured", contract.ErrInvalidInput)
	}
	var rep SendReport
	err := r.stage("opener", "send_groups", nil, func() (int, error) {
		for _, m := range res.Roster {
			body := Payload(res, m.Name)
			if body == "" {
				continue
			}
			to := strings.TrimSpace(r.set.Members[m.Name])
			if to == "" {
				rep.Skipped = append(rep.Skipped, m.Name)
				r.log.Warn("opener", "member has no recipient", map[string]string{"member": m.Name})
				r.term.Step("send", m.Name+" 未配置号码，已跳过")
				continue
			}
			if err := r.gate.Wait(ctx, rate.Ask{Key: rate.KeyOpener, Bytes: len(body)}); err != nil {
				return len(rep.Opened), fmt.Errorf("open %s: %w", m.Name, err)
			}
			if err := r.comp.Opener.Open(ctx, to, body); err != nil {
				return len(rep.Opened), fmt.Errorf("open %s: %w", m.Name, err)
			}
			rep.Opened = append(rep.Opened, m.Name)
		}
		return len(rep.Opened), nil
	})
	if err != nil {
		return rep, err
	}
	r.term.Step("send", fmt.Sprintf("已打开 %d | 跳过 %d", len(rep.Opened), len(rep.Skipped)))
	return rep, nil
}
