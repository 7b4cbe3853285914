package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"datatools/internal/links"
	"datatools/internal/mail"
	"datatools/internal/matcher"
	"datatools/internal/rate"
	"datatools/internal/status"
	"datatools/pkg/contract"
)

// MatchResult: 合并结果与统计。
type MatchResult struct {
	Records     []contract.Record
	Hit, Miss   int
	Overwritten []string
	Warnings    int
}

// Match 读取基础集与状态集，按规范化号码合并状态。
func (r *Runner) Match(ctx context.Context, basePath, statusPath string) (MatchResult, error) {
	base, err := r.read(ctx, "matcher", basePath, false)
	if err != nil {
		return MatchResult{}, err
	}
	st, err := r.read(ctx, "matcher", statusPath, true)
	if err != nil {
		return MatchResult{}, err
	}
	var out MatchResult
	err = r.stage("matcher", "match", map[string]string{
		"base":   strconv.Itoa(len(base.Records)),
		"status": strconv.Itoa(len(st.Records)),
	}, func() (int, error) {
		if len(base.Records) == 0 {
			return 0, contract.ErrNoData
		}
		idx := matcher.NewIndex(st.Records)
		if len(idx.Overwritten) > 0 {
			r.log.Warn("matcher", "duplicate phones, later status wins", map[string]string{
				"phones": strings.Join(idx.Overwritten, ","),
			})
		}
		out.Records = matcher.Apply(base.Records, idx)
		out.Hit, out.Miss = matcher.Stats(out.Records)
		out.Overwritten = idx.Overwritten
		out.Warnings = len(base.Warnings) + len(st.Warnings)
		return len(out.Records), nil
	})
	if err != nil {
		return MatchResult{}, err
	}
	r.term.Step("match", fmt.Sprintf("命中 %d | 未命中 %d", out.Hit, out.Miss))
	return out, nil
}

// Merge: 一次标签合并（from 并入 to）。
type Merge struct {
	From, To string
}

// ParseMerge 解析 "from=to"。
func ParseMerge(s string) (Merge, error) {
	from, to, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return Merge{}, fmt.Errorf("merge %q: %w: want from=to", s, contract.ErrInvalidInput)
	}
	return Merge{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}, nil
}

// Summary 读取状态列表并汇总，按顺序应用标签合并。
func (r *Runner) Summary(ctx context.Context, path string, merges []Merge) (status.Summary, error) {
	var sum status.Summary
	err := r.stage("status", "summary", map[string]string{"input": path, "merges": strconv.Itoa(len(merges))}, func() (int, error) {
		recs, err := r.statusLines(ctx, path)
		if err != nil {
			return 0, err
		}
		sum = status.Summarize(recs)
		for _, m := range merges {
			sum, err = status.MergeLabels(sum, m.From, m.To)
			if err != nil {
				return 0, err
			}
		}
		return sum.GrandTotal, nil
	})
	if err != nil {
		return status.Summary{}, err
	}
	r.term.Step("summary", fmt.Sprintf("状态 %d 种 | 合计 %d", len(sum.Entries), sum.GrandTotal))
	return sum, nil
}

// ReportInput: 报表中由调用方提供的两项。
type ReportInput struct {
	TotalWhatsApp int
	BannedToday   int
}

// Report: 分组报表数据。
type Report struct {
	Counts        status.CategoryCounts
	TotalWhatsApp int
	BannedToday   int
}

// Report 读取状态列表并按固定类别计数。
func (r *Runner) Report(ctx context.Context, path string, in ReportInput) (Report, error) {
	var rep Report
	err := r.stage("status", "report", map[string]string{"input": path}, func() (int, error) {
		if in.TotalWhatsApp < 0 || in.BannedToday < 0 {
			return 0, fmt.Errorf("%w: report counts must be >= 0", contract.ErrInvalidInput)
		}
		recs, err := r.statusLines(ctx, path)
		if err != nil {
			return 0, err
		}
		rep = Report{Counts: status.Classify(recs), TotalWhatsApp: in.TotalWhatsApp, BannedToday: in.BannedToday}
		return len(recs), nil
	})
	if err != nil {
		return Report{}, err
	}
	r.term.Step("report", fmt.Sprintf("Total data %d", rep.Counts.TotalData()))
	return rep, nil
}

func (r *Runner) statusLines(ctx context.Context, path string) ([]contract.Record, error) {
	raw, err := r.comp.Source.ReadText(ctx, path)
	if err != nil {
		return nil, err
	}
	return status.FromLines(raw)
}

// Link 生成一条消息深链并记入历史。
func (r *Runner) Link(req links.Request) (links.Link, error) {
	var l links.Link
	err := r.stage("links", "generate", map[string]string{"number": contract.NormalizePhone(req.Number)}, func() (int, error) {
		var err error
		l, err = r.links.Generate(req)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return links.Link{}, err
	}
	r.term.Step("link", l.URL)
	return l, nil
}

// Links 返回本次运行的链接历史（新到旧）。
func (r *Runner) Links() []links.Link { return r.links.History() }

// OpenLink 经 Opener 打开链接对应的会话。
func (r *Runner) OpenLink(ctx context.Context, l links.Link) error {
	if r.comp.Opener == nil {
		return fmt.Errorf("opener: %w: not configured", contract.ErrInvalidInput)
	}
	return r.stage("opener", "open", map[string]string{"number": l.Number}, func() (int, error) {
		body := links.Compose(l.Message, l.Receipt)
		if err := r.gate.Wait(ctx, rate.Ask{Key: rate.KeyOpener, Bytes: len(body)}); err != nil {
			return 0, err
		}
		return 1, r.comp.Opener.Open(ctx, l.Number, body)
	})
}

// EmailInput: 一次邮件动作的输入。Subject/Body 为空时由模板渲染。
type EmailInput struct {
	Recipient  string
	MemberName string
	Sender     string
	Template   string
	Subject    string
	Body       string
	// AttachPath: 可选 PDF 附件路径。
	AttachPath string
}

// ComposeEmail 渲染模板并组装投递请求（不发送）。
func (r *Runner) ComposeEmail(in EmailInput) (contract.SendRequest, error) {
	var req contract.SendRequest
	err := r.stage("mail", "compose", map[string]string{"template": in.Template}, func() (int, error) {
		sender := in.Sender
		if sender == "" {
			sender = r.set.EmailSender
		}
		subject, body := in.Subject, in.Body
		if subject == "" || body == "" {
			if r.comp.Composer == nil {
				return 0, fmt.Errorf("mail: %w: no composer configured", contract.ErrInvalidInput)
			}
			name := in.Template
			if name == "" {
				name = r.set.EmailTemplate
			}
			if name == "" {
				name = mail.TemplateJobOffer
			}
			s, b, err := r.comp.Composer.Render(name, in.MemberName, sender)
			if err != nil {
				return 0, err
			}
			if subject == "" {
				subject = s
			}
			if body == "" {
				body = b
			}
		}
		req = contract.SendRequest{Recipient: strings.TrimSpace(in.Recipient), Sender: sender, Subject: subject, Body: body}
		if in.AttachPath != "" {
			att, err := mail.LoadAttachment(in.AttachPath)
			if err != nil {
				return 0, err
			}
			req.Attachment = att
		}
		return 0, mail.Validate(req)
	})
	if err != nil {
		return contract.SendRequest{}, err
	}
	return req, nil
}

// SendEmail 经 Transport 投递；成功后记入发送历史。
func (r *Runner) SendEmail(ctx context.Context, req contract.SendRequest) (mail.Sent, error) {
	if r.sender == nil {
		return mail.Sent{}, fmt.Errorf("transport: %w: not configured", contract.ErrInvalidInput)
	}
	var sent mail.Sent
	err := r.stage("transport", "send", map[string]string{"to": req.Recipient}, func() (int, error) {
		size := len(req.Subject) + len(req.Body)
		if req.Attachment != nil {
			size += len(req.Attachment.Data)
		}
		if err := r.gate.Wait(ctx, rate.Ask{Key: rate.KeyTransport, Bytes: size}); err != nil {
			return 0, err
		}
		var err error
		sent, err = r.sender.Send(ctx, req)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return mail.Sent{}, err
	}
	r.term.Step("email", "已发送至 "+sent.To)
	return sent, nil
}

// Sent 返回本次运行的发送历史（新到旧）。
func (r *Runner) Sent() []mail.Sent {
	if r.sender == nil {
		return nil
	}
	return r.sender.History()
}
