// Package mail 渲染邮件模板、校验投递请求并记录最近的发送历史。
package mail

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"datatools/internal/history"
	"datatools/pkg/contract"
)

// HistoryDepth: 保留的最近发送记录数。
const HistoryDepth = 10

// Source: 模板源；BodyPath 非空时从文件读取正文（构造期 I/O）。
type Source struct {
	Subject  string `yaml:"subject"`
	Body     string `yaml:"body"`
	BodyPath string `yaml:"body_path"`
}

// Options: 追加或覆盖内置模板。
type Options struct {
	Templates map[string]Source `yaml:"templates"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Composer 按模板名渲染主题与正文。运行期不做 I/O；模板在构造期解析。
type Composer struct {
	tpls map[string]compiled
}

// data: 模板可用字段。
type data struct {
	MemberName string
	Sender     string
}

// NewComposer 解析内置模板与 opts 中的模板（同名覆盖）。
// 兼容 {member_name} 占位写法。
func NewComposer(opts *Options) (*Composer, error) {
	srcs := make(map[string]Source, len(builtin))
	for k, v := range builtin {
		srcs[k] = v
	}
	if opts != nil {
		for k, v := range opts.Templates {
			k = strings.TrimSpace(k)
			if k == "" {
				return nil, fmt.Errorf("mail template: %w: empty name", contract.ErrInvalidInput)
			}
			if v.BodyPath != "" {
				b, err := os.ReadFile(v.BodyPath)
				if err != nil {
					return nil, fmt.Errorf("mail template %s read: %w", k, err)
				}
				v.Body = string(b)
			}
			srcs[k] = v
		}
	}
	c := &Composer{tpls: make(map[string]compiled, len(srcs))}
	for name, s := range srcs {
		st, err := template.New(name + ".subject").Parse(legacy(s.Subject))
		if err != nil {
			return nil, fmt.Errorf("mail template %s subject parse: %w", name, err)
		}
		bt, err := template.New(name + ".body").Parse(legacy(s.Body))
		if err != nil {
			return nil, fmt.Errorf("mail template %s body parse: %w", name, err)
		}
		c.tpls[name] = compiled{subject: st, body: bt}
	}
	return c, nil
}

func legacy(s string) string {
	s = strings.ReplaceAll(s, "{member_name}", "{{.MemberName}}")
	return strings.ReplaceAll(s, "{sender}", "{{.Sender}}")
}

// Names 返回全部模板名（字典序）。
func (c *Composer) Names() []string {
	out := make([]string, 0, len(c.tpls))
	for k := range c.tpls {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Render 渲染模板；memberName 为空时使用 DefaultMemberName。
func (c *Composer) Render(name, memberName, sender string) (subject, body string, err error) {
	t, ok := c.tpls[name]
	if !ok {
		return "", "", fmt.Errorf("mail template %q: %w", name, contract.ErrInvalidInput)
	}
	memberName = strings.TrimSpace(memberName)
	if memberName == "" {
		memberName = DefaultMemberName
	}
	d := data{MemberName: memberName, Sender: strings.TrimSpace(sender)}
	var sb, bb bytes.Buffer
	if err := t.subject.Execute(&sb, d); err != nil {
		return "", "", fmt.Errorf("mail template %s subject render: %w", name, err)
	}
	if err := t.body.Execute(&bb, d); err != nil {
		return "", "", fmt.Errorf("mail template %s body render: %w", name, err)
	}
	return sb.String(), bb.String(), nil
}

// Validate 检查必填字段与附件类型（仅 PDF）。
func Validate(req contract.SendRequest) error {
	var missing []string
	if strings.TrimSpace(req.Recipient) == "" {
		missing = append(missing, "recipient")
	}
	if strings.TrimSpace(req.Sender) == "" {
		missing = append(missing, "sender")
	}
	if strings.TrimSpace(req.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(req.Body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("mail: %w: missing %s", contract.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if req.Attachment != nil && !IsPDF(req.Attachment.Name, req.Attachment.Data) {
		return fmt.Errorf("mail: %w: attachment %q is not a PDF", contract.ErrInvalidInput, req.Attachment.Name)
	}
	return nil
}

// IsPDF 以扩展名与文件头共同判定 PDF。
func IsPDF(name string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") && bytes.HasPrefix(data, []byte("%PDF-"))
}

// LoadAttachment 读取并校验 PDF 附件。
func LoadAttachment(path string) (*contract.Attachment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	if !IsPDF(name, b) {
		return nil, fmt.Errorf("attachment %q: %w: only PDF files are accepted", name, contract.ErrInvalidInput)
	}
	return &contract.Attachment{Name: name, Data: b}, nil
}

// CopyText 返回 "Subject: ...\n\n<body>"（复制到剪贴板用）。
func CopyText(subject, body string) string {
	return "Subject: " + subject + "\n\n" + body
}

// DraftText 返回可保存为 .txt 的草稿。
func DraftText(req contract.SendRequest, now time.Time) string {
	att := "No attachment"
	if req.Attachment != nil {
		att = req.Attachment.Name
	}
	return fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s\n\n---\nAttachment: %s\nGenerated on: %s\n",
		req.Sender, req.Recipient, req.Subject, req.Body, att, now.Format(time.RFC3339))
}

// Sent: 发送历史条目。
type Sent struct {
	ID         string
	From       string
	To         string
	Subject    string
	Body       string
	Attachment string
	CreatedAt  time.Time
}

// Sender 校验并经 Transport 投递，记录最近的成功发送。非并发安全。
type Sender struct {
	transport contract.Transport
	Now       func() time.Time
	NewID     func() string
	hist      *history.Ring[Sent]
}

// NewSender 创建发送器。
func NewSender(t contract.Transport) *Sender {
	return &Sender{transport: t, Now: time.Now, NewID: uuid.NewString, hist: history.New[Sent](HistoryDepth)}
}

// Send 校验后投递；失败时不记入历史。
func (s *Sender) Send(ctx context.Context, req contract.SendRequest) (Sent, error) {
	if err := Validate(req); err != nil {
		return Sent{}, err
	}
	if s.transport == nil {
		return Sent{}, fmt.Errorf("mail: %w: no transport configured", contract.ErrInvalidInput)
	}
	if err := s.transport.Send(ctx, req); err != nil {
		return Sent{}, err
	}
	rec := Sent{
		ID:        s.NewID(),
		From:      req.Sender,
		To:        req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedAt: s.Now(),
	}
	if req.Attachment != nil {
		rec.Attachment = req.Attachment.Name
	}
	s.hist.Push(rec)
	return rec, nil
}

// History 按从新到旧返回发送历史。
func (s *Sender) History() []Sent {
	items := s.hist.Items()
	out := make([]Sent, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return out
}
