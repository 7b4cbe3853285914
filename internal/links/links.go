// Package links 生成预填消息的 wa.me 深链，并保留最近生成记录。
package links

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"datatools/internal/history"
	"datatools/pkg/contract"
)

const (
	// DefaultBase: wa.me 深链前缀。
	DefaultBase = "https://wa.me/"
	// HistoryDepth: 保留的最近链接数。
	HistoryDepth = 10
)

// Request: 一次链接生成请求。Number 必填；Message 与 Receipt 可选。
type Request struct {
	Number  string
	Message string
	Receipt string
}

// Link: 生成结果（即历史条目）。
type Link struct {
	ID        string
	URL       string
	Number    string
	Message   string
	Receipt   string
	CreatedAt time.Time
}

// Compose 拼接消息正文：文本在前，"Receipt: <url>" 在后，中间空一行。
func Compose(message, receipt string) string {
	message = strings.TrimSpace(message)
	receipt = strings.TrimSpace(receipt)
	switch {
	case receipt == "":
		return message
	case message == "":
		return "Receipt: " + receipt
	default:
		return message + "\n\nReceipt: " + receipt
	}
}

// URL 构造 base + 号码 + ?text=<编码正文>；号码仅保留数字与 '+'。
func URL(base, number, text string) (string, error) {
	clean := contract.NormalizePhone(number)
	if strings.Trim(clean, "+") == "" {
		return "", fmt.Errorf("link: %w: number %q has no digits", contract.ErrInvalidInput, number)
	}
	if base == "" {
		base = DefaultBase
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + clean + "?text=" + escape(text), nil
}

// escape 与 encodeURIComponent 一致：空格编码为 %20。
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Generator 生成链接并记录历史。非并发安全。
type Generator struct {
	Base  string
	Now   func() time.Time
	NewID func() string

	hist *history.Ring[Link]
}

// NewGenerator 创建生成器；base 为空使用 DefaultBase。
func NewGenerator(base string) *Generator {
	return &Generator{Base: base, Now: time.Now, NewID: uuid.NewString, hist: history.New[Link](HistoryDepth)}
}

// Generate 生成一条链接并加入历史。
func (g *Generator) Generate(req Request) (Link, error) {
	text := Compose(req.Message, req.Receipt)
	u, err := URL(g.Base, req.Number, text)
	if err != nil {
		return Link{}, err
	}
	l := Link{
		ID:        g.NewID(),
		URL:       u,
		Number:    contract.NormalizePhone(req.Number),
		Message:   strings.TrimSpace(req.Message),
		Receipt:   strings.TrimSpace(req.Receipt),
		CreatedAt: g.Now(),
	}
	g.hist.Push(l)
	return l, nil
}

// History 按从新到旧返回历史。
func (g *Generator) History() []Link {
	items := g.hist.Items()
	out := make([]Link, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return out
}

// Remove 删除指定 ID 的历史条目；不存在时返回 false。
func (g *Generator) Remove(id string) bool {
	items := g.hist.Items()
	next := history.New[Link](g.hist.Cap())
	found := false
	for _, it := range items {
		if it.ID == id {
			found = true
			continue
		}
		next.Push(it)
	}
	g.hist = next
	return found
}

// Reuse 取回历史条目以便重新生成（例如修改消息后）。
func (g *Generator) Reuse(id string) (Request, bool) {
	for _, it := range g.hist.Items() {
		if it.ID == id {
			return Request{Number: it.Number, Message: it.Message, Receipt: it.Receipt}, true
		}
	}
	return Request{}, false
}
