package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"datatools/pkg/contract"
)

// Options: 调试/测试用投递通道配置。
type Options struct {
	// FailFirst: 前 N 次投递返回失败，之后成功（模拟不稳定网关）。
	FailFirst int `yaml:"fail_first"`
	// FailAll: 所有投递均失败。
	FailAll bool `yaml:"fail_all"`
	// Message: 失败时的网关消息；默认 "mock failure"。
	Message string `yaml:"message"`
}

// Transport 在内存中记录成功投递的请求。并发安全。
type Transport struct {
	mu       sync.Mutex
	opts     Options
	attempts int
	sent     []contract.SendRequest
}

func New(opts *Options) *Transport {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if strings.TrimSpace(o.Message) == "" {
		o.Message = "mock failure"
	}
	return &Transport{opts: o}
}

var _ contract.Transport = (*Transport)(nil)

func (t *Transport) Send(ctx context.Context, req contract.SendRequest) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts++
	if t.opts.FailAll || t.attempts <= t.opts.FailFirst {
		return fmt.Errorf("mock: %s: %w", t.opts.Message, contract.ErrTransport)
	}
	if req.Attachment != nil {
		data := make([]byte, len(req.Attachment.Data))
		copy(data, req.Attachment.Data)
		req.Attachment = &contract.Attachment{Name: req.Attachment.Name, Data: data}
	}
	t.sent = append(t.sent, req)
	return nil
}

// Sent 返回成功投递的请求副本。
func (t *Transport) Sent() []contract.SendRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]contract.SendRequest, len(t.sent))
	copy(out, t.sent)
	return out
}

// Attempts 返回总投递次数（含失败）。
func (t *Transport) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}
