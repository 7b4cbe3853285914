package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"datatools/pkg/contract"
)

// Options: 邮件网关最小配置。
type Options struct {
	// Endpoint: multipart 接收地址；默认 http://localhost:5000/send-email。
	Endpoint string `yaml:"endpoint"`
	// TimeoutSeconds: client 级超时（秒）；默认 60。
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// APIKeyEnv / APIKey: 可选 Bearer 凭据；优先环境变量。
	APIKeyEnv string `yaml:"api_key_env"`
	APIKey    string `yaml:"api_key"`
	// ExtraHeaders: 追加/覆盖请求头。
	ExtraHeaders map[string]string `yaml:"extra_headers"`
}

func (o *Options) defaults() {
	if o.Endpoint == "" {
		o.Endpoint = "http://localhost:5000/send-email"
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 60
	}
}

// Client 以 multipart/form-data 调用邮件网关。
type Client struct {
	url    string
	apiKey string
	extraH map[string]string
	do     func(*http.Request) (*http.Response, error)
}

// New 构造网关客户端。
func New(opts *Options) (*Client, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	o.defaults()
	if !(strings.HasPrefix(o.Endpoint, "http://") || strings.HasPrefix(o.Endpoint, "https://")) {
		return nil, fmt.Errorf("gateway: %w: endpoint must be http(s): %q", contract.ErrInvalidInput, o.Endpoint)
	}
	key := o.APIKey
	if key == "" && o.APIKeyEnv != "" {
		key = os.Getenv(o.APIKeyEnv)
	}
	hc := &http.Client{Timeout: time.Duration(o.TimeoutSeconds) * time.Second}
	return &Client{url: o.Endpoint, apiKey: key, extraH: o.ExtraHeaders, do: hc.Do}, nil
}

var _ contract.Transport = (*Client)(nil)

// gwResp: 网关响应 {success, message}。
type gwResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// upstreamError 实现 net.Error，将 5xx/408 归为传输类错误并保留诊断信息。
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string           { return fmt.Sprintf("gateway upstream %d: %s", e.status, e.msg) }
func (e upstreamError) Timeout() bool           { return e.status == http.StatusRequestTimeout }
func (e upstreamError) Temporary() bool         { return e.status/100 == 5 }
func (e upstreamError) UpstreamStatus() int     { return e.status }
func (e upstreamError) UpstreamMessage() string { return e.msg }

// encode 组装 multipart 表单：recipientEmail, senderEmail, subject, body[, pdf]。
func encode(req contract.SendRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"recipientEmail", req.Recipient},
		{"senderEmail", req.Sender},
		{"subject", req.Subject},
		{"body", req.Body},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if req.Attachment != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf"; filename=%q`, req.Attachment.Name))
		h.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(req.Attachment.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// Send: 单次投递，同步返回。
func (c *Client) Send(ctx context.Context, req contract.SendRequest) error {
	body, ctype, err := encode(req)
	if err != nil {
		return fmt.Errorf("encode: %v: %w", err, contract.ErrInvalidInput)
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("new request: %v: %w", err, contract.ErrInvalidInput)
	}
	hr.Header.Set("Content-Type", ctype)
	hr.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		hr.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.extraH {
		if k == "" {
			continue
		}
		hr.Header.Set(k, v)
	}

	resp, err := c.do(hr)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(slurp))
		var gr gwResp
		if json.Unmarshal(slurp, &gr) == nil && gr.Message != "" {
			msg = gr.Message
		}
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode/100 == 5 {
			return upstreamError{status: resp.StatusCode, msg: msg}
		}
		return fmt.Errorf("gateway upstream %d: %s: %w", resp.StatusCode, msg, contract.ErrTransport)
	}
	var gr gwResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&gr); err != nil {
		return fmt.Errorf("decode: %v: %w", err, contract.ErrTransport)
	}
	if !gr.Success {
		return fmt.Errorf("gateway: %s: %w", gr.Message, contract.ErrTransport)
	}
	return nil
}
