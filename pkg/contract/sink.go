package contract

import "context"

// 外部协作者：核心组件从不直接调用，仅由编排层在计算完成后触发。

// ClipboardSink: 将文本放入剪贴板（或等价的输出端）。
type ClipboardSink interface {
	Copy(ctx context.Context, text string) error
}

// Table: 二维表格导出载荷。
// Header 与每行列数一致；Footer 可选（例如合计行）；Title 可选（仅表格类格式呈现）。
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
	Footer []string
}

// Exporter: 将表格以某种电子表格格式写出。
// 约束：同名单写者；ctx 取消需尽快返回。
type Exporter interface {
	Export(ctx context.Context, name string, t Table) error
}

// Opener: 为某个接收者打开消息深链（例如 wa.me）。
type Opener interface {
	Open(ctx context.Context, recipient, body string) error
}

// Attachment: 邮件附件（仅 PDF）。
type Attachment struct {
	Name string
	Data []byte
}

// SendRequest: 一次邮件投递请求。
type SendRequest struct {
	Recipient  string
	Sender     string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Transport: 邮件投递通道。
type Transport interface {
	Send(ctx context.Context, req SendRequest) error
}
