package stream

import (
	"context"
	"io"
	"os"
	"strings"

	"datatools/pkg/contract"
)

// Options: 流式 sink 选项。
type Options struct {
	// Separator 在每次输出之后追加；默认 "\n"。
	Separator string `yaml:"separator"`
}

// Stream 将“复制”的文本写到 io.Writer（默认 stdout），用于无剪贴板环境与管道。
type Stream struct {
	w   io.Writer
	sep string
}

// New 创建写往 stdout 的 sink。
func New(opts *Options) *Stream { return NewTo(os.Stdout, opts) }

// NewTo 创建写往 w 的 sink。
func NewTo(w io.Writer, opts *Options) *Stream {
	sep := "\n"
	if opts != nil && opts.Separator != "" {
		sep = opts.Separator
	}
	return &Stream{w: w, sep: sep}
}

var _ contract.ClipboardSink = (*Stream)(nil)

func (s *Stream) Copy(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if !strings.HasSuffix(text, s.sep) {
		text += s.sep
	}
	_, err := io.WriteString(s.w, text)
	return err
}
