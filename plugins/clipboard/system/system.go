package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"

	"datatools/pkg/contract"
)

// Options: 系统剪贴板选项。
type Options struct {
	// FallbackStdout: 系统剪贴板不可用（无 xclip/xsel/pbcopy 等）时改写到 stdout。
	FallbackStdout bool `yaml:"fallback_stdout"`
}

// ErrUnsupported: 当前平台不支持系统剪贴板。
var ErrUnsupported = errors.New("system clipboard unsupported")

// Clipboard 将文本写入系统剪贴板。
type Clipboard struct {
	fallback bool
	out      io.Writer
	write    func(string) error
	// unsupported 允许测试替换平台探测
	unsupported func() bool
}

// New 创建系统剪贴板 sink。
func New(opts *Options) *Clipboard {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	return &Clipboard{
		fallback:    o.FallbackStdout,
		out:         os.Stdout,
		write:       clipboard.WriteAll,
		unsupported: func() bool { return clipboard.Unsupported },
	}
}

var _ contract.ClipboardSink = (*Clipboard)(nil)

// Copy 写入剪贴板；平台不支持时按配置回落到 stdout。
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if c.unsupported() {
		if !c.fallback {
			return ErrUnsupported
		}
		_, err := fmt.Fprintln(c.out, text)
		return err
	}
	if err := c.write(text); err != nil {
		if c.fallback {
			_, werr := fmt.Fprintln(c.out, text)
			return werr
		}
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
