package wame

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"datatools/internal/links"
	"datatools/pkg/contract"
)

// 打开方式。
const (
	ModePrint = "print" // 打印链接到输出（默认）
	ModeExec  = "exec"  // 调用平台打开命令
)

// Options: wa.me 打开器选项。
type Options struct {
	Mode string `yaml:"mode"`
	// Base: 深链前缀；默认 https://wa.me/。
	Base string `yaml:"base"`
	// Command: exec 模式下的打开命令（链接作为最后一个参数）；为空按平台选择。
	Command []string `yaml:"command"`
}

// Opener 为接收者构造 wa.me 深链并打印或打开。
type Opener struct {
	mode string
	base string
	cmd  []string
	out  io.Writer
	run  func(ctx context.Context, name string, args ...string) error
}

// New 创建打开器。
func New(opts *Options) (*Opener, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	mode := strings.ToLower(strings.TrimSpace(o.Mode))
	if mode == "" {
		mode = ModePrint
	}
	if mode != ModePrint && mode != ModeExec {
		return nil, fmt.Errorf("wame: %w: unknown mode %q", contract.ErrInvalidInput, o.Mode)
	}
	cmd := o.Command
	if len(cmd) == 0 {
		cmd = defaultCommand(runtime.GOOS)
	}
	return &Opener{mode: mode, base: o.Base, cmd: cmd, out: os.Stdout, run: start}, nil
}

// NewTo 创建打印到 w 的打开器。
func NewTo(w io.Writer, opts *Options) (*Opener, error) {
	op, err := New(opts)
	if err != nil {
		return nil, err
	}
	op.out = w
	return op, nil
}

var _ contract.Opener = (*Opener)(nil)

// Open 构造链接；print 模式写出 "recipient<TAB>link"，exec 模式启动打开命令。
func (o *Opener) Open(ctx context.Context, recipient, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	link, err := links.URL(o.base, recipient, body)
	if err != nil {
		return err
	}
	if o.mode == ModePrint {
		_, err := fmt.Fprintf(o.out, "%s\t%s\n", contract.NormalizePhone(recipient), link)
		return err
	}
	args := append(append([]string{}, o.cmd[1:]...), link)
	if err := o.run(ctx, o.cmd[0], args...); err != nil {
		return fmt.Errorf("wame open: %w", err)
	}
	return nil
}

func defaultCommand(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler"}
	default:
		return []string{"xdg-open"}
	}
}

func start(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Start()
}
