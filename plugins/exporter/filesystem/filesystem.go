package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"datatools/pkg/contract"
)

// 支持的导出格式。
const (
	FormatXLS = "xls" // 带 utf-8 meta 的 HTML 表格，电子表格软件可直接打开
	FormatCSV = "csv"
	FormatTSV = "tsv"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录（必需）。
	OutputDir string `yaml:"output_dir"`
	// Format: xls|csv|tsv；默认 xls。
	Format string `yaml:"format"`
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。默认 true。
	Atomic *bool `yaml:"atomic,omitempty"`
	// Flat: 是否扁平化输出（仅保留文件名）。默认 true。
	Flat *bool `yaml:"flat,omitempty"`
	// PermFile/PermDir: 可选权限；为 0 表示使用默认。
	PermFile os.FileMode `yaml:"perm_file,omitempty"`
	PermDir  os.FileMode `yaml:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用默认。
	BufSize int `yaml:"buf_size,omitempty"`
}

type FS struct {
	root    string
	format  string
	atomic  bool
	flat    bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统表格导出器。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("exporter: %w: output_dir required", contract.ErrInvalidInput)
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatXLS
	}
	if _, ok := encoders[format]; !ok {
		return nil, fmt.Errorf("exporter: %w: unknown format %q", contract.ErrInvalidInput, opts.Format)
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	flat := true
	if opts.Flat != nil {
		flat = *opts.Flat
	}
	atomic := true
	if opts.Atomic != nil {
		atomic = *opts.Atomic
	}
	return &FS{root: opts.OutputDir, format: format, atomic: atomic, flat: flat, permF: pf, permD: pd, bufSize: bsz}, nil
}

var _ contract.Exporter = (*FS)(nil)

// Format 返回当前导出格式。
func (w *FS) Format() string { return w.format }

// Export 将表格编码为配置格式并写入 name（缺省扩展名时自动补齐）。
func (w *FS) Export(ctx context.Context, name string, t contract.Table) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return contract.ErrPathInvalid
	}
	if filepath.Ext(name) == "" {
		name += "." + w.format
	}
	var buf bytes.Buffer
	if err := encoders[w.format](&buf, t); err != nil {
		return fmt.Errorf("encode %s: %w", w.format, err)
	}
	return w.Write(ctx, name, &buf)
}

// Path 返回 name 映射到的目标路径（含自动补齐的扩展名）。
func (w *FS) Path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name != "" && filepath.Ext(name) == "" {
		name += "." + w.format
	}
	return w.mapPath(name)
}

// Write 将 r 的全部字节写入到基于 name 映射的目标路径。
func (w *FS) Write(ctx context.Context, name string, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dest, err := w.mapPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}

	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeOverwrite(ctx, dest, r)
}

// mapPath: Clean + Join + 越界校验。
func (w *FS) mapPath(name string) (string, error) {
	rel := filepath.Clean(name)
	// Flat 优先：仅保留文件名并在此后校验名称合法
	if w.flat {
		rel = filepath.Base(rel)
		if rel == "." || rel == ".." || rel == "" || rel == string(filepath.Separator) {
			return "", contract.ErrPathInvalid
		}
		return filepath.Join(w.root, rel), nil
	}
	// 非扁平：禁止绝对路径、父级逃逸、Windows 卷名
	if rel == "." || rel == "" {
		return "", contract.ErrPathInvalid
	}
	if filepath.IsAbs(rel) {
		return "", contract.ErrPathInvalid
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", contract.ErrPathInvalid
	}
	if vol := filepath.VolumeName(rel); vol != "" {
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	return bw.Flush()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = bw.Flush()
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 平台特定的原子替换（或最佳努力）
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
