package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"datatools/pkg/contract"
)

// Options 为 FileSystem Source 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `yaml:"buf_size"`
	// MaxBytes: 单次读取的总字节上限；<=0 使用默认 16MiB。
	MaxBytes int64 `yaml:"max_bytes"`
	// ExcludeDirNames: 目录输入时跳过这些目录名（基名、大小写不敏感）。
	ExcludeDirNames []string `yaml:"exclude_dir_names"`
	// AllowExts: 目录输入时仅读取这些扩展名；为空默认 [".txt"]。
	AllowExts []string `yaml:"allow_exts"`
}

// FileSystem 实现基于文件系统与 STDIN 的文本 Source。
// 目录输入按字典序拼接其中的文本文件（先子目录，后文件），文件之间以换行分隔。
type FileSystem struct {
	bufSize    int
	maxBytes   int64
	excludeDir map[string]struct{}
	exts       map[string]struct{}
	// Stdin 为 "-" 时的输入；默认 os.Stdin。
	Stdin io.Reader
}

const (
	defaultBuf      = 64 * 1024
	defaultMaxBytes = 16 << 20
)

// New 创建 FileSystem Source。
func New(opts *Options) *FileSystem {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.BufSize <= 0 {
		o.BufSize = defaultBuf
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	ex := make(map[string]struct{}, len(o.ExcludeDirNames))
	for _, name := range o.ExcludeDirNames {
		if name == "" {
			continue
		}
		ex[strings.ToLower(name)] = struct{}{}
	}
	exts := map[string]struct{}{}
	for _, e := range o.AllowExts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	if len(exts) == 0 {
		exts[".txt"] = struct{}{}
	}
	return &FileSystem{bufSize: o.BufSize, maxBytes: o.MaxBytes, excludeDir: ex, exts: exts, Stdin: os.Stdin}
}

var _ contract.Source = (*FileSystem)(nil)

// ReadText 读取 path（"-" 为 STDIN）的全部文本：去 BOM、CRLF→LF、校验 UTF-8。
func (r *FileSystem) ReadText(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("read: %w: empty path", contract.ErrInvalidInput)
	}
	var (
		b   []byte
		err error
	)
	if path == "-" {
		in := r.Stdin
		if in == nil {
			in = os.Stdin
		}
		b, err = r.readAll(ctx, in)
	} else {
		b, err = r.readPath(ctx, path)
	}
	if err != nil {
		return "", err
	}
	return normalizeText(b)
}

func (r *FileSystem) readPath(ctx context.Context, root string) ([]byte, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	// 符号链接：仅跟随到常规文件
	if info.Mode()&os.ModeSymlink != 0 {
		t, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !t.Mode().IsRegular() {
			return nil, fmt.Errorf("read %s: %w: symlink target is not a regular file", root, contract.ErrInvalidInput)
		}
		return r.readFile(ctx, root)
	}
	if info.IsDir() {
		var out []byte
		if err := r.walkDir(ctx, root, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("read %s: %w: not a regular file", root, contract.ErrInvalidInput)
	}
	return r.readFile(ctx, root)
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, out *[]byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), out); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := r.exts[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		p := filepath.Join(dir, e.Name())
		t, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !t.Mode().IsRegular() {
			continue
		}
		b, err := r.readFile(ctx, p)
		if err != nil {
			return err
		}
		if len(*out) > 0 && (*out)[len(*out)-1] != '\n' {
			*out = append(*out, '\n')
		}
		*out = append(*out, b...)
		if int64(len(*out)) > r.maxBytes {
			return fmt.Errorf("read %s: %w: exceeds %d bytes", dir, contract.ErrInvalidInput, r.maxBytes)
		}
	}
	return nil
}

func (r *FileSystem) readFile(ctx context.Context, p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := r.readAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return b, nil
}

// readAll 带上限与取消检查地读取全部字节。
func (r *FileSystem) readAll(ctx context.Context, in io.Reader) ([]byte, error) {
	br := bufio.NewReaderSize(&ctxReader{ctx: ctx, r: in}, r.bufSize)
	b, err := io.ReadAll(io.LimitReader(br, r.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > r.maxBytes {
		return nil, fmt.Errorf("%w: input exceeds %d bytes", contract.ErrInvalidInput, r.maxBytes)
	}
	return b, nil
}

func normalizeText(b []byte) (string, error) {
	b = trimBOM(b)
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: input is not valid UTF-8", contract.ErrInvalidInput)
	}
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

// ctxReader: 在每次 Read 前检查 ctx 是否已取消。
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
