// Package parser 将原始粘贴文本切分为片段，按有序格式列表识别为 Record。
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"datatools/pkg/contract"
)

// DefaultRecordStart: 记录起始标记（用于无换行拼接的输入）。
const DefaultRecordStart = `编号\s*[:：]`

// Options 为解析器可选配置。
type Options struct {
	// RecordStart: 记录起始标记正则；为空使用 DefaultRecordStart。
	RecordStart string `yaml:"record_start"`
}

// Parser: 有序格式列表 + 分段规则。运行期只读，可复用。
type Parser struct {
	layouts []contract.Layout
	byName  map[string]contract.Layout
	marker  *regexp.Regexp
}

// Result: 成功识别的记录与逐行警告（部分成功）。
type Result struct {
	Records  []contract.Record
	Warnings []contract.LineWarning
}

// New 以给定顺序构造解析器；先匹配者胜出。
func New(layouts []contract.Layout, opts *Options) (*Parser, error) {
	if len(layouts) == 0 {
		return nil, fmt.Errorf("parser: %w: no layouts", contract.ErrInvalidInput)
	}
	src := DefaultRecordStart
	if opts != nil && strings.TrimSpace(opts.RecordStart) != "" {
		src = opts.RecordStart
	}
	marker, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("parser: record_start: %w", errors.Join(contract.ErrInvalidInput, err))
	}
	byName := make(map[string]contract.Layout, len(layouts))
	for _, l := range layouts {
		if l == nil {
			return nil, fmt.Errorf("parser: %w: nil layout", contract.ErrInvalidInput)
		}
		if _, dup := byName[l.Name()]; dup {
			return nil, fmt.Errorf("parser: %w: duplicate layout %q", contract.ErrInvalidInput, l.Name())
		}
		byName[l.Name()] = l
	}
	ls := make([]contract.Layout, len(layouts))
	copy(ls, layouts)
	return &Parser{layouts: ls, byName: byName, marker: marker}, nil
}

// Layouts 返回格式名（按尝试顺序）。
func (p *Parser) Layouts() []string {
	out := make([]string, len(p.layouts))
	for i, l := range p.layouts {
		out[i] = l.Name()
	}
	return out
}

// Parse 解析整段文本。
// 空白输入返回 ErrNoData；无法识别的片段记为警告并丢弃。
func (p *Parser) Parse(raw string, expectStatus bool) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, contract.ErrNoData
	}
	var res Result
	for i, line := range SplitLines(raw) {
		lineNo := i + 1
		for _, seg := range p.segments(line) {
			rec, ok := p.match(seg.norm, expectStatus)
			if !ok {
				res.Warnings = append(res.Warnings, contract.NewLineWarning(lineNo, seg.norm))
				continue
			}
			rec.Line = lineNo
			rec.Source = seg.src
			res.Records = append(res.Records, rec)
		}
	}
	return res, nil
}

func (p *Parser) match(seg string, expectStatus bool) (contract.Record, bool) {
	for _, l := range p.layouts {
		if rec, ok := l.Match(seg, expectStatus); ok {
			return rec, true
		}
	}
	return contract.Record{}, false
}

// Segments 将一行归一化后按记录起始标记再切分；空片段被丢弃。
// 起始标记前的文本单独成段。
func (p *Parser) Segments(line string) []string {
	segs := p.segments(line)
	if segs == nil {
		return nil
	}
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.norm
	}
	return out
}

// segment: 归一化片段及其在源行中对应的原文。
type segment struct {
	norm string
	src  string
}

func (p *Parser) segments(line string) []segment {
	norm, offs := normalizeMap(line)
	if norm == "" {
		return nil
	}
	locs := p.marker.FindAllStringIndex(norm, -1)
	cuts := make([]int, 0, len(locs)+2)
	cuts = append(cuts, 0)
	for _, loc := range locs {
		if loc[0] > cuts[len(cuts)-1] {
			cuts = append(cuts, loc[0])
		}
	}
	cuts = append(cuts, len(norm))
	out := make([]segment, 0, len(cuts)-1)
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]
		n := strings.TrimSpace(norm[lo:hi])
		if n == "" {
			continue
		}
		src := strings.TrimFunc(line[offs[lo]:offs[hi]], unicode.IsSpace)
		out = append(out, segment{norm: n, src: src})
	}
	return out
}

// Format 以识别该记录的格式输出规范文本；格式未知时回退为 Raw。
func (p *Parser) Format(r contract.Record) string {
	if l, ok := p.byName[r.Layout]; ok {
		return l.Format(r)
	}
	return r.Raw
}

// SplitLines 统一 CRLF/CR 为 LF 后按行切分。
func SplitLines(raw string) []string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

// Normalize: 全角转半角、空白折叠为单个空格并去首尾空白。
func Normalize(s string) string {
	return strings.Join(strings.Fields(width.Narrow.String(s)), " ")
}

// normalizeMap 与 Normalize 结果相同，另返回每个输出字节在 s 中的起始偏移（末尾追加 len(s)）。
func normalizeMap(s string) (string, []int) {
	var b strings.Builder
	offs := make([]int, 0, len(s)+1)
	space := -1
	for i, r := range s {
		for _, nr := range width.Narrow.String(string(r)) {
			if unicode.IsSpace(nr) {
				if b.Len() > 0 && space < 0 {
					space = i
				}
				continue
			}
			if space >= 0 {
				b.WriteByte(' ')
				offs = append(offs, space)
				space = -1
			}
			n := b.Len()
			b.WriteRune(nr)
			for k := n; k < b.Len(); k++ {
				offs = append(offs, i)
			}
		}
	}
	offs = append(offs, len(s))
	return b.String(), offs
}
