package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"datatools/pkg/contract"
	csys "datatools/plugins/clipboard/system"
	cstream "datatools/plugins/clipboard/stream"
	efs "datatools/plugins/exporter/filesystem"
	"datatools/plugins/layout/labeled"
	"datatools/plugins/layout/recruiter"
	"datatools/plugins/layout/salesperson"
	"datatools/plugins/opener/wame"
	rfs "datatools/plugins/reader/filesystem"
	"datatools/plugins/transport/gateway"
	tmock "datatools/plugins/transport/mock"
)

// strictDecode: 使用 KnownFields 严格解码，拒绝未知字段。
// 空节点保持零值（默认选项）。
func strictDecode(node *yaml.Node, v any) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	b, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// NewLayout 工厂签名：接收原样 YAML Options。
type NewLayout func(node *yaml.Node) (contract.Layout, error)

// NewReader 工厂签名。
type NewReader func(node *yaml.Node) (contract.Source, error)

// NewClipboard 工厂签名。
type NewClipboard func(node *yaml.Node) (contract.ClipboardSink, error)

// NewExporter 工厂签名。
type NewExporter func(node *yaml.Node) (contract.Exporter, error)

// NewOpener 工厂签名。
type NewOpener func(node *yaml.Node) (contract.Opener, error)

// NewTransport 工厂签名。
type NewTransport func(node *yaml.Node) (contract.Transport, error)

// Layout 记录格式注册表（显式、零反射）。
var Layout = map[string]NewLayout{
	// labeled: 编号 / WhatsApp / 推荐人 / 公司 / 语言
	labeled.Name: func(node *yaml.Node) (contract.Layout, error) {
		var opts labeled.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return labeled.New(&opts), nil
	},
	// salesperson: 推手名字 / 业务员 / 年龄
	salesperson.Name: func(node *yaml.Node) (contract.Layout, error) {
		var opts salesperson.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return salesperson.New(&opts), nil
	},
	// recruiter: +号码 Recruiter: .. Company: .. Language: ..
	recruiter.Name: func(node *yaml.Node) (contract.Layout, error) {
		var opts recruiter.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return recruiter.New(&opts), nil
	},
}

// DefaultLayouts: 默认尝试顺序。
var DefaultLayouts = []string{salesperson.Name, labeled.Name, recruiter.Name}

// Layouts 按 names 顺序构造格式识别器；opts 以格式名为键。
func Layouts(names []string, opts map[string]yaml.Node) ([]contract.Layout, error) {
	if len(names) == 0 {
		names = DefaultLayouts
	}
	out := make([]contract.Layout, 0, len(names))
	for _, n := range names {
		f, ok := Layout[n]
		if !ok {
			return nil, fmt.Errorf("layout %q not registered: %w", n, contract.ErrInvalidInput)
		}
		var node *yaml.Node
		if o, ok := opts[n]; ok {
			node = &o
		}
		l, err := f(node)
		if err != nil {
			return nil, fmt.Errorf("layout %q options: %w", n, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// Reader 输入源注册表。
var Reader = map[string]NewReader{
	// fs: 文件/目录/STDIN
	"fs": func(node *yaml.Node) (contract.Source, error) {
		var opts rfs.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Clipboard 剪贴板注册表。
var Clipboard = map[string]NewClipboard{
	"system": func(node *yaml.Node) (contract.ClipboardSink, error) {
		var opts csys.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return csys.New(&opts), nil
	},
	"stream": func(node *yaml.Node) (contract.ClipboardSink, error) {
		var opts cstream.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return cstream.New(&opts), nil
	},
}

// Exporter 表格导出注册表。
var Exporter = map[string]NewExporter{
	// fs: 文件系统导出（xls/csv/tsv，默认原子替换）
	"fs": func(node *yaml.Node) (contract.Exporter, error) {
		var opts efs.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return efs.New(&opts)
	},
}

// Opener 深链打开器注册表。
var Opener = map[string]NewOpener{
	"wame": func(node *yaml.Node) (contract.Opener, error) {
		var opts wame.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return wame.New(&opts)
	},
}

// Transport 邮件投递注册表。
var Transport = map[string]NewTransport{
	// http: multipart 邮件网关
	"http": func(node *yaml.Node) (contract.Transport, error) {
		var opts gateway.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return gateway.New(&opts)
	},
	// mock: 内存记录（联调/测试）
	"mock": func(node *yaml.Node) (contract.Transport, error) {
		var opts tmock.Options
		if err := strictDecode(node, &opts); err != nil {
			return nil, err
		}
		return tmock.New(&opts), nil
	},
}
