package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	cfgpkg "datatools/internal/config"
)

// writeConfig 以 YAML 写出配置；path 为 "-" 时写到 stdout。不覆盖已存在文件。
func writeConfig(path string, c cfgpkg.Config) error {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if path == "-" {
		_, err := os.Stdout.WriteString(sb.String())
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(sb.String())
	return err
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（但调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export "。
// - 仅按首个 '=' 分割；若 value 被成对的单/双引号包裹，则去除外层引号。
// - 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" {
			continue
		}
		val = unquote(val)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	q := val[0]
	if (q != '\'' && q != '"') || val[len(val)-1] != q {
		return val
	}
	val = val[1 : len(val)-1]
	if q == '"' {
		val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
	}
	return val
}

// dotEnvKeys: .env 模板中列出的覆盖项（按分组）。
var dotEnvKeys = []struct {
	title string
	keys  []string
}{
	{"配置来源（可二选一）", []string{"CONFIG_FILE", "CONFIG_YAML"}},
	{"运行参数覆盖", []string{"LOG_LEVEL", "LAYOUTS", "RECORD_START", "HISTORY_DEPTH"}},
	{"分配策略", []string{"POLICY", "MINIMUM", "THRESHOLD", "MAX_PER_MEMBER"}},
	{"组件选择", []string{"COMPONENTS_READER", "COMPONENTS_CLIPBOARD", "COMPONENTS_EXPORTER", "COMPONENTS_OPENER", "COMPONENTS_TRANSPORT"}},
	{"组件选项（YAML）", []string{"OPTIONS__EXPORTER_YAML", "OPTIONS__TRANSPORT_YAML"}},
	{"邮件与链接", []string{"EMAIL_SENDER", "EMAIL_TEMPLATE", "LINK_BASE", "REPORT_TITLE"}},
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# datatools .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > YAML\n")
	b.WriteString("# 空值表示未设置。\n\n")
	for _, g := range dotEnvKeys {
		fmt.Fprintf(&b, "# %s\n", g.title)
		for _, k := range g.keys {
			b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("# 成员号码：" + cfgpkg.EnvPrefix + "MEMBER__<name>=<number>\n")
	b.WriteString("# 邮件网关密钥：在 options.transport.api_key_env 指定的变量中设置\n")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

// preflightCheckOutputDir: 导出器为 fs 时，启动前检查输出目录可写性。
// 目录存在则尝试创建并删除临时文件；不存在则检查父目录可写。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	if strings.TrimSpace(cfg.Components.Exporter) != "fs" {
		return nil
	}
	var opts struct {
		OutputDir string `yaml:"output_dir"`
	}
	if !cfg.Options.Exporter.IsZero() {
		_ = cfg.Options.Exporter.Decode(&opts)
	}
	dir := strings.TrimSpace(opts.OutputDir)
	if dir == "" {
		// 交由装配阶段报错
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(dir)
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	return os.RemoveAll(tmpd)
}
