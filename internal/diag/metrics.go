package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// 进程内指标：私有 registry，不暴露 HTTP 端点；CLI 以 --metrics 打印。
// - datatools_op_total{comp,stage,result}
// - datatools_error_total{comp,code}
// - datatools_op_duration_seconds{comp,stage}
// - datatools_parse_warnings_total{layout}
// - datatools_records_total{comp}
var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	opTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "datatools_op_total",
		Help: "Operations by component, stage and result",
	}, []string{"comp", "stage", "result"})

	errorTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "datatools_error_total",
		Help: "Errors by component and classified code",
	}, []string{"comp", "code"})

	opDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datatools_op_duration_seconds",
		Help:    "Stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"comp", "stage"})

	parseWarnings = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "datatools_parse_warnings_total",
		Help: "Lines that did not match any layout",
	}, []string{"layout"})

	recordsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "datatools_records_total",
		Help: "Records produced by component",
	}, []string{"comp"})
)

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	opTotal.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	errorTotal.WithLabelValues(comp, code).Inc()
}

// ObserveDuration 记录阶段耗时。
func ObserveDuration(comp, stage string, d time.Duration) {
	opDuration.WithLabelValues(comp, stage).Observe(d.Seconds())
}

// AddParseWarnings 记录未识别行数。
func AddParseWarnings(layout string, n int) {
	if n <= 0 {
		return
	}
	parseWarnings.WithLabelValues(layout).Add(float64(n))
}

// AddRecords 记录组件产出的记录数。
func AddRecords(comp string, n int) {
	if n <= 0 {
		return
	}
	recordsTotal.WithLabelValues(comp).Add(float64(n))
}

// Registry 返回进程内指标 registry（测试用）。
func Registry() *prometheus.Registry { return registry }

// DumpMetrics 以 "name{labels} value" 文本打印当前指标值；直方图输出 _count 与 _sum。
func DumpMetrics(w io.Writer) error {
	mfs, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				if _, err := fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue()); err != nil {
					return err
				}
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				if _, err := fmt.Fprintf(w, "%s_count%s %d\n%s_sum%s %g\n",
					mf.GetName(), labels, h.GetSampleCount(), mf.GetName(), labels, h.GetSampleSum()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
