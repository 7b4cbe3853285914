package stress

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfgpkg "datatools/internal/config"
	"datatools/internal/pipeline"
)

// baseConfig 构造可运行的最小配置：关闭交互式组件。
func baseConfig() cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Logging.Level = "error"
	cfg.Components.Clipboard = cfgpkg.None
	cfg.Components.Exporter = cfgpkg.None
	cfg.Components.Opener = cfgpkg.None
	cfg.Components.Transport = cfgpkg.None
	return cfg
}

// writeInputs 生成 members 人的名单与 items 条记录的池。
func writeInputs(t *testing.T, dir string, members, items int) (string, string) {
	t.Helper()
	var roster strings.Builder
	for i := 0; i < members; i++ {
		fmt.Fprintf(&roster, "Member%c%c %d %d %d\n", 'A'+i/26, 'A'+i%26, i%13, i*3, i%7)
	}
	var pool strings.Builder
	for i := 0; i < items; i++ {
		fmt.Fprintf(&pool, "编号:%d WhatsApp +44 7700 %06d 推荐人:Referrer: Ann 公司Company Name :Acme 语言:English\n", i+1, i)
	}
	rp, pp := filepath.Join(dir, "roster.txt"), filepath.Join(dir, "pool.txt")
	require.NoError(t, os.WriteFile(rp, []byte(roster.String()), 0o644))
	require.NoError(t, os.WriteFile(pp, []byte(pool.String()), 0o644))
	return rp, pp
}

// TestStress 在不同池规模与策略下执行分配并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	sizes := []int{1000, 10000, 50000}
	policies := []string{"equal", "minimum", "average"}
	for _, n := range sizes {
		for _, policy := range policies {
			t.Run(fmt.Sprintf("%s_%d", policy, n), func(t *testing.T) {
				roster, pool := writeInputs(t, t.TempDir(), 60, n)
				cfg := baseConfig()
				cfg.Distribution.Policy = policy
				cfg.Distribution.Minimum = 5
				cfg.Distribution.Threshold = 4
				comp, set, err := cfgpkg.Assemble(cfg)
				require.NoError(t, err)
				r, err := pipeline.New(comp, set, nil, nil)
				require.NoError(t, err)

				const runs = 5
				latencies := make([]time.Duration, 0, runs)
				for i := 0; i < runs; i++ {
					start := time.Now()
					s, err := r.Distribute(context.Background(), roster, pool)
					if err != nil {
						t.Errorf("run %d: %v", i, err)
						continue
					}
					if err := r.Apply(s, pipeline.Edit{Kind: pipeline.EditAdjust, Member: "MemberAA", Count: 0}); err != nil {
						t.Errorf("run %d adjust: %v", i, err)
						continue
					}
					latencies = append(latencies, time.Since(start))
					if got := s.Result.TotalAssigned() + s.Result.Unassigned; got != n {
						t.Fatalf("coverage: got %d items, want %d", got, n)
					}
				}
				if len(latencies) == 0 {
					t.Fatalf("全部运行失败")
				}
				sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
				var total time.Duration
				for _, d := range latencies {
					total += d
				}
				avg := total / time.Duration(len(latencies))
				idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
				if idx < 0 {
					idx = 0
				}
				t.Logf("%s 池%d 成功率%.2f 平均%v 95%%延迟%v", policy, n, float64(len(latencies))/runs, avg, latencies[idx])
			})
		}
	}
}
