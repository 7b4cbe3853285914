package distribute

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatools/pkg/contract"
)

func members(names ...string) []contract.TeamMember {
	out := make([]contract.TeamMember, len(names))
	for i, n := range names {
		out[i] = contract.TeamMember{Name: n}.Recompute()
	}
	return out
}

func pool(n int) []contract.Record {
	out := make([]contract.Record, n)
	for i := range out {
		out[i] = contract.Record{ID: fmt.Sprint(i), Phone: fmt.Sprintf("+1000000%03d", i), Raw: fmt.Sprintf("item-%d", i)}
	}
	return out
}

func counts(r Result) []int {
	out := make([]int, len(r.Roster))
	for i, m := range r.Roster {
		out[i] = m.AssignedCount
	}
	return out
}

// checkInvariants 每项恰好出现一次；计数之和等于已分配数
func checkInvariants(t *testing.T, r Result, poolSize int) {
	t.Helper()
	require.Len(t, r.Assignments, poolSize)
	seen := make(map[int]bool, poolSize)
	for _, a := range r.Assignments {
		require.False(t, seen[a.PoolIndex], "重复项 %d", a.PoolIndex)
		seen[a.PoolIndex] = true
	}
	sum := 0
	for _, m := range r.Roster {
		sum += m.AssignedCount
		assert.Equal(t, m.PriorCount+m.AssignedCount, m.CurrentData())
	}
	assert.Equal(t, r.TotalAssigned(), sum)
}

// TestEqualRoundRobin 3 人 7 项 → {3,2,2}，从第 0 人开始轮转
func TestEqualRoundRobin(t *testing.T) {
	res, err := Distribute(members("Carl", "Amy", "Bob"), pool(7), Params{Policy: Equal})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2}, counts(res))
	owners := res.Owners()
	assert.Equal(t, []string{"Carl", "Amy", "Bob", "Carl", "Amy", "Bob", "Carl"}, owners)
	assert.Equal(t, 0, res.Unassigned)
	checkInvariants(t, res, 7)
}

// TestOutputOrder 按成员名字典序分组，组内保持池顺序
func TestOutputOrder(t *testing.T) {
	res, err := Distribute(members("Carl", "Amy", "Bob"), pool(7), Params{Policy: Equal})
	require.NoError(t, err)
	var got []string
	for _, a := range res.Assignments {
		got = append(got, fmt.Sprintf("%s:%d", a.Member, a.PoolIndex))
	}
	assert.Equal(t, []string{"Amy:1", "Amy:4", "Bob:2", "Bob:5", "Carl:0", "Carl:3", "Carl:6"}, got)
}

// TestMinimum 2 人 5 项，k=4 → {4,1}
func TestMinimum(t *testing.T) {
	res, err := Distribute(members("A", "B"), pool(5), Params{Policy: Minimum, Minimum: 4})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, counts(res))
	checkInvariants(t, res, 5)
}

// TestMinimumSecondPass 首轮保底后余量从第 0 人开始轮转
func TestMinimumSecondPass(t *testing.T) {
	res, err := Distribute(members("A", "B", "C"), pool(10), Params{Policy: Minimum, Minimum: 2})
	require.NoError(t, err)
	// 首轮：A 0-1, B 2-3, C 4-5；次轮：6→A 7→B 8→C 9→A
	assert.Equal(t, []int{4, 3, 3}, counts(res))
	assert.Equal(t, []string{"A", "A", "B", "B", "C", "C", "A", "B", "C", "A"}, res.Owners())
}

// TestMinimumZero k=0 等价于 equal
func TestMinimumZero(t *testing.T) {
	a, err := Distribute(members("A", "B"), pool(5), Params{Policy: Minimum})
	require.NoError(t, err)
	b, err := Distribute(members("A", "B"), pool(5), Params{Policy: Equal})
	require.NoError(t, err)
	assert.Equal(t, b.Owners(), a.Owners())
}

// TestAverageEligible 仅均值低于阈值的成员参与；未定义均值不参与
func TestAverageEligible(t *testing.T) {
	roster := []contract.TeamMember{
		{Name: "Low", PriorMonthlyTotal: 2, PriorItemCount: 2},
		{Name: "High", PriorMonthlyTotal: 10, PriorItemCount: 2},
		{Name: "None"},
		{Name: "Low2", PriorMonthlyTotal: 3, PriorItemCount: 3},
	}
	for i := range roster {
		roster[i] = roster[i].Recompute()
	}
	res, err := Distribute(roster, pool(5), Params{Policy: Average, Threshold: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0, 0, 2}, counts(res))
	low, ok := res.Member("Low")
	require.True(t, ok)
	// (2+3)/(2+3)
	assert.InDelta(t, 1.0, low.Average.Value(), 1e-9)
	checkInvariants(t, res, 5)
}

// TestAverageFromPriorFields 资格按分配前的月总量/条目数计算，不依赖调用方预先填好的均值
func TestAverageFromPriorFields(t *testing.T) {
	roster := []contract.TeamMember{
		{Name: "Amy", PriorMonthlyTotal: 10, PriorItemCount: 10},
		{Name: "Bob", PriorMonthlyTotal: 90, PriorItemCount: 10},
	}
	res, err := Distribute(roster, pool(4), Params{Policy: Average, Threshold: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0}, counts(res))

	// 过期的均值字段不影响资格
	roster[1].Average = contract.DefinedAverage(1)
	res, err = Distribute(roster, pool(4), Params{Policy: Average, Threshold: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0}, counts(res))
	checkInvariants(t, res, 4)
}

// TestAverageNoEligible 无资格成员：失败且不产生任何分配
func TestAverageNoEligible(t *testing.T) {
	roster := members("A", "B")
	res, err := Distribute(roster, pool(3), Params{Policy: Average, Threshold: 5})
	require.ErrorIs(t, err, contract.ErrNoEligible)
	assert.Empty(t, res.Assignments)
	assert.Empty(t, res.Roster)
}

// TestMaxPerMember 全员满额后其余项显式未分配
func TestMaxPerMember(t *testing.T) {
	res, err := Distribute(members("A", "B"), pool(7), Params{Policy: Equal, MaxPerMember: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, counts(res))
	assert.Equal(t, 3, res.Unassigned)
	last := res.Assignments[len(res.Assignments)-3:]
	for i, a := range last {
		assert.False(t, a.Assigned())
		assert.Equal(t, 4+i, a.PoolIndex)
	}
	checkInvariants(t, res, 7)
}

// TestMinimumWithCap 保底 + 上限：次轮满额后剩余项未分配
func TestMinimumWithCap(t *testing.T) {
	res, err := Distribute(members("A", "B"), pool(7), Params{Policy: Minimum, Minimum: 2, MaxPerMember: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A", "B", "B", "A", "B", ""}, res.Owners())
	assert.Equal(t, 1, res.Unassigned)
}

// TestDistributeErrors 空输入、非法参数、未知策略、重名
func TestDistributeErrors(t *testing.T) {
	_, err := Distribute(nil, pool(1), Params{Policy: Equal})
	assert.ErrorIs(t, err, contract.ErrNoData)
	_, err = Distribute(members("A"), nil, Params{Policy: Equal})
	assert.ErrorIs(t, err, contract.ErrNoData)
	_, err = Distribute(members("A"), pool(1), Params{Policy: Minimum, Minimum: -1})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = Distribute(members("A"), pool(1), Params{Policy: "weird"})
	assert.ErrorIs(t, err, contract.ErrUnknownPolicy)
	_, err = Distribute(members("A", "A"), pool(1), Params{Policy: Equal})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

// TestInputsUntouched 输入名单不被修改
func TestInputsUntouched(t *testing.T) {
	roster := members("A", "B")
	p := pool(4)
	_, err := Distribute(roster, p, Params{Policy: Equal})
	require.NoError(t, err)
	for _, m := range roster {
		assert.Equal(t, 0, m.AssignedCount)
	}
	assert.Equal(t, "item-0", p[0].Raw)
}

// TestSumProperty 各策略下计数之和 = min(池大小, 策略可达量)
func TestSumProperty(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for size := 1; size <= 20; size += 3 {
			for _, p := range []Params{
				{Policy: Equal},
				{Policy: Minimum, Minimum: 3},
				{Policy: Equal, MaxPerMember: 2},
			} {
				names := make([]string, n)
				for i := range names {
					names[i] = fmt.Sprintf("m%02d", i)
				}
				res, err := Distribute(members(names...), pool(size), p)
				require.NoError(t, err)
				want := size
				if p.MaxPerMember > 0 && n*p.MaxPerMember < size {
					want = n * p.MaxPerMember
				}
				assert.Equal(t, want, res.TotalAssigned(), "n=%d size=%d %+v", n, size, p)
				checkInvariants(t, res, size)
			}
		}
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" Average ")
	require.NoError(t, err)
	assert.Equal(t, Average, p)
	_, err = ParsePolicy("fastest")
	assert.ErrorIs(t, err, contract.ErrUnknownPolicy)
}

// TestReassignItem 单项改派：双方计数与均值更新
func TestReassignItem(t *testing.T) {
	res, err := Distribute(members("A", "B"), pool(4), Params{Policy: Equal})
	require.NoError(t, err)
	moved, err := ReassignItem(res, 0, "B")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, counts(moved))
	assert.Equal(t, []int{2, 2}, counts(res))
	assert.Equal(t, []string{"B", "B", "A", "B"}, moved.Owners())
	checkInvariants(t, moved, 4)

	freed, err := ReassignItem(moved, 2, "")
	require.NoError(t, err)
	assert.Equal(t, 1, freed.Unassigned)
	assert.Equal(t, 2, freed.Assignments[len(freed.Assignments)-1].PoolIndex)

	_, err = ReassignItem(res, 9, "A")
	assert.ErrorIs(t, err, contract.ErrUnknownItem)
	_, err = ReassignItem(res, 0, "Zed")
	assert.ErrorIs(t, err, contract.ErrUnknownMember)
}

// TestGroupAndPool 分组与池还原
func TestGroupAndPool(t *testing.T) {
	p := pool(5)
	res, err := Distribute(members("A", "B"), p, Params{Policy: Equal})
	require.NoError(t, err)
	g := res.Group("A")
	require.Len(t, g, 3)
	assert.Equal(t, []int{0, 2, 4}, []int{g[0].PoolIndex, g[1].PoolIndex, g[2].PoolIndex})
	assert.Equal(t, p, res.Pool())
}

func BenchmarkDistributeEqual(b *testing.B) {
	roster := members("a", "b", "c", "d", "e", "f", "g")
	p := pool(5000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Distribute(roster, p, Params{Policy: Equal})
	}
}
