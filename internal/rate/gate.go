package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"datatools/pkg/contract"
)

// Key: 限流分组键（投递通道）。
type Key string

const (
	// KeyOpener: 消息深链打开。
	KeyOpener Key = "opener"
	// KeyTransport: 邮件网关投递。
	KeyTransport Key = "transport"
)

// Limits: 每分组的限额配置。0 表示该维度不启用。
type Limits struct {
	PerMinute int // 每分钟投递次数
	MaxBytes  int // 单条消息正文（含附件）字节上限
}

// Ask: 一次放行申请。
type Ask struct {
	Key   Key
	Bytes int // 本次消息大小（>=0）
}

// Gate: 投递节流闸门（并发安全）。
type Gate interface {
	// Wait: 阻塞直到额度可用或 ctx 取消；超过单条上限时快速失败。
	Wait(ctx context.Context, a Ask) error
	// Try: 非阻塞尝试；不足时返回 false。
	Try(a Ask) bool
}

// NewGate: 从静态配置构造闸门；clk 为空则使用 time.Now。
func NewGate(m map[Key]Limits, clk func() time.Time) Gate {
	if clk == nil {
		clk = time.Now
	}
	g := &gate{clk: clk, m: make(map[Key]*entry, len(m))}
	now := clk()
	for k, lim := range m {
		g.m[k] = newEntry(lim, now)
	}
	return g
}

type gate struct {
	mu  sync.Mutex
	clk func() time.Time
	m   map[Key]*entry
}

type entry struct {
	mu  sync.Mutex
	lim Limits
	req bucket
}

// bucket: 令牌桶，容量即每分钟额度，按秒匀速回填。
type bucket struct {
	cap   int
	level float64
	rate  float64
	last  time.Time
}

func newEntry(lim Limits, now time.Time) *entry {
	e := &entry{lim: lim}
	if lim.PerMinute > 0 {
		e.req = bucket{cap: lim.PerMinute, level: float64(lim.PerMinute), rate: float64(lim.PerMinute) / 60.0, last: now}
	}
	return e
}

func (b *bucket) enabled() bool { return b.cap > 0 }

func (b *bucket) refill(now time.Time) {
	if !b.enabled() || !now.After(b.last) {
		// 时钟回拨视为无时间流逝
		return
	}
	b.level += now.Sub(b.last).Seconds() * b.rate
	if b.level > float64(b.cap) {
		b.level = float64(b.cap)
	}
	b.last = now
}

func (b *bucket) canTake() bool { return !b.enabled() || b.level >= 1 }

func (b *bucket) take() {
	if b.enabled() {
		b.level--
	}
}

// waitFor 返回攒够一次额度还需等待的时长。
func (b *bucket) waitFor() time.Duration {
	if !b.enabled() || b.level >= 1 {
		return 0
	}
	return time.Duration((1 - b.level) / b.rate * float64(time.Second))
}

func (g *gate) get(key Key) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.m[key]
	if e == nil {
		// 未配置的 key 视为不限额
		e = newEntry(Limits{}, g.clk())
		g.m[key] = e
	}
	return e
}

func (g *gate) check(e *entry, a Ask) error {
	if a.Bytes < 0 {
		return fmt.Errorf("rate %s: %w: negative size", a.Key, contract.ErrInvalidInput)
	}
	if e.lim.MaxBytes > 0 && a.Bytes > e.lim.MaxBytes {
		return fmt.Errorf("rate %s: %w: message of %d bytes exceeds %d", a.Key, contract.ErrInvalidInput, a.Bytes, e.lim.MaxBytes)
	}
	return nil
}

func (g *gate) Try(a Ask) bool {
	e := g.get(a.Key)
	if g.check(e, a) != nil {
		return false
	}
	now := g.clk()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.req.refill(now)
	if !e.req.canTake() {
		return false
	}
	e.req.take()
	return true
}

func (g *gate) Wait(ctx context.Context, a Ask) error {
	e := g.get(a.Key)
	if err := g.check(e, a); err != nil {
		return err
	}
	// 最小睡眠粒度，避免忙等
	const minSleep = 10 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		now := g.clk()
		e.mu.Lock()
		e.req.refill(now)
		if e.req.canTake() {
			e.req.take()
			e.mu.Unlock()
			return nil
		}
		d := e.req.waitFor() + minSleep
		e.mu.Unlock()
		if err := sleepCtx(ctx, d); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	// 分片为最多 200ms 的步长，及时响应取消
	const step = 200 * time.Millisecond
	for d > 0 {
		s := min(d, step)
		t := time.NewTimer(s)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		d -= s
	}
	return nil
}

// Available 返回 key 当前可用的投递次数（向下取整，仅诊断）；未启用时返回 -1。
func Available(g Gate, key Key) int {
	gg, ok := g.(*gate)
	if !ok {
		return -1
	}
	e := gg.get(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.req.enabled() {
		return -1
	}
	e.req.refill(gg.clk())
	return int(e.req.level)
}

var _ Gate = (*gate)(nil)
