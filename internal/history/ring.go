// Package history 提供调用方持有的有界快照环（撤销用）。
package history

// DefaultDepth: 默认保留的快照数量。
const DefaultDepth = 3

// Ring: 固定容量的快照栈；满时丢弃最旧项。非并发安全。
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

// New 创建容量为 depth 的环；depth<=0 使用 DefaultDepth。
func New[T any](depth int) *Ring[T] {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Ring[T]{buf: make([]T, depth)}
}

// Push 追加快照；满时覆盖最旧项。
func (r *Ring[T]) Push(v T) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Pop 取出最新快照。
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	i := (r.start + r.n - 1) % len(r.buf)
	v := r.buf[i]
	r.buf[i] = zero
	r.n--
	return v, true
}

// Peek 查看最新快照但不取出。
func (r *Ring[T]) Peek() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)], true
}

// Items 按从旧到新返回全部快照副本。
func (r *Ring[T]) Items() []T {
	out := make([]T, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *Ring[T]) Len() int { return r.n }
func (r *Ring[T]) Cap() int { return len(r.buf) }
