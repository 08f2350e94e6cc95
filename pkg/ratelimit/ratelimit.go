// Package ratelimit 提供按端点区分的客户端限流，
// 避免触发 CLOB / Gamma 服务端的速率限制。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter 单个端点的限流器
type Limiter interface {
	// Allow 非阻塞判定，允许时已计入一次请求
	Allow() bool
	// Wait 阻塞直到允许一次请求或 ctx 取消
	Wait(ctx context.Context) error
	// Remaining 当前窗口内还可发起的请求数
	Remaining() int
}

// bucket 令牌桶：持续按 rate 补充，小数累积避免整秒截断
type bucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	rate     float64 // 每秒补充数
	last     time.Time
}

// NewTokenBucket 创建令牌桶限流器，初始满桶
func NewTokenBucket(capacity int, perSecond int) Limiter {
	return &bucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		rate:     float64(perSecond),
		last:     time.Now(),
	}
}

func (b *bucket) topUp(now time.Time) {
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}

func (b *bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topUp(time.Now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *bucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.topUp(time.Now())
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		// 距下一枚令牌的时间
		wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (b *bucket) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topUp(time.Now())
	return int(b.tokens)
}

// window 滑动窗口：记录窗口内每次请求的时间戳
type window struct {
	mu    sync.Mutex
	limit int
	span  time.Duration
	hits  []time.Time
}

// NewSlidingWindow 创建滑动窗口限流器
func NewSlidingWindow(limit int, span time.Duration) Limiter {
	return &window{limit: limit, span: span}
}

// prune 丢弃窗口外的时间戳，持锁调用
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	w.hits = w.hits[i:]
}

func (w *window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	w.prune(now)
	if len(w.hits) >= w.limit {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

func (w *window) Wait(ctx context.Context) error {
	for {
		if w.Allow() {
			return nil
		}

		w.mu.Lock()
		wait := 100 * time.Millisecond
		if len(w.hits) > 0 {
			if until := time.Until(w.hits[0].Add(w.span)); until > wait {
				wait = until
			}
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (w *window) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(time.Now())
	if n := w.limit - len(w.hits); n > 0 {
		return n
	}
	return 0
}

// RateLimitManager 按端点 key 管理一组限流器。
// key 形如 "clob:order:post"，未注册的 key 走缺省限流器。
type RateLimitManager struct {
	mu       sync.RWMutex
	limiters map[string]Limiter
	fallback Limiter
}

// 服务端公布的限额
func defaultLimiters() map[string]Limiter {
	return map[string]Limiter{
		"clob:order:post":   NewTokenBucket(2400, 240),
		"clob:book:get":     NewSlidingWindow(200, 10*time.Second),
		"gamma:markets:get": NewSlidingWindow(125, 10*time.Second),
		"gamma:general":     NewSlidingWindow(750, 10*time.Second),
	}
}

// NewRateLimitManager 创建带缺省限额表的管理器
func NewRateLimitManager() *RateLimitManager {
	return &RateLimitManager{
		limiters: defaultLimiters(),
		fallback: NewSlidingWindow(5000, 10*time.Second),
	}
}

// GetLimiter 取端点对应的限流器，未注册时返回缺省限流器
func (m *RateLimitManager) GetLimiter(endpoint string) Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limiters[endpoint]; ok {
		return l
	}
	return m.fallback
}

// Wait 阻塞直到端点允许一次请求
func (m *RateLimitManager) Wait(ctx context.Context, endpoint string) error {
	return m.GetLimiter(endpoint).Wait(ctx)
}

// Allow 非阻塞判定端点是否允许一次请求
func (m *RateLimitManager) Allow(endpoint string) bool {
	return m.GetLimiter(endpoint).Allow()
}

// GetRemaining 端点当前窗口剩余额度
func (m *RateLimitManager) GetRemaining(endpoint string) int {
	return m.GetLimiter(endpoint).Remaining()
}
