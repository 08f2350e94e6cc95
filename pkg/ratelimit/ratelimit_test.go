package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket_AllowsUpToCapacity(t *testing.T) {
	tb := NewTokenBucket(3, 1)
	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("第 %d 次请求应被允许", i+1)
		}
	}
	if tb.Allow() {
		t.Fatal("超出容量的请求应被拒绝")
	}
}

func TestSlidingWindow_BlocksOverLimit(t *testing.T) {
	sw := NewSlidingWindow(2, time.Minute)
	if !sw.Allow() || !sw.Allow() {
		t.Fatal("限额内的请求应被允许")
	}
	if sw.Allow() {
		t.Fatal("超出限额的请求应被拒绝")
	}
	if got := sw.Remaining(); got != 0 {
		t.Fatalf("剩余额度应为 0，实际 %d", got)
	}
}

func TestWait_CanceledContext(t *testing.T) {
	sw := NewSlidingWindow(1, time.Minute)
	sw.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sw.Wait(ctx); err == nil {
		t.Fatal("ctx 取消后 Wait 应返回错误")
	}
}

func TestManager_UnknownKeyUsesFallback(t *testing.T) {
	m := NewRateLimitManager()
	if !m.Allow("no:such:endpoint") {
		t.Fatal("未注册端点应走缺省限流器并放行")
	}
	if m.GetRemaining("clob:book:get") <= 0 {
		t.Fatal("已注册端点初始应有剩余额度")
	}
}
