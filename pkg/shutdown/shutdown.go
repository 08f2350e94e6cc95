// Package shutdown 统一管理进程退出时需要清理的组件。
package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/mirrorcow/pkg/logger"
)

// Handler 关闭处理函数
type Handler func(ctx context.Context)

type hook struct {
	name string
	fn   Handler
}

// Manager 收集各组件的清理钩子，退出时并发执行并统一等待
type Manager struct {
	mu    sync.Mutex
	hooks []hook
}

// NewManager 创建关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// Register 注册带名称的清理钩子，名称用于超时诊断日志
func (m *Manager) Register(name string, fn Handler) {
	m.mu.Lock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
	m.mu.Unlock()
}

// Shutdown 并发执行所有钩子，阻塞到全部完成或 ctx 超时。
// 超时后不再等待，未完成的钩子随进程退出被放弃。
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	hooks := make([]hook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	if len(hooks) == 0 {
		return
	}
	logger.Infof("开始优雅关闭，共 %d 个清理钩子", len(hooks))

	done := make(chan struct{})
	var wg sync.WaitGroup
	var pendMu sync.Mutex
	pending := make(map[string]struct{}, len(hooks))
	for _, h := range hooks {
		pending[h.name] = struct{}{}
		wg.Add(1)
		go func(h hook) {
			defer wg.Done()
			h.fn(ctx)
			pendMu.Lock()
			delete(pending, h.name)
			pendMu.Unlock()
		}(h)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("所有清理钩子已完成")
	case <-ctx.Done():
		pendMu.Lock()
		stuck := make([]string, 0, len(pending))
		for name := range pending {
			stuck = append(stuck, name)
		}
		pendMu.Unlock()
		logger.Warnf("优雅关闭超时: %v，未完成: %v", ctx.Err(), stuck)
	}
}
