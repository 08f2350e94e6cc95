// Package bot 组装 ingest → match → execute 流水线并管理生命周期。
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/betbot/mirrorcow/clob/types"
	"github.com/betbot/mirrorcow/internal/executor"
	"github.com/betbot/mirrorcow/internal/matcher"
	"github.com/betbot/mirrorcow/internal/watchlist"
	"github.com/betbot/mirrorcow/pkg/logger"
)

// State 编排器状态机
type State int32

const (
	StateConnecting State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Feed 活动流来源，由 internal/feed.ActivityClient 实现
type Feed interface {
	Start(ctx context.Context) error
	Frames() <-chan []byte
	Stop()
}

// Execer 下单执行接口，由 internal/executor.Gateway 实现
type Execer interface {
	EnsureApprovals(ctx context.Context) error
	Execute(ctx context.Context, tokenID string, key string, size decimal.Decimal) error
}

// Session CLOB 会话准备接口，由 clob/client.Client 实现
type Session interface {
	CreateOrDeriveAPIKey(ctx context.Context, nonce *int64) (*types.ApiKeyCreds, error)
	SetApiCreds(creds *types.ApiKeyCreds)
	CheckHealth(ctx context.Context) (time.Duration, error)
}

// ticket 执行队列中的一个待办
type ticket struct {
	ID      string
	TokenID string
	Key     string
	Size    decimal.Decimal
}

// Options 编排器配置
type Options struct {
	QueueSize     int
	ProgressEvery int
}

// Status 运行时快照，供状态接口查询
type Status struct {
	State         string `json:"state"`
	Processed     uint64 `json:"processed"`
	Matched       uint64 `json:"matched"`
	Executed      uint64 `json:"executed"`
	Failed        uint64 `json:"failed"`
	WatchlistSize int    `json:"watchlistSize"`
}

// Orchestrator 状态机 Connecting → Running → Terminated。
// 单 worker 消费有界执行队列，保证每个目标账户的镜像单按到达顺序提交。
type Orchestrator struct {
	feed    Feed
	matcher *matcher.Matcher
	store   *watchlist.Store
	exec    Execer
	session Session
	opts    Options
	log     *logger.Entry

	queue      chan ticket
	fatalCh    chan error
	workerDone chan struct{}
	state      atomic.Int32

	processed atomic.Uint64
	matched   atomic.Uint64
	executed  atomic.Uint64
	failed    atomic.Uint64

	workerWG sync.WaitGroup
}

// New 创建编排器。session 可为 nil（dry-run 模式跳过凭证准备）。
func New(f Feed, m *matcher.Matcher, store *watchlist.Store, exec Execer, session Session, opts Options) *Orchestrator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 1
	}
	return &Orchestrator{
		feed:    f,
		matcher: m,
		store:   store,
		exec:    exec,
		session: session,
		opts:    opts,
		log:     logger.Component("bot"),
		queue:      make(chan ticket, opts.QueueSize),
		fatalCh:    make(chan error, 1),
		workerDone: make(chan struct{}),
	}
}

// State 当前状态
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Snapshot 当前计数快照
func (o *Orchestrator) Snapshot() Status {
	return Status{
		State:         o.State().String(),
		Processed:     o.processed.Load(),
		Matched:       o.matched.Load(),
		Executed:      o.executed.Load(),
		Failed:        o.failed.Load(),
		WatchlistSize: o.store.Len(),
	}
}

// Run 执行完整生命周期，阻塞直到终止。
// Connecting 阶段任一失败直接返回错误；Running 阶段致命错误
// 或活动流终止（重连耗尽）也以错误返回，由调用方决定退出码。
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.state.Store(int32(StateTerminated))

	o.state.Store(int32(StateConnecting))
	o.log.Infof("启动：名单 %d 个目标", o.store.Len())

	// 1. 链上授权前置
	if err := o.exec.EnsureApprovals(ctx); err != nil {
		return err
	}

	// 2. CLOB 凭证与健康检查
	if o.session != nil {
		creds, err := o.session.CreateOrDeriveAPIKey(ctx, nil)
		if err != nil {
			return fmt.Errorf("准备 API 凭证失败: %w", err)
		}
		o.session.SetApiCreds(creds)
		o.log.Info("API 凭证已就绪")

		drift, err := o.session.CheckHealth(ctx)
		if err != nil {
			return fmt.Errorf("CLOB 健康检查失败: %w", err)
		}
		if drift > 30*time.Second || drift < -30*time.Second {
			o.log.Warnf("本地时钟与服务器偏差 %s", drift)
		}
	}

	// 3. 连接活动流
	if err := o.feed.Start(ctx); err != nil {
		return err
	}
	defer o.feed.Stop()

	o.workerWG.Add(1)
	go o.worker(ctx)
	defer func() {
		close(o.queue)
		o.workerWG.Wait()
	}()

	o.state.Store(int32(StateRunning))
	o.log.Info("进入 Running 状态，开始跟单")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-o.fatalCh:
			return err
		case frame, ok := <-o.feed.Frames():
			if !ok {
				return fmt.Errorf("活动流已终止（重连耗尽或远端关闭）")
			}
			o.handleFrame(ctx, frame)
		}
	}
}

func (o *Orchestrator) handleFrame(ctx context.Context, frame []byte) {
	n := o.processed.Add(1)

	ev, res := o.matcher.Match(frame)
	if !res.Matched {
		if n%uint64(o.opts.ProgressEvery) == 0 {
			o.log.Debugf("已处理 %d 条事件（命中 %d）", n, o.matched.Load())
		}
		return
	}

	target, ok := o.store.Lookup(res.MatchedKey)
	if !ok {
		// 命中结果必然来自名单，这里只是兜底
		o.log.Warnf("命中 key %s 在名单中不存在", res.MatchedKey)
		return
	}

	o.matched.Add(1)
	o.log.Infof("命中 %s: %s 买入 %q/%s @%.3f x%.2f",
		res.MatchedKey, ev.Name, ev.Title, ev.Outcome, ev.Price, ev.Size)

	tk := ticket{
		ID:      uuid.NewString(),
		TokenID: res.TokenID,
		Key:     res.MatchedKey,
		Size:    target.Size,
	}
	select {
	case o.queue <- tk:
	case <-o.workerDone:
	case <-ctx.Done():
	}
}

// worker 单协程顺序消费执行队列，保证同一目标的镜像单 FIFO
func (o *Orchestrator) worker(ctx context.Context) {
	defer o.workerWG.Done()
	defer close(o.workerDone)

	for tk := range o.queue {
		err := o.exec.Execute(ctx, tk.TokenID, tk.Key, tk.Size)
		if err == nil {
			o.executed.Add(1)
			continue
		}

		o.failed.Add(1)
		var execErr *executor.ExecutionError
		if errors.As(err, &execErr) && execErr.Fatal {
			o.log.Errorf("致命执行错误（单 %s）: %v", tk.ID, err)
			select {
			case o.fatalCh <- err:
			default:
			}
			return
		}
		o.log.Warnf("跟单失败（单 %s），继续运行: %v", tk.ID, err)
	}
}
