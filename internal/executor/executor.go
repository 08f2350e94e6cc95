// Package executor 负责镜像下单：审批前置检查与市价买单执行。
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/mirrorcow/clob/types"
	"github.com/betbot/mirrorcow/pkg/logger"
)

// ApprovalError 链上授权前置检查失败（致命，启动即终止）
type ApprovalError struct {
	Stage string
	Err   error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("链上授权失败（%s）: %v", e.Stage, e.Err)
}

func (e *ApprovalError) Unwrap() error { return e.Err }

// ExecutionError 下单失败。Fatal 表示凭证/鉴权类错误，应终止进程；
// 非 Fatal 为单笔被拒，记录后继续。
type ExecutionError struct {
	TokenID string
	Key     string
	Reason  string
	Fatal   bool
	Err     error
}

func (e *ExecutionError) Error() string {
	kind := "可恢复"
	if e.Fatal {
		kind = "致命"
	}
	return fmt.Sprintf("下单失败（%s，目标 %s token %s）: %s", kind, e.Key, e.TokenID, e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Venue 市价单提交接口，由 clob/client.Client 实现
type Venue interface {
	PlaceMarketOrderWithFunder(ctx context.Context, tokenID string, side types.Side, amountUSDC float64, options *types.CreateOrderOptions, funderAddress string, signatureType types.SignatureType) (*types.OrderResponse, error)
}

// Approver 链上授权检查与补救接口，由 clob/client.AuthorizationService 实现
type Approver interface {
	CheckAllowances(ctx context.Context) (*AllowancesView, error)
	ApproveAll(ctx context.Context) error
}

// AllowancesView Approver 的检查结果摘要
type AllowancesView struct {
	TradingReady bool
	Issues       []string
}

// Options 执行网关配置
type Options struct {
	FunderAddress string
	SignatureType types.SignatureType
	Timeout       time.Duration
	DryRun        bool
	AutoApprove   bool
}

// Gateway 执行网关：持有签名客户端与授权服务，对外只暴露
// EnsureApprovals 与 Execute 两个操作。
type Gateway struct {
	venue    Venue
	approver Approver
	opts     Options
	log      *logger.Entry
}

func New(venue Venue, approver Approver, opts Options) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Gateway{
		venue:    venue,
		approver: approver,
		opts:     opts,
		log:      logger.Component("executor"),
	}
}

// EnsureApprovals 启动前置：检查 CLOB 结算合约所需的 USDC/CTF 授权，
// 不满足时执行一次 ApproveAll 补齐。任一环节失败返回 ApprovalError。
func (g *Gateway) EnsureApprovals(ctx context.Context) error {
	if g.opts.DryRun {
		g.log.Info("dry-run 模式，跳过链上授权检查")
		return nil
	}
	if g.approver == nil {
		return &ApprovalError{Stage: "check", Err: fmt.Errorf("授权服务未配置")}
	}

	res, err := g.approver.CheckAllowances(ctx)
	if err != nil {
		return &ApprovalError{Stage: "check", Err: err}
	}
	if res.TradingReady {
		g.log.Info("链上授权已就绪")
		return nil
	}

	g.log.Warnf("链上授权不完整: %s", strings.Join(res.Issues, "; "))
	if !g.opts.AutoApprove {
		return &ApprovalError{Stage: "check", Err: fmt.Errorf("授权不完整且未开启自动补齐: %s", strings.Join(res.Issues, "; "))}
	}

	g.log.Info("开始补齐链上授权 ...")
	if err := g.approver.ApproveAll(ctx); err != nil {
		return &ApprovalError{Stage: "approve", Err: err}
	}

	// 补齐后复查
	res, err = g.approver.CheckAllowances(ctx)
	if err != nil {
		return &ApprovalError{Stage: "recheck", Err: err}
	}
	if !res.TradingReady {
		return &ApprovalError{Stage: "recheck", Err: fmt.Errorf("补齐后仍不可交易: %s", strings.Join(res.Issues, "; "))}
	}
	g.log.Info("链上授权补齐完成")
	return nil
}

// Execute 以配置的 USDC 金额对 tokenID 下 FAK 市价买单。
// key 仅用于日志与错误归属。每次执行受 Timeout 约束。
func (g *Gateway) Execute(ctx context.Context, tokenID string, key string, size decimal.Decimal) error {
	amountUSDC, _ := size.Float64()

	if g.opts.DryRun {
		g.log.Infof("[dry-run] 跟单 %s：买入 token %s，金额 %.2f USDC", key, tokenID, amountUSDC)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	resp, err := g.venue.PlaceMarketOrderWithFunder(ctx, tokenID, types.SideBuy, amountUSDC, nil, g.opts.FunderAddress, g.opts.SignatureType)
	if err != nil {
		return &ExecutionError{
			TokenID: tokenID,
			Key:     key,
			Reason:  err.Error(),
			Fatal:   isCredentialFailure(err),
			Err:     err,
		}
	}

	if resp.ErrorMsg != "" {
		return &ExecutionError{
			TokenID: tokenID,
			Key:     key,
			Reason:  resp.ErrorMsg,
			Fatal:   false,
		}
	}

	g.log.Infof("跟单 %s 成交: 花费 %s USDC，获得 %s，订单 %s（状态 %s）",
		key, resp.MakingAmount, resp.TakingAmount, resp.OrderID, resp.Status)
	return nil
}

// isCredentialFailure 凭证/鉴权类失败视为致命
func isCredentialFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "403", "unauthorized", "invalid api key", "invalid signature", "api credentials"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
