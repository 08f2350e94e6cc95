package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/mirrorcow/clob/types"
)

type fakeVenue struct {
	resp     *types.OrderResponse
	err      error
	calls    int
	lastSize float64
}

func (f *fakeVenue) PlaceMarketOrderWithFunder(ctx context.Context, tokenID string, side types.Side, amountUSDC float64, options *types.CreateOrderOptions, funderAddress string, signatureType types.SignatureType) (*types.OrderResponse, error) {
	f.calls++
	f.lastSize = amountUSDC
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeApprover struct {
	ready       bool
	readyAfter  bool
	approveErr  error
	checkErr    error
	approveRuns int
}

func (f *fakeApprover) CheckAllowances(ctx context.Context) (*AllowancesView, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	if f.approveRuns > 0 {
		return &AllowancesView{TradingReady: f.readyAfter}, nil
	}
	return &AllowancesView{TradingReady: f.ready, Issues: []string{"USDC 未授权"}}, nil
}

func (f *fakeApprover) ApproveAll(ctx context.Context) error {
	f.approveRuns++
	return f.approveErr
}

func TestExecute_SuccessfulFill(t *testing.T) {
	venue := &fakeVenue{resp: &types.OrderResponse{
		Success:      true,
		OrderID:      "0xorder",
		Status:       "matched",
		MakingAmount: "10.00",
		TakingAmount: "18.18",
	}}
	g := New(venue, nil, Options{Timeout: time.Second, DryRun: false})

	err := g.Execute(context.Background(), "tok1", "alice", decimal.NewFromFloat(10))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if venue.calls != 1 {
		t.Fatalf("期望调用 1 次，实际 %d", venue.calls)
	}
	if venue.lastSize != 10 {
		t.Fatalf("期望金额 10，实际 %v", venue.lastSize)
	}
}

func TestExecute_VenueRejectionIsRecoverable(t *testing.T) {
	venue := &fakeVenue{resp: &types.OrderResponse{Success: false, ErrorMsg: "not enough balance / allowance"}}
	g := New(venue, nil, Options{Timeout: time.Second})

	err := g.Execute(context.Background(), "tok1", "alice", decimal.NewFromFloat(10))
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("期望 ExecutionError，实际 %v", err)
	}
	if execErr.Fatal {
		t.Fatal("单笔被拒应为可恢复")
	}
	if execErr.Key != "alice" || execErr.TokenID != "tok1" {
		t.Fatalf("错误归属不符: %+v", execErr)
	}
}

func TestExecute_CredentialFailureIsFatal(t *testing.T) {
	venue := &fakeVenue{err: fmt.Errorf("POST /order 失败: HTTP 401 Unauthorized")}
	g := New(venue, nil, Options{Timeout: time.Second})

	err := g.Execute(context.Background(), "tok1", "alice", decimal.NewFromFloat(10))
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("期望 ExecutionError，实际 %v", err)
	}
	if !execErr.Fatal {
		t.Fatal("凭证失败应为致命")
	}
}

func TestExecute_NetworkFailureIsRecoverable(t *testing.T) {
	venue := &fakeVenue{err: fmt.Errorf("connection reset by peer")}
	g := New(venue, nil, Options{Timeout: time.Second})

	err := g.Execute(context.Background(), "tok1", "alice", decimal.NewFromFloat(10))
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("期望 ExecutionError，实际 %v", err)
	}
	if execErr.Fatal {
		t.Fatal("网络抖动不应致命")
	}
}

func TestExecute_DryRunSkipsVenue(t *testing.T) {
	venue := &fakeVenue{}
	g := New(venue, nil, Options{DryRun: true})

	if err := g.Execute(context.Background(), "tok1", "alice", decimal.NewFromFloat(10)); err != nil {
		t.Fatalf("dry-run 不应报错: %v", err)
	}
	if venue.calls != 0 {
		t.Fatal("dry-run 不应真实下单")
	}
}

func TestEnsureApprovals_ReadyNoOp(t *testing.T) {
	ap := &fakeApprover{ready: true}
	g := New(&fakeVenue{}, ap, Options{AutoApprove: true})
	if err := g.EnsureApprovals(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ap.approveRuns != 0 {
		t.Fatal("已就绪时不应执行授权")
	}
}

func TestEnsureApprovals_RunsApproveAllWhenNotReady(t *testing.T) {
	ap := &fakeApprover{ready: false, readyAfter: true}
	g := New(&fakeVenue{}, ap, Options{AutoApprove: true})
	if err := g.EnsureApprovals(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ap.approveRuns != 1 {
		t.Fatalf("期望执行 1 次授权，实际 %d", ap.approveRuns)
	}
}

func TestEnsureApprovals_FailureIsApprovalError(t *testing.T) {
	cases := []*fakeApprover{
		{checkErr: fmt.Errorf("rpc 不可达")},
		{ready: false, approveErr: fmt.Errorf("交易回滚")},
		{ready: false, readyAfter: false},
	}
	for i, ap := range cases {
		g := New(&fakeVenue{}, ap, Options{AutoApprove: true})
		err := g.EnsureApprovals(context.Background())
		var apErr *ApprovalError
		if !errors.As(err, &apErr) {
			t.Fatalf("用例 %d 期望 ApprovalError，实际 %v", i, err)
		}
	}
}

func TestEnsureApprovals_AutoApproveDisabled(t *testing.T) {
	ap := &fakeApprover{ready: false}
	g := New(&fakeVenue{}, ap, Options{AutoApprove: false})
	err := g.EnsureApprovals(context.Background())
	var apErr *ApprovalError
	if !errors.As(err, &apErr) {
		t.Fatalf("期望 ApprovalError，实际 %v", err)
	}
	if ap.approveRuns != 0 {
		t.Fatal("未开启自动补齐时不应执行授权")
	}
}
