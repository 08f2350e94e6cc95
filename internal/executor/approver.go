package executor

import (
	"context"
	"fmt"

	"github.com/betbot/mirrorcow/clob/client"
)

// AuthServiceApprover 将 clob/client.AuthorizationService 适配为 Approver
type AuthServiceApprover struct {
	Svc *client.AuthorizationService
}

func (a AuthServiceApprover) CheckAllowances(ctx context.Context) (*AllowancesView, error) {
	res, err := a.Svc.CheckAllowances(ctx)
	if err != nil {
		return nil, err
	}
	return &AllowancesView{TradingReady: res.TradingReady, Issues: res.Issues}, nil
}

func (a AuthServiceApprover) ApproveAll(ctx context.Context) error {
	res, err := a.Svc.ApproveAll(ctx)
	if err != nil {
		return err
	}
	if !res.AllApproved {
		return fmt.Errorf("部分授权交易未完成: %s", res.Summary)
	}
	return nil
}
