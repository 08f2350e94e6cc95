package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/betbot/mirrorcow/clob/signing"
	"github.com/betbot/mirrorcow/clob/types"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	pk, err := signing.PrivateKeyFromHex("0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	return NewClient("https://clob.polymarket.com", types.ChainPolygon, pk, nil)
}

func TestBuildOrder_BuySignedWithFunderAsMaker(t *testing.T) {
	c := testClient(t)
	funder := "0x1111111111111111111111111111111111111111"
	ob := NewOrderBuilder(c, types.SignatureTypeGnosisSafe, funder)

	order, err := ob.BuildOrder(context.Background(), &types.UserOrder{
		TokenID: "123456789",
		Side:    types.SideBuy,
		Size:    20,
		Price:   0.5,
	}, &types.CreateOrderOptions{TickSize: types.TickSize001})
	require.NoError(t, err)

	require.Equal(t, funder, order.Maker, "maker 应为资金地址")
	require.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", order.Signer, "signer 应为 EOA 地址")
	require.Equal(t, int(types.SignatureTypeGnosisSafe), order.SignatureType)
	// 买入 20 个 @0.50：maker 支付 10 USDC，taker 收到 20 个 token（6 位精度）
	require.Equal(t, "10000000", order.MakerAmount)
	require.Equal(t, "20000000", order.TakerAmount)
	require.NotEmpty(t, order.Signature)
}

func TestBuildOrder_NoFunderFallsBackToSigner(t *testing.T) {
	c := testClient(t)
	ob := NewOrderBuilder(c, types.SignatureTypeBrowser, "")

	order, err := ob.BuildOrder(context.Background(), &types.UserOrder{
		TokenID: "42",
		Side:    types.SideBuy,
		Size:    2,
		Price:   0.5,
	}, &types.CreateOrderOptions{TickSize: types.TickSize001})
	require.NoError(t, err)
	require.Equal(t, order.Signer, order.Maker, "未配置资金地址时 maker 应为 signer")
}

// 执行网关下市价单时不传 options，构建订单必须按默认精度完成而不是崩溃
func TestBuildOrder_NilOptionsUsesDefaultTickSize(t *testing.T) {
	c := testClient(t)

	order, err := c.CreateOrderWithFunder(context.Background(), &types.UserOrder{
		TokenID: "123456789",
		Side:    types.SideBuy,
		Size:    20,
		Price:   0.5,
	}, nil, "0x1111111111111111111111111111111111111111", types.SignatureTypeGnosisSafe)
	require.NoError(t, err, "nil options 不应导致构建失败")

	// 与显式 TickSize001 完全一致的金额
	require.Equal(t, "10000000", order.MakerAmount)
	require.Equal(t, "20000000", order.TakerAmount)
	require.NotEmpty(t, order.Signature)
}

func TestBuildOrder_EmptyTickSizeDefaultsToHundredth(t *testing.T) {
	c := testClient(t)
	ob := NewOrderBuilder(c, types.SignatureTypeBrowser, "")

	order, err := ob.BuildOrder(context.Background(), &types.UserOrder{
		TokenID: "42",
		Side:    types.SideBuy,
		Size:    2,
		Price:   0.5,
	}, &types.CreateOrderOptions{})
	require.NoError(t, err)
	require.Equal(t, "1000000", order.MakerAmount)
}

func TestOptionsFromBook(t *testing.T) {
	opts := optionsFromBook(&types.OrderBookSummary{TickSize: "0.001", NegRisk: true})
	require.Equal(t, types.TickSize0001, opts.TickSize)
	require.NotNil(t, opts.NegRisk)
	require.True(t, *opts.NegRisk)

	// 快照里的异常 tick size 退回默认值
	opts = optionsFromBook(&types.OrderBookSummary{TickSize: "0.5"})
	require.Equal(t, types.TickSize001, opts.TickSize)
}

func TestBuildOrder_RejectsBadTokenID(t *testing.T) {
	c := testClient(t)
	ob := NewOrderBuilder(c, types.SignatureTypeBrowser, "")

	_, err := ob.BuildOrder(context.Background(), &types.UserOrder{
		TokenID: "not-a-number",
		Side:    types.SideBuy,
		Size:    2,
		Price:   0.5,
	}, &types.CreateOrderOptions{TickSize: types.TickSize001})
	require.Error(t, err)
}

func TestGetOrderRawAmounts_BuyRounding(t *testing.T) {
	rc := RoundingConfig[types.TickSize001]
	maker, taker, err := getOrderRawAmounts(types.SideBuy, 18.1818, 0.55, rc)
	require.NoError(t, err)
	// size 向下取 2 位小数，金额不超过 4 位小数
	require.Equal(t, 18.18, taker)
	require.LessOrEqual(t, decimalPlaces(maker), rc.Amount)
}
