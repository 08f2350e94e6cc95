package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/betbot/mirrorcow/clob/signing"
	"github.com/betbot/mirrorcow/clob/types"
)

// 交易所对 FOK/FAK 的下限：买单至少 1 USDC，且 token 数量不低于 0.1
const (
	minOrderUSDC = 1.0
	minTokenSize = 0.1
)

// l2HeaderMap 生成 L2 认证请求头；HMAC 签名覆盖实际发送的请求体
func (c *Client) l2HeaderMap(method, path string, body *string) (map[string]string, error) {
	headers, err := signing.CreateL2Headers(c.authConfig.PrivateKey, c.authConfig.Creds, &types.L2HeaderArgs{
		Method:      method,
		RequestPath: path,
		Body:        body,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 L2 认证头失败: %w", err)
	}
	return map[string]string{
		"POLY_ADDRESS":    headers.PolyAddress,
		"POLY_SIGNATURE":  headers.PolySignature,
		"POLY_TIMESTAMP":  headers.PolyTimestamp,
		"POLY_API_KEY":    headers.PolyAPIKey,
		"POLY_PASSPHRASE": headers.PolyPassphrase,
	}, nil
}

// PostOrder 提交已签名订单
func (c *Client) PostOrder(ctx context.Context, order *types.SignedOrder, orderType types.OrderType, deferExec bool) (*types.OrderResponse, error) {
	if err := c.CanL2Auth(); err != nil {
		return nil, err
	}
	if err := c.rateLimiter.Wait(ctx, "clob:order:post"); err != nil {
		return nil, fmt.Errorf("速率限制等待失败: %w", err)
	}

	payload := types.NewOrder{
		Order:     *order,
		Owner:     c.authConfig.Creds.Key,
		OrderType: orderType,
		DeferExec: deferExec,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化订单载荷失败: %w", err)
	}
	bodyStr := string(bodyBytes)

	headerMap, err := c.l2HeaderMap("POST", EndpointPostOrder, &bodyStr)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.post(EndpointPostOrder, headerMap, payload)
	if err != nil {
		return nil, fmt.Errorf("提交订单失败: %w", err)
	}
	var orderResp types.OrderResponse
	if err := parseResponse(resp, &orderResp); err != nil {
		return nil, fmt.Errorf("解析订单响应失败: %w", err)
	}
	return &orderResp, nil
}

// CreateOrder 构建并签名订单（maker 为签名地址）
func (c *Client) CreateOrder(ctx context.Context, req *types.UserOrder, options *types.CreateOrderOptions) (*types.SignedOrder, error) {
	return c.CreateOrderWithFunder(ctx, req, options, "", types.SignatureTypeBrowser)
}

// CreateOrderWithFunder 构建并签名订单，maker 可指定为资金账户
func (c *Client) CreateOrderWithFunder(ctx context.Context, req *types.UserOrder, options *types.CreateOrderOptions, funderAddress string, signatureType types.SignatureType) (*types.SignedOrder, error) {
	if c.authConfig.PrivateKey == nil {
		return nil, fmt.Errorf("私钥未设置，无法创建订单")
	}
	return NewOrderBuilder(c, signatureType, funderAddress).BuildOrder(ctx, req, options)
}

// optionsFromBook 从订单簿快照提取下单所需的市场属性；
// 快照里的 tick size 不在精度表时退回 0.01
func optionsFromBook(book *types.OrderBookSummary) *types.CreateOrderOptions {
	tick := types.TickSize(book.TickSize)
	if _, ok := RoundingConfig[tick]; !ok {
		tick = types.TickSize001
	}
	negRisk := book.NegRisk
	return &types.CreateOrderOptions{TickSize: tick, NegRisk: &negRisk}
}

// roundTo 四舍五入到 decimals 位小数
func roundTo(v float64, decimals int) float64 {
	m := math.Pow(10, float64(decimals))
	return math.Round(v*m) / m
}

// normalizeFOKOrder 套用 FOK/FAK 精度（价格 2 位、数量 4 位）
// 并兜底交易所下限：买单不足 1 USDC 时按最小金额回推数量。
func normalizeFOKOrder(req *types.UserOrder) (size float64, price float64) {
	price = roundTo(req.Price, 2)
	size = roundTo(req.Size, 4)

	if req.Side == types.SideBuy && price > 0 {
		if usdcValue := roundTo(size*price, 2); usdcValue < minOrderUSDC {
			size = roundTo(minOrderUSDC/price, 4)
		}
	}
	if size < minTokenSize {
		size = minTokenSize
	}
	return size, price
}

// CreateOrderFOK 构建满足 FOK/FAK 精度要求的签名订单
func (c *Client) CreateOrderFOK(ctx context.Context, req *types.UserOrder, options *types.CreateOrderOptions) (*types.SignedOrder, error) {
	return c.CreateOrderFOKWithFunder(ctx, req, options, "", types.SignatureTypeBrowser)
}

// CreateOrderFOKWithFunder 同 CreateOrderFOK，maker 可指定为资金账户
func (c *Client) CreateOrderFOKWithFunder(ctx context.Context, req *types.UserOrder, options *types.CreateOrderOptions, funderAddress string, signatureType types.SignatureType) (*types.SignedOrder, error) {
	if c.authConfig.PrivateKey == nil {
		return nil, fmt.Errorf("私钥未设置，无法创建订单")
	}

	size, price := normalizeFOKOrder(req)
	return c.CreateOrderWithFunder(ctx, &types.UserOrder{
		TokenID:    req.TokenID,
		Side:       req.Side,
		Size:       size,
		Price:      price,
		FeeRateBps: req.FeeRateBps,
		Nonce:      req.Nonce,
		Expiration: req.Expiration,
		Taker:      req.Taker,
	}, options, funderAddress, signatureType)
}

// PlaceOrderFAK 下 FAK 单：能成交多少成交多少，剩余立即取消
func (c *Client) PlaceOrderFAK(ctx context.Context, tokenID string, side types.Side, size float64, price float64, options *types.CreateOrderOptions) (*types.OrderResponse, error) {
	return c.PlaceOrderFAKWithFunder(ctx, tokenID, side, size, price, options, "", types.SignatureTypeBrowser)
}

// PlaceOrderFAKWithFunder 同 PlaceOrderFAK，maker 可指定为资金账户
func (c *Client) PlaceOrderFAKWithFunder(ctx context.Context, tokenID string, side types.Side, size float64, price float64, options *types.CreateOrderOptions, funderAddress string, signatureType types.SignatureType) (*types.OrderResponse, error) {
	if err := c.CanL2Auth(); err != nil {
		return nil, err
	}

	signedOrder, err := c.CreateOrderFOKWithFunder(ctx, &types.UserOrder{
		TokenID: tokenID,
		Side:    side,
		Size:    size,
		Price:   price,
	}, options, funderAddress, signatureType)
	if err != nil {
		return nil, fmt.Errorf("创建 FAK 订单失败: %w", err)
	}

	return c.PostOrder(ctx, signedOrder, types.OrderTypeFAK, false)
}

// PlaceMarketOrder 市价单：按订单簿推算最优价与数量后走 FAK。
// 买入时 amountUSDC 为 USDC 预算，卖出时为 token 数量。
func (c *Client) PlaceMarketOrder(ctx context.Context, tokenID string, side types.Side, amountUSDC float64, options *types.CreateOrderOptions) (*types.OrderResponse, error) {
	return c.PlaceMarketOrderWithFunder(ctx, tokenID, side, amountUSDC, options, "", types.SignatureTypeBrowser)
}

// PlaceMarketOrderWithFunder 同 PlaceMarketOrder，maker 可指定为资金账户
func (c *Client) PlaceMarketOrderWithFunder(ctx context.Context, tokenID string, side types.Side, amountUSDC float64, options *types.CreateOrderOptions, funderAddress string, signatureType types.SignatureType) (*types.OrderResponse, error) {
	if err := c.CanL2Auth(); err != nil {
		return nil, err
	}

	book, err := c.GetOrderBook(ctx, tokenID, nil)
	if err != nil {
		return nil, fmt.Errorf("获取订单簿失败: %w", err)
	}

	totalSize, avgPrice, _ := CalculateOptimalFill(book, side, amountUSDC)
	if totalSize == 0 {
		return nil, fmt.Errorf("订单簿流动性不足，无法成交")
	}

	// 调用方未传 options 时直接用订单簿快照里的市场属性，
	// neg-risk 市场由此落到正确的交易所合约
	if options == nil {
		options = optionsFromBook(book)
	}

	return c.PlaceOrderFAKWithFunder(ctx, tokenID, side, totalSize, avgPrice, options, funderAddress, signatureType)
}
