package client

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/betbot/mirrorcow/clob/signing"
	"github.com/betbot/mirrorcow/clob/types"
)

// RoundConfig 各字段允许的小数位数
type RoundConfig struct {
	Price  int
	Size   int
	Amount int
}

// RoundingConfig 每个 tick size 对应的精度要求，来自交易所下单校验规则
var RoundingConfig = map[types.TickSize]RoundConfig{
	types.TickSize01:    {Price: 1, Size: 2, Amount: 3},
	types.TickSize001:   {Price: 2, Size: 2, Amount: 4},
	types.TickSize0001:  {Price: 3, Size: 2, Amount: 5},
	types.TickSize00001: {Price: 4, Size: 2, Amount: 6},
}

// decimalPlaces 数字的小数位数
func decimalPlaces(num float64) int {
	if num == math.Trunc(num) {
		return 0
	}
	parts := strings.SplitN(strconv.FormatFloat(num, 'f', -1, 64), ".", 2)
	if len(parts) < 2 {
		return 0
	}
	return len(parts[1])
}

func roundNormal(num float64, decimals int) float64 {
	if decimalPlaces(num) <= decimals {
		return num
	}
	m := math.Pow(10, float64(decimals))
	return math.Round(num*m) / m
}

func roundDown(num float64, decimals int) float64 {
	if decimalPlaces(num) <= decimals {
		return num
	}
	m := math.Pow(10, float64(decimals))
	return math.Floor(num*m) / m
}

func roundUp(num float64, decimals int) float64 {
	if decimalPlaces(num) <= decimals {
		return num
	}
	m := math.Pow(10, float64(decimals))
	return math.Ceil(num*m) / m
}

// getOrderRawAmounts 按精度规则推算 maker/taker 金额。
// 买入：maker 付 USDC，taker 收 token；卖出反之，
// 且卖出的 token 数量最多 2 位小数、USDC 金额最多 4 位小数。
func getOrderRawAmounts(side types.Side, size float64, price float64, roundConfig RoundConfig) (rawMakerAmt float64, rawTakerAmt float64, err error) {
	rawPrice := roundNormal(price, roundConfig.Price)

	if side == types.SideBuy {
		rawTakerAmt = roundDown(size, roundConfig.Size)
		rawMakerAmt = rawTakerAmt * rawPrice
		if decimalPlaces(rawMakerAmt) > roundConfig.Amount {
			// 先放宽 4 位消除浮点尾差，仍超限再截断
			rawMakerAmt = roundUp(rawMakerAmt, roundConfig.Amount+4)
			if decimalPlaces(rawMakerAmt) > roundConfig.Amount {
				rawMakerAmt = roundDown(rawMakerAmt, roundConfig.Amount)
			}
		}
		return rawMakerAmt, rawTakerAmt, nil
	}

	rawMakerAmt = roundDown(size, roundConfig.Size)
	if decimalPlaces(rawMakerAmt) > 2 {
		rawMakerAmt = roundDown(rawMakerAmt, 2)
	}
	rawTakerAmt = rawMakerAmt * rawPrice
	if decimalPlaces(rawTakerAmt) > 4 {
		rawTakerAmt = roundDown(rawTakerAmt, 4)
	}
	return rawMakerAmt, rawTakerAmt, nil
}

// parseUnits 浮点金额转为 decimals 位精度的原始整数，向下取整
func parseUnits(value float64, decimals int) *big.Int {
	scaled := new(big.Float).Mul(
		new(big.Float).SetFloat64(value),
		new(big.Float).SetFloat64(math.Pow(10, float64(decimals))),
	)
	out, _ := scaled.Int(nil)
	return out
}


// OrderBuilder 组装并签名交易所订单。
// funderAddress 非空时订单 maker 为资金账户（代理钱包），签名仍由 EOA 完成。
type OrderBuilder struct {
	client        *Client
	signatureType types.SignatureType
	funderAddress string
}

func NewOrderBuilder(client *Client, signatureType types.SignatureType, funderAddress string) *OrderBuilder {
	return &OrderBuilder{
		client:        client,
		signatureType: signatureType,
		funderAddress: funderAddress,
	}
}

// BuildOrder 将用户订单转为已签名的交易所订单。
// options 为 nil 或 tick size 缺省时按 0.01 处理（标准二元市场精度）。
func (ob *OrderBuilder) BuildOrder(ctx context.Context, userOrder *types.UserOrder, options *types.CreateOrderOptions) (*types.SignedOrder, error) {
	contractConfig, err := GetContractConfig(ob.client.GetChainID())
	if err != nil {
		return nil, fmt.Errorf("获取合约配置失败: %w", err)
	}

	if options == nil {
		options = &types.CreateOrderOptions{}
	}
	tickSize := options.TickSize
	if tickSize == "" {
		tickSize = types.TickSize001
	}
	roundConfig, ok := RoundingConfig[tickSize]
	if !ok {
		return nil, fmt.Errorf("不支持的 tick size: %s", tickSize)
	}

	tokenID, ok := new(big.Int).SetString(userOrder.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("无效的 tokenID: %s", userOrder.TokenID)
	}

	rawMakerAmt, rawTakerAmt, err := getOrderRawAmounts(userOrder.Side, userOrder.Size, userOrder.Price, roundConfig)
	if err != nil {
		return nil, fmt.Errorf("计算金额失败: %w", err)
	}
	makerAmount := parseUnits(rawMakerAmt, CollateralTokenDecimals)
	takerAmount := parseUnits(rawTakerAmt, CollateralTokenDecimals)

	signerAddress := crypto.PubkeyToAddress(ob.client.authConfig.PrivateKey.PublicKey)
	maker := signerAddress.Hex()
	if ob.funderAddress != "" {
		maker = ob.funderAddress
	}

	taker := "0x0000000000000000000000000000000000000000"
	if userOrder.Taker != nil && *userOrder.Taker != "" {
		taker = *userOrder.Taker
	}

	feeRateBps := big.NewInt(0)
	if userOrder.FeeRateBps != nil {
		feeRateBps = big.NewInt(int64(*userOrder.FeeRateBps))
	}

	// neg-risk 市场走独立的交易所合约，签名域也随之切换
	exchangeAddress := contractConfig.Exchange
	if options.NegRisk != nil && *options.NegRisk {
		exchangeAddress = contractConfig.NegRiskExchange
	}

	salt := time.Now().UnixNano()
	nonce := big.NewInt(0)
	if userOrder.Nonce != nil {
		nonce = big.NewInt(int64(*userOrder.Nonce))
	}
	expiration := big.NewInt(0)
	if userOrder.Expiration != nil {
		expiration = big.NewInt(*userOrder.Expiration)
	}

	signature, err := signing.BuildOrderSignature(
		ob.client.authConfig.PrivateKey,
		ob.client.GetChainID(),
		exchangeAddress,
		&signing.OrderData{
			Salt:          salt,
			Maker:         maker,
			Signer:        signerAddress.Hex(),
			Taker:         taker,
			TokenID:       tokenID,
			MakerAmount:   makerAmount,
			TakerAmount:   takerAmount,
			Expiration:    expiration,
			Nonce:         nonce,
			FeeRateBps:    feeRateBps,
			Side:          userOrder.Side,
			SignatureType: ob.signatureType,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("签名订单失败: %w", err)
	}

	return &types.SignedOrder{
		Salt:          salt,
		Maker:         maker,
		Signer:        signerAddress.Hex(),
		Taker:         taker,
		TokenID:       userOrder.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Expiration:    expiration.String(),
		Nonce:         nonce.String(),
		FeeRateBps:    feeRateBps.String(),
		Side:          userOrder.Side,
		SignatureType: int(ob.signatureType),
		Signature:     signature,
	}, nil
}
