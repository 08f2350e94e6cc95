package client

import (
	"fmt"
	"math"
	"strconv"

	"github.com/betbot/mirrorcow/clob/types"
)

// CalculateOptimalFill 沿订单簿逐档推算市价单的可成交量。
// 买入时 amountUSDC 为预算金额、吃 asks；卖出时为 token 数量、吃 bids。
// 返回可成交的 token 总量、均价和实际占用的 USDC（流动性不足时小于预算）。
func CalculateOptimalFill(book *types.OrderBookSummary, side types.Side, amountUSDC float64) (totalSize float64, avgPrice float64, filledUSDC float64) {
	levels := book.Asks
	if side != types.SideBuy {
		levels = book.Bids
	}

	budget := amountUSDC
	spent := 0.0
	for _, level := range levels {
		if budget <= 0 {
			break
		}
		price, _ := strconv.ParseFloat(level.Price, 64)
		size, _ := strconv.ParseFloat(level.Size, 64)
		if price <= 0 {
			continue
		}

		levelValue := size * price
		if levelValue <= budget {
			// 整档吃掉
			totalSize += size
			spent += levelValue
			budget -= levelValue
			continue
		}
		// 按剩余预算吃部分档位
		totalSize += budget / price
		spent += budget
		budget = 0
	}

	if totalSize > 0 {
		avgPrice = spent / totalSize
	}
	return totalSize, avgPrice, amountUSDC - budget
}

// tickValue tick size 枚举对应的数值，未知时按 0.01 处理
func tickValue(tickSize types.TickSize) float64 {
	switch tickSize {
	case types.TickSize01:
		return 0.1
	case types.TickSize0001:
		return 0.001
	case types.TickSize00001:
		return 0.0001
	default:
		return 0.01
	}
}

// RoundToTickSize 将价格四舍五入到市场 tick
func RoundToTickSize(price float64, tickSize types.TickSize) float64 {
	tick := tickValue(tickSize)
	return math.Round(price/tick) * tick
}

// hasAtMostDecimals 判断 v 的小数位数是否不超过 n，容忍浮点表示误差
func hasAtMostDecimals(v float64, n int) bool {
	scaled := v * math.Pow(10, float64(n))
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

// ValidateFOKPrecision 校验 FOK/FAK 订单的精度约束：
// 价格 2 位小数、数量 4 位小数、买入金额（size*price）2 位小数。
func ValidateFOKPrecision(size float64, price float64, side types.Side) error {
	if !hasAtMostDecimals(price, 2) {
		return fmt.Errorf("FOK/FAK 订单价格必须是 2 位小数，当前: %.6f", price)
	}
	if !hasAtMostDecimals(size, 4) {
		return fmt.Errorf("FOK/FAK 订单数量必须是 4 位小数，当前: %.6f", size)
	}
	if side == types.SideBuy && !hasAtMostDecimals(size*price, 2) {
		return fmt.Errorf("FOK/FAK 订单 USDC 金额必须是 2 位小数，当前: %.6f", size*price)
	}
	return nil
}
