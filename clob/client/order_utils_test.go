package client

import (
	"math"
	"testing"

	"github.com/betbot/mirrorcow/clob/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateOptimalFill_BuyAcrossLevels(t *testing.T) {
	book := &types.OrderBookSummary{
		Asks: []types.OrderSummary{
			{Price: "0.50", Size: "10"},
			{Price: "0.60", Size: "10"},
		},
	}
	size, avg, filled := CalculateOptimalFill(book, types.SideBuy, 8)
	// 第一层吃满（5 USDC 买 10 个），剩余 3 USDC 在 0.60 买 5 个
	if !almostEqual(size, 15) {
		t.Fatalf("期望成交 15 个，实际 %v", size)
	}
	if !almostEqual(filled, 8) {
		t.Fatalf("期望花费 8 USDC，实际 %v", filled)
	}
	if !almostEqual(avg, 8.0/15.0) {
		t.Fatalf("期望均价 %.6f，实际 %v", 8.0/15.0, avg)
	}
}

func TestCalculateOptimalFill_InsufficientLiquidity(t *testing.T) {
	book := &types.OrderBookSummary{
		Asks: []types.OrderSummary{{Price: "0.50", Size: "4"}},
	}
	size, avg, filled := CalculateOptimalFill(book, types.SideBuy, 10)
	if !almostEqual(size, 4) {
		t.Fatalf("流动性不足时只能吃到 4 个，实际 %v", size)
	}
	if !almostEqual(filled, 2) {
		t.Fatalf("期望花费 2 USDC，实际 %v", filled)
	}
	if !almostEqual(avg, 0.5) {
		t.Fatalf("期望均价 0.5，实际 %v", avg)
	}
}

func TestCalculateOptimalFill_EmptyBook(t *testing.T) {
	size, avg, filled := CalculateOptimalFill(&types.OrderBookSummary{}, types.SideBuy, 10)
	if size != 0 || avg != 0 || filled != 0 {
		t.Fatalf("空订单簿应全为 0，实际 size=%v avg=%v filled=%v", size, avg, filled)
	}
}

func TestCalculateOptimalFill_SellUsesBids(t *testing.T) {
	book := &types.OrderBookSummary{
		Bids: []types.OrderSummary{{Price: "0.40", Size: "10"}},
		Asks: []types.OrderSummary{{Price: "0.90", Size: "10"}},
	}
	size, avg, _ := CalculateOptimalFill(book, types.SideSell, 2)
	if !almostEqual(size, 5) {
		t.Fatalf("卖出应吃 bids，期望 5 个，实际 %v", size)
	}
	if !almostEqual(avg, 0.4) {
		t.Fatalf("期望均价 0.4，实际 %v", avg)
	}
}

func TestRoundToTickSize(t *testing.T) {
	if got := RoundToTickSize(0.567, types.TickSize001); !almostEqual(got, 0.57) {
		t.Fatalf("期望 0.57，实际 %v", got)
	}
	if got := RoundToTickSize(0.5649, types.TickSize0001); !almostEqual(got, 0.565) {
		t.Fatalf("期望 0.565，实际 %v", got)
	}
}
