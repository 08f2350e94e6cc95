package client

import (
	"math/big"
	"strings"
	"testing"

	"github.com/betbot/mirrorcow/clob/types"
)

func TestAuthorizationService_DefaultTargets_Polygon(t *testing.T) {
	cfg, err := GetContractConfig(types.ChainPolygon)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// 基本 sanity：地址应为 0x 开头且长度合理
	check := func(name, addr string) {
		if !strings.HasPrefix(addr, "0x") || len(addr) < 10 {
			t.Fatalf("bad %s addr: %q", name, addr)
		}
	}
	check("exchange", cfg.Exchange)
	check("negRiskExchange", cfg.NegRiskExchange)
	check("negRiskAdapter", cfg.NegRiskAdapter)
	check("collateral", cfg.Collateral)
	check("conditionalTokens", cfg.ConditionalTokens)
}

func TestFormatUnits6(t *testing.T) {
	cases := []struct {
		raw  int64
		want string
	}{
		{0, "0.000000"},
		{1, "0.000001"},
		{1_000_000, "1.000000"},
		{12_345_678, "12.345678"},
	}
	for _, c := range cases {
		if got := formatUnits6(big.NewInt(c.raw)); got != c.want {
			t.Fatalf("formatUnits6(%d) = %q, 期望 %q", c.raw, got, c.want)
		}
	}
	if got := formatUnits6(nil); got != "0" {
		t.Fatalf("nil 应格式化为 0，实际 %q", got)
	}
}

func TestIsUnlimitedAllowance(t *testing.T) {
	small := big.NewInt(1_000_000_000) // 1000 USDC
	if isUnlimitedAllowance(small) {
		t.Fatal("1000 USDC 不应视为无限授权")
	}
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if !isUnlimitedAllowance(max) {
		t.Fatal("uint256 最大值应视为无限授权")
	}
	if isUnlimitedAllowance(nil) {
		t.Fatal("nil 不应视为无限授权")
	}
}

