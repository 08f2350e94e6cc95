package client

import "testing"

func TestGammaMarketTokenIDs(t *testing.T) {
	m := &GammaMarket{ClobTokenIDs: `["111","222"]`}
	ids, err := m.TokenIDs()
	if err != nil {
		t.Fatalf("解析 clobTokenIds 失败: %v", err)
	}
	if len(ids) != 2 || ids[0] != "111" || ids[1] != "222" {
		t.Fatalf("token id 不符: %v", ids)
	}
}

func TestGammaMarketTokenIDs_Empty(t *testing.T) {
	m := &GammaMarket{}
	ids, err := m.TokenIDs()
	if err != nil || ids != nil {
		t.Fatalf("空字段应返回 nil: ids=%v err=%v", ids, err)
	}
}

func TestGammaMarketTokenIDs_Malformed(t *testing.T) {
	m := &GammaMarket{ClobTokenIDs: "not-json"}
	if _, err := m.TokenIDs(); err == nil {
		t.Fatal("非法 JSON 应报错")
	}
}
