package main

import (
	"testing"
	"unicode/utf8"

	"github.com/betbot/mirrorcow/internal/matcher"
)

func TestTruncate_MultiByteSafe(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 18, "short"},
		{"abcdefghij", 5, "abcd…"},
		{"特朗普2028年会再次当选吗", 6, "特朗普20…"},
		{"日本語のタイトル", 8, "日本語のタイトル"},
	}
	for _, c := range cases {
		got := truncate(c.in, c.n)
		if got != c.want {
			t.Errorf("truncate(%q, %d) = %q，期望 %q", c.in, c.n, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) 输出非法 UTF-8: %q", c.in, c.n, got)
		}
	}
}

func TestMarketFilter_EmptyAllowsAll(t *testing.T) {
	var f marketFilter
	if !f.allows("12345") {
		t.Fatal("空过滤器应放行所有市场")
	}
}

func TestMarketFilter_RestrictsToKnownTokens(t *testing.T) {
	f := marketFilter{"111": {}, "222": {}}
	if !f.allows("111") {
		t.Fatal("过滤器内的 token 应放行")
	}
	if f.allows("999") {
		t.Fatal("过滤器外的 token 应拦下")
	}
}

func TestTitleCache_PrefersEventTitle(t *testing.T) {
	c := newTitleCache()
	got := c.resolve(matcher.TradeEvent{Title: "已有标题", ConditionID: "0xabc"})
	if got != "已有标题" {
		t.Fatalf("事件自带标题时不应回源: %q", got)
	}
	if len(c.m) != 0 {
		t.Fatal("自带标题不应写入缓存")
	}
}

func TestTitleCache_ServesFromCache(t *testing.T) {
	c := newTitleCache()
	c.m["0xdef"] = "缓存的问题"
	got := c.resolve(matcher.TradeEvent{ConditionID: "0xdef"})
	if got != "缓存的问题" {
		t.Fatalf("缓存命中结果不符: %q", got)
	}
}
