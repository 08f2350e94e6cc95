package matcher

import (
	"strings"
	"testing"

	"github.com/betbot/mirrorcow/internal/watchlist"
)

func newStore(t *testing.T, csv string) *watchlist.Store {
	t.Helper()
	s, err := watchlist.Load(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("加载名单失败: %v", err)
	}
	return s
}

func TestMatch_BuyOnly(t *testing.T) {
	m := New(newStore(t, "alice,,10\n"))
	buy := []byte(`{"payload":{"asset":"123","side":"Buy","name":"Alice"}}`)
	sell := []byte(`{"payload":{"asset":"123","side":"Sell","name":"Alice"}}`)

	if _, res := m.Match(buy); !res.Matched {
		t.Fatal("Buy 应命中")
	}
	if _, res := m.Match(sell); res.Matched {
		t.Fatal("Sell 不应命中")
	}
}

func TestMatch_CaseInsensitiveName(t *testing.T) {
	m := New(newStore(t, "alice,,10\n"))
	raw := []byte(`{"payload":{"asset":"777","side":"Buy","name":"ALICE"}}`)
	_, res := m.Match(raw)
	if !res.Matched {
		t.Fatal("大小写不同的用户名应命中")
	}
	if res.MatchedKey != "alice" {
		t.Fatalf("命中 key 应为小写，实际 %q", res.MatchedKey)
	}
	if res.TokenID != "777" {
		t.Fatalf("TokenID 应为 asset，实际 %q", res.TokenID)
	}
}

func TestMatch_AddressFallback(t *testing.T) {
	m := New(newStore(t, ",0xABCD000000000000000000000000000000000001,10\n"))
	raw := []byte(`{"payload":{"asset":"5","side":"Buy","name":"stranger","proxyWallet":"0xabcd000000000000000000000000000000000001"}}`)
	_, res := m.Match(raw)
	if !res.Matched {
		t.Fatal("名单内地址应命中")
	}
	if res.MatchedKey != "0xabcd000000000000000000000000000000000001" {
		t.Fatalf("命中 key 应为小写地址，实际 %q", res.MatchedKey)
	}
}

func TestMatch_NamePriorityOverAddress(t *testing.T) {
	// 用户名命中 alice，地址命中另一条目，用户名优先
	store := newStore(t, "alice,,10\n,0x2222000000000000000000000000000000000002,99\n")
	m := New(store)
	raw := []byte(`{"payload":{"asset":"9","side":"Buy","name":"alice","proxyWallet":"0x2222000000000000000000000000000000000002"}}`)
	_, res := m.Match(raw)
	if !res.Matched || res.MatchedKey != "alice" {
		t.Fatalf("用户名命中应优先于地址，实际 key=%q", res.MatchedKey)
	}
}

func TestMatch_MalformedPayloadIsNoMatch(t *testing.T) {
	m := New(newStore(t, "alice,,10\n"))
	for _, raw := range []string{"not json", `{"payload":"oops"}`, ""} {
		_, res := m.Match([]byte(raw))
		if res.Matched {
			t.Fatalf("畸形消息不应命中: %q", raw)
		}
		if res.TokenID != "" || res.MatchedKey != "" {
			t.Fatalf("畸形消息应返回空 token 与空 key: %+v", res)
		}
	}
}

func TestMatch_UnknownAccountNoMatch(t *testing.T) {
	m := New(newStore(t, "alice,,10\n"))
	raw := []byte(`{"payload":{"asset":"1","side":"Buy","name":"bob","proxyWallet":"0x9999000000000000000000000000000000000009"}}`)
	_, res := m.Match(raw)
	if res.Matched {
		t.Fatal("名单外账户不应命中")
	}
}
