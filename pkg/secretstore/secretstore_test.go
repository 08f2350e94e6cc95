package secretstore

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestParseKey_Hex(t *testing.T) {
	raw := strings.Repeat("ab", 32)
	want := bytes.Repeat([]byte{0xab}, 32)

	for _, in := range []string{raw, "0x" + raw} {
		got, err := ParseKey(in)
		if err != nil {
			t.Fatalf("ParseKey(%q) 失败: %v", in, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("ParseKey(%q) 解析结果不符", in)
		}
	}
}

func TestParseKey_Base64(t *testing.T) {
	want := bytes.Repeat([]byte{0x5f}, 32)
	in := base64.StdEncoding.EncodeToString(want)

	got, err := ParseKey(in)
	if err != nil {
		t.Fatalf("ParseKey(base64) 失败: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("ParseKey(base64) 解析结果不符")
	}
}

func TestParseKey_Empty(t *testing.T) {
	got, err := ParseKey("  ")
	if err != nil {
		t.Fatalf("空输入不应报错: %v", err)
	}
	if got != nil {
		t.Fatal("空输入应返回 nil（不加密）")
	}
}

func TestParseKey_WrongLength(t *testing.T) {
	if _, err := ParseKey(strings.Repeat("ab", 16)); err == nil {
		t.Fatal("16 字节密钥应被拒绝")
	}
	if _, err := ParseKey("not-a-key!"); err == nil {
		t.Fatal("非法编码应被拒绝")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ss, err := Open(OpenOptions{Path: dir})
	if err != nil {
		t.Fatalf("打开存储失败: %v", err)
	}
	defer ss.Close()

	if _, found, err := ss.GetString(KeyWalletPrivateKey); err != nil || found {
		t.Fatalf("空库不应命中: found=%v err=%v", found, err)
	}
	if err := ss.SetString(KeyWalletPrivateKey, "deadbeef"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	got, found, err := ss.GetString(KeyWalletPrivateKey)
	if err != nil || !found {
		t.Fatalf("读取失败: found=%v err=%v", found, err)
	}
	if got != "deadbeef" {
		t.Fatalf("读取值不符: %q", got)
	}
}
