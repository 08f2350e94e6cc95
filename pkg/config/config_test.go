package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func resetGlobals() {
	globalConfig = nil
	configFilePath = ""
}

func TestLoad_Defaults(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Feed.WSURL != "wss://ws-live-data.polymarket.com" {
		t.Fatalf("默认 WS 地址不符: %s", cfg.Feed.WSURL)
	}
	if cfg.Clob.ClobURL != "https://clob.polymarket.com" {
		t.Fatalf("默认 CLOB 地址不符: %s", cfg.Clob.ClobURL)
	}
	if cfg.Clob.ChainID != 137 {
		t.Fatalf("默认链 ID 应为 137，实际 %d", cfg.Clob.ChainID)
	}
	if cfg.Mirror.ExecuteTimeout != 15*time.Second {
		t.Fatalf("默认下单超时不符: %s", cfg.Mirror.ExecuteTimeout)
	}
	if cfg.Mirror.QueueSize != 64 {
		t.Fatalf("默认队列容量不符: %d", cfg.Mirror.QueueSize)
	}
	if !cfg.Mirror.AutoApprove {
		t.Fatal("默认应开启自动授权")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	t.Setenv("FEED_WS_URL", "wss://example.test/ws")
	t.Setenv("MIRROR_QUEUE_SIZE", "8")
	t.Setenv("DRY_RUN", "true")

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Feed.WSURL != "wss://example.test/ws" {
		t.Fatalf("环境变量应覆盖默认值: %s", cfg.Feed.WSURL)
	}
	if cfg.Mirror.QueueSize != 8 {
		t.Fatalf("期望队列容量 8，实际 %d", cfg.Mirror.QueueSize)
	}
	if !cfg.DryRun {
		t.Fatal("DRY_RUN=true 应生效")
	}
}

func TestLoad_FileOverridesEnv(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	t.Setenv("FEED_WS_URL", "wss://env.test/ws")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
feed:
  ws_url: wss://file.test/ws
mirror:
  targets_file: data/t.csv
  auto_approve: false
dry_run: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("写临时配置失败: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Feed.WSURL != "wss://file.test/ws" {
		t.Fatalf("配置文件应覆盖环境变量: %s", cfg.Feed.WSURL)
	}
	if cfg.Mirror.AutoApprove {
		t.Fatal("auto_approve: false 应生效")
	}
}

func TestValidate_WalletRequiredUnlessDryRun(t *testing.T) {
	resetGlobals()
	t.Cleanup(resetGlobals)

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	cfg.DryRun = false
	cfg.Wallet.PrivateKey = ""
	cfg.SecretStore.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("真实交易缺私钥应校验失败")
	}

	cfg.DryRun = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dry-run 不应要求钱包: %v", err)
	}

	cfg.DryRun = false
	cfg.Wallet.PrivateKey = "ab"
	cfg.Wallet.FunderAddress = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("缺资金地址应校验失败")
	}
}
