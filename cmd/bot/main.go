package main

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/betbot/mirrorcow/clob/client"
	"github.com/betbot/mirrorcow/clob/signing"
	"github.com/betbot/mirrorcow/clob/types"
	"github.com/betbot/mirrorcow/internal/bot"
	"github.com/betbot/mirrorcow/internal/controlplane/server"
	"github.com/betbot/mirrorcow/internal/executor"
	"github.com/betbot/mirrorcow/internal/feed"
	"github.com/betbot/mirrorcow/internal/matcher"
	"github.com/betbot/mirrorcow/internal/watchlist"
	"github.com/betbot/mirrorcow/pkg/config"
	"github.com/betbot/mirrorcow/pkg/logger"
	"github.com/betbot/mirrorcow/pkg/secretstore"
	"github.com/betbot/mirrorcow/pkg/shutdown"
)

const gracefulShutdownPeriod = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "配置文件路径（.yaml/.yml）")
	targetsPath := flag.String("targets", "", "跟单名单 CSV 路径（覆盖配置）")
	dryRun := flag.Bool("dry-run", false, "纸交易模式：只记录不下单")
	flag.Parse()

	// .env 可选
	_ = godotenv.Load()

	if *configPath != "" {
		config.SetConfigPath(*configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "加载配置失败:", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *targetsPath != "" {
		cfg.Mirror.TargetsFile = *targetsPath
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, OutputFile: cfg.LogFile}); err != nil {
		fmt.Fprintln(os.Stderr, "初始化日志失败:", err)
		os.Exit(1)
	}

	if err := loadWalletFromSecretStore(cfg); err != nil {
		logrus.Errorf("读取密钥存储失败: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Errorf("配置校验失败: %v", err)
		os.Exit(1)
	}

	store, err := watchlist.LoadFile(cfg.Mirror.TargetsFile)
	if err != nil {
		logrus.Errorf("加载跟单名单失败: %v", err)
		os.Exit(1)
	}
	if store.Len() == 0 {
		logrus.Error("跟单名单为空")
		os.Exit(1)
	}

	var (
		privateKey *ecdsa.PrivateKey
		session    bot.Session
		approver   executor.Approver
		venue      executor.Venue
	)
	if !cfg.DryRun {
		privateKey, err = signing.PrivateKeyFromHex(cfg.Wallet.PrivateKey)
		if err != nil {
			logrus.Errorf("解析私钥失败: %v", err)
			os.Exit(1)
		}

		clobClient := client.NewClient(cfg.Clob.ClobURL, types.Chain(cfg.Clob.ChainID), privateKey, nil)
		session = clobClient
		venue = clobClient

		authSvc, err := client.NewAuthorizationService(cfg.Clob.RPCURL, types.Chain(cfg.Clob.ChainID), privateKey)
		if err != nil {
			logrus.Errorf("初始化链上授权服务失败: %v", err)
			os.Exit(1)
		}
		approver = executor.AuthServiceApprover{Svc: authSvc}
	}

	gateway := executor.New(venue, approver, executor.Options{
		FunderAddress: cfg.Wallet.FunderAddress,
		SignatureType: types.SignatureTypeGnosisSafe,
		Timeout:       cfg.Mirror.ExecuteTimeout,
		DryRun:        cfg.DryRun,
		AutoApprove:   cfg.Mirror.AutoApprove,
	})

	activity := feed.NewActivityClient(feed.Options{
		URL:                  cfg.Feed.WSURL,
		PingInterval:         cfg.Feed.PingInterval,
		ReconnectDelay:       cfg.Feed.ReconnectDelay,
		MaxReconnectDelay:    cfg.Feed.MaxReconnectDelay,
		MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
		BufferSize:           cfg.Feed.BufferSize,
	})

	orchestrator := bot.New(activity, matcher.New(store), store, gateway, session, bot.Options{
		QueueSize:     cfg.Mirror.QueueSize,
		ProgressEvery: cfg.Mirror.ProgressEvery,
	})

	shutdownMgr := shutdown.NewManager()

	if cfg.Server.ListenAddr != "" {
		statusSrv := server.New(server.Config{ListenAddr: cfg.Server.ListenAddr}, orchestrator, store)
		statusSrv.Start()
		shutdownMgr.Register("status-server", func(ctx context.Context) {
			if err := statusSrv.Shutdown(ctx); err != nil {
				logrus.Warnf("状态服务关闭失败: %v", err)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- orchestrator.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logrus.Infof("收到信号 %s，开始优雅关闭", sig)
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			logrus.Errorf("跟单进程终止: %v", err)
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
	defer shutdownCancel()
	shutdownMgr.Shutdown(shutdownCtx)

	st := orchestrator.Snapshot()
	logrus.Infof("退出：处理 %d 条，命中 %d，成交 %d，失败 %d", st.Processed, st.Matched, st.Executed, st.Failed)
	os.Exit(exitCode)
}

// loadWalletFromSecretStore 在未直接配置私钥时从 badger 密钥存储读取
func loadWalletFromSecretStore(cfg *config.Config) error {
	if cfg.Wallet.PrivateKey != "" || cfg.SecretStore.Dir == "" {
		return nil
	}

	keyBytes, err := secretstore.ParseKey(os.Getenv("MIRROR_SECRET_KEY"))
	if err != nil {
		return err
	}
	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.SecretStore.Dir,
		EncryptionKey: keyBytes,
		ReadOnly:      true,
	})
	if err != nil {
		return err
	}
	defer ss.Close()

	pk, ok, err := ss.GetString(secretstore.KeyWalletPrivateKey)
	if err != nil {
		return err
	}
	if !ok || strings.TrimSpace(pk) == "" {
		return fmt.Errorf("密钥存储中不存在 %s", secretstore.KeyWalletPrivateKey)
	}
	cfg.Wallet.PrivateKey = strings.TrimSpace(pk)

	if cfg.Wallet.FunderAddress == "" {
		if addr, ok, err := ss.GetString(secretstore.KeyFunderAddress); err == nil && ok {
			cfg.Wallet.FunderAddress = strings.TrimSpace(addr)
		}
	}
	return nil
}
