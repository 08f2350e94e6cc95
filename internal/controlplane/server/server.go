// Package server 提供只读的运行状态 HTTP 接口。
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/betbot/mirrorcow/internal/bot"
	"github.com/betbot/mirrorcow/internal/watchlist"
	"github.com/betbot/mirrorcow/pkg/logger"
)

// Config 状态服务配置
type Config struct {
	ListenAddr string
}

// StatusSource 运行状态提供方，由 bot.Orchestrator 实现
type StatusSource interface {
	Snapshot() bot.Status
}

// Server 只读状态服务：/healthz、/status、/watchlist
type Server struct {
	cfg    Config
	status StatusSource
	store  *watchlist.Store
	log    *logger.Entry

	httpSrv *http.Server
}

func New(cfg Config, status StatusSource, store *watchlist.Store) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8723"
	}
	return &Server{
		cfg:    cfg,
		status: status,
		store:  store,
		log:    logger.Component("controlplane"),
	}
}

// Router 构建 gin 路由
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.status.Snapshot())
	})

	r.GET("/watchlist", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"size": s.store.Len(),
			"keys": s.store.Keys(),
		})
	})

	return r
}

// Start 后台启动 HTTP 服务
func (s *Server) Start() {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.log.Infof("状态服务监听 %s", s.cfg.ListenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("状态服务退出: %v", err)
		}
	}()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
