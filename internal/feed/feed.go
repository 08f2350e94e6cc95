// Package feed 维护到 Polymarket 实时活动流的 WebSocket 连接。
package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/betbot/mirrorcow/pkg/logger"
)

const (
	defaultWSURL          = "wss://ws-live-data.polymarket.com"
	handshakeTimeout      = 10 * time.Second
	readTimeout           = 90 * time.Second
	defaultPingInterval   = 10 * time.Second
	defaultReconnectDelay = 1 * time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultMaxAttempts    = 10
	defaultBufferSize     = 256
)

// subscribeMessage 订阅全量成交活动
type subscribeMessage struct {
	Action        string             `json:"action"`
	Subscriptions []subscriptionSpec `json:"subscriptions"`
}

type subscriptionSpec struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

// ConnectionError 连接失败（重试耗尽后致命）
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("连接活动流失败 %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Options 活动流客户端配置
type Options struct {
	URL                  string
	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectDelay    time.Duration
	MaxReconnectAttempts int
	BufferSize           int
}

func (o *Options) fill() {
	if o.URL == "" {
		o.URL = defaultWSURL
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = defaultReconnectDelay
	}
	if o.MaxReconnectDelay <= 0 {
		o.MaxReconnectDelay = defaultMaxDelay
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = defaultMaxAttempts
	}
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
}

// ActivityClient 订阅 topic=activity type=trades 的原始文本帧。
// 断线后按指数退避自动重连并重新订阅；重试耗尽后关闭 Frames 通道。
type ActivityClient struct {
	opts Options
	log  *logger.Entry

	conn   *websocket.Conn
	connMu sync.Mutex

	frames  chan []byte
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewActivityClient 创建活动流客户端
func NewActivityClient(opts Options) *ActivityClient {
	opts.fill()
	return &ActivityClient{
		opts:   opts,
		log:    logger.Component("feed"),
		frames: make(chan []byte, opts.BufferSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Frames 原始文本帧通道；客户端终止后关闭
func (c *ActivityClient) Frames() <-chan []byte {
	return c.frames
}

// Start 建立初始连接、发送订阅并启动读取与保活协程。
// 初始连接失败返回 ConnectionError（致命），不做退避。
func (c *ActivityClient) Start(ctx context.Context) error {
	if c.started {
		return fmt.Errorf("活动流客户端已启动")
	}
	if err := c.connect(); err != nil {
		return &ConnectionError{URL: c.opts.URL, Err: err}
	}
	if err := c.subscribe(); err != nil {
		return &ConnectionError{URL: c.opts.URL, Err: err}
	}
	c.started = true
	go c.readLoop(ctx)
	go c.pingLoop(ctx)
	c.log.Infof("活动流已连接: %s", c.opts.URL)
	return nil
}

// Stop 关闭连接并等待读取协程退出
func (c *ActivityClient) Stop() {
	if !c.started {
		return
	}
	c.started = false
	close(c.stopCh)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	select {
	case <-c.doneCh:
	case <-time.After(5 * time.Second):
		c.log.Warn("活动流关闭超时")
	}
}

func (c *ActivityClient) connect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	// 服务端要求 Origin 头
	headers := http.Header{}
	headers.Set("Origin", "https://polymarket.com")

	conn, _, err := dialer.Dial(c.opts.URL, headers)
	if err != nil {
		return fmt.Errorf("dial 失败: %w", err)
	}
	c.conn = conn
	return nil
}

func (c *ActivityClient) subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("尚未连接")
	}
	msg := subscribeMessage{
		Action: "subscribe",
		Subscriptions: []subscriptionSpec{
			{Topic: "activity", Type: "trades"},
		},
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("发送订阅失败: %w", err)
	}
	c.log.Info("已订阅活动流 topic=activity type=trades")
	return nil
}

func (c *ActivityClient) readLoop(ctx context.Context) {
	defer close(c.doneCh)
	defer close(c.frames)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info("活动流正常关闭")
				return
			}
			select {
			case <-c.stopCh:
				return
			default:
			}
			c.log.Warnf("活动流读取失败: %v", err)
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		// 只透传文本帧；保活的 PONG 不外发
		if msgType != websocket.TextMessage {
			continue
		}
		if string(message) == "PONG" {
			continue
		}

		// 缓冲满时在此阻塞，背压经未读的 socket 传导给服务端；
		// 每条帧都要送达，不丢弃
		select {
		case c.frames <- message:
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		}
	}
}

func (c *ActivityClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				c.log.Warnf("保活 PING 发送失败: %v", err)
			}
		}
	}
}

// reconnect 指数退避重连并重新订阅；重试耗尽返回 false
func (c *ActivityClient) reconnect(ctx context.Context) bool {
	delay := c.opts.ReconnectDelay
	for attempt := 1; attempt <= c.opts.MaxReconnectAttempts; attempt++ {
		c.log.Infof("活动流 %s 后重连（第 %d/%d 次）", delay, attempt, c.opts.MaxReconnectAttempts)
		select {
		case <-ctx.Done():
			return false
		case <-c.stopCh:
			return false
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.log.Warnf("重连失败: %v", err)
			delay *= 2
			if delay > c.opts.MaxReconnectDelay {
				delay = c.opts.MaxReconnectDelay
			}
			continue
		}
		if err := c.subscribe(); err != nil {
			c.log.Warnf("重连后订阅失败: %v", err)
			delay *= 2
			if delay > c.opts.MaxReconnectDelay {
				delay = c.opts.MaxReconnectDelay
			}
			continue
		}
		c.log.Info("活动流重连成功")
		return true
	}
	c.log.Error("活动流重连次数耗尽，停止接收")
	return false
}
