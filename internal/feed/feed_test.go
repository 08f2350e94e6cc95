package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newTestServer 启动一个回放帧的 WebSocket 测试服务端。
// handler 在收到订阅消息后调用，用于推送测试帧。
func newTestServer(t *testing.T, handler func(conn *websocket.Conn, sub subscribeMessage)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade 失败: %v", err)
			return
		}
		defer conn.Close()

		// 第一条消息应为订阅
		var sub subscribeMessage
		if _, raw, err := conn.ReadMessage(); err == nil {
			_ = json.Unmarshal(raw, &sub)
		}
		handler(conn, sub)
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestActivityClient_SubscribesAndDeliversFrames(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, sub subscribeMessage) {
		if sub.Action != "subscribe" {
			t.Errorf("期望 action=subscribe，实际 %q", sub.Action)
		}
		if len(sub.Subscriptions) != 1 || sub.Subscriptions[0].Topic != "activity" || sub.Subscriptions[0].Type != "trades" {
			t.Errorf("订阅内容不符: %+v", sub.Subscriptions)
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{"side":"BUY"}}`))
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	c := NewActivityClient(Options{URL: wsURL(srv), MaxReconnectAttempts: 1, ReconnectDelay: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start 失败: %v", err)
	}
	defer c.Stop()

	select {
	case frame := <-c.Frames():
		if !strings.Contains(string(frame), "BUY") {
			t.Fatalf("帧内容不符: %s", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("超时未收到帧")
	}
}

func TestActivityClient_SuppressesPongFrames(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, _ subscribeMessage) {
		conn.WriteMessage(websocket.TextMessage, []byte("PONG"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{}}`))
		time.Sleep(200 * time.Millisecond)
	})
	defer srv.Close()

	c := NewActivityClient(Options{URL: wsURL(srv), MaxReconnectAttempts: 1, ReconnectDelay: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start 失败: %v", err)
	}
	defer c.Stop()

	select {
	case frame := <-c.Frames():
		if string(frame) == "PONG" {
			t.Fatal("PONG 不应透传")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("超时未收到帧")
	}
}

// 消费慢、缓冲占满时帧不允许丢，读取协程应阻塞等待而不是跳过
func TestActivityClient_FullBufferBlocksInsteadOfDropping(t *testing.T) {
	const total = 5
	srv := newTestServer(t, func(conn *websocket.Conn, _ subscribeMessage) {
		for i := 0; i < total; i++ {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{"side":"BUY"}}`))
		}
		time.Sleep(time.Second)
	})
	defer srv.Close()

	// 缓冲只放得下 1 条，其余必须靠阻塞送达
	c := NewActivityClient(Options{URL: wsURL(srv), BufferSize: 1, MaxReconnectAttempts: 1, ReconnectDelay: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start 失败: %v", err)
	}
	defer c.Stop()

	// 先压一段时间再逐条慢读
	time.Sleep(200 * time.Millisecond)
	got := 0
	deadline := time.After(5 * time.Second)
	for got < total {
		select {
		case _, ok := <-c.Frames():
			if !ok {
				t.Fatalf("通道提前关闭，仅收到 %d/%d 条", got, total)
			}
			got++
			time.Sleep(20 * time.Millisecond)
		case <-deadline:
			t.Fatalf("超时，仅收到 %d/%d 条，疑似帧被丢弃", got, total)
		}
	}
}

func TestActivityClient_InitialDialFailureIsConnectionError(t *testing.T) {
	c := NewActivityClient(Options{URL: "ws://127.0.0.1:1/ws"})
	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("期望连接失败")
	}
	if _, ok := err.(*ConnectionError); !ok {
		t.Fatalf("期望 ConnectionError，实际 %T", err)
	}
}

func TestActivityClient_ClosesFramesAfterRetriesExhausted(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, _ subscribeMessage) {
		// 立即断开，触发客户端重连
	})

	c := NewActivityClient(Options{
		URL:                  wsURL(srv),
		ReconnectDelay:       10 * time.Millisecond,
		MaxReconnectDelay:    20 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start 失败: %v", err)
	}
	srv.Close() // 关掉服务端，让重连必然失败

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-c.Frames():
			if !ok {
				return // 通道关闭即为预期
			}
		case <-deadline:
			t.Fatal("重试耗尽后 Frames 通道应关闭")
		}
	}
}
