package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/betbot/mirrorcow/internal/bot"
	"github.com/betbot/mirrorcow/internal/watchlist"
)

type staticStatus struct {
	st bot.Status
}

func (s staticStatus) Snapshot() bot.Status { return s.st }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := watchlist.Load(strings.NewReader("alice,,10\n,0x01,5\n"))
	if err != nil {
		t.Fatalf("加载名单失败: %v", err)
	}
	src := staticStatus{st: bot.Status{State: "running", Processed: 42, Matched: 3, Executed: 2, Failed: 1, WatchlistSize: 2}}
	return New(Config{}, src, store).Router()
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	var st bot.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if st.State != "running" || st.Processed != 42 {
		t.Fatalf("状态内容不符: %+v", st)
	}
}

func TestWatchlist(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/watchlist", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	var body struct {
		Size int      `json:"size"`
		Keys []string `json:"keys"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if body.Size != 2 || len(body.Keys) != 2 {
		t.Fatalf("名单内容不符: %+v", body)
	}
}
