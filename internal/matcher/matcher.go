// Package matcher 解析活动流消息并对照跟单名单判定是否镜像。
package matcher

import (
	"encoding/json"
	"strings"

	"github.com/betbot/mirrorcow/internal/watchlist"
	"github.com/betbot/mirrorcow/pkg/logger"
)

// TradeEvent 活动流中的一笔成交
type TradeEvent struct {
	Asset           string  `json:"asset"`
	Side            string  `json:"side"`
	Price           float64 `json:"price"`
	Size            float64 `json:"size"`
	Timestamp       int64   `json:"timestamp"`
	Name            string  `json:"name"`
	ProxyWallet     string  `json:"proxyWallet"`
	ConditionID     string  `json:"conditionId"`
	Title           string  `json:"title"`
	Outcome         string  `json:"outcome"`
	Icon            string  `json:"icon"`
	Bio             string  `json:"bio"`
	EventSlug       string  `json:"eventSlug"`
	TransactionHash string  `json:"transactionHash"`
}

// envelope 活动流外层消息
type envelope struct {
	Payload TradeEvent `json:"payload"`
}

// MatchResult 匹配结果；未命中时 TokenID 与 MatchedKey 为空
type MatchResult struct {
	Matched    bool
	TokenID    string
	MatchedKey string
}

// Matcher 持有名单并对每条原始帧做 Buy 过滤与名单查找
type Matcher struct {
	store *watchlist.Store
	log   *logger.Entry
}

func New(store *watchlist.Store) *Matcher {
	return &Matcher{store: store, log: logger.Component("matcher")}
}

// ParseEvent 解析外层 envelope 的 payload。解析失败只记日志，
// 返回 ok=false，不向上传播错误。
func (m *Matcher) ParseEvent(raw []byte) (TradeEvent, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.log.Debugf("忽略无法解析的消息: %v", err)
		return TradeEvent{}, false
	}
	return env.Payload, true
}

// MatchEvent 对已解析事件做判定：仅 Buy 方向，先按用户名后按钱包地址查找，
// 用户名命中优先。未命中返回零值 MatchResult。
func (m *Matcher) MatchEvent(ev TradeEvent) MatchResult {
	if ev.Side != "Buy" {
		return MatchResult{}
	}

	if name := strings.ToLower(ev.Name); name != "" {
		if _, ok := m.store.Lookup(name); ok {
			return MatchResult{Matched: true, TokenID: ev.Asset, MatchedKey: name}
		}
	}
	if addr := strings.ToLower(ev.ProxyWallet); addr != "" {
		if _, ok := m.store.Lookup(addr); ok {
			return MatchResult{Matched: true, TokenID: ev.Asset, MatchedKey: addr}
		}
	}
	return MatchResult{}
}

// Match 解析并判定一条原始帧；解析失败视为未命中
func (m *Matcher) Match(raw []byte) (TradeEvent, MatchResult) {
	ev, ok := m.ParseEvent(raw)
	if !ok {
		return TradeEvent{}, MatchResult{}
	}
	return ev, m.MatchEvent(ev)
}
