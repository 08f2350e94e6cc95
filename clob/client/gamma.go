package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/mirrorcow/pkg/logger"
	"github.com/betbot/mirrorcow/pkg/ratelimit"
)

const gammaBaseURL = "https://gamma-api.polymarket.com"

var (
	gammaClient     *resty.Client
	gammaClientOnce sync.Once

	gammaRateLimiter   *ratelimit.RateLimitManager
	gammaRateLimitOnce sync.Once
)

// GammaMarket Gamma API 市场数据结构
type GammaMarket struct {
	ID           string `json:"id"`
	Question     string `json:"question"`
	ConditionID  string `json:"conditionId"`
	Slug         string `json:"slug"`
	ClobTokenIDs string `json:"clobTokenIds"`
	EndDate      string `json:"endDate"`
	StartDate    string `json:"startDate"`
	Category     string `json:"category"`
}

// TokenIDs 解析 clobTokenIds 字段（JSON 编码的字符串数组）
func (m *GammaMarket) TokenIDs() ([]string, error) {
	if m.ClobTokenIDs == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err != nil {
		return nil, errors.Wrap(err, "解析 clobTokenIds 失败")
	}
	return ids, nil
}

// getGammaClient 获取 Gamma API HTTP 客户端（单例）
// resty 自动从环境变量读取代理配置（HTTP_PROXY / HTTPS_PROXY）
func getGammaClient() *resty.Client {
	gammaClientOnce.Do(func() {
		gammaClient = resty.New().
			SetBaseURL(gammaBaseURL).
			SetTimeout(30 * time.Second).
			SetRetryCount(3).
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "mirrorcow-clob")
	})
	return gammaClient
}

// getGammaRateLimiter 获取 Gamma API 速率限制器（单例）
func getGammaRateLimiter() *ratelimit.RateLimitManager {
	gammaRateLimitOnce.Do(func() {
		gammaRateLimiter = ratelimit.NewRateLimitManager()
	})
	return gammaRateLimiter
}

// FetchMarketFromGamma 从 Gamma API 按 slug 获取市场数据（独立函数，不依赖 Client）
func FetchMarketFromGamma(ctx context.Context, slug string) (*GammaMarket, error) {
	if err := getGammaRateLimiter().Wait(ctx, "gamma:markets:get"); err != nil {
		return nil, errors.Wrap(err, "速率限制等待失败")
	}

	var markets []GammaMarket
	resp, err := getGammaClient().R().
		SetContext(ctx).
		SetQueryParam("slug", slug).
		SetQueryParam("closed", "false").
		SetResult(&markets).
		Get("/markets")
	if err != nil {
		return nil, errors.Wrap(err, "请求 Gamma API 失败")
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("Gamma API HTTP 错误 %d: %s", resp.StatusCode(), resp.String())
	}
	if len(markets) == 0 {
		return nil, errors.Errorf("未找到市场: %s", slug)
	}
	return &markets[0], nil
}

// FetchMarketByConditionID 从 Gamma API 按 conditionId 获取市场数据
func FetchMarketByConditionID(ctx context.Context, conditionID string) (*GammaMarket, error) {
	if err := getGammaRateLimiter().Wait(ctx, "gamma:markets:get"); err != nil {
		return nil, errors.Wrap(err, "速率限制等待失败")
	}

	var markets []GammaMarket
	resp, err := getGammaClient().R().
		SetContext(ctx).
		SetQueryParam("condition_ids", conditionID).
		SetResult(&markets).
		Get("/markets")
	if err != nil {
		return nil, errors.Wrap(err, "请求 Gamma API 失败")
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("Gamma API HTTP 错误 %d: %s", resp.StatusCode(), resp.String())
	}
	if len(markets) == 0 {
		return nil, errors.Errorf("未找到市场: conditionId=%s", conditionID)
	}
	return &markets[0], nil
}

// FetchMultipleMarketsFromGamma 批量获取市场数据，单个失败跳过不中断
func FetchMultipleMarketsFromGamma(ctx context.Context, slugs []string, delayMs int) ([]*GammaMarket, error) {
	markets := make([]*GammaMarket, 0, len(slugs))
	for i, slug := range slugs {
		market, err := FetchMarketFromGamma(ctx, slug)
		if err != nil {
			logger.Component("gamma").Warnf("获取市场失败 %s: %v", slug, err)
			continue
		}
		markets = append(markets, market)
		if i < len(slugs)-1 && delayMs > 0 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}
	}
	return markets, nil
}
