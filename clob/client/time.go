package client

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// GetServerTime 获取 CLOB 服务器时间（Unix 秒），同时用作连通性检查
func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	resp, err := resty.New().
		SetBaseURL(c.host).
		SetTimeout(10 * time.Second).
		R().
		SetContext(ctx).
		Get(EndpointTime)
	if err != nil {
		return 0, errors.Wrap(err, "请求服务器时间失败")
	}
	if resp.StatusCode() != 200 {
		return 0, errors.Errorf("服务器时间 HTTP 错误 %d: %s", resp.StatusCode(), resp.String())
	}
	ts, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(resp.String()), `"`), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "解析服务器时间失败")
	}
	return ts, nil
}

// CheckHealth 检查 CLOB 服务可达性，返回本地与服务器时间的偏差
func (c *Client) CheckHealth(ctx context.Context) (time.Duration, error) {
	serverTime, err := c.GetServerTime(ctx)
	if err != nil {
		return 0, err
	}
	drift := time.Since(time.Unix(serverTime, 0))
	return drift, nil
}
