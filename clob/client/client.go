package client

import (
	"crypto/ecdsa"
	"strings"

	"github.com/betbot/mirrorcow/clob/types"
	"github.com/betbot/mirrorcow/pkg/ratelimit"
)

// Client CLOB REST 客户端，持有认证材料与全局速率限制器
type Client struct {
	host        string
	chainID     types.Chain
	authConfig  *AuthConfig
	httpClient  *httpClient
	rateLimiter *ratelimit.RateLimitManager
}

// NewClient 创建 CLOB 客户端。
// creds 可以为 nil：此时仅 L1 接口可用，派生出凭证后用 SetApiCreds 补齐。
// 代理走标准的 HTTP_PROXY/HTTPS_PROXY 环境变量。
func NewClient(host string, chainID types.Chain, privateKey *ecdsa.PrivateKey, creds *types.ApiKeyCreds) *Client {
	auth := &AuthConfig{
		PrivateKey: privateKey,
		ChainID:    chainID,
		Creds:      creds,
	}
	return &Client{
		host:        strings.TrimSuffix(host, "/"),
		chainID:     chainID,
		authConfig:  auth,
		httpClient:  newHTTPClient(host, auth),
		rateLimiter: ratelimit.NewRateLimitManager(),
	}
}

// GetHost 服务端地址（无尾部斜杠）
func (c *Client) GetHost() string {
	return c.host
}

// GetChainID 目标链 ID
func (c *Client) GetChainID() types.Chain {
	return c.chainID
}

// SetApiCreds 注入 L2 凭证，之后私有接口即可使用
func (c *Client) SetApiCreds(creds *types.ApiKeyCreds) {
	c.authConfig.Creds = creds
}
