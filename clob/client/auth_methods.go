package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/betbot/mirrorcow/clob/signing"
	"github.com/betbot/mirrorcow/clob/types"
)

// l1HeaderMap 生成 L1 认证请求头（钱包签名）
func (c *Client) l1HeaderMap(nonce int64) (map[string]string, error) {
	headers, err := signing.CreateL1Headers(c.authConfig.PrivateKey, c.authConfig.ChainID, &nonce, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 L1 认证头失败: %w", err)
	}
	return map[string]string{
		"POLY_ADDRESS":   headers.PolyAddress,
		"POLY_SIGNATURE": headers.PolySignature,
		"POLY_TIMESTAMP": headers.PolyTimestamp,
		"POLY_NONCE":     headers.PolyNonce,
	}, nil
}

func credsFromRaw(raw *types.ApiKeyRaw) *types.ApiKeyCreds {
	return &types.ApiKeyCreds{
		Key:        raw.ApiKey,
		Secret:     raw.Secret,
		Passphrase: raw.Passphrase,
	}
}

// CreateOrDeriveAPIKey 准备 API 凭证：先推导已有密钥，
// 账户还没有密钥（400）时创建新的。nonce 为 nil 按 0 处理。
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context, nonce *int64) (*types.ApiKeyCreds, error) {
	if err := c.CanL1Auth(); err != nil {
		return nil, err
	}

	var n int64
	if nonce != nil {
		n = *nonce
	}
	headerMap, err := c.l1HeaderMap(n)
	if err != nil {
		return nil, err
	}

	resp, derr := c.httpClient.get(EndpointDeriveAPIKey, headerMap, nil)
	if derr == nil && resp != nil {
		switch {
		case resp.StatusCode == http.StatusOK:
			var raw types.ApiKeyRaw
			if err := parseResponse(resp, &raw); err != nil {
				return nil, fmt.Errorf("解析 API 密钥响应失败: %w", err)
			}
			return credsFromRaw(&raw), nil
		case resp.StatusCode == http.StatusBadRequest:
			// 账户没有可推导的密钥，转创建
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		default:
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("推导 API 密钥失败: HTTP %d: %s", resp.StatusCode, string(bodyBytes))
		}
	}

	resp, err = c.httpClient.post(EndpointCreateAPIKey, headerMap, map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("创建 API 密钥失败: %w", err)
	}
	var raw types.ApiKeyRaw
	if err := parseResponse(resp, &raw); err != nil {
		return nil, fmt.Errorf("解析 API 密钥响应失败: %w", err)
	}
	return credsFromRaw(&raw), nil
}

// DeriveAPIKey 推导已有 API 密钥
func (c *Client) DeriveAPIKey(ctx context.Context, nonce int64) (*types.ApiKeyCreds, error) {
	return c.CreateOrDeriveAPIKey(ctx, &nonce)
}

// CreateAPIKey 创建新的 API 密钥
func (c *Client) CreateAPIKey(ctx context.Context) (*types.ApiKeyCreds, error) {
	return c.CreateOrDeriveAPIKey(ctx, nil)
}
