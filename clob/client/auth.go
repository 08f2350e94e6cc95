package client

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/mirrorcow/clob/signing"
	"github.com/betbot/mirrorcow/clob/types"
)

// AuthConfig 客户端认证材料。私钥支撑 L1 签名，Creds 支撑 L2 HMAC
type AuthConfig struct {
	PrivateKey *ecdsa.PrivateKey
	ChainID    types.Chain
	Creds      *types.ApiKeyCreds
}

func (a *AuthConfig) hasPrivateKey() bool {
	return a != nil && a.PrivateKey != nil
}

// CanL1Auth 私钥签名认证是否可用
func (c *Client) CanL1Auth() error {
	if !c.authConfig.hasPrivateKey() {
		return fmt.Errorf("L1 认证不可用: 私钥未配置")
	}
	return nil
}

// CanL2Auth API 凭证认证是否可用
func (c *Client) CanL2Auth() error {
	if c.authConfig == nil || c.authConfig.Creds == nil {
		return fmt.Errorf("L2 认证不可用: API 凭证未配置")
	}
	return nil
}

// GetAddress 由私钥推导签名地址
func (c *Client) GetAddress() (common.Address, error) {
	if !c.authConfig.hasPrivateKey() {
		return common.Address{}, fmt.Errorf("私钥未配置，无法获取地址")
	}
	return signing.GetAddressFromPrivateKey(c.authConfig.PrivateKey), nil
}
