package signing

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"time"

	"github.com/betbot/mirrorcow/clob/types"
)

// tsOrNow 取给定时间戳，未给定时取当前 Unix 秒
func tsOrNow(timestamp *int64) int64 {
	if timestamp != nil {
		return *timestamp
	}
	return time.Now().Unix()
}

// CreateL1Headers 生成 L1 认证头（钱包 EIP-712 签名）。
// nonce 为 nil 时使用 0，与派生 API 密钥的默认 nonce 一致。
func CreateL1Headers(privateKey *ecdsa.PrivateKey, chainID types.Chain, nonce *int64, timestamp *int64) (*types.L1PolyHeader, error) {
	ts := tsOrNow(timestamp)
	n := int64(0)
	if nonce != nil {
		n = *nonce
	}

	sig, err := BuildClobEip712Signature(privateKey, chainID, ts, n)
	if err != nil {
		return nil, fmt.Errorf("构建 EIP712 签名失败: %w", err)
	}

	return &types.L1PolyHeader{
		PolyAddress:   GetAddressFromPrivateKey(privateKey).Hex(),
		PolySignature: sig,
		PolyTimestamp: strconv.FormatInt(ts, 10),
		PolyNonce:     strconv.FormatInt(n, 10),
	}, nil
}

// CreateL2Headers 生成 L2 认证头（API 密钥 HMAC 签名）
func CreateL2Headers(privateKey *ecdsa.PrivateKey, creds *types.ApiKeyCreds, l2HeaderArgs *types.L2HeaderArgs, timestamp *int64) (*types.L2PolyHeader, error) {
	ts := tsOrNow(timestamp)

	sig, err := BuildPolyHmacSignature(creds.Secret, ts, l2HeaderArgs.Method, l2HeaderArgs.RequestPath, l2HeaderArgs.Body)
	if err != nil {
		return nil, fmt.Errorf("构建 HMAC 签名失败: %w", err)
	}

	return &types.L2PolyHeader{
		PolyAddress:    GetAddressFromPrivateKey(privateKey).Hex(),
		PolySignature:  sig,
		PolyTimestamp:  strconv.FormatInt(ts, 10),
		PolyAPIKey:     creds.Key,
		PolyPassphrase: creds.Passphrase,
	}, nil
}
