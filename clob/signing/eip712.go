// Package signing 实现 Polymarket CLOB 的两级认证签名：
// L1 为钱包私钥的 EIP-712 签名，L2 为 API 密钥的 HMAC 签名。
package signing

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/betbot/mirrorcow/clob/types"
)

// CLOB 认证域参数，服务端按此验证 L1 签名
const (
	clobAuthDomainName    = "ClobAuthDomain"
	clobAuthDomainVersion = "1"
	clobAuthAttestation   = "This message attests that I control the given wallet"
)

// clobAuthTypedData 组装 ClobAuth 结构的 EIP-712 TypedData
func clobAuthTypedData(address common.Address, chainID types.Chain, timestamp int64, nonce int64) apitypes.TypedData {
	return apitypes.TypedData{
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    clobAuthDomainName,
			Version: clobAuthDomainVersion,
			ChainId: math.NewHexOrDecimal256(int64(chainID)),
		},
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		Message: apitypes.TypedDataMessage{
			"address":   address.Hex(),
			"timestamp": fmt.Sprintf("%d", timestamp),
			"nonce":     big.NewInt(nonce),
			"message":   clobAuthAttestation,
		},
	}
}

// signTypedData 按 EIP-191 前缀（\x19\x01 + 域分隔符 + 结构哈希）
// 计算摘要并用私钥签名，返回 0x 前缀的 65 字节 r||s||v 签名。
func signTypedData(privateKey *ecdsa.PrivateKey, td apitypes.TypedData) (string, error) {
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return "", fmt.Errorf("计算域分隔符失败: %w", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return "", fmt.Errorf("计算结构哈希失败: %w", err)
	}

	digest := crypto.Keccak256Hash(append(append([]byte("\x19\x01"), domainSeparator...), structHash...))
	sig, err := crypto.Sign(digest.Bytes(), privateKey)
	if err != nil {
		return "", fmt.Errorf("签名失败: %w", err)
	}
	return "0x" + common.Bytes2Hex(sig), nil
}

// BuildClobEip712Signature 生成 L1 认证所需的 ClobAuth 签名
func BuildClobEip712Signature(privateKey *ecdsa.PrivateKey, chainID types.Chain, timestamp int64, nonce int64) (string, error) {
	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	return signTypedData(privateKey, clobAuthTypedData(address, chainID, timestamp, nonce))
}

// GetAddressFromPrivateKey 从私钥获取地址
func GetAddressFromPrivateKey(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// PrivateKeyFromHex 从十六进制字符串解析私钥，0x 前缀可选
func PrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}
