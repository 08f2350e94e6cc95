package signing

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/betbot/mirrorcow/clob/types"
)

// CTF Exchange 合约校验订单签名所用的 EIP-712 域
const (
	exchangeDomainName    = "Polymarket CTF Exchange"
	exchangeDomainVersion = "1"
)

// OrderData 待签名的订单字段，金额均为 6 位精度的原始整数
type OrderData struct {
	Salt          int64
	Maker         string
	Signer        string
	Taker         string
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          types.Side
	SignatureType types.SignatureType
}

// sideValue 链上枚举：BUY=0，SELL=1
func sideValue(side types.Side) int64 {
	if side == types.SideBuy {
		return 0
	}
	return 1
}

// orderTypedData 组装 Order 结构的 EIP-712 TypedData。
// 地址字段传 .Hex() 字符串，枚举字段传 uint8 范围内的 big.Int。
func orderTypedData(chainID types.Chain, exchangeAddress string, od *OrderData) apitypes.TypedData {
	return apitypes.TypedData{
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              exchangeDomainName,
			Version:           exchangeDomainVersion,
			ChainId:           math.NewHexOrDecimal256(int64(chainID)),
			VerifyingContract: exchangeAddress,
		},
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		Message: apitypes.TypedDataMessage{
			"salt":          big.NewInt(od.Salt),
			"maker":         common.HexToAddress(od.Maker).Hex(),
			"signer":        common.HexToAddress(od.Signer).Hex(),
			"taker":         common.HexToAddress(od.Taker).Hex(),
			"tokenId":       od.TokenID,
			"makerAmount":   od.MakerAmount,
			"takerAmount":   od.TakerAmount,
			"expiration":    od.Expiration,
			"nonce":         od.Nonce,
			"feeRateBps":    od.FeeRateBps,
			"side":          big.NewInt(sideValue(od.Side)),
			"signatureType": big.NewInt(int64(od.SignatureType)),
		},
	}
}

// BuildOrderSignature 对订单做 EIP-712 签名，exchangeAddress
// 需与下单的交易所合约一致（普通市场与 neg-risk 市场不同）。
func BuildOrderSignature(privateKey *ecdsa.PrivateKey, chainID types.Chain, exchangeAddress string, orderData *OrderData) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(orderTypedData(chainID, exchangeAddress, orderData))
	if err != nil {
		return "", fmt.Errorf("计算 EIP712 哈希失败: %w", err)
	}
	sig, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return "", fmt.Errorf("签名失败: %w", err)
	}
	return "0x" + common.Bytes2Hex(sig), nil
}
