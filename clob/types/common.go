package types

// Chain 目标链，值即 EVM chain ID
type Chain int

const (
	ChainPolygon Chain = 137
	ChainAmoy    Chain = 80002
)

// Side 订单买卖方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType 订单生效方式
type OrderType string

const (
	// OrderTypeGTC 挂单直到成交或取消
	OrderTypeGTC OrderType = "GTC"
	// OrderTypeGTD 挂单到指定时间
	OrderTypeGTD OrderType = "GTD"
	// OrderTypeFOK 立即全部成交，否则整单取消
	OrderTypeFOK OrderType = "FOK"
	// OrderTypeFAK 立即成交能成交的部分，剩余取消
	OrderTypeFAK OrderType = "FAK"
)

// SignatureType 下单签名方式，对应交易所合约里的签名校验分支
type SignatureType int

const (
	// SignatureTypeBrowser 普通 EOA 钱包直接签名
	SignatureTypeBrowser SignatureType = 0
	// SignatureTypeMagic Magic Link 托管代理钱包
	SignatureTypeMagic SignatureType = 1
	// SignatureTypeGnosisSafe Gnosis Safe 代理钱包（官网账户默认）
	SignatureTypeGnosisSafe SignatureType = 2
)

// TickSize 市场价格最小跳动
type TickSize string

const (
	TickSize01    TickSize = "0.1"
	TickSize001   TickSize = "0.01"
	TickSize0001  TickSize = "0.001"
	TickSize00001 TickSize = "0.0001"
)

// ApiKeyCreds L2 认证凭证
type ApiKeyCreds struct {
	Key        string
	Secret     string
	Passphrase string
}

// ApiKeyRaw 创建/派生 API key 接口的响应体
type ApiKeyRaw struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}
