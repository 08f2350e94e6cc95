package types

// UserOrder 限价单的业务层参数，指针字段缺省时由构建器取默认值
type UserOrder struct {
	TokenID string  // 条件代币资产 ID
	Price   float64 // 限价
	Size    float64 // 代币数量
	Side    Side

	FeeRateBps *int    // 手续费率（基点）
	Nonce      *int    // 链上取消用的 nonce
	Expiration *int64  // 过期时间戳（秒），0 表示不过期
	Taker      *string // 指定对手方地址，零地址即公开单
}

// UserMarketOrder 市价单的业务层参数。
// Amount 在买入时是美元预算，卖出时是代币份额。
type UserMarketOrder struct {
	TokenID string
	Price   *float64 // 缺省时按盘口价成交
	Amount  float64
	Side    Side

	FeeRateBps *int
	Nonce      *int
	Taker      *string
	OrderType  *OrderType // 仅 FOK / FAK
}

// SignedOrder 交易所下单接口要求的已签名订单，金额均为 raw 单位的十进制字符串
type SignedOrder struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// NewOrder POST /order 的请求体
type NewOrder struct {
	Order     SignedOrder `json:"order"`
	Owner     string      `json:"owner"`
	OrderType OrderType   `json:"orderType"`
	DeferExec bool        `json:"deferExec"`
}

// OrderResponse POST /order 的响应体
type OrderResponse struct {
	Success           bool     `json:"success"`
	ErrorMsg          string   `json:"errorMsg"`
	OrderID           string   `json:"orderID"`
	TransactionHashes []string `json:"transactionsHashes"`
	Status            string   `json:"status"`
	TakingAmount      string   `json:"takingAmount"`
	MakingAmount      string   `json:"makingAmount"`
	TradeIDs          []string `json:"tradeIds"`
}

// CreateOrderOptions 构建订单需要的市场属性
type CreateOrderOptions struct {
	TickSize TickSize
	NegRisk  *bool
}
