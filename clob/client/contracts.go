package client

import (
	"fmt"

	"github.com/betbot/mirrorcow/clob/types"
)

// CollateralTokenDecimals USDC 精度
const CollateralTokenDecimals = 6

// ContractConfig 单条链上的协议合约地址
type ContractConfig struct {
	Exchange          string
	NegRiskExchange   string
	NegRiskAdapter    string
	Collateral        string
	ConditionalTokens string
}

var contractsByChain = map[types.Chain]ContractConfig{
	types.ChainPolygon: {
		Exchange:          "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
		NegRiskExchange:   "0xC5d563A36AE78145C45a50134d48A1215220f80a",
		NegRiskAdapter:    "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
		Collateral:        "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		ConditionalTokens: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
	},
	types.ChainAmoy: {
		Exchange:          "0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40",
		NegRiskExchange:   "0xC5d563A36AE78145C45a50134d48A1215220f80a",
		NegRiskAdapter:    "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
		Collateral:        "0x9c4e1703476e875070ee25b56a58b008cfb8fa78",
		ConditionalTokens: "0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB",
	},
}

// GetContractConfig 返回指定链的合约地址表
func GetContractConfig(chainID types.Chain) (*ContractConfig, error) {
	cfg, ok := contractsByChain[chainID]
	if !ok {
		return nil, fmt.Errorf("不支持的链 ID: %d", chainID)
	}
	return &cfg, nil
}
