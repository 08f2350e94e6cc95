package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/betbot/mirrorcow/clob/types"
)

// 结算链路需要的授权对象。下 FAK 买单前，USDC 要 approve 给
// 交易所与条件代币合约，仓位代币（ERC1155）要对交易所 setApprovalForAll。
type approvalTarget struct {
	name     string
	address  common.Address
	erc20    bool // 需要 USDC allowance
	erc1155  bool // 需要 Conditional Tokens operator approval
}

// AllowanceInfo 单个合约的授权状态
type AllowanceInfo struct {
	Contract  string `json:"contract"`
	Address   string `json:"address"`
	Approved  bool   `json:"approved"`
	Allowance string `json:"allowance,omitempty"`
}

// AllowancesResult 链上授权检查结果；TradingReady 为 false 时
// Issues 列出缺失项，可据此决定是否执行 ApproveAll。
type AllowancesResult struct {
	Wallet           string          `json:"wallet"`
	UsdcBalance      string          `json:"usdcBalance"`
	Erc20Allowances  []AllowanceInfo `json:"erc20Allowances"`
	Erc1155Approvals []AllowanceInfo `json:"erc1155Approvals"`
	TradingReady     bool            `json:"tradingReady"`
	Issues           []string        `json:"issues"`
}

// ApprovalTxResult 单笔授权交易的结果
type ApprovalTxResult struct {
	Contract string `json:"contract"`
	TxHash   string `json:"txHash,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ApprovalsResult ApproveAll 的汇总结果
type ApprovalsResult struct {
	Wallet           string             `json:"wallet"`
	Erc20Approvals   []ApprovalTxResult `json:"erc20Approvals"`
	Erc1155Approvals []ApprovalTxResult `json:"erc1155Approvals"`
	AllApproved      bool               `json:"allApproved"`
	Summary          string             `json:"summary"`
}

const erc20ABIJSON = `[
  {"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const erc1155ABIJSON = `[
  {"inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"name":"setApprovalForAll","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"name":"account","type":"address"},{"name":"operator","type":"address"}],"name":"isApprovedForAll","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"}
]`

// AuthorizationService 检查并补齐跟单交易所需的链上授权
type AuthorizationService struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int

	usdc              common.Address
	conditionalTokens common.Address
	targets           []approvalTarget

	erc20ABI   abi.ABI
	erc1155ABI abi.ABI
}

func NewAuthorizationService(rpcURL string, chain types.Chain, privateKey *ecdsa.PrivateKey) (*AuthorizationService, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接RPC节点失败: %w", err)
	}
	cfg, err := GetContractConfig(chain)
	if err != nil {
		return nil, err
	}

	a20, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("解析ERC20 ABI失败: %w", err)
	}
	a1155, err := abi.JSON(strings.NewReader(erc1155ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("解析ERC1155 ABI失败: %w", err)
	}

	return &AuthorizationService{
		client:            c,
		privateKey:        privateKey,
		chainID:           big.NewInt(int64(chain)),
		usdc:              common.HexToAddress(cfg.Collateral),
		conditionalTokens: common.HexToAddress(cfg.ConditionalTokens),
		targets: []approvalTarget{
			{name: "CTF Exchange", address: common.HexToAddress(cfg.Exchange), erc20: true, erc1155: true},
			{name: "Neg Risk CTF Exchange", address: common.HexToAddress(cfg.NegRiskExchange), erc20: true, erc1155: true},
			{name: "Neg Risk Adapter", address: common.HexToAddress(cfg.NegRiskAdapter), erc20: true, erc1155: true},
			{name: "Conditional Tokens", address: common.HexToAddress(cfg.ConditionalTokens), erc20: true},
		},
		erc20ABI:   a20,
		erc1155ABI: a1155,
	}, nil
}

func (s *AuthorizationService) walletAddress() common.Address {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey)
}

// callView 只读合约调用并解包单返回值
func (s *AuthorizationService) callView(ctx context.Context, contract common.Address, a abi.ABI, method string, out interface{}, args ...interface{}) error {
	data, err := a.Pack(method, args...)
	if err != nil {
		return err
	}
	raw, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	return a.UnpackIntoInterface(out, method, raw)
}

func (s *AuthorizationService) usdcBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	var bal *big.Int
	if err := s.callView(ctx, s.usdc, s.erc20ABI, "balanceOf", &bal, owner); err != nil {
		return nil, err
	}
	return bal, nil
}

func (s *AuthorizationService) usdcAllowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := s.callView(ctx, s.usdc, s.erc20ABI, "allowance", &allowance, owner, spender); err != nil {
		return nil, err
	}
	return allowance, nil
}

func (s *AuthorizationService) operatorApproved(ctx context.Context, owner, operator common.Address) (bool, error) {
	var ok bool
	if err := s.callView(ctx, s.conditionalTokens, s.erc1155ABI, "isApprovedForAll", &ok, owner, operator); err != nil {
		return false, err
	}
	return ok, nil
}

// CheckAllowances 汇总每个授权对象的 USDC allowance 与 ERC1155
// operator 状态。全部就绪时 TradingReady 为 true。
func (s *AuthorizationService) CheckAllowances(ctx context.Context) (*AllowancesResult, error) {
	wallet := s.walletAddress()

	bal, err := s.usdcBalance(ctx, wallet)
	if err != nil {
		return nil, err
	}

	res := &AllowancesResult{
		Wallet:      wallet.Hex(),
		UsdcBalance: formatUnits6(bal),
	}

	for _, tg := range s.targets {
		if tg.erc20 {
			allowance, err := s.usdcAllowance(ctx, wallet, tg.address)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", tg.name, err)
			}
			info := AllowanceInfo{Contract: tg.name, Address: tg.address.Hex(), Approved: isUnlimitedAllowance(allowance)}
			if info.Approved {
				info.Allowance = "unlimited"
			} else {
				info.Allowance = formatUnits6(allowance)
				res.Issues = append(res.Issues, "ERC20: "+tg.name+" 缺少 USDC 授权")
			}
			res.Erc20Allowances = append(res.Erc20Allowances, info)
		}
		if tg.erc1155 {
			ok, err := s.operatorApproved(ctx, wallet, tg.address)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", tg.name, err)
			}
			res.Erc1155Approvals = append(res.Erc1155Approvals, AllowanceInfo{Contract: tg.name, Address: tg.address.Hex(), Approved: ok})
			if !ok {
				res.Issues = append(res.Issues, "ERC1155: "+tg.name+" 缺少仓位代币授权")
			}
		}
	}

	res.TradingReady = len(res.Issues) == 0
	return res, nil
}

// ApproveAll 补齐缺失的授权：USDC 按最大额度 approve，
// 仓位代币 setApprovalForAll。已就绪的对象跳过，不重复发交易。
// 会产生链上交易并消耗 gas，调用方需确认后再执行。
func (s *AuthorizationService) ApproveAll(ctx context.Context) (*ApprovalsResult, error) {
	wallet := s.walletAddress()
	res := &ApprovalsResult{Wallet: wallet.Hex(), AllApproved: true}

	for _, tg := range s.targets {
		if tg.erc20 {
			res.Erc20Approvals = append(res.Erc20Approvals, s.ensureERC20(ctx, wallet, tg))
		}
		if tg.erc1155 {
			res.Erc1155Approvals = append(res.Erc1155Approvals, s.ensureERC1155(ctx, wallet, tg))
		}
	}

	failed := 0
	for _, r := range append(append([]ApprovalTxResult{}, res.Erc20Approvals...), res.Erc1155Approvals...) {
		if !r.Success {
			failed++
		}
	}
	res.AllApproved = failed == 0
	if res.AllApproved {
		res.Summary = "全部授权已就绪"
	} else {
		res.Summary = fmt.Sprintf("%d 笔授权交易失败", failed)
	}
	return res, nil
}

func (s *AuthorizationService) ensureERC20(ctx context.Context, wallet common.Address, tg approvalTarget) ApprovalTxResult {
	if allowance, err := s.usdcAllowance(ctx, wallet, tg.address); err == nil && isUnlimitedAllowance(allowance) {
		return ApprovalTxResult{Contract: tg.name, Success: true}
	}

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	data, err := s.erc20ABI.Pack("approve", tg.address, max)
	if err != nil {
		return ApprovalTxResult{Contract: tg.name, Error: err.Error()}
	}
	txHash, err := s.submitTx(ctx, s.usdc, data)
	if err != nil {
		return ApprovalTxResult{Contract: tg.name, Error: err.Error()}
	}
	return ApprovalTxResult{Contract: tg.name, Success: true, TxHash: txHash.Hex()}
}

func (s *AuthorizationService) ensureERC1155(ctx context.Context, wallet common.Address, tg approvalTarget) ApprovalTxResult {
	if ok, err := s.operatorApproved(ctx, wallet, tg.address); err == nil && ok {
		return ApprovalTxResult{Contract: tg.name, Success: true}
	}

	data, err := s.erc1155ABI.Pack("setApprovalForAll", tg.address, true)
	if err != nil {
		return ApprovalTxResult{Contract: tg.name, Error: err.Error()}
	}
	txHash, err := s.submitTx(ctx, s.conditionalTokens, data)
	if err != nil {
		return ApprovalTxResult{Contract: tg.name, Error: err.Error()}
	}
	return ApprovalTxResult{Contract: tg.name, Success: true, TxHash: txHash.Hex()}
}

// submitTx 构造、签名并广播一笔合约调用交易
func (s *AuthorizationService) submitTx(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	from := s.walletAddress()
	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("获取nonce失败: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("获取gas价格失败: %w", err)
	}
	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		// 部分节点对 approve 的估算不稳定，用保守值兜底
		gasLimit = 120000
	}

	tx := ethtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(s.chainID), s.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("签名交易失败: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// formatUnits6 以 6 位小数格式化 USDC 原始整数，用于展示
func formatUnits6(v *big.Int) string {
	if v == nil {
		return "0"
	}
	whole := new(big.Int).Div(v, big.NewInt(1_000_000))
	frac := new(big.Int).Mod(v, big.NewInt(1_000_000))
	return fmt.Sprintf("%s.%06s", whole.String(), frac.String())
}

// isUnlimitedAllowance 超过 1e12 USDC 视为无限授权
func isUnlimitedAllowance(v *big.Int) bool {
	if v == nil {
		return false
	}
	threshold := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1_000_000_000_000))
	return v.Cmp(threshold) > 0
}
