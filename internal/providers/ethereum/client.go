package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/fanvault/reconciler/internal/adapter"
	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
)

// LedgerClient exposes the read-only ledger operations the reconciliation
// engine needs. Every call goes to the primary endpoint first and is retried
// once against the secondary endpoint when the primary signals rate limiting
// or capacity exhaustion. No other retries are performed.
type LedgerClient interface {
	// BalanceOf fetches the balance of one asset id for an owner from the asset contract
	BalanceOf(ctx context.Context, ownerAddress string, assetID domain.AssetID) (*big.Int, error)

	// TotalSupply fetches the contract's recorded total supply for an asset id
	TotalSupply(ctx context.Context, assetID domain.AssetID) (*big.Int, error)

	// BuyPriceAfterFee quotes the cost of buying amount units of an asset id,
	// in wei, used as a price proxy
	BuyPriceAfterFee(ctx context.Context, assetID domain.AssetID, amount *big.Int) (*big.Int, error)

	// Call performs a read-only call against an arbitrary contract.
	// Used by the counterfactual deriver for factory prediction methods.
	Call(ctx context.Context, contractAddress string, data []byte) ([]byte, error)

	// TransactionReceipt fetches the receipt of a mined transaction
	TransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)

	// AssetContract returns the configured asset contract address
	AssetContract() string

	// Close closes the underlying connections
	Close()
}

type ledgerClient struct {
	assetContract string
	primary       adapter.EthClient
	secondary     adapter.EthClient // may be nil
}

// NewClient creates a ledger client over a primary and an optional secondary endpoint
func NewClient(assetContract string, primary, secondary adapter.EthClient) LedgerClient {
	return &ledgerClient{
		assetContract: domain.NormalizeAddress(assetContract),
		primary:       primary,
		secondary:     secondary,
	}
}

// IsRateLimited checks if the error is a rate-limit or capacity signal
// from an RPC provider
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "capacity exceeded") ||
		strings.Contains(errStr, "compute units")
}

// callContract issues a read-only call with the primary/secondary failover policy
func (c *ledgerClient) callContract(ctx context.Context, msg goethereum.CallMsg) ([]byte, error) {
	result, err := c.primary.CallContract(ctx, msg, nil)
	if err == nil {
		return result, nil
	}

	if !IsRateLimited(err) || c.secondary == nil {
		return nil, err
	}

	logger.WarnCtx(ctx, "primary endpoint rate limited, retrying on secondary",
		zap.String("to", msg.To.Hex()),
		zap.Error(err))

	return c.secondary.CallContract(ctx, msg, nil)
}

// Call performs a read-only call against an arbitrary contract
func (c *ledgerClient) Call(ctx context.Context, contractAddress string, data []byte) ([]byte, error) {
	to := common.HexToAddress(contractAddress)
	return c.callContract(ctx, goethereum.CallMsg{
		To:   &to,
		Data: data,
	})
}

// BalanceOf fetches the balance of one asset id for an owner from the asset contract
func (c *ledgerClient) BalanceOf(ctx context.Context, ownerAddress string, assetID domain.AssetID) (*big.Int, error) {
	// balanceOf(address,uint256) returns (uint256)
	balanceOfABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	id, ok := assetID.BigInt()
	if !ok {
		return nil, fmt.Errorf("invalid asset id: %s", assetID)
	}

	data, err := balanceOfABI.Pack("balanceOf", common.HexToAddress(ownerAddress), id)
	if err != nil {
		return nil, fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := c.Call(ctx, c.assetContract, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call contract: %w", err)
	}

	var balance *big.Int
	if err := balanceOfABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	return balance, nil
}

// TotalSupply fetches the contract's recorded total supply for an asset id
func (c *ledgerClient) TotalSupply(ctx context.Context, assetID domain.AssetID) (*big.Int, error) {
	// totalSupply(uint256) returns (uint256)
	totalSupplyABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"id","type":"uint256"}],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	id, ok := assetID.BigInt()
	if !ok {
		return nil, fmt.Errorf("invalid asset id: %s", assetID)
	}

	data, err := totalSupplyABI.Pack("totalSupply", id)
	if err != nil {
		return nil, fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := c.Call(ctx, c.assetContract, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call contract: %w", err)
	}

	var supply *big.Int
	if err := totalSupplyABI.UnpackIntoInterface(&supply, "totalSupply", result); err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	return supply, nil
}

// BuyPriceAfterFee quotes the cost of buying amount units of an asset id in wei
func (c *ledgerClient) BuyPriceAfterFee(ctx context.Context, assetID domain.AssetID, amount *big.Int) (*big.Int, error) {
	// getBuyPriceAfterFee(uint256,uint256) returns (uint256)
	priceABI, err := abi.JSON(strings.NewReader(`[{"constant":true,"inputs":[{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"name":"getBuyPriceAfterFee","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	id, ok := assetID.BigInt()
	if !ok {
		return nil, fmt.Errorf("invalid asset id: %s", assetID)
	}

	data, err := priceABI.Pack("getBuyPriceAfterFee", id, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack data: %w", err)
	}

	result, err := c.Call(ctx, c.assetContract, data)
	if err != nil {
		return nil, fmt.Errorf("failed to call contract: %w", err)
	}

	var price *big.Int
	if err := priceABI.UnpackIntoInterface(&price, "getBuyPriceAfterFee", result); err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	return price, nil
}

// TransactionReceipt fetches the receipt of a mined transaction with the failover policy
func (c *ledgerClient) TransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	hash := common.HexToHash(txHash)

	receipt, err := c.primary.TransactionReceipt(ctx, hash)
	if err == nil {
		return receipt, nil
	}

	if !IsRateLimited(err) || c.secondary == nil {
		return nil, err
	}

	logger.WarnCtx(ctx, "primary endpoint rate limited fetching receipt, retrying on secondary",
		zap.String("tx_hash", txHash),
		zap.Error(err))

	return c.secondary.TransactionReceipt(ctx, hash)
}

// AssetContract returns the configured asset contract address
func (c *ledgerClient) AssetContract() string {
	return c.assetContract
}

// Close closes the underlying connections
func (c *ledgerClient) Close() {
	c.primary.Close()
	if c.secondary != nil {
		c.secondary.Close()
	}
}
