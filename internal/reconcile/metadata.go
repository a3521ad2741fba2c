package reconcile

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/providers/ethereum"
	"github.com/fanvault/reconciler/internal/providers/rates"
)

// Enricher attaches the optional supply and price metadata to a reconciled
// balance. Enrichment is strictly best-effort: every failure degrades to a
// zero or placeholder value and is noted, never propagated.
type Enricher interface {
	// Enrich fetches supply and price metadata for one asset id. The note
	// is non-empty when any part of the enrichment degraded.
	Enrich(ctx context.Context, assetID domain.AssetID) (*domain.AssetMetadata, string)
}

type enricher struct {
	ledger   ethereum.LedgerClient
	rates    rates.Client
	treasury string
}

// NewEnricher creates a metadata enricher. An empty treasury address
// disables the externally-held-supply adjustment.
func NewEnricher(ledger ethereum.LedgerClient, ratesClient rates.Client, treasuryAddress string) Enricher {
	if treasuryAddress != "" {
		treasuryAddress = domain.NormalizeAddress(treasuryAddress)
	}
	return &enricher{
		ledger:   ledger,
		rates:    ratesClient,
		treasury: treasuryAddress,
	}
}

// Enrich fetches supply and price metadata for one asset id
func (e *enricher) Enrich(ctx context.Context, assetID domain.AssetID) (*domain.AssetMetadata, string) {
	metadata := &domain.AssetMetadata{
		TotalSupply:          big.NewInt(0),
		ExternallyHeldSupply: big.NewInt(0),
	}
	note := ""

	supply, err := e.ledger.TotalSupply(ctx, assetID)
	if err != nil {
		logger.DebugCtx(ctx, "total supply lookup failed",
			zap.String("asset_id", assetID.String()), zap.Error(err))
		note = "metadata degraded"
	} else {
		metadata.TotalSupply = supply
		metadata.ExternallyHeldSupply = e.externallyHeld(ctx, assetID, supply)
	}

	price, err := e.unitPriceUSD(ctx, assetID)
	if err != nil {
		logger.DebugCtx(ctx, "unit price lookup failed",
			zap.String("asset_id", assetID.String()), zap.Error(err))
		note = "metadata degraded"
	} else {
		metadata.UnitPriceUSD = price
	}

	return metadata, note
}

// externallyHeld subtracts the treasury's own balance from total supply,
// floored at zero
func (e *enricher) externallyHeld(ctx context.Context, assetID domain.AssetID, supply *big.Int) *big.Int {
	if e.treasury == "" {
		return new(big.Int).Set(supply)
	}

	treasuryBalance, err := e.ledger.BalanceOf(ctx, e.treasury, assetID)
	if err != nil {
		logger.DebugCtx(ctx, "treasury balance lookup failed",
			zap.String("asset_id", assetID.String()), zap.Error(err))
		return new(big.Int).Set(supply)
	}

	held := new(big.Int).Sub(supply, treasuryBalance)
	if held.Sign() < 0 {
		held.SetInt64(0)
	}
	return held
}

// unitPriceUSD converts a one-unit buy quote from wei to USD using the
// current spot rate
func (e *enricher) unitPriceUSD(ctx context.Context, assetID domain.AssetID) (float64, error) {
	quote, err := e.ledger.BuyPriceAfterFee(ctx, assetID, big.NewInt(1))
	if err != nil {
		return 0, err
	}

	ethUSD, err := e.rates.ETHUSD(ctx)
	if err != nil {
		return 0, err
	}

	quoteEth, _ := new(big.Float).Quo(
		new(big.Float).SetInt(quote),
		new(big.Float).SetInt(big.NewInt(params.Ether)),
	).Float64()

	return quoteEth * ethUSD, nil
}
