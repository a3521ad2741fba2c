package reconcile

import (
	"context"
	"math/big"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/providers/ethereum"
)

// FanOut issues the (candidate, asset id) balance queries concurrently,
// paced by a request-per-second limiter shared across the pool. Any query
// that still fails after the client's endpoint failover yields a zero
// balance for that pair only.
type FanOut interface {
	// QueryBalances returns one record per (candidate, asset id) pair,
	// in deterministic pair order
	QueryBalances(ctx context.Context, candidates []domain.Candidate, assetIDs []domain.AssetID) []domain.BalanceRecord

	// Close releases the underlying worker pool
	Close()
}

type fanOut struct {
	ledger  ethereum.LedgerClient
	pool    pond.ResultPool[domain.BalanceRecord]
	limiter *rate.Limiter
}

// NewFanOut creates a balance query fan-out with a bounded worker pool and
// a shared pacing limiter
func NewFanOut(ledger ethereum.LedgerClient, poolSize int, requestsPerSecond float64) FanOut {
	if poolSize <= 0 {
		poolSize = 20
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 25
	}
	return &fanOut{
		ledger:  ledger,
		pool:    pond.NewResultPool[domain.BalanceRecord](poolSize),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), poolSize),
	}
}

// QueryBalances fans out one balance query per (candidate, asset id) pair
func (f *fanOut) QueryBalances(ctx context.Context, candidates []domain.Candidate, assetIDs []domain.AssetID) []domain.BalanceRecord {
	group := f.pool.NewGroupContext(ctx)
	for _, candidate := range candidates {
		for _, assetID := range assetIDs {
			address, assetID := candidate.Address, assetID
			group.SubmitErr(func() (domain.BalanceRecord, error) {
				return f.queryOne(ctx, address, assetID), nil
			})
		}
	}

	records, err := group.Wait()
	if err != nil {
		// Deadline hit mid-flight. Whatever completed is still a valid,
		// degraded answer; missing pairs are reported as zero.
		logger.WarnCtx(ctx, "balance fan-out interrupted",
			zap.Int("completed", len(records)), zap.Error(err))
	}

	return records
}

// queryOne reads a single balance, degrading to zero on failure
func (f *fanOut) queryOne(ctx context.Context, address string, assetID domain.AssetID) domain.BalanceRecord {
	record := domain.BalanceRecord{
		Address: address,
		AssetID: assetID,
		Balance: big.NewInt(0),
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return record
	}

	balance, err := f.ledger.BalanceOf(ctx, address, assetID)
	if err != nil {
		logger.DebugCtx(ctx, "balance query failed, treating as zero",
			zap.String("address", address),
			zap.String("asset_id", assetID.String()),
			zap.Error(err))
		return record
	}

	record.Balance = balance
	return record
}

// Close releases the underlying worker pool
func (f *fanOut) Close() {
	f.pool.StopAndWait()
}
