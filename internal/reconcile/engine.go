package reconcile

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/fanvault/reconciler/internal/adapter"
	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
)

// Request carries one reconciliation request. At least one of UserID and
// SeedAddress must be set, along with the asset ids of interest.
type Request struct {
	UserID       string
	SeedAddress  string
	AssetIDs     []domain.AssetID
	WithMetadata bool
	MaxIndex     int // 0 means the configured default
}

// Result is the outcome of one reconciliation pass: the candidate set that
// was queried and one reconciled balance per requested asset id.
type Result struct {
	Candidates []domain.Candidate
	Balances   []domain.ReconciledBalance
}

// Engine runs the reconciliation pipeline: candidate discovery, balance
// fan-out, per-asset summing, and optional metadata enrichment. Each pass
// is stateless and idempotent; nothing is cached between requests.
type Engine interface {
	Reconcile(ctx context.Context, req Request) (*Result, error)
	Close()
}

type engine struct {
	builder         CandidateBuilder
	fanOut          FanOut
	enricher        Enricher
	clock           adapter.Clock
	defaultMaxIndex int
}

// NewEngine assembles the reconciliation engine from its stages
func NewEngine(builder CandidateBuilder, fanOut FanOut, enricher Enricher, clock adapter.Clock, defaultMaxIndex int) Engine {
	return &engine{
		builder:         builder,
		fanOut:          fanOut,
		enricher:        enricher,
		clock:           clock,
		defaultMaxIndex: defaultMaxIndex,
	}
}

// Reconcile runs one full reconciliation pass. Candidate discovery must
// complete before the fan-out starts: the candidate set is an input to the
// queries, not a stream. A deadline hit mid-pass returns partial results.
func (e *engine) Reconcile(ctx context.Context, req Request) (*Result, error) {
	start := e.clock.Now()

	maxIndex := req.MaxIndex
	if maxIndex <= 0 {
		maxIndex = e.defaultMaxIndex
	}

	var seeds []string
	if req.SeedAddress != "" {
		seeds = append(seeds, req.SeedAddress)
	}

	set, err := e.builder.Build(ctx, CandidateRequest{
		UserID:        req.UserID,
		SeedAddresses: seeds,
		AssetIDs:      req.AssetIDs,
		MaxIndex:      maxIndex,
	})
	if err != nil && set.Len() == 0 {
		return nil, err
	}

	candidates := set.Candidates()
	logger.InfoCtx(ctx, "candidate set assembled",
		zap.String("user_id", req.UserID),
		zap.Int("candidates", set.Len()),
		zap.Int("asset_ids", len(req.AssetIDs)))

	records := e.fanOut.QueryBalances(ctx, candidates, req.AssetIDs)

	result := &Result{
		Candidates: candidates,
		Balances:   e.reconcile(req.AssetIDs, records),
	}

	if req.WithMetadata {
		for i := range result.Balances {
			metadata, note := e.enricher.Enrich(ctx, result.Balances[i].AssetID)
			result.Balances[i].Metadata = metadata
			result.Balances[i].Err = note
		}
	}

	logger.InfoCtx(ctx, "reconciliation pass completed",
		zap.String("user_id", req.UserID),
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("duration", e.clock.Since(start)))

	return result, nil
}

// reconcile sums balance records per asset id, in request order, and
// collects the candidates actually holding a nonzero balance
func (e *engine) reconcile(assetIDs []domain.AssetID, records []domain.BalanceRecord) []domain.ReconciledBalance {
	totals := make(map[domain.AssetID]*big.Int, len(assetIDs))
	holders := make(map[domain.AssetID][]string, len(assetIDs))
	for _, assetID := range assetIDs {
		totals[assetID] = big.NewInt(0)
	}

	for _, record := range records {
		total, ok := totals[record.AssetID]
		if !ok || record.Balance == nil {
			continue
		}
		total.Add(total, record.Balance)
		if record.Balance.Sign() > 0 {
			holders[record.AssetID] = append(holders[record.AssetID], record.Address)
		}
	}

	balances := make([]domain.ReconciledBalance, 0, len(assetIDs))
	for _, assetID := range assetIDs {
		balance := domain.ReconciledBalance{
			AssetID:          assetID,
			Total:            totals[assetID],
			HoldingAddresses: holders[assetID],
		}
		balance.SortHoldingAddresses()
		balances = append(balances, balance)
	}
	return balances
}

// Close releases the pipeline's worker pools
func (e *engine) Close() {
	e.fanOut.Close()
}
