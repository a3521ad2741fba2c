package wallet

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/providers/ethereum"
)

// Deriver predicts the counterfactual smart-wallet addresses a factory would
// deploy for an owner. Predictions are pure contract reads; a wallet need not
// be deployed for its address to be predicted.
type Deriver interface {
	// Derive returns one candidate per successful (factory, param) prediction
	// for param in [0, maxIndex]. Individual prediction failures are skipped;
	// the call only fails when the context is done.
	Derive(ctx context.Context, ownerAddress string, maxIndex int) ([]domain.Candidate, error)

	// Close releases the underlying worker pool
	Close()
}

type deriver struct {
	ledger    ethereum.LedgerClient
	factories []FactoryDescriptor
	pool      pond.ResultPool[*domain.Candidate]
}

// NewDeriver creates a counterfactual address deriver over the given factory
// descriptors with a bounded worker pool
func NewDeriver(ledger ethereum.LedgerClient, factories []FactoryDescriptor, poolSize int) Deriver {
	if poolSize <= 0 {
		poolSize = len(factories) * (DefaultMaxIndex + 1)
	}
	return &deriver{
		ledger:    ledger,
		factories: factories,
		pool:      pond.NewResultPool[*domain.Candidate](poolSize),
	}
}

// Derive predicts addresses for every (factory, param) combination concurrently
func (d *deriver) Derive(ctx context.Context, ownerAddress string, maxIndex int) ([]domain.Candidate, error) {
	if maxIndex < 0 {
		maxIndex = DefaultMaxIndex
	}

	group := d.pool.NewGroupContext(ctx)
	for _, factory := range d.factories {
		for param := int64(0); param <= int64(maxIndex); param++ {
			factory, param := factory, param
			group.SubmitErr(func() (*domain.Candidate, error) {
				return d.predict(ctx, factory, ownerAddress, param), nil
			})
		}
	}

	results, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to derive wallet addresses: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(results))
	for _, result := range results {
		if result != nil {
			candidates = append(candidates, *result)
		}
	}
	return candidates, nil
}

// predict runs a single factory prediction call. Failures are logged at
// debug level and reported as nil; a factory that reverts for one param may
// still answer for another.
func (d *deriver) predict(ctx context.Context, factory FactoryDescriptor, ownerAddress string, param int64) *domain.Candidate {
	data, err := factory.PredictionCallData(ownerAddress, param)
	if err != nil {
		logger.DebugCtx(ctx, "failed to build prediction calldata",
			zap.String("factory", factory.Name),
			zap.Int64("param", param),
			zap.Error(err))
		return nil
	}

	result, err := d.ledger.Call(ctx, factory.Address, data)
	if err != nil {
		logger.DebugCtx(ctx, "factory prediction call failed",
			zap.String("factory", factory.Name),
			zap.Int64("param", param),
			zap.Error(err))
		return nil
	}

	address, err := UnpackPredictedAddress(result)
	if err != nil {
		logger.DebugCtx(ctx, "failed to decode predicted address",
			zap.String("factory", factory.Name),
			zap.Int64("param", param),
			zap.Error(err))
		return nil
	}

	return &domain.Candidate{
		Address: address,
		Source:  domain.SourceFactory,
		Factory: factory.Name,
		Param:   int(param),
	}
}

// Close releases the underlying worker pool
func (d *deriver) Close() {
	d.pool.StopAndWait()
}
