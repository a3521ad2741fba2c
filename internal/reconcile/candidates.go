package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/keyvault"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/store"
	"github.com/fanvault/reconciler/internal/txmine"
	"github.com/fanvault/reconciler/internal/wallet"
)

// CandidateBuilder assembles the full set of addresses that may hold a
// user's assets. The union is deterministic: seed addresses first, then
// stored addresses, the resolved EOA, counterfactual derivations for that
// EOA, and finally mined historical recipients. First-seen provenance wins
// on duplicates.
type CandidateBuilder interface {
	// Build assembles the candidate set. An empty set is a valid result,
	// not an error: the user simply has no discoverable address.
	Build(ctx context.Context, req CandidateRequest) (*domain.CandidateSet, error)
}

// CandidateRequest carries the inputs of one candidate-set assembly
type CandidateRequest struct {
	UserID        string
	SeedAddresses []string
	AssetIDs      []domain.AssetID
	MaxIndex      int
}

type candidateBuilder struct {
	store    store.Store
	resolver keyvault.Resolver
	deriver  wallet.Deriver
	miner    txmine.Miner
}

// NewCandidateBuilder creates a candidate set builder over its discovery sources
func NewCandidateBuilder(st store.Store, resolver keyvault.Resolver, deriver wallet.Deriver, miner txmine.Miner) CandidateBuilder {
	return &candidateBuilder{
		store:    st,
		resolver: resolver,
		deriver:  deriver,
		miner:    miner,
	}
}

// Build assembles the candidate set from every discovery source in order.
// Source failures degrade to fewer candidates; only context cancellation
// aborts the assembly.
func (b *candidateBuilder) Build(ctx context.Context, req CandidateRequest) (*domain.CandidateSet, error) {
	set := domain.NewCandidateSet()

	for _, address := range req.SeedAddresses {
		set.Add(domain.Candidate{Address: address, Source: domain.SourceSeed})
	}

	if req.UserID != "" {
		stored, err := b.store.GetWalletAddresses(ctx, req.UserID)
		if err != nil {
			logger.WarnCtx(ctx, "failed to load stored wallet addresses",
				zap.String("user_id", req.UserID), zap.Error(err))
		}
		for _, address := range stored {
			set.Add(domain.Candidate{Address: address, Source: domain.SourceStored})
		}

		if owner, ok := b.resolver.ResolveOwner(ctx, req.UserID); ok {
			set.Add(domain.Candidate{Address: owner, Source: domain.SourceEOA})

			derived, err := b.deriver.Derive(ctx, owner, req.MaxIndex)
			if err != nil {
				if ctx.Err() != nil {
					return set, ctx.Err()
				}
				logger.WarnCtx(ctx, "counterfactual derivation failed",
					zap.String("user_id", req.UserID), zap.Error(err))
			}
			for _, candidate := range derived {
				set.Add(candidate)
			}
		}

		mined, err := b.miner.MineRecipients(ctx, req.UserID, req.AssetIDs)
		if err != nil {
			if ctx.Err() != nil {
				return set, ctx.Err()
			}
			logger.WarnCtx(ctx, "recipient mining failed",
				zap.String("user_id", req.UserID), zap.Error(err))
		}
		for _, candidate := range mined {
			set.Add(candidate)
		}
	}

	return set, nil
}
