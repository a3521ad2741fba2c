package txmine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/providers/ethereum"
	"github.com/fanvault/reconciler/internal/store"
)

// transferSingleSig is the event signature of the asset contract's
// single-transfer event: TransferSingle(address,address,address,uint256,uint256)
var transferSingleSig = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))

// Miner recovers asset recipient addresses from historical purchase
// transactions. This is the fallback discovery path for wallets created
// before address records were kept, or outside the derivation search range.
type Miner interface {
	// MineRecipients returns the recipients of nonzero transfers of each
	// requested asset id, extracted from the user's most recent purchase
	// receipt for that asset. Assets with no purchase history, missing
	// receipts, or unparseable logs are skipped individually.
	MineRecipients(ctx context.Context, userID string, assetIDs []domain.AssetID) ([]domain.Candidate, error)

	// Close releases the underlying worker pool
	Close()
}

type miner struct {
	store  store.Store
	ledger ethereum.LedgerClient
	pool   pond.ResultPool[[]domain.Candidate]
}

// NewMiner creates a historical recipient miner with a bounded worker pool
func NewMiner(st store.Store, ledger ethereum.LedgerClient, poolSize int) Miner {
	if poolSize <= 0 {
		poolSize = 10
	}
	return &miner{
		store:  st,
		ledger: ledger,
		pool:   pond.NewResultPool[[]domain.Candidate](poolSize),
	}
}

// MineRecipients extracts recipient candidates from purchase receipts,
// fetching the per-asset receipts concurrently. Results keep the requested
// asset id order so the candidate union stays deterministic.
func (m *miner) MineRecipients(ctx context.Context, userID string, assetIDs []domain.AssetID) ([]domain.Candidate, error) {
	group := m.pool.NewGroupContext(ctx)
	for _, assetID := range assetIDs {
		assetID := assetID
		group.SubmitErr(func() ([]domain.Candidate, error) {
			return m.mineAsset(ctx, userID, assetID), nil
		})
	}

	results, err := group.Wait()

	var candidates []domain.Candidate
	for _, mined := range results {
		candidates = append(candidates, mined...)
	}
	if err != nil {
		return candidates, fmt.Errorf("failed to mine purchase receipts: %w", err)
	}
	return candidates, nil
}

// mineAsset recovers the recipients of one asset's latest purchase. Every
// failure is a skip for that asset, never an error.
func (m *miner) mineAsset(ctx context.Context, userID string, assetID domain.AssetID) []domain.Candidate {
	txHash, err := m.store.GetLatestPurchaseTx(ctx, userID, assetID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			logger.WarnCtx(ctx, "failed to look up purchase history",
				zap.String("user_id", userID),
				zap.String("asset_id", assetID.String()),
				zap.Error(err))
		}
		return nil
	}

	events, err := m.mineTransaction(ctx, txHash, assetID)
	if err != nil {
		logger.WarnCtx(ctx, "failed to mine purchase transaction",
			zap.String("tx_hash", txHash),
			zap.String("asset_id", assetID.String()),
			zap.Error(err))
		return nil
	}

	candidates := make([]domain.Candidate, 0, len(events))
	for _, event := range events {
		candidates = append(candidates, domain.Candidate{
			Address: event.To,
			Source:  domain.SourceMinedTx,
			TxHash:  event.TxHash,
		})
	}
	return candidates
}

// Close releases the underlying worker pool
func (m *miner) Close() {
	m.pool.StopAndWait()
}

// mineTransaction fetches a receipt and returns the nonzero transfers of
// assetID emitted by the asset contract
func (m *miner) mineTransaction(ctx context.Context, txHash string, assetID domain.AssetID) ([]domain.TransferEvent, error) {
	receipt, err := m.ledger.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}

	var events []domain.TransferEvent
	for _, log := range receipt.Logs {
		event, ok := ParseTransferSingle(log, m.ledger.AssetContract())
		if !ok {
			continue
		}
		if event.AssetID != assetID {
			continue
		}
		// Zero-amount transfers are approval-style noise, not holdings
		if event.Amount == nil || event.Amount.Sign() == 0 {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// ParseTransferSingle decodes one TransferSingle log emitted by the asset
// contract. Logs from other contracts or with other signatures are rejected.
// Topic layout: [signature, operator, from, to]; data carries (id, value).
func ParseTransferSingle(log *types.Log, assetContract string) (domain.TransferEvent, bool) {
	if log == nil || len(log.Topics) != 4 {
		return domain.TransferEvent{}, false
	}
	if log.Topics[0] != transferSingleSig {
		return domain.TransferEvent{}, false
	}
	if !strings.EqualFold(log.Address.Hex(), assetContract) {
		return domain.TransferEvent{}, false
	}
	if len(log.Data) < 64 {
		return domain.TransferEvent{}, false
	}

	return domain.TransferEvent{
		Operator: common.BytesToAddress(log.Topics[1].Bytes()).Hex(),
		From:     common.BytesToAddress(log.Topics[2].Bytes()).Hex(),
		To:       common.BytesToAddress(log.Topics[3].Bytes()).Hex(),
		AssetID:  domain.AssetID(new(big.Int).SetBytes(log.Data[0:32]).String()),
		Amount:   new(big.Int).SetBytes(log.Data[32:64]),
		TxHash:   log.TxHash.Hex(),
	}, true
}
