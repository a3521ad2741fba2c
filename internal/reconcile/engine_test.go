package reconcile_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanvault/reconciler/internal/adapter"
	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/mocks"
	"github.com/fanvault/reconciler/internal/reconcile"
)

type engineMocks struct {
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	resolver *mocks.MockResolver
	deriver  *mocks.MockDeriver
	miner    *mocks.MockMiner
	ledger   *mocks.MockLedgerClient
	rates    *mocks.MockRatesClient
	engine   reconcile.Engine
}

func setupEngine(t *testing.T) *engineMocks {
	ctrl := gomock.NewController(t)
	em := &engineMocks{
		ctrl:     ctrl,
		store:    mocks.NewMockStore(ctrl),
		resolver: mocks.NewMockResolver(ctrl),
		deriver:  mocks.NewMockDeriver(ctrl),
		miner:    mocks.NewMockMiner(ctrl),
		ledger:   mocks.NewMockLedgerClient(ctrl),
		rates:    mocks.NewMockRatesClient(ctrl),
	}

	builder := reconcile.NewCandidateBuilder(em.store, em.resolver, em.deriver, em.miner)
	fanOut := reconcile.NewFanOut(em.ledger, 4, 1000)
	enricher := reconcile.NewEnricher(em.ledger, em.rates, "")
	em.engine = reconcile.NewEngine(builder, fanOut, enricher, adapter.NewClock(), 5)

	t.Cleanup(func() {
		em.engine.Close()
		ctrl.Finish()
	})
	return em
}

func TestEngine_Reconcile_MinedRecipient(t *testing.T) {
	em := setupEngine(t)

	assetIDs := []domain.AssetID{"7"}

	// The user's only discoverable wallet comes out of a historical
	// purchase receipt, not out of records or derivation
	em.store.EXPECT().GetWalletAddresses(gomock.Any(), "user-1").Return(nil, nil).AnyTimes()
	em.resolver.EXPECT().ResolveOwner(gomock.Any(), "user-1").Return("", false).AnyTimes()
	em.miner.EXPECT().MineRecipients(gomock.Any(), "user-1", assetIDs).Return([]domain.Candidate{
		{Address: minedAddr, Source: domain.SourceMinedTx},
	}, nil).AnyTimes()
	em.ledger.EXPECT().BalanceOf(gomock.Any(), minedAddr, domain.AssetID("7")).
		Return(big.NewInt(3), nil).AnyTimes()

	result, err := em.engine.Reconcile(context.Background(), reconcile.Request{
		UserID:   "user-1",
		AssetIDs: assetIDs,
	})
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, domain.SourceMinedTx, result.Candidates[0].Source)

	require.Len(t, result.Balances, 1)
	assert.Equal(t, int64(3), result.Balances[0].Total.Int64())
	assert.Equal(t, []string{minedAddr}, result.Balances[0].HoldingAddresses)
	assert.Nil(t, result.Balances[0].Metadata)
}

func TestEngine_Reconcile_SumsAndSortsHolders(t *testing.T) {
	em := setupEngine(t)

	em.ledger.EXPECT().BalanceOf(gomock.Any(), gomock.Any(), domain.AssetID("7")).
		DoAndReturn(func(_ context.Context, address string, _ domain.AssetID) (*big.Int, error) {
			switch address {
			case seedAddr:
				return big.NewInt(2), nil
			case storedAddr:
				return big.NewInt(5), nil
			default:
				return big.NewInt(0), nil
			}
		}).AnyTimes()
	em.store.EXPECT().GetWalletAddresses(gomock.Any(), "user-1").
		Return([]string{storedAddr, eoaAddr}, nil).AnyTimes()
	em.resolver.EXPECT().ResolveOwner(gomock.Any(), "user-1").Return("", false).AnyTimes()
	em.miner.EXPECT().MineRecipients(gomock.Any(), "user-1", gomock.Any()).Return(nil, nil).AnyTimes()

	result, err := em.engine.Reconcile(context.Background(), reconcile.Request{
		UserID:      "user-1",
		SeedAddress: seedAddr,
		AssetIDs:    []domain.AssetID{"7"},
	})
	require.NoError(t, err)

	require.Len(t, result.Balances, 1)
	balance := result.Balances[0]
	assert.Equal(t, int64(7), balance.Total.Int64())
	// Holders come back lexicographically sorted regardless of completion order
	assert.Equal(t, []string{seedAddr, storedAddr}, balance.HoldingAddresses)
}

func TestEngine_Reconcile_Idempotent(t *testing.T) {
	em := setupEngine(t)

	em.store.EXPECT().GetWalletAddresses(gomock.Any(), "user-1").
		Return([]string{storedAddr}, nil).AnyTimes()
	em.resolver.EXPECT().ResolveOwner(gomock.Any(), "user-1").Return("", false).AnyTimes()
	em.miner.EXPECT().MineRecipients(gomock.Any(), "user-1", gomock.Any()).Return(nil, nil).AnyTimes()
	em.ledger.EXPECT().BalanceOf(gomock.Any(), storedAddr, domain.AssetID("7")).
		Return(big.NewInt(9), nil).AnyTimes()

	request := reconcile.Request{UserID: "user-1", AssetIDs: []domain.AssetID{"7"}}

	first, err := em.engine.Reconcile(context.Background(), request)
	require.NoError(t, err)
	second, err := em.engine.Reconcile(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, first.Candidates, second.Candidates)
	require.Len(t, second.Balances, 1)
	assert.Equal(t, first.Balances[0].Total.String(), second.Balances[0].Total.String())
	assert.Equal(t, first.Balances[0].HoldingAddresses, second.Balances[0].HoldingAddresses)
}

func TestEngine_Reconcile_WithMetadata(t *testing.T) {
	em := setupEngine(t)

	assetID := domain.AssetID("7")
	em.store.EXPECT().GetWalletAddresses(gomock.Any(), "user-1").
		Return([]string{storedAddr}, nil).AnyTimes()
	em.resolver.EXPECT().ResolveOwner(gomock.Any(), "user-1").Return("", false).AnyTimes()
	em.miner.EXPECT().MineRecipients(gomock.Any(), "user-1", gomock.Any()).Return(nil, nil).AnyTimes()
	em.ledger.EXPECT().BalanceOf(gomock.Any(), storedAddr, assetID).
		Return(big.NewInt(1), nil).AnyTimes()
	em.ledger.EXPECT().TotalSupply(gomock.Any(), assetID).Return(big.NewInt(50), nil)
	em.ledger.EXPECT().BuyPriceAfterFee(gomock.Any(), assetID, big.NewInt(1)).
		Return(big.NewInt(0), nil)
	em.rates.EXPECT().ETHUSD(gomock.Any()).Return(3000.0, nil)

	result, err := em.engine.Reconcile(context.Background(), reconcile.Request{
		UserID:       "user-1",
		AssetIDs:     []domain.AssetID{assetID},
		WithMetadata: true,
	})
	require.NoError(t, err)

	require.Len(t, result.Balances, 1)
	require.NotNil(t, result.Balances[0].Metadata)
	assert.Equal(t, int64(50), result.Balances[0].Metadata.TotalSupply.Int64())
}

func TestEngine_Reconcile_AllQueriesFail(t *testing.T) {
	em := setupEngine(t)

	em.store.EXPECT().GetWalletAddresses(gomock.Any(), "user-1").
		Return([]string{storedAddr, eoaAddr}, nil).AnyTimes()
	em.resolver.EXPECT().ResolveOwner(gomock.Any(), "user-1").Return("", false).AnyTimes()
	em.miner.EXPECT().MineRecipients(gomock.Any(), "user-1", gomock.Any()).Return(nil, nil).AnyTimes()
	em.ledger.EXPECT().BalanceOf(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("endpoint unavailable")).AnyTimes()

	result, err := em.engine.Reconcile(context.Background(), reconcile.Request{
		UserID:   "user-1",
		AssetIDs: []domain.AssetID{"7", "8"},
	})
	require.NoError(t, err)

	// Total query failure still answers every requested asset with zero
	require.Len(t, result.Balances, 2)
	for i, assetID := range []domain.AssetID{"7", "8"} {
		assert.Equal(t, assetID, result.Balances[i].AssetID)
		assert.Equal(t, int64(0), result.Balances[i].Total.Int64())
		assert.Empty(t, result.Balances[i].HoldingAddresses)
	}
}

func TestEngine_Reconcile_SupersetMonotonicity(t *testing.T) {
	em := setupEngine(t)

	// Every candidate holds 1 unit; a larger candidate set can only grow
	// the reconciled total
	em.ledger.EXPECT().BalanceOf(gomock.Any(), gomock.Any(), domain.AssetID("7")).
		Return(big.NewInt(1), nil).AnyTimes()
	em.store.EXPECT().GetWalletAddresses(gomock.Any(), "user-1").
		Return([]string{storedAddr, eoaAddr}, nil).AnyTimes()
	em.resolver.EXPECT().ResolveOwner(gomock.Any(), "user-1").Return("", false).AnyTimes()
	em.miner.EXPECT().MineRecipients(gomock.Any(), "user-1", gomock.Any()).Return(nil, nil).AnyTimes()

	smaller, err := em.engine.Reconcile(context.Background(), reconcile.Request{
		SeedAddress: seedAddr,
		AssetIDs:    []domain.AssetID{"7"},
	})
	require.NoError(t, err)

	larger, err := em.engine.Reconcile(context.Background(), reconcile.Request{
		UserID:      "user-1",
		SeedAddress: seedAddr,
		AssetIDs:    []domain.AssetID{"7"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), smaller.Balances[0].Total.Int64())
	assert.Equal(t, int64(3), larger.Balances[0].Total.Int64())
	assert.Greater(t, larger.Balances[0].Total.Int64(), smaller.Balances[0].Total.Int64())
}
