package txmine_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/mocks"
	"github.com/fanvault/reconciler/internal/txmine"
)

const (
	testAssetContract = "0xCF205808Ed36593aa40a44F10c7f7C2F67d4A4d4"
	testTxHash        = "0x9c2b7a1f2a1d7d2f9f6f0d4f2c1b0a998877665544332211009988776655443f"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// transferSingleLog builds a TransferSingle log the way the asset contract
// emits it: indexed operator/from/to, (id, value) in the data segment.
func transferSingleLog(contract, operator, from, to string, assetID, amount int64) *types.Log {
	data := make([]byte, 64)
	copy(data[0:32], common.LeftPadBytes(big.NewInt(assetID).Bytes(), 32))
	copy(data[32:64], common.LeftPadBytes(big.NewInt(amount).Bytes(), 32))

	return &types.Log{
		Address: common.HexToAddress(contract),
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)")),
			common.BytesToHash(common.HexToAddress(operator).Bytes()),
			common.BytesToHash(common.HexToAddress(from).Bytes()),
			common.BytesToHash(common.HexToAddress(to).Bytes()),
		},
		Data:   data,
		TxHash: common.HexToHash(testTxHash),
	}
}

func TestParseTransferSingle(t *testing.T) {
	log := transferSingleLog(testAssetContract,
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
		7, 2)

	event, ok := txmine.ParseTransferSingle(log, testAssetContract)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333").Hex(), event.To)
	assert.Equal(t, domain.AssetID("7"), event.AssetID)
	assert.Equal(t, int64(2), event.Amount.Int64())
	assert.Equal(t, common.HexToHash(testTxHash).Hex(), event.TxHash)
}

func TestParseTransferSingle_Rejections(t *testing.T) {
	valid := transferSingleLog(testAssetContract,
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
		7, 2)

	_, ok := txmine.ParseTransferSingle(nil, testAssetContract)
	assert.False(t, ok)

	// Emitted by some other contract
	other := *valid
	other.Address = common.HexToAddress("0x9999999999999999999999999999999999999999")
	_, ok = txmine.ParseTransferSingle(&other, testAssetContract)
	assert.False(t, ok)

	// Wrong event signature
	wrongSig := *valid
	wrongSig.Topics = append([]common.Hash{}, valid.Topics...)
	wrongSig.Topics[0] = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	_, ok = txmine.ParseTransferSingle(&wrongSig, testAssetContract)
	assert.False(t, ok)

	// Truncated data segment
	short := *valid
	short.Data = short.Data[:32]
	_, ok = txmine.ParseTransferSingle(&short, testAssetContract)
	assert.False(t, ok)
}

func TestMiner_MineRecipients(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	ledger := mocks.NewMockLedgerClient(ctrl)

	assetID := domain.AssetID("7")
	receipt := &types.Receipt{
		Logs: []*types.Log{
			// Real transfer to the user's wallet
			transferSingleLog(testAssetContract,
				"0x1111111111111111111111111111111111111111",
				"0x0000000000000000000000000000000000000000",
				"0x4444444444444444444444444444444444444444",
				7, 3),
			// Zero-amount event carries no ownership information
			transferSingleLog(testAssetContract,
				"0x1111111111111111111111111111111111111111",
				"0x0000000000000000000000000000000000000000",
				"0x5555555555555555555555555555555555555555",
				7, 0),
			// Different asset id in the same receipt
			transferSingleLog(testAssetContract,
				"0x1111111111111111111111111111111111111111",
				"0x0000000000000000000000000000000000000000",
				"0x6666666666666666666666666666666666666666",
				8, 1),
		},
	}

	store.EXPECT().GetLatestPurchaseTx(gomock.Any(), "user-1", assetID).Return(testTxHash, nil)
	ledger.EXPECT().TransactionReceipt(gomock.Any(), testTxHash).Return(receipt, nil)
	ledger.EXPECT().AssetContract().Return(testAssetContract).AnyTimes()

	miner := txmine.NewMiner(store, ledger, 4)
	defer miner.Close()
	candidates, err := miner.MineRecipients(context.Background(), "user-1", []domain.AssetID{assetID})
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, common.HexToAddress("0x4444444444444444444444444444444444444444").Hex(), candidates[0].Address)
	assert.Equal(t, domain.SourceMinedTx, candidates[0].Source)
	assert.Equal(t, common.HexToHash(testTxHash).Hex(), candidates[0].TxHash)
}

func TestMiner_MineRecipients_SkipsMissingAndFailing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	ledger := mocks.NewMockLedgerClient(ctrl)

	// No purchase history for asset 1
	store.EXPECT().GetLatestPurchaseTx(gomock.Any(), "user-1", domain.AssetID("1")).
		Return("", domain.ErrRecordNotFound)
	// Receipt fetch fails for asset 2
	store.EXPECT().GetLatestPurchaseTx(gomock.Any(), "user-1", domain.AssetID("2")).
		Return(testTxHash, nil)
	ledger.EXPECT().TransactionReceipt(gomock.Any(), testTxHash).
		Return(nil, errors.New("not found"))

	miner := txmine.NewMiner(store, ledger, 4)
	defer miner.Close()
	candidates, err := miner.MineRecipients(context.Background(), "user-1", []domain.AssetID{"1", "2"})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestMiner_MineRecipients_MultipleAssets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	ledger := mocks.NewMockLedgerClient(ctrl)

	otherTxHash := "0x1c2b7a1f2a1d7d2f9f6f0d4f2c1b0a998877665544332211009988776655443f"
	store.EXPECT().GetLatestPurchaseTx(gomock.Any(), "user-1", domain.AssetID("7")).
		Return(testTxHash, nil)
	store.EXPECT().GetLatestPurchaseTx(gomock.Any(), "user-1", domain.AssetID("8")).
		Return(otherTxHash, nil)
	ledger.EXPECT().TransactionReceipt(gomock.Any(), testTxHash).Return(&types.Receipt{
		Logs: []*types.Log{
			transferSingleLog(testAssetContract,
				"0x1111111111111111111111111111111111111111",
				"0x0000000000000000000000000000000000000000",
				"0x4444444444444444444444444444444444444444",
				7, 3),
		},
	}, nil)
	ledger.EXPECT().TransactionReceipt(gomock.Any(), otherTxHash).Return(&types.Receipt{
		Logs: []*types.Log{
			transferSingleLog(testAssetContract,
				"0x1111111111111111111111111111111111111111",
				"0x0000000000000000000000000000000000000000",
				"0x5555555555555555555555555555555555555555",
				8, 1),
		},
	}, nil)
	ledger.EXPECT().AssetContract().Return(testAssetContract).AnyTimes()

	miner := txmine.NewMiner(store, ledger, 4)
	defer miner.Close()
	candidates, err := miner.MineRecipients(context.Background(), "user-1", []domain.AssetID{"7", "8"})
	require.NoError(t, err)

	// Receipts are fetched concurrently but results keep asset id order
	require.Len(t, candidates, 2)
	assert.Equal(t, common.HexToAddress("0x4444444444444444444444444444444444444444").Hex(), candidates[0].Address)
	assert.Equal(t, common.HexToAddress("0x5555555555555555555555555555555555555555").Hex(), candidates[1].Address)
}
