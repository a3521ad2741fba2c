package store

import (
	"context"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/store/schema"
)

// Store defines read access to the identity/session and purchase-history
// collaborators. The reconciliation engine never writes through it.
type Store interface {
	// GetWalletAddresses returns the historical wallet addresses recorded
	// for a user, in insertion order. An empty slice is a valid result.
	GetWalletAddresses(ctx context.Context, userID string) ([]string, error)

	// GetEncryptedKey returns the user's encrypted-key record, or
	// domain.ErrRecordNotFound if none exists
	GetEncryptedKey(ctx context.Context, userID string) (*schema.EncryptedKey, error)

	// GetLatestPurchaseTx returns the most recent purchase transaction hash
	// for (user, asset id), or domain.ErrRecordNotFound if none exists
	GetLatestPurchaseTx(ctx context.Context, userID string, assetID domain.AssetID) (string, error)
}
