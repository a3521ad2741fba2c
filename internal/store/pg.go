package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to reasonable defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// GetWalletAddresses returns the historical wallet addresses recorded for a user
func (s *pgStore) GetWalletAddresses(ctx context.Context, userID string) ([]string, error) {
	var records []schema.WalletAddress
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query wallet addresses: %w", err)
	}

	addresses := make([]string, 0, len(records))
	for _, record := range records {
		addresses = append(addresses, record.Address)
	}
	// Stored addresses are not trusted to be checksummed
	return domain.NormalizeAddresses(addresses), nil
}

// GetEncryptedKey returns the user's encrypted-key record
func (s *pgStore) GetEncryptedKey(ctx context.Context, userID string) (*schema.EncryptedKey, error) {
	var record schema.EncryptedKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to query encrypted key: %w", err)
	}
	return &record, nil
}

// GetLatestPurchaseTx returns the most recent purchase transaction hash for (user, asset id)
func (s *pgStore) GetLatestPurchaseTx(ctx context.Context, userID string, assetID domain.AssetID) (string, error) {
	var record schema.Purchase
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND asset_id = ?", userID, assetID.String()).
		Order("created_at DESC, id DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrRecordNotFound
		}
		return "", fmt.Errorf("failed to query purchases: %w", err)
	}
	return record.TxHash, nil
}
