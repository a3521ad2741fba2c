package schema

import (
	"time"
)

// WalletAddress represents the wallet_addresses table - one historical
// address record per (user, address) known to have belonged to the user
type WalletAddress struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID is the platform user the address belongs to
	UserID string `gorm:"column:user_id;not null;type:text;uniqueIndex:idx_wallet_addresses_user_address,priority:1"`
	// Address is the checksummed ledger address
	Address string `gorm:"column:address;not null;type:text;uniqueIndex:idx_wallet_addresses_user_address,priority:2"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the WalletAddress model
func (WalletAddress) TableName() string {
	return "wallet_addresses"
}
