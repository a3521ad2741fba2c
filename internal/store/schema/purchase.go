package schema

import (
	"time"
)

// Purchase represents the purchases table - an append-only log of prior
// purchase transactions, recorded at purchase time and only read here
type Purchase struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID is the purchasing user
	UserID string `gorm:"column:user_id;not null;type:text;index:idx_purchases_user_asset,priority:1"`
	// AssetID is the purchased support-asset id (decimal string)
	AssetID string `gorm:"column:asset_id;not null;type:text;index:idx_purchases_user_asset,priority:2"`
	// TxHash is the purchase transaction hash
	TxHash string `gorm:"column:tx_hash;not null;type:text"`
	// CreatedAt is the timestamp when this purchase was recorded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Purchase model
func (Purchase) TableName() string {
	return "purchases"
}
