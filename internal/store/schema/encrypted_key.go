package schema

import (
	"time"
)

// EncryptedKey represents the encrypted_keys table - at most one
// authenticated-encryption key record per user. The plaintext key never
// touches this table; salt and nonce are random per record.
type EncryptedKey struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID is the platform user the key belongs to
	UserID string `gorm:"column:user_id;not null;type:text;uniqueIndex"`
	// Salt is the per-record PBKDF2 salt, base64 encoded
	Salt string `gorm:"column:salt;not null;type:text"`
	// Nonce is the per-record AES-GCM nonce, base64 encoded
	Nonce string `gorm:"column:nonce;not null;type:text"`
	// Ciphertext is the AES-GCM payload, base64 encoded
	Ciphertext string `gorm:"column:ciphertext;not null;type:text"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the EncryptedKey model
func (EncryptedKey) TableName() string {
	return "encrypted_keys"
}
