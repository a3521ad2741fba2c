package keyvault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"

	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/logger"
	"github.com/fanvault/reconciler/internal/store"
	"github.com/fanvault/reconciler/internal/store/schema"
)

const (
	// derivedKeyLen is the AES-256 key size produced by PBKDF2
	derivedKeyLen = 32
	// minIterations is the floor for the PBKDF2 iteration count
	minIterations = 100000
)

// Resolver recovers a user's externally-owned account address from their
// encrypted key record. The raw key material never leaves this package.
type Resolver interface {
	// ResolveOwner returns the user's checksummed EOA address. ok is false
	// when no key record exists, decryption is not configured, or the
	// record cannot be decrypted; none of these are fatal.
	ResolveOwner(ctx context.Context, userID string) (address string, ok bool)
}

type resolver struct {
	store      store.Store
	secret     []byte
	iterations int
}

// NewResolver creates a key material resolver. An empty secret disables
// EOA resolution entirely.
func NewResolver(st store.Store, secret string, iterations int) Resolver {
	if iterations < minIterations {
		iterations = minIterations
	}
	return &resolver{
		store:      st,
		secret:     []byte(secret),
		iterations: iterations,
	}
}

// ResolveOwner recovers the user's EOA address from their encrypted key record
func (r *resolver) ResolveOwner(ctx context.Context, userID string) (string, bool) {
	if len(r.secret) == 0 {
		logger.DebugCtx(ctx, "key decryption secret not configured, skipping EOA resolution",
			zap.String("user_id", userID))
		return "", false
	}

	record, err := r.store.GetEncryptedKey(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			logger.WarnCtx(ctx, "failed to load encrypted key record",
				zap.String("user_id", userID), zap.Error(err))
		}
		return "", false
	}

	address, err := r.ownerAddress(record)
	if err != nil {
		logger.WarnCtx(ctx, "failed to recover EOA from key record",
			zap.String("user_id", userID), zap.Error(err))
		return "", false
	}

	return address, true
}

// ownerAddress decrypts the record and computes the public address.
// The plaintext key buffer is zeroed before returning.
func (r *resolver) ownerAddress(record *schema.EncryptedKey) (string, error) {
	keyBytes, err := r.decrypt(record)
	if err != nil {
		return "", err
	}
	defer zero(keyBytes)

	privateKey, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return "", fmt.Errorf("invalid key material: %w", err)
	}

	return crypto.PubkeyToAddress(privateKey.PublicKey).Hex(), nil
}

// decrypt derives the symmetric key from the server secret and the record's
// salt, then opens the authenticated payload
func (r *resolver) decrypt(record *schema.EncryptedKey) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(record.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt encoding: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(record.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce encoding: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(record.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}

	derived := pbkdf2.Key(r.secret, salt, r.iterations, derivedKeyLen, sha256.New)
	defer zero(derived)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("unexpected nonce size: %d", len(nonce))
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key record: %w", err)
	}

	return plaintext, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
