package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// envelopePrefix marks an encrypted field.
const envelopePrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	passthrough
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts message content and tool
// arguments using AES-GCM. Roles, senders and timestamps stay in clear text so history
// can still be ordered and attributed by the backend.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.Store) ports.Store {
		return &encryptionMiddleware{
			passthrough: passthrough{next: next},
			config:      config,
		}
	}
}

func (m *encryptionMiddleware) Append(ctx context.Context, sessionID, node string, msgs ...domain.Message) error {
	sealed := cloneAll(msgs)
	err := transform(sealed, func(plain string) (string, error) {
		if plain == "" {
			return "", nil
		}
		ciphertext, err := encrypt([]byte(plain), m.config.ActiveKey)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt message: %w", err)
		}
		return envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
	})
	if err != nil {
		return err
	}
	return m.next.Append(ctx, sessionID, node, sealed...)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID, node string) (domain.MessageTree, error) {
	tree, err := m.next.Load(ctx, sessionID, node)
	if err != nil {
		return nil, err
	}

	err = transform(tree, func(field string) (string, error) {
		if field == "" {
			return "", nil
		}
		encoded, ok := strings.CutPrefix(field, envelopePrefix)
		if !ok {
			// Fail secure: with encryption configured, clear text is never trusted.
			return "", errors.New("message is missing encrypted data envelope")
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt message: %w", err)
		}
		return string(plain), nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
