package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/simgym/pkg/domain"
	"github.com/aretw0/simgym/pkg/ports"
)

// envelopeKey marks the single record that carries an encrypted episode.
const envelopeKey = "__encrypted__"

// ErrNotEncrypted is returned when a stored episode has no encrypted envelope.
var ErrNotEncrypted = errors.New("episode is missing encrypted data envelope")

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
	next   ports.ExperienceStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores each episode as one
// AES-GCM encrypted envelope record.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("%w: active key must be 32 bytes (AES-256)", domain.ErrInvalidConfig)
	}
	return func(next ports.ExperienceStore) ports.ExperienceStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, episode int, records []domain.Experience) error {
	if records == nil {
		records = []domain.Experience{}
	}
	plainText, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal episode %d: %w", episode, err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt episode %d: %w", episode, err)
	}

	// The envelope hides every transition; only the episode number stays visible.
	envelope := []domain.Experience{{
		State: map[string]any{envelopeKey: base64.StdEncoding.EncodeToString(ciphertext)},
	}}
	return m.next.Save(ctx, episode, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, episode int) ([]domain.Experience, error) {
	envelope, err := m.next.Load(ctx, episode)
	if err != nil {
		return nil, err
	}

	encoded, ok := envelopeData(envelope)
	if !ok {
		// Fail secure: plain episodes are not returned through an encrypted store.
		return nil, fmt.Errorf("episode %d: %w", episode, ErrNotEncrypted)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt episode %d: %w", episode, err)
	}

	var records []domain.Experience
	if err := json.Unmarshal(plainText, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted episode %d: %w", episode, err)
	}
	if records == nil {
		records = []domain.Experience{}
	}
	return records, nil
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]int, error) {
	return m.next.List(ctx)
}

func envelopeData(records []domain.Experience) (string, bool) {
	if len(records) != 1 {
		return "", false
	}
	state, ok := records[0].State.(map[string]any)
	if !ok {
		return "", false
	}
	encoded, ok := state[envelopeKey].(string)
	return encoded, ok
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
	// Try active key first
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
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
