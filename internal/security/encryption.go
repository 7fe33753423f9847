package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/vcscsvcscs/swasth-ai/backend/pkg/model"
)

// SealedPrefix marks stored text produced by Seal
const SealedPrefix = "enc:v1:"

// Encryptor seals chat content with AES-256-GCM before it is stored
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with a 32-byte key for AES-256
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}

	return &Encryptor{
		key: key,
	}, nil
}

// NewEncryptorFromPassphrase derives the key from a configured passphrase.
// An empty passphrase returns nil, which disables sealing.
func NewEncryptorFromPassphrase(passphrase string) (*Encryptor, error) {
	if passphrase == "" {
		return nil, nil
	}
	sum := sha256.Sum256([]byte(passphrase))
	return NewEncryptor(sum[:])
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext and returns base64 of nonce||ciphertext
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// Seal encrypts text and tags it with SealedPrefix. A nil Encryptor
// returns text unchanged.
func (e *Encryptor) Seal(text string) (string, error) {
	if e == nil || text == "" {
		return text, nil
	}
	ct, err := e.Encrypt(text)
	if err != nil {
		return "", err
	}
	return SealedPrefix + ct, nil
}

// Open decrypts text produced by Seal. Untagged text is returned as is so
// rows written before sealing was enabled stay readable.
func (e *Encryptor) Open(text string) (string, error) {
	if !strings.HasPrefix(text, SealedPrefix) {
		return text, nil
	}
	if e == nil {
		return "", fmt.Errorf("sealed content found but no content key is configured")
	}
	return e.Decrypt(strings.TrimPrefix(text, SealedPrefix))
}

// SealMessage seals the content of msg
func (e *Encryptor) SealMessage(msg model.Message) (model.Message, error) {
	sealed, err := e.Seal(msg.Content)
	if err != nil {
		return msg, fmt.Errorf("failed to seal message %s: %w", msg.ID, err)
	}
	msg.Content = sealed
	return msg, nil
}

// OpenMessages opens the content of every message in place
func (e *Encryptor) OpenMessages(msgs []model.Message) error {
	for i := range msgs {
		plain, err := e.Open(msgs[i].Content)
		if err != nil {
			return fmt.Errorf("failed to open message %s: %w", msgs[i].ID, err)
		}
		msgs[i].Content = plain
	}
	return nil
}
