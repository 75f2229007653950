package signer

import (
	"bytes"
	"crypto/ed25519"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// FileSigner signs with a key loaded once from disk.
type FileSigner struct {
	key solana.PrivateKey
}

var _ Signer = (*FileSigner)(nil)

// LoadFileSigner reads a solana-keygen JSON byte array or a base58 encoded 64-byte secret key.
func LoadFileSigner(path string) (*FileSigner, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, invalidKeyFile(path, err)
	}
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, invalidKeyFile(path, nil)
	}

	var key solana.PrivateKey
	if content[0] == '[' {
		key, err = solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, invalidKeyFile(path, err)
		}
	} else {
		raw, err := base58.Decode(string(content))
		if err != nil {
			return nil, invalidKeyFile(path, err)
		}
		key = solana.PrivateKey(raw)
	}

	if err := checkKeyPair(key); err != nil {
		return nil, invalidKeyFile(path, err)
	}
	return &FileSigner{key: key}, nil
}

// NewFileSigner wraps key material already in memory.
func NewFileSigner(key solana.PrivateKey) (*FileSigner, error) {
	if err := checkKeyPair(key); err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeValidation, "invalid private key", err)
	}
	return &FileSigner{key: key}, nil
}

func checkKeyPair(key solana.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return msigerrors.NewValidationError("secret key must be 64 bytes").WithContext("length", len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], key[ed25519.SeedSize:]) {
		return msigerrors.NewValidationError("public half does not match secret seed")
	}
	return nil
}

func invalidKeyFile(path string, cause error) error {
	return msigerrors.NewMultisigError(msigerrors.ErrCodeValidation, "invalid key file", cause).
		WithContext("path", path)
}

func (s *FileSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *FileSigner) Sign(message []byte) (solana.Signature, error) {
	return s.key.Sign(message)
}

func (s *FileSigner) IsInteractive() bool { return false }

func (s *FileSigner) Close() error { return nil }
