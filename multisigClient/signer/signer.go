// Package signer produces ed25519 signatures over serialized transaction messages,
// either from key material on disk or from a Ledger device running the Solana app.
package signer

import (
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/pushchain/svm-multisig/multisigClient/config"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// Signer is the contract shared by key file and hardware signers.
type Signer interface {
	PublicKey() solana.PublicKey
	// Sign returns the signature over the exact message bytes. Interactive
	// signers block until the holder confirms or rejects.
	Sign(message []byte) (solana.Signature, error)
	IsInteractive() bool
	Close() error
}

// Load selects the signer configured by --ledger / --private-key.
func Load(cfg *config.Config, logger zerolog.Logger) (Signer, error) {
	switch {
	case cfg.Ledger:
		return OpenLedger(cfg.AccountNumber, logger)
	case cfg.PrivateKey != "":
		return LoadFileSigner(cfg.PrivateKey)
	default:
		return nil, msigerrors.NewValidationError("private-key is required").
			WithContext("hint", "pass --private-key <file> or --ledger")
	}
}
