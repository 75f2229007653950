// Package submit reattaches collected signatures to a transport string and sends the result.
package submit

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
	"github.com/pushchain/svm-multisig/multisigClient/txcodec"
)

// Sender broadcasts a fully signed transaction and waits for confirmation.
type Sender interface {
	SendAndConfirmTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Service assembles and submits signed transactions. It never retries.
type Service struct {
	sender  Sender
	timeout time.Duration
	logger  zerolog.Logger
}

// NewService creates a submission service. timeout bounds send plus confirmation; zero means no bound.
func NewService(sender Sender, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		sender:  sender,
		timeout: timeout,
		logger:  logger.With().Str("component", "submission_service").Logger(),
	}
}

// Submit decodes transport, checks that signatures line up one-to-one with the message's
// required signers, and sends the transaction.
func (s *Service) Submit(ctx context.Context, transport string, signatures []solana.Signature) (solana.Signature, error) {
	msg, err := txcodec.Decode(transport)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := Assemble(msg, signatures)
	if err != nil {
		return solana.Signature{}, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info().
		Int("signatures", len(signatures)).
		Str("nonce", txcodec.NonceValue(msg).String()).
		Msg("submitting transaction")

	sig, err := s.sender.SendAndConfirmTransaction(ctx, tx)
	if err != nil {
		return sig, msigerrors.WrapMultisigError(err, msigerrors.ErrCodeSubmission, "failed to submit transaction")
	}
	s.logger.Info().Str("signature", sig.String()).Msg("transaction confirmed")
	return sig, nil
}

// Assemble verifies each signature against the signer at the same position and attaches them.
func Assemble(msg *solana.Message, signatures []solana.Signature) (*solana.Transaction, error) {
	signers := txcodec.Signers(msg)
	if len(signatures) != len(signers) {
		return nil, msigerrors.NewSubmissionError("signature count mismatch", nil).
			WithContext("expected", len(signers)).
			WithContext("got", len(signatures))
	}

	raw, err := msg.MarshalBinary()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to serialize message", err)
	}
	for i, key := range signers {
		if !signatures[i].Verify(key, raw) {
			return nil, msigerrors.NewSubmissionError(
				fmt.Sprintf("signature %d does not verify against its signer", i), nil).
				WithContext("position", i).
				WithContext("signer", key.String())
		}
	}
	return txcodec.Assemble(msg, signatures), nil
}
