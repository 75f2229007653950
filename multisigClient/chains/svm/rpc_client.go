package svm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

const defaultPollInterval = 500 * time.Millisecond

// RPCClient provides the SVM reads and writes the multisig workflow needs against a single endpoint.
type RPCClient struct {
	client       *rpc.Client
	url          string
	commitment   rpc.CommitmentType
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewRPCClient creates a client for url. No network call is made until the first request.
func NewRPCClient(url string, commitment rpc.CommitmentType, logger zerolog.Logger) (*RPCClient, error) {
	if url == "" {
		return nil, msigerrors.NewConfigError("no RPC URL provided")
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &RPCClient{
		client:       rpc.New(url),
		url:          url,
		commitment:   commitment,
		pollInterval: defaultPollInterval,
		logger:       logger.With().Str("component", "svm_rpc_client").Str("url", url).Logger(),
	}, nil
}

// SetPollInterval changes how often confirmation status is polled.
func (rc *RPCClient) SetPollInterval(d time.Duration) {
	if d > 0 {
		rc.pollInterval = d
	}
}

// execute runs fn against the endpoint, logging the operation and its outcome.
func (rc *RPCClient) execute(ctx context.Context, operation string, fn func(*rpc.Client) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn(rc.client)
	ev := rc.logger.Debug().Str("operation", operation).Dur("elapsed", time.Since(start))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("rpc call")
	return err
}

// GetMinimumBalanceForRentExemption returns the lamports needed to keep an account of size bytes alive.
func (rc *RPCClient) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	var lamports uint64
	err := rc.execute(ctx, "get_minimum_balance_for_rent_exemption", func(client *rpc.Client) error {
		var innerErr error
		lamports, innerErr = client.GetMinimumBalanceForRentExemption(ctx, size, rc.commitment)
		return innerErr
	})
	if err != nil {
		return 0, msigerrors.NewRPCError("failed to get rent exemption minimum", err).WithContext("size", size)
	}
	return lamports, nil
}

// GetAccountData fetches the raw account. A missing account yields a NOT_FOUND error naming what.
func (rc *RPCClient) GetAccountData(ctx context.Context, what string, address solana.PublicKey) (*AccountData, error) {
	var out *rpc.GetAccountInfoResult
	err := rc.execute(ctx, "get_account_info", func(client *rpc.Client) error {
		var innerErr error
		out, innerErr = client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rc.commitment,
		})
		return innerErr
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, msigerrors.NewNotFoundError(what, address.String())
		}
		return nil, msigerrors.NewRPCError("failed to get "+what, err).WithContext("address", address.String())
	}
	if out == nil || out.Value == nil {
		return nil, msigerrors.NewNotFoundError(what, address.String())
	}

	var data []byte
	if out.Value.Data != nil {
		data = out.Value.Data.GetBinary()
	}
	return &AccountData{
		Address:  address,
		Owner:    out.Value.Owner,
		Lamports: out.Value.Lamports,
		Data:     data,
	}, nil
}

// GetNonce reads and decodes a durable nonce account.
func (rc *RPCClient) GetNonce(ctx context.Context, address solana.PublicKey) (*NonceAccount, error) {
	acct, err := rc.GetAccountData(ctx, "nonce account", address)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(solana.SystemProgramID) {
		return nil, msigerrors.NewValidationError("nonce account is not owned by the system program").
			WithContext("address", address.String()).
			WithContext("owner", acct.Owner.String())
	}
	nonce, err := DecodeNonceAccount(address, acct.Data)
	if err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeValidation, "invalid nonce account", err).
			WithContext("address", address.String())
	}
	if nonce.State != NonceStateInitialized {
		return nil, msigerrors.NewValidationError("nonce account is not initialized").
			WithContext("address", address.String())
	}
	return nonce, nil
}

// GetTokenAccount reads an SPL token account and the decimals of its mint.
func (rc *RPCClient) GetTokenAccount(ctx context.Context, what string, address solana.PublicKey) (*TokenAccount, error) {
	acct, err := rc.GetAccountData(ctx, what, address)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(solana.TokenProgramID) {
		return nil, msigerrors.NewValidationError(what+" is not an SPL token account").
			WithContext("address", address.String()).
			WithContext("owner", acct.Owner.String())
	}
	mint, owner, amount, err := decodeTokenAccountFields(acct.Data)
	if err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeValidation, "invalid "+what, err).
			WithContext("address", address.String())
	}

	mintAcct, err := rc.GetAccountData(ctx, "mint", mint)
	if err != nil {
		return nil, err
	}
	decimals, err := decodeMintDecimals(mintAcct.Data)
	if err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeValidation, "invalid mint", err).
			WithContext("address", mint.String())
	}

	return &TokenAccount{
		Address:  address,
		Mint:     mint,
		Owner:    owner,
		Amount:   amount,
		Decimals: decimals,
	}, nil
}

// SendAndConfirmTransaction submits tx with preflight at the configured commitment and
// polls its status until that commitment is reached or ctx expires.
func (rc *RPCClient) SendAndConfirmTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, msigerrors.NewSubmissionError("transaction has no signatures", nil)
	}

	var sig solana.Signature
	err := rc.execute(ctx, "send_transaction", func(client *rpc.Client) error {
		var innerErr error
		sig, innerErr = client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rc.commitment,
		})
		return innerErr
	})
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			return solana.Signature{}, msigerrors.NewSubmissionError("transaction rejected", err).
				WithContext("reason", rpcErr.Message)
		}
		return solana.Signature{}, msigerrors.NewRPCError("failed to send transaction", err)
	}

	rc.logger.Info().Str("signature", sig.String()).Msg("transaction sent, waiting for confirmation")
	if err := rc.waitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (rc *RPCClient) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(rc.pollInterval)
	defer ticker.Stop()

	for {
		var out *rpc.GetSignatureStatusesResult
		err := rc.execute(ctx, "get_signature_statuses", func(client *rpc.Client) error {
			var innerErr error
			out, innerErr = client.GetSignatureStatuses(ctx, false, sig)
			return innerErr
		})
		if err != nil && ctx.Err() == nil {
			rc.logger.Warn().Err(err).Str("signature", sig.String()).Msg("failed to fetch signature status")
		}
		if err == nil && out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return msigerrors.NewSubmissionError("transaction failed on-chain", nil).
					WithContext("signature", sig.String()).
					WithContext("reason", fmt.Sprintf("%v", status.Err))
			}
			if commitmentReached(status.ConfirmationStatus, rc.commitment) {
				rc.logger.Info().
					Str("signature", sig.String()).
					Str("status", string(status.ConfirmationStatus)).
					Uint64("slot", status.Slot).
					Msg("transaction confirmed")
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return msigerrors.NewSubmissionError("transaction not confirmed before deadline", ctx.Err()).
				WithContext("signature", sig.String())
		case <-ticker.C:
		}
	}
}

var commitmentRank = map[string]int{
	"processed": 1,
	"confirmed": 2,
	"finalized": 3,
}

func commitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	have := commitmentRank[string(status)]
	return have > 0 && have >= commitmentRank[string(want)]
}
