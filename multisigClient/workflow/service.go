// Package workflow sequences chain reads, instruction building, message encoding, signing
// and optional submission for each multisig operation.
package workflow

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pushchain/svm-multisig/multisigClient/chains/svm"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
	"github.com/pushchain/svm-multisig/multisigClient/multisig"
	"github.com/pushchain/svm-multisig/multisigClient/signer"
	"github.com/pushchain/svm-multisig/multisigClient/txcodec"
)

// Signer roles reported alongside each required signature.
const (
	RolePayer          = "payer"
	RoleNonceAuthority = "nonce_authority"
	RoleSigner         = "signer"
)

// Chain is everything the workflow reads from the network.
type Chain interface {
	multisig.ChainReader
	GetNonce(ctx context.Context, address solana.PublicKey) (*svm.NonceAccount, error)
}

// Submitter sends a transport string with its collected signatures.
type Submitter interface {
	Submit(ctx context.Context, transport string, signatures []solana.Signature) (solana.Signature, error)
}

// Options carry the per-run nonce and signing choices.
type Options struct {
	NonceAccount solana.PublicKey
	// Nonce skips the nonce account read when set.
	Nonce *solana.Hash
	// NonceAuthority defaults to the payer.
	NonceAuthority solana.PublicKey
	// Payer overrides the configured signer's key as fee payer and operation signer.
	Payer solana.PublicKey
	// Submit signs with the configured signer and submits when every signature is present.
	Submit bool
}

// SignerSlot is one required signature position of a built message.
type SignerSlot struct {
	Position  int    `json:"position"`
	Key       string `json:"key"`
	Role      string `json:"role"`
	Signature string `json:"signature,omitempty"`
}

// Result is the outcome of one workflow run.
type Result struct {
	Operation    string            `json:"operation"`
	Message      *solana.Message   `json:"-"`
	Transport    string            `json:"transport"`
	Nonce        string            `json:"nonce"`
	NonceAccount string            `json:"nonce_account"`
	Signers      []SignerSlot      `json:"signers"`
	Addresses    map[string]string `json:"addresses"`
	Summary      []multisig.Field  `json:"summary"`
	TxID         string            `json:"txid,omitempty"`
}

// Missing returns the signer slots that still have no signature.
func (r *Result) Missing() []SignerSlot {
	var out []SignerSlot
	for _, s := range r.Signers {
		if s.Signature == "" {
			out = append(out, s)
		}
	}
	return out
}

// Service runs multisig operations.
type Service struct {
	chain     Chain
	builder   *multisig.Builder
	signer    signer.Signer
	submitter Submitter
	opts      Options
	onConfirm func(key solana.PublicKey)
	logger    zerolog.Logger
}

// NewService wires a workflow. signer may be nil when Options.Payer is set and Submit is off;
// submitter may be nil when Submit is off.
func NewService(chain Chain, builder *multisig.Builder, s signer.Signer, submitter Submitter, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		chain:     chain,
		builder:   builder,
		signer:    s,
		submitter: submitter,
		opts:      opts,
		logger:    logger.With().Str("component", "multisig_workflow").Logger(),
	}
}

// WithConfirmPrompt registers fn to run before an interactive signer is asked to sign.
func (s *Service) WithConfirmPrompt(fn func(key solana.PublicKey)) *Service {
	s.onConfirm = fn
	return s
}

func (s *Service) payer() (solana.PublicKey, error) {
	if !s.opts.Payer.IsZero() {
		return s.opts.Payer, nil
	}
	if s.signer != nil {
		return s.signer.PublicKey(), nil
	}
	return solana.PublicKey{}, msigerrors.NewValidationError("signer is required").
		WithContext("hint", "pass --signer <pubkey>, --private-key <file> or --ledger")
}

// CreateMultisig builds a transaction creating a multisig owned by owners.
func (s *Service) CreateMultisig(ctx context.Context, owners []solana.PublicKey, threshold uint64) (*Result, error) {
	payer, err := s.payer()
	if err != nil {
		return nil, err
	}
	plan, err := s.builder.CreateMultisig(ctx, owners, threshold, payer)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, plan)
}

// CreateTransaction builds a proposal transferring amount tokens from one token account to another.
func (s *Service) CreateTransaction(ctx context.Context, ms, from, to solana.PublicKey, amount decimal.Decimal) (*Result, error) {
	payer, err := s.payer()
	if err != nil {
		return nil, err
	}
	plan, err := s.builder.CreateTransaction(ctx, ms, from, to, amount, payer)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, plan)
}

// Approve builds an approval of transaction by the payer.
func (s *Service) Approve(ctx context.Context, ms, transaction solana.PublicKey) (*Result, error) {
	payer, err := s.payer()
	if err != nil {
		return nil, err
	}
	plan, err := s.builder.Approve(ms, transaction, payer)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, plan)
}

// ExecuteTransaction builds the execution of an approved proposal.
func (s *Service) ExecuteTransaction(ctx context.Context, ms, transaction solana.PublicKey, from, to *solana.PublicKey) (*Result, error) {
	payer, err := s.payer()
	if err != nil {
		return nil, err
	}
	plan, err := s.builder.ExecuteTransaction(ctx, ms, transaction, from, to, payer)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, plan)
}

// resolveNonce returns the nonce to anchor to, reading the nonce account unless a value was supplied.
func (s *Service) resolveNonce(ctx context.Context, payer solana.PublicKey) (txcodec.Nonce, error) {
	if s.opts.NonceAccount.IsZero() {
		return txcodec.Nonce{}, msigerrors.NewValidationError("nonce account is required").
			WithContext("hint", "pass --nonce-account <pubkey>")
	}
	authority := s.opts.NonceAuthority
	if authority.IsZero() {
		authority = payer
	}
	if s.opts.Nonce != nil {
		return txcodec.Nonce{Account: s.opts.NonceAccount, Authority: authority, Value: *s.opts.Nonce}, nil
	}

	account, err := s.chain.GetNonce(ctx, s.opts.NonceAccount)
	if err != nil {
		return txcodec.Nonce{}, err
	}
	if !account.Authority.Equals(authority) {
		return txcodec.Nonce{}, msigerrors.NewValidationError("nonce authority does not match the nonce account").
			WithContext("expected", account.Authority.String()).
			WithContext("supplied", authority.String())
	}
	s.logger.Debug().
		Str("nonce_account", s.opts.NonceAccount.String()).
		Str("nonce", account.Nonce.String()).
		Msg("fetched durable nonce")
	return txcodec.Nonce{Account: s.opts.NonceAccount, Authority: authority, Value: account.Nonce}, nil
}

func (s *Service) run(ctx context.Context, plan *multisig.Plan) (*Result, error) {
	nonce, err := s.resolveNonce(ctx, plan.Payer)
	if err != nil {
		return nil, err
	}
	msg, err := txcodec.Build(plan.Instructions, plan.Payer, nonce)
	if err != nil {
		return nil, err
	}
	transport, err := txcodec.Encode(msg)
	if err != nil {
		return nil, err
	}
	raw, err := msg.MarshalBinary()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to serialize message", err)
	}

	result := &Result{
		Operation:    plan.Operation,
		Message:      msg,
		Transport:    transport,
		Nonce:        nonce.Value.String(),
		NonceAccount: nonce.Account.String(),
		Addresses:    make(map[string]string, len(plan.Addresses)),
		Summary:      plan.Summary,
	}
	roles := make(map[solana.PublicKey]string, len(plan.Addresses)+2)
	for role, pk := range plan.Addresses {
		result.Addresses[role] = pk.String()
		roles[pk] = role
	}
	roles[nonce.Authority] = RoleNonceAuthority
	roles[plan.Payer] = RolePayer
	for i, key := range txcodec.Signers(msg) {
		role, ok := roles[key]
		if !ok {
			role = RoleSigner
		}
		result.Signers = append(result.Signers, SignerSlot{Position: i, Key: key.String(), Role: role})
	}

	for _, key := range plan.ExtraSigners {
		sig, err := key.Sign(raw)
		if err != nil {
			return nil, msigerrors.NewInternalError("failed to sign with generated account key", err)
		}
		if err := attach(result, msg, key.PublicKey(), sig); err != nil {
			return nil, err
		}
	}

	if !s.opts.Submit {
		s.logger.Info().
			Str("operation", plan.Operation).
			Int("required_signatures", len(result.Signers)).
			Int("missing_signatures", len(result.Missing())).
			Msg("built unsigned transaction")
		return result, nil
	}

	if err := s.signLocal(result, msg, raw); err != nil {
		return nil, err
	}
	if missing := result.Missing(); len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for _, m := range missing {
			keys = append(keys, fmt.Sprintf("%d:%s", m.Position, m.Key))
		}
		return result, msigerrors.NewValidationError("transaction is missing signatures").
			WithContext("missing", keys)
	}

	sigs := make([]solana.Signature, 0, len(result.Signers))
	for _, slot := range result.Signers {
		sig, err := solana.SignatureFromBase58(slot.Signature)
		if err != nil {
			return nil, msigerrors.NewInternalError("failed to decode collected signature", err)
		}
		sigs = append(sigs, sig)
	}
	if s.submitter == nil {
		return nil, msigerrors.NewInternalError("submission requested without a submitter", nil)
	}
	txid, err := s.submitter.Submit(ctx, transport, sigs)
	if err != nil {
		return result, err
	}
	result.TxID = txid.String()
	return result, nil
}

func (s *Service) signLocal(result *Result, msg *solana.Message, raw []byte) error {
	if s.signer == nil {
		return msigerrors.NewValidationError("submit requires a local signer").
			WithContext("hint", "pass --private-key <file> or --ledger")
	}
	key := s.signer.PublicKey()
	if _, err := txcodec.SignerIndex(msg, key); err != nil {
		return err
	}
	if s.signer.IsInteractive() && s.onConfirm != nil {
		s.onConfirm(key)
	}
	sig, err := s.signer.Sign(raw)
	if err != nil {
		return err
	}
	return attach(result, msg, key, sig)
}

func attach(result *Result, msg *solana.Message, key solana.PublicKey, sig solana.Signature) error {
	idx, err := txcodec.SignerIndex(msg, key)
	if err != nil {
		return err
	}
	result.Signers[idx].Signature = sig.String()
	return nil
}

// Signature is a standalone signature over a transport string.
type Signature struct {
	Position  int    `json:"position"`
	Key       string `json:"key"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
}

// Sign decodes transport and signs it with the configured signer.
func (s *Service) Sign(transport string) (*Signature, error) {
	if s.signer == nil {
		return nil, msigerrors.NewValidationError("private-key is required").
			WithContext("hint", "pass --private-key <file> or --ledger")
	}
	msg, err := txcodec.Decode(transport)
	if err != nil {
		return nil, err
	}
	key := s.signer.PublicKey()
	idx, err := txcodec.SignerIndex(msg, key)
	if err != nil {
		return nil, err
	}
	raw, err := msg.MarshalBinary()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to serialize message", err)
	}
	if s.signer.IsInteractive() && s.onConfirm != nil {
		s.onConfirm(key)
	}
	sig, err := s.signer.Sign(raw)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("signer", key.String()).Int("position", idx).Msg("signed transaction")
	return &Signature{Position: idx, Key: key.String(), Signature: sig.String(), Nonce: txcodec.NonceValue(msg).String()}, nil
}

// Submit parses base58 signatures and submits them with transport.
func (s *Service) Submit(ctx context.Context, transport string, signatures []string) (string, error) {
	if s.submitter == nil {
		return "", msigerrors.NewInternalError("no submitter configured", nil)
	}
	sigs, err := txcodec.ParseSignatures(signatures)
	if err != nil {
		return "", err
	}
	txid, err := s.submitter.Submit(ctx, transport, sigs)
	if err != nil {
		return "", err
	}
	return txid.String(), nil
}
