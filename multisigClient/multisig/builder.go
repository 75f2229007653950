// Package multisig assembles the instructions for each multisig operation and
// decodes the program's account records.
package multisig

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pushchain/svm-multisig/multisigClient/chains/svm"
	"github.com/pushchain/svm-multisig/multisigClient/constant"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// Operation names.
const (
	OpCreateMultisig     = "create-multisig"
	OpCreateTransaction  = "create-transaction"
	OpApprove            = "approve"
	OpExecuteTransaction = "execute-transaction"
)

// Address roles reported in a Plan.
const (
	RoleMultisig       = "multisig"
	RoleMultisigSigner = "multisig_signer"
	RoleTransaction    = "transaction"
	RoleFrom           = "from"
	RoleTo             = "to"
	RoleMint           = "mint"
)

// ChainReader is the subset of the RPC client the builder reads from.
type ChainReader interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	GetTokenAccount(ctx context.Context, what string, address solana.PublicKey) (*svm.TokenAccount, error)
	GetAccountData(ctx context.Context, what string, address solana.PublicKey) (*svm.AccountData, error)
}

// Field is one labelled line of an operation summary.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Plan is everything needed to build the transaction for one operation.
type Plan struct {
	Operation    string
	Instructions []solana.Instruction
	Payer        solana.PublicKey
	// ExtraSigners are freshly generated account keys that must sign alongside the payer.
	ExtraSigners []solana.PrivateKey
	Addresses    map[string]solana.PublicKey
	// Amount is the transfer amount in base units, when the operation moves tokens.
	Amount  uint64
	Summary []Field
}

func (p *Plan) add(label, value string) {
	p.Summary = append(p.Summary, Field{Label: label, Value: value})
}

// Builder produces Plans for the multisig program at programID.
type Builder struct {
	chain       ChainReader
	programID   solana.PublicKey
	accountSize uint64
	newKey      func() (solana.PrivateKey, error)
	logger      zerolog.Logger
}

// NewBuilder creates a builder. accountSize is the space allocated for multisig and proposal accounts.
func NewBuilder(chain ChainReader, programID solana.PublicKey, accountSize uint64, logger zerolog.Logger) *Builder {
	return &Builder{
		chain:       chain,
		programID:   programID,
		accountSize: accountSize,
		newKey:      solana.NewRandomPrivateKey,
		logger:      logger.With().Str("component", "multisig_builder").Logger(),
	}
}

// WithKeyGenerator replaces the generator used for fresh multisig and proposal accounts.
func (b *Builder) WithKeyGenerator(fn func() (solana.PrivateKey, error)) *Builder {
	b.newKey = fn
	return b
}

// ProgramID returns the multisig program the builder targets.
func (b *Builder) ProgramID() solana.PublicKey { return b.programID }

// freshAccount generates a keypair and the CreateAccount instruction that allocates it for the program.
func (b *Builder) freshAccount(ctx context.Context, payer solana.PublicKey) (solana.PrivateKey, solana.Instruction, error) {
	key, err := b.newKey()
	if err != nil {
		return nil, nil, msigerrors.NewInternalError("failed to generate account key", err)
	}
	lamports, err := b.chain.GetMinimumBalanceForRentExemption(ctx, b.accountSize)
	if err != nil {
		return nil, nil, err
	}
	ix := system.NewCreateAccountInstruction(
		lamports,
		b.accountSize,
		b.programID,
		payer,
		key.PublicKey(),
	).Build()
	return key, ix, nil
}

// CreateMultisig allocates a new multisig account owned by owners with the given threshold.
func (b *Builder) CreateMultisig(ctx context.Context, owners []solana.PublicKey, threshold uint64, payer solana.PublicKey) (*Plan, error) {
	if payer.IsZero() {
		return nil, msigerrors.NewValidationError("payer is required")
	}
	if len(owners) == 0 {
		return nil, msigerrors.NewValidationError("at least one owner is required")
	}
	seen := make(map[solana.PublicKey]struct{}, len(owners))
	for _, o := range owners {
		if _, dup := seen[o]; dup {
			return nil, msigerrors.NewValidationError("duplicate owner").WithContext("owner", o.String())
		}
		seen[o] = struct{}{}
	}
	if threshold < 1 || threshold > uint64(len(owners)) {
		return nil, msigerrors.NewValidationError(
			fmt.Sprintf("threshold must be between 1 and %d", len(owners))).
			WithContext("threshold", threshold)
	}

	key, createAccount, err := b.freshAccount(ctx, payer)
	if err != nil {
		return nil, err
	}
	multisig := key.PublicKey()
	pda, bump, err := DeriveSigner(multisig, b.programID)
	if err != nil {
		return nil, err
	}

	args := newArgs(InstructionCreateMultisig).u32(uint32(len(owners)))
	for _, o := range owners {
		args.pubkey(o)
	}
	data, err := args.u64(threshold).u8(bump).bytes()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to encode create_multisig", err)
	}
	create := solana.NewInstruction(b.programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(multisig, true, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}, data)

	plan := &Plan{
		Operation:    OpCreateMultisig,
		Instructions: []solana.Instruction{createAccount, create},
		Payer:        payer,
		ExtraSigners: []solana.PrivateKey{key},
		Addresses: map[string]solana.PublicKey{
			RoleMultisig:       multisig,
			RoleMultisigSigner: pda,
		},
	}
	plan.add("Multisig address", multisig.String())
	plan.add("Multisig PDA", pda.String())
	plan.add("Threshold", fmt.Sprintf("%d of %d", threshold, len(owners)))

	b.logger.Debug().
		Str("multisig", multisig.String()).
		Str("pda", pda.String()).
		Uint8("bump", bump).
		Int("owners", len(owners)).
		Uint64("threshold", threshold).
		Msg("planned create_multisig")
	return plan, nil
}

// CreateTransaction proposes an SPL token transfer of amount (human units) from one token
// account to another, authorized by the multisig's PDA.
func (b *Builder) CreateTransaction(ctx context.Context, multisig, from, to solana.PublicKey, amount decimal.Decimal, proposer solana.PublicKey) (*Plan, error) {
	if proposer.IsZero() {
		return nil, msigerrors.NewValidationError("proposer is required")
	}
	if !amount.IsPositive() {
		return nil, msigerrors.NewValidationError("amount must be greater than 0").
			WithContext("amount", amount.String())
	}

	source, err := b.chain.GetTokenAccount(ctx, "source token account", from)
	if err != nil {
		return nil, err
	}
	destination, err := b.chain.GetTokenAccount(ctx, "destination token account", to)
	if err != nil {
		return nil, err
	}
	if !source.Mint.Equals(destination.Mint) {
		return nil, msigerrors.NewValidationError("source and destination accounts have different mint addresses").
			WithContext("source_mint", source.Mint.String()).
			WithContext("destination_mint", destination.Mint.String())
	}
	if source.Balance().LessThan(amount) {
		return nil, msigerrors.NewValidationError("source account doesn't have sufficient amount of token").
			WithContext("balance", source.Balance().String()).
			WithContext("amount", amount.String())
	}
	baseUnits, err := svm.DecimalToAmount(amount, source.Decimals)
	if err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeValidation, "amount is not representable by the mint", err).
			WithContext("decimals", source.Decimals)
	}
	if baseUnits == 0 {
		return nil, msigerrors.NewValidationError("amount is below the mint's smallest unit").
			WithContext("amount", amount.String()).
			WithContext("decimals", source.Decimals)
	}

	pda, _, err := DeriveSigner(multisig, b.programID)
	if err != nil {
		return nil, err
	}
	transfer := token.NewTransferInstruction(baseUnits, from, to, pda, nil).Build()
	transferData, err := transfer.Data()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to encode token transfer", err)
	}
	accs := make([]TransactionAccount, 0, len(transfer.Accounts()))
	for _, m := range transfer.Accounts() {
		accs = append(accs, TransactionAccount{Pubkey: m.PublicKey, IsSigner: m.IsSigner, IsWritable: m.IsWritable})
	}

	key, createAccount, err := b.freshAccount(ctx, proposer)
	if err != nil {
		return nil, err
	}
	proposal := key.PublicKey()

	args := newArgs(InstructionCreateTransaction).pubkey(transfer.ProgramID())
	writeTransactionAccounts(args, accs)
	data, err := args.vecBytes(transferData).bytes()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to encode create_transaction", err)
	}
	create := solana.NewInstruction(b.programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(multisig, false, false),
		solana.NewAccountMeta(proposal, true, false),
		solana.NewAccountMeta(proposer, false, true),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}, data)

	plan := &Plan{
		Operation:    OpCreateTransaction,
		Instructions: []solana.Instruction{createAccount, create},
		Payer:        proposer,
		ExtraSigners: []solana.PrivateKey{key},
		Addresses: map[string]solana.PublicKey{
			RoleMultisig:       multisig,
			RoleMultisigSigner: pda,
			RoleTransaction:    proposal,
			RoleFrom:           from,
			RoleTo:             to,
			RoleMint:           source.Mint,
		},
		Amount: baseUnits,
	}
	plan.add("Multisig address", multisig.String())
	plan.add("From address", from.String())
	plan.add("To address", to.String())
	plan.add("Amount", amount.String())
	plan.add("Pending transaction account", proposal.String())

	b.logger.Debug().
		Str("multisig", multisig.String()).
		Str("transaction", proposal.String()).
		Uint64("base_units", baseUnits).
		Uint8("decimals", source.Decimals).
		Msg("planned create_transaction")
	return plan, nil
}

// Approve records owner's approval of a proposal. The program enforces ownership.
func (b *Builder) Approve(multisig, transaction, owner solana.PublicKey) (*Plan, error) {
	if owner.IsZero() {
		return nil, msigerrors.NewValidationError("owner is required")
	}
	data, err := newArgs(InstructionApprove).bytes()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to encode approve", err)
	}
	approve := solana.NewInstruction(b.programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(multisig, false, false),
		solana.NewAccountMeta(transaction, true, false),
		solana.NewAccountMeta(owner, false, true),
	}, data)

	plan := &Plan{
		Operation:    OpApprove,
		Instructions: []solana.Instruction{approve},
		Payer:        owner,
		Addresses: map[string]solana.PublicKey{
			RoleMultisig:    multisig,
			RoleTransaction: transaction,
		},
	}
	plan.add("Multisig address", multisig.String())
	plan.add("Transaction address", transaction.String())
	return plan, nil
}

// ExecuteTransaction executes an approved token transfer proposal. from and to, when non-nil,
// must match the source and destination recorded in the proposal.
func (b *Builder) ExecuteTransaction(ctx context.Context, multisig, transaction solana.PublicKey, from, to *solana.PublicKey, payer solana.PublicKey) (*Plan, error) {
	if payer.IsZero() {
		return nil, msigerrors.NewValidationError("payer is required")
	}

	acct, err := b.chain.GetAccountData(ctx, "transaction account", transaction)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(b.programID) {
		return nil, msigerrors.NewValidationError("transaction account is not owned by the multisig program").
			WithContext("address", transaction.String()).
			WithContext("owner", acct.Owner.String())
	}
	proposal, err := DecodeTransaction(transaction, acct.Data)
	if err != nil {
		return nil, err
	}
	if !proposal.Multisig.Equals(multisig) {
		return nil, msigerrors.NewValidationError("transaction belongs to a different multisig").
			WithContext("expected", multisig.String()).
			WithContext("actual", proposal.Multisig.String())
	}
	if !proposal.ProgramID.Equals(constant.TokenProgramID) {
		return nil, msigerrors.NewValidationError("transaction does not target the token program").
			WithContext("address", transaction.String()).
			WithContext("program", proposal.ProgramID.String())
	}
	transfer, err := DecodeTransfer(proposal.Data)
	if err != nil {
		return nil, err
	}
	dest := transfer.DestinationIndex()
	if len(proposal.Accounts) <= dest {
		return nil, msigerrors.NewValidationError("transaction records fewer accounts than a transfer needs").
			WithContext("address", transaction.String())
	}
	if err := checkRecordedAccount(proposal, 0, RoleFrom, from); err != nil {
		return nil, err
	}
	if err := checkRecordedAccount(proposal, dest, RoleTo, to); err != nil {
		return nil, err
	}
	if proposal.DidExecute {
		b.logger.Warn().Str("transaction", transaction.String()).Msg("transaction was already executed, the program will reject it")
	}

	baseUnits := transfer.Amount
	source, err := b.chain.GetTokenAccount(ctx, "source token account", proposal.Accounts[0].Pubkey)
	if err != nil {
		return nil, err
	}

	pda, _, err := DeriveSigner(multisig, b.programID)
	if err != nil {
		return nil, err
	}
	metas := executeAccounts(multisig, pda, transaction, proposal)
	if err := VerifyExecuteLayout(metas, multisig, pda, transaction, proposal); err != nil {
		return nil, err
	}

	data, err := newArgs(InstructionExecuteTransaction).bytes()
	if err != nil {
		return nil, msigerrors.NewInternalError("failed to encode execute_transaction", err)
	}
	execute := solana.NewInstruction(b.programID, metas, data)

	amount := svm.AmountToDecimal(baseUnits, source.Decimals)
	plan := &Plan{
		Operation:    OpExecuteTransaction,
		Instructions: []solana.Instruction{execute},
		Payer:        payer,
		Addresses: map[string]solana.PublicKey{
			RoleMultisig:       multisig,
			RoleMultisigSigner: pda,
			RoleTransaction:    transaction,
			RoleFrom:           proposal.Accounts[0].Pubkey,
			RoleTo:             proposal.Accounts[dest].Pubkey,
		},
		Amount: baseUnits,
	}
	plan.add("Multisig address", multisig.String())
	plan.add("Transaction address", transaction.String())
	plan.add("From", proposal.Accounts[0].Pubkey.String())
	plan.add("To", proposal.Accounts[dest].Pubkey.String())
	plan.add("Amount", amount.String())
	plan.add("Approvals", fmt.Sprintf("%d", proposal.Approvals()))

	b.logger.Debug().
		Str("transaction", transaction.String()).
		Int("accounts", len(metas)).
		Uint64("base_units", baseUnits).
		Msg("planned execute_transaction")
	return plan, nil
}

func checkRecordedAccount(proposal *Transaction, index int, role string, want *solana.PublicKey) error {
	if want == nil {
		return nil
	}
	if index >= len(proposal.Accounts) {
		return msigerrors.NewValidationError(fmt.Sprintf("transaction has no %s account", role))
	}
	if got := proposal.Accounts[index].Pubkey; !got.Equals(*want) {
		return msigerrors.NewValidationError(fmt.Sprintf("%s does not match the transaction", role)).
			WithContext("expected", got.String()).
			WithContext("supplied", want.String())
	}
	return nil
}

// executeAccounts lays out execute_transaction's accounts: the three fixed accounts,
// the proposal's accounts in recorded order with signer flags cleared, then the target program.
func executeAccounts(multisig, pda, transaction solana.PublicKey, proposal *Transaction) solana.AccountMetaSlice {
	metas := make(solana.AccountMetaSlice, 0, 4+len(proposal.Accounts))
	metas = append(metas,
		solana.NewAccountMeta(multisig, false, false),
		solana.NewAccountMeta(pda, false, false),
		solana.NewAccountMeta(transaction, true, false),
	)
	for _, acc := range proposal.Accounts {
		metas = append(metas, solana.NewAccountMeta(acc.Pubkey, acc.IsWritable, false))
	}
	return append(metas, solana.NewAccountMeta(proposal.ProgramID, false, false))
}

// VerifyExecuteLayout checks metas against the proposal it executes. Any divergence is a defect.
func VerifyExecuteLayout(metas solana.AccountMetaSlice, multisig, pda, transaction solana.PublicKey, proposal *Transaction) error {
	want := 4 + len(proposal.Accounts)
	if len(metas) != want {
		return layoutDefect(fmt.Sprintf("expected %d accounts, got %d", want, len(metas)))
	}
	fixed := []solana.PublicKey{multisig, pda, transaction}
	for i, pk := range fixed {
		if !metas[i].PublicKey.Equals(pk) {
			return layoutDefect(fmt.Sprintf("fixed account %d is %s, expected %s", i, metas[i].PublicKey, pk))
		}
	}
	for i, acc := range proposal.Accounts {
		m := metas[3+i]
		if !m.PublicKey.Equals(acc.Pubkey) {
			return layoutDefect(fmt.Sprintf("account %d is %s, expected %s", 3+i, m.PublicKey, acc.Pubkey))
		}
		if m.IsWritable != acc.IsWritable || m.IsSigner {
			return layoutDefect(fmt.Sprintf("account %d has wrong flags", 3+i))
		}
	}
	if last := metas[len(metas)-1]; !last.PublicKey.Equals(proposal.ProgramID) || last.IsSigner {
		return layoutDefect("last account is not the proposal's program")
	}
	return nil
}

func layoutDefect(detail string) error {
	return msigerrors.NewInternalError("execute_transaction account layout diverges from the proposal", nil).
		WithContext("detail", detail)
}
