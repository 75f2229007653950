package workflow

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/svm-multisig/multisigClient/chains/svm"
	"github.com/pushchain/svm-multisig/multisigClient/constant"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
	"github.com/pushchain/svm-multisig/multisigClient/multisig"
	"github.com/pushchain/svm-multisig/multisigClient/txcodec"
)

// Inspection describes a transport string without touching the network.
type Inspection struct {
	Payer        string                 `json:"payer"`
	Nonce        string                 `json:"nonce"`
	NonceAccount string                 `json:"nonce_account,omitempty"`
	Signers      []SignerSlot           `json:"signers"`
	Instructions []multisig.Description `json:"instructions"`
}

// Inspect decodes transport and describes every instruction and required signer.
func Inspect(transport string, programID solana.PublicKey) (*Inspection, error) {
	msg, err := txcodec.Decode(transport)
	if err != nil {
		return nil, err
	}
	out := &Inspection{Nonce: txcodec.NonceValue(msg).String()}
	nonceAccount, anchored := txcodec.NonceAccount(msg)
	if anchored {
		out.NonceAccount = nonceAccount.String()
	}

	var authority solana.PublicKey
	if anchored && len(msg.Instructions[0].Accounts) > 2 {
		authority = msg.AccountKeys[msg.Instructions[0].Accounts[2]]
	}
	for i, key := range txcodec.Signers(msg) {
		role := RoleSigner
		switch {
		case i == 0:
			role = RolePayer
			out.Payer = key.String()
		case key.Equals(authority):
			role = RoleNonceAuthority
		}
		out.Signers = append(out.Signers, SignerSlot{Position: i, Key: key.String(), Role: role})
	}
	for _, ix := range msg.Instructions {
		out.Instructions = append(out.Instructions, multisig.DescribeInstruction(msg, ix, programID))
	}
	return out, nil
}

// MultisigView is a fresh read of a multisig account.
type MultisigView struct {
	Address       string   `json:"address"`
	Signer        string   `json:"signer"`
	Owners        []string `json:"owners"`
	Threshold     uint64   `json:"threshold"`
	OwnerSetSeqno uint32   `json:"owner_set_seqno"`
}

// TransactionView is a fresh read of a proposal and the owners that approved it.
type TransactionView struct {
	Address    string   `json:"address"`
	Multisig   string   `json:"multisig"`
	ProgramID  string   `json:"program_id"`
	Accounts   []string `json:"accounts"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	Amount     string   `json:"amount,omitempty"`
	Approvals  int      `json:"approvals"`
	Threshold  uint64   `json:"threshold"`
	ApprovedBy []string `json:"approved_by"`
	Pending    []string `json:"pending"`
	DidExecute bool     `json:"did_execute"`
	Stale      bool     `json:"stale"`
}

func (s *Service) readMultisig(ctx context.Context, address solana.PublicKey) (*multisig.Multisig, error) {
	acct, err := s.chain.GetAccountData(ctx, "multisig account", address)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(s.builder.ProgramID()) {
		return nil, msigerrors.NewValidationError("multisig account is not owned by the multisig program").
			WithContext("address", address.String()).
			WithContext("owner", acct.Owner.String())
	}
	return multisig.DecodeMultisig(address, acct.Data)
}

// ShowMultisig reads the multisig at address.
func (s *Service) ShowMultisig(ctx context.Context, address solana.PublicKey) (*MultisigView, error) {
	ms, err := s.readMultisig(ctx, address)
	if err != nil {
		return nil, err
	}
	pda, _, err := multisig.DeriveSigner(address, s.builder.ProgramID())
	if err != nil {
		return nil, err
	}
	view := &MultisigView{
		Address:       address.String(),
		Signer:        pda.String(),
		Threshold:     ms.Threshold,
		OwnerSetSeqno: ms.OwnerSetSeqno,
	}
	for _, o := range ms.Owners {
		view.Owners = append(view.Owners, o.String())
	}
	return view, nil
}

// ShowTransaction reads the proposal at address together with its multisig.
func (s *Service) ShowTransaction(ctx context.Context, address solana.PublicKey) (*TransactionView, error) {
	acct, err := s.chain.GetAccountData(ctx, "transaction account", address)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(s.builder.ProgramID()) {
		return nil, msigerrors.NewValidationError("transaction account is not owned by the multisig program").
			WithContext("address", address.String()).
			WithContext("owner", acct.Owner.String())
	}
	proposal, err := multisig.DecodeTransaction(address, acct.Data)
	if err != nil {
		return nil, err
	}
	ms, err := s.readMultisig(ctx, proposal.Multisig)
	if err != nil {
		return nil, err
	}

	view := &TransactionView{
		Address:    address.String(),
		Multisig:   proposal.Multisig.String(),
		ProgramID:  proposal.ProgramID.String(),
		Approvals:  proposal.Approvals(),
		Threshold:  ms.Threshold,
		DidExecute: proposal.DidExecute,
		Stale:      proposal.OwnerSetSeqno != ms.OwnerSetSeqno,
	}
	for _, a := range proposal.Accounts {
		view.Accounts = append(view.Accounts, a.Pubkey.String())
	}
	for i, owner := range ms.Owners {
		if i < len(proposal.Signers) && proposal.Signers[i] {
			view.ApprovedBy = append(view.ApprovedBy, owner.String())
		} else {
			view.Pending = append(view.Pending, owner.String())
		}
	}

	transfer, err := multisig.DecodeTransfer(proposal.Data)
	if err == nil && proposal.ProgramID.Equals(constant.TokenProgramID) && len(proposal.Accounts) > transfer.DestinationIndex() {
		view.From = proposal.Accounts[0].Pubkey.String()
		view.To = proposal.Accounts[transfer.DestinationIndex()].Pubkey.String()
		source, err := s.chain.GetTokenAccount(ctx, "source token account", proposal.Accounts[0].Pubkey)
		if err == nil {
			view.Amount = svm.AmountToDecimal(transfer.Amount, source.Decimals).String()
		} else {
			s.logger.Warn().Err(err).Msg("failed to read source token account, amount shown in base units")
			view.Amount = svm.AmountToDecimal(transfer.Amount, 0).String()
		}
	}
	return view, nil
}
