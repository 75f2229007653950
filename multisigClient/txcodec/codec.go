// Package txcodec builds durable-nonce anchored messages and moves them between
// machines as base64 transport strings.
package txcodec

import (
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// Nonce anchors a message to a durable nonce account instead of a recent blockhash.
type Nonce struct {
	Account solana.PublicKey
	// Authority defaults to the payer when zero.
	Authority solana.PublicKey
	// Value is the nonce currently stored in Account.
	Value solana.Hash
}

// Build prepends AdvanceNonceAccount to instructions and compiles a legacy message
// whose blockhash field carries the nonce value.
func Build(instructions []solana.Instruction, payer solana.PublicKey, nonce Nonce) (*solana.Message, error) {
	if len(instructions) == 0 {
		return nil, msigerrors.NewValidationError("no instructions to build")
	}
	if payer.IsZero() {
		return nil, msigerrors.NewValidationError("payer is required")
	}
	if nonce.Account.IsZero() {
		return nil, msigerrors.NewValidationError("nonce account is required")
	}
	if nonce.Value.IsZero() {
		return nil, msigerrors.NewValidationError("nonce value is required")
	}
	authority := nonce.Authority
	if authority.IsZero() {
		authority = payer
	}

	advance := system.NewAdvanceNonceAccountInstruction(
		nonce.Account,
		solana.SysVarRecentBlockHashesPubkey,
		authority,
	).Build()

	all := make([]solana.Instruction, 0, len(instructions)+1)
	all = append(all, advance)
	all = append(all, instructions...)

	tx, err := solana.NewTransaction(all, nonce.Value, solana.TransactionPayer(payer))
	if err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeInternal, "failed to compile message", err)
	}
	return &tx.Message, nil
}

// Encode serializes msg and renders it as standard base64.
func Encode(msg *solana.Message) (string, error) {
	raw, err := msg.MarshalBinary()
	if err != nil {
		return "", msigerrors.NewMultisigError(msigerrors.ErrCodeInternal, "failed to serialize message", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode is the inverse of Encode. Anything that is not exactly one legacy message is rejected.
func Decode(transport string) (*solana.Message, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(transport))
	if err != nil {
		return nil, msigerrors.NewMalformedTransportError("transport string is not valid base64", err)
	}
	if len(raw) == 0 {
		return nil, msigerrors.NewMalformedTransportError("transport string is empty", nil)
	}

	var msg solana.Message
	dec := bin.NewBinDecoder(raw)
	if err := msg.UnmarshalWithDecoder(dec); err != nil {
		return nil, msigerrors.NewMalformedTransportError("transport string is not a transaction message", err)
	}
	if dec.Remaining() != 0 {
		return nil, msigerrors.NewMalformedTransportError(
			fmt.Sprintf("transport string has %d trailing bytes", dec.Remaining()), nil)
	}
	if err := checkMessage(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// checkMessage rejects headers and indices that would make the message unsignable.
func checkMessage(msg *solana.Message) error {
	keys := len(msg.AccountKeys)
	if msg.Header.NumRequiredSignatures == 0 || int(msg.Header.NumRequiredSignatures) > keys {
		return msigerrors.NewMalformedTransportError("message header has an invalid signer count", nil)
	}
	for i, ix := range msg.Instructions {
		if int(ix.ProgramIDIndex) >= keys {
			return msigerrors.NewMalformedTransportError("instruction program index out of range", nil).
				WithContext("instruction", i)
		}
		for _, idx := range ix.Accounts {
			if int(idx) >= keys {
				return msigerrors.NewMalformedTransportError("instruction account index out of range", nil).
					WithContext("instruction", i)
			}
		}
	}
	return nil
}

// Signers returns the keys whose signatures the message requires, in signature order.
func Signers(msg *solana.Message) []solana.PublicKey {
	n := int(msg.Header.NumRequiredSignatures)
	if n > len(msg.AccountKeys) {
		n = len(msg.AccountKeys)
	}
	out := make([]solana.PublicKey, n)
	copy(out, msg.AccountKeys[:n])
	return out
}

// SignerIndex returns the signature position of key.
func SignerIndex(msg *solana.Message, key solana.PublicKey) (int, error) {
	for i, k := range Signers(msg) {
		if k.Equals(key) {
			return i, nil
		}
	}
	return -1, msigerrors.NewValidationError("key is not a required signer of this message").
		WithContext("key", key.String())
}

// ParseSignatures decodes base58 signatures in order.
func ParseSignatures(encoded []string) ([]solana.Signature, error) {
	out := make([]solana.Signature, 0, len(encoded))
	for i, s := range encoded {
		sig, err := solana.SignatureFromBase58(strings.TrimSpace(s))
		if err != nil {
			return nil, msigerrors.NewMalformedTransportError("invalid signature encoding", err).
				WithContext("position", i)
		}
		out = append(out, sig)
	}
	return out, nil
}

// NonceValue returns the nonce the message is anchored to.
func NonceValue(msg *solana.Message) solana.Hash {
	return msg.RecentBlockhash
}

// NonceAccount returns the nonce account advanced by the leading instruction, if any.
func NonceAccount(msg *solana.Message) (solana.PublicKey, bool) {
	if len(msg.Instructions) == 0 {
		return solana.PublicKey{}, false
	}
	first := msg.Instructions[0]
	program, err := msg.Program(first.ProgramIDIndex)
	if err != nil || !program.Equals(solana.SystemProgramID) {
		return solana.PublicKey{}, false
	}
	if len(first.Data) < 4 || first.Data[0] != byte(system.Instruction_AdvanceNonceAccount) ||
		first.Data[1] != 0 || first.Data[2] != 0 || first.Data[3] != 0 || len(first.Accounts) == 0 {
		return solana.PublicKey{}, false
	}
	return msg.AccountKeys[first.Accounts[0]], true
}

// Assemble attaches signatures, in signer order, to msg.
func Assemble(msg *solana.Message, signatures []solana.Signature) *solana.Transaction {
	return &solana.Transaction{
		Signatures: append([]solana.Signature(nil), signatures...),
		Message:    *msg,
	}
}
