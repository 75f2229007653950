package workflow

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
	"github.com/pushchain/svm-multisig/multisigClient/multisig"
)

func TestInspect(t *testing.T) {
	f := newFixture(t)
	ownerSet := owners(3)
	built, err := f.service(t, nil, Options{Payer: f.payer.PublicKey()}).CreateMultisig(context.Background(), ownerSet, 2)
	require.NoError(t, err)

	out, err := Inspect(built.Transport, programID)
	require.NoError(t, err)

	assert.Equal(t, f.payer.PublicKey().String(), out.Payer)
	assert.Equal(t, nonceValue.String(), out.Nonce)
	assert.Equal(t, f.nonceAccount.String(), out.NonceAccount)
	require.Len(t, out.Signers, 2)
	assert.Equal(t, RolePayer, out.Signers[0].Role)
	assert.Equal(t, built.Addresses[multisig.RoleMultisig], out.Signers[1].Key)

	require.Len(t, out.Instructions, 3)
	assert.Equal(t, "AdvanceNonceAccount", out.Instructions[0].Name)
	assert.Equal(t, "CreateAccount", out.Instructions[1].Name)
	assert.Equal(t, "multisig", out.Instructions[2].Program)
	assert.Equal(t, multisig.InstructionCreateMultisig, out.Instructions[2].Name)

	var listed []string
	for _, d := range out.Instructions[2].Details {
		if d.Label == "owner" {
			listed = append(listed, d.Value)
		}
	}
	require.Len(t, listed, 3)
	for i, o := range ownerSet {
		assert.Equal(t, o.String(), listed[i])
	}

	_, err = Inspect("%%%", programID)
	require.Error(t, err)
	assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeMalformedTransport))
}

func TestShowMultisigAndTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ownerSet := owners(3)
	msAddr := solana.NewWallet().PublicKey()
	txAddr := solana.NewWallet().PublicKey()
	pda, bump, err := multisig.DeriveSigner(msAddr, programID)
	require.NoError(t, err)

	msData, err := multisig.EncodeMultisig(&multisig.Multisig{Owners: ownerSet, Threshold: 2, Nonce: bump, OwnerSetSeqno: 1})
	require.NoError(t, err)
	f.server.SetAccount(msAddr, programID, msData)

	transfer := token.NewTransferInstruction(1_500_000, f.from, f.to, pda, nil).Build()
	payload, err := transfer.Data()
	require.NoError(t, err)
	var recorded []multisig.TransactionAccount
	for _, m := range transfer.Accounts() {
		recorded = append(recorded, multisig.TransactionAccount{Pubkey: m.PublicKey, IsSigner: m.IsSigner, IsWritable: m.IsWritable})
	}
	txData, err := multisig.EncodeTransaction(&multisig.Transaction{
		Multisig:      msAddr,
		ProgramID:     solana.TokenProgramID,
		Accounts:      recorded,
		Data:          payload,
		Signers:       []bool{true, false, false},
		OwnerSetSeqno: 1,
	})
	require.NoError(t, err)
	f.server.SetAccount(txAddr, programID, txData)

	svc := f.service(t, nil, Options{})

	msView, err := svc.ShowMultisig(ctx, msAddr)
	require.NoError(t, err)
	assert.Equal(t, pda.String(), msView.Signer)
	assert.Equal(t, uint64(2), msView.Threshold)
	assert.Len(t, msView.Owners, 3)

	txView, err := svc.ShowTransaction(ctx, txAddr)
	require.NoError(t, err)
	assert.Equal(t, "1.5", txView.Amount)
	assert.Equal(t, 1, txView.Approvals)
	assert.Equal(t, uint64(2), txView.Threshold)
	assert.Equal(t, []string{ownerSet[0].String()}, txView.ApprovedBy)
	assert.Len(t, txView.Pending, 2)
	assert.False(t, txView.Stale)
	assert.False(t, txView.DidExecute)
	assert.Equal(t, f.from.String(), txView.Accounts[0])
	assert.Equal(t, f.from.String(), txView.From)
	assert.Equal(t, f.to.String(), txView.To)

	_, err = svc.ShowMultisig(ctx, f.from)
	require.Error(t, err)
	assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeValidation))

	_, err = svc.ShowTransaction(ctx, solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeNotFound))
}
