package multisig

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, payer solana.PublicKey, ixs ...solana.Instruction) *solana.Message {
	t.Helper()
	tx, err := solana.NewTransaction(ixs, solana.Hash(solana.NewWallet().PublicKey()), solana.TransactionPayer(payer))
	require.NoError(t, err)
	return &tx.Message
}

func TestDescribeInstruction(t *testing.T) {
	chain := new(MockChainReader)
	chain.On("GetMinimumBalanceForRentExemption", mock.Anything, uint64(500)).Return(testRent, nil)
	payer := solana.NewWallet().PublicKey()
	own := owners(2)

	plan, err := newTestBuilder(chain).CreateMultisig(context.Background(), own, 2, payer)
	require.NoError(t, err)
	advance := system.NewAdvanceNonceAccountInstruction(
		solana.NewWallet().PublicKey(), solana.SysVarRecentBlockHashesPubkey, payer).Build()

	msg := compile(t, payer, append([]solana.Instruction{advance}, plan.Instructions...)...)
	require.Len(t, msg.Instructions, 3)

	nonce := DescribeInstruction(msg, msg.Instructions[0], testProgramID)
	assert.Equal(t, "system", nonce.Program)
	assert.Equal(t, "AdvanceNonceAccount", nonce.Name)

	create := DescribeInstruction(msg, msg.Instructions[1], testProgramID)
	assert.Equal(t, "CreateAccount", create.Name)
	assert.Contains(t, create.Details, Field{Label: "space", Value: "500"})
	assert.Contains(t, create.Details, Field{Label: "owner", Value: testProgramID.String()})

	ms := DescribeInstruction(msg, msg.Instructions[2], testProgramID)
	assert.Equal(t, "multisig", ms.Program)
	assert.Equal(t, InstructionCreateMultisig, ms.Name)
	assert.Contains(t, ms.Details, Field{Label: "owner", Value: own[0].String()})
	assert.Contains(t, ms.Details, Field{Label: "threshold", Value: "2"})

	t.Run("unknown program", func(t *testing.T) {
		other := solana.NewWallet().PublicKey()
		msg := compile(t, payer, solana.NewInstruction(other, solana.AccountMetaSlice{}, []byte{1, 2}))
		d := DescribeInstruction(msg, msg.Instructions[0], testProgramID)
		assert.Equal(t, other.String(), d.Program)
		assert.Equal(t, "unknown", d.Name)
	})

	t.Run("create transaction shows transfer amount", func(t *testing.T) {
		f := newTokenFixture(10_000_000, 6, true)
		txPlan, err := newTestBuilder(f.chain).CreateTransaction(context.Background(),
			solana.NewWallet().PublicKey(), f.from, f.to, mustDecimal("2.5"), f.proposer)
		require.NoError(t, err)
		msg := compile(t, f.proposer, txPlan.Instructions...)
		d := DescribeInstruction(msg, msg.Instructions[1], testProgramID)
		assert.Equal(t, InstructionCreateTransaction, d.Name)
		assert.Contains(t, d.Details, Field{Label: "target program", Value: solana.TokenProgramID.String()})
		assert.Contains(t, d.Details, Field{Label: "transfer amount (base units)", Value: "2500000"})
	})
}
