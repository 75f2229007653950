package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/svm-multisig/multisigClient/config"
	"github.com/pushchain/svm-multisig/multisigClient/constant"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
	"github.com/pushchain/svm-multisig/multisigClient/multisig"
	"github.com/pushchain/svm-multisig/multisigClient/workflow"
	"github.com/pushchain/svm-multisig/testutils"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--home", t.TempDir(), "--log-level", "3"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
}

func TestConfigInit(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "init", "--home", home, "--cluster", "testnet"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), config.FilePath(home))
	_, err := os.Stat(config.FilePath(home))
	require.NoError(t, err)

	cfg, err := config.Resolve(home, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ClusterTestnet, cfg.Cluster)
}

func TestConfigInitSkipsPerInvocationFields(t *testing.T) {
	home := t.TempDir()
	nonce := solana.HashFromBytes(bytes.Repeat([]byte{7}, 32))
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{
		"config", "init", "--home", home,
		"--cluster", "testnet",
		"--signer", solana.NewWallet().PublicKey().String(),
		"--nonce-account", solana.NewWallet().PublicKey().String(),
		"--nonce", nonce.String(),
		"--nonce-authority", solana.NewWallet().PublicKey().String(),
		"--submit",
	})
	require.NoError(t, root.Execute())

	cfg, err := config.Resolve(home, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ClusterTestnet, cfg.Cluster)
	assert.Empty(t, cfg.Signer)
	assert.Empty(t, cfg.NonceAccount)
	assert.Empty(t, cfg.Nonce)
	assert.Empty(t, cfg.NonceAuthority)
	assert.False(t, cfg.Submit)
}

func TestCreateMultisigAndInspect(t *testing.T) {
	server := testutils.NewSolanaRPCServer(t)
	payer := solana.NewWallet().PublicKey()
	nonceAccount := solana.NewWallet().PublicKey()
	nonce := solana.HashFromBytes(bytes.Repeat([]byte{3}, 32))
	owners := []string{
		solana.NewWallet().PublicKey().String(),
		solana.NewWallet().PublicKey().String(),
		solana.NewWallet().PublicKey().String(),
	}

	out, _, err := run(t,
		"create-multisig",
		"--rpc-url", server.URL,
		"--signer", payer.String(),
		"--nonce-account", nonceAccount.String(),
		"--nonce", nonce.String(),
		"--signers", owners[0], "--signers", owners[1], "--signers", owners[2],
		"--threshold", "2",
		"-o", "json",
	)
	require.NoError(t, err)

	var result workflow.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, multisig.OpCreateMultisig, result.Operation)
	assert.Equal(t, nonce.String(), result.Nonce)
	require.Len(t, result.Signers, 2)
	assert.Equal(t, payer.String(), result.Signers[0].Key)
	assert.Empty(t, result.Signers[0].Signature)
	assert.NotEmpty(t, result.Signers[1].Signature)
	assert.Equal(t, []string{"getMinimumBalanceForRentExemption"}, server.Calls())

	text, _, err := run(t, "inspect", result.Transport)
	require.NoError(t, err)
	assert.Contains(t, text, "AdvanceNonceAccount")
	assert.Contains(t, text, multisig.InstructionCreateMultisig)
	for _, o := range owners {
		assert.Contains(t, text, o)
	}
}

func TestShowCommands(t *testing.T) {
	server := testutils.NewSolanaRPCServer(t)
	program := solana.MustPublicKeyFromBase58(constant.DefaultMultisigProgramID)
	msAddr := solana.NewWallet().PublicKey()
	txAddr := solana.NewWallet().PublicKey()
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	ownerSet := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}
	pda, bump, err := multisig.DeriveSigner(msAddr, program)
	require.NoError(t, err)

	msData, err := multisig.EncodeMultisig(&multisig.Multisig{Owners: ownerSet, Threshold: 2, Nonce: bump, OwnerSetSeqno: 1})
	require.NoError(t, err)
	server.SetAccount(msAddr, program, msData)

	transfer := token.NewTransferInstruction(1_500_000, from, to, pda, nil).Build()
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
	server.SetAccount(txAddr, program, txData)

	// a configured key file is opened by the service and released when the command returns
	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte(solana.NewWallet().PrivateKey.String()), 0o600))

	out, _, err := run(t, "show-multisig", "--rpc-url", server.URL, "--private-key", keyFile,
		"--multisig", msAddr.String(), "-o", "json")
	require.NoError(t, err)
	var msView workflow.MultisigView
	require.NoError(t, json.Unmarshal([]byte(out), &msView))
	assert.Equal(t, pda.String(), msView.Signer)
	assert.Equal(t, uint64(2), msView.Threshold)
	assert.Len(t, msView.Owners, 3)

	out, _, err = run(t, "show-transaction", "--rpc-url", server.URL, "--private-key", keyFile,
		"--transaction", txAddr.String(), "-o", "json")
	require.NoError(t, err)
	var txView workflow.TransactionView
	require.NoError(t, json.Unmarshal([]byte(out), &txView))
	assert.Equal(t, msAddr.String(), txView.Multisig)
	assert.Equal(t, from.String(), txView.From)
	assert.Equal(t, to.String(), txView.To)
	assert.Equal(t, 1, txView.Approvals)
	assert.Equal(t, []string{ownerSet[0].String()}, txView.ApprovedBy)
}

func TestCommandValidation(t *testing.T) {
	key := solana.NewWallet().PublicKey().String()

	testCases := []struct {
		name string
		args []string
		code msigerrors.ErrorCode
	}{
		{
			name: "invalid amount",
			args: []string{"create-transaction", "--multisig", key, "--from", key, "--to", key, "--amount", "lots", "--signer", key},
			code: msigerrors.ErrCodeValidation,
		},
		{
			name: "invalid multisig key",
			args: []string{"approve", "--multisig", "not-a-key", "--transaction", key, "--signer", key},
			code: msigerrors.ErrCodeValidation,
		},
		{
			name: "no payer",
			args: []string{"approve", "--multisig", key, "--transaction", key, "--nonce-account", key},
			code: msigerrors.ErrCodeValidation,
		},
		{
			name: "sign without key material",
			args: []string{"sign", "AAAA"},
			code: msigerrors.ErrCodeValidation,
		},
		{
			name: "malformed transport",
			args: []string{"inspect", "***"},
			code: msigerrors.ErrCodeMalformedTransport,
		},
		{
			name: "unknown cluster",
			args: []string{"inspect", "AAAA", "--cluster", "moon"},
			code: msigerrors.ErrCodeConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.args...)
			require.Error(t, err)
			assert.True(t, msigerrors.IsCode(err, tc.code), err.Error())
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: msigerrors.NewValidationError("threshold must be at least 1"), want: 2},
		{name: "wrapped config", err: fmt.Errorf("resolve: %w", msigerrors.NewConfigError("unknown cluster")), want: 2},
		{name: "submission", err: msigerrors.NewSubmissionError("transaction rejected", nil), want: 1},
		{name: "device", err: msigerrors.NewDeviceError("failed to sign message", nil), want: 1},
		{name: "plain", err: errors.New("unknown flag: --moon"), want: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}

func TestMissingRequiredFlag(t *testing.T) {
	_, _, err := run(t, "approve", "--multisig", solana.NewWallet().PublicKey().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction")
}
