package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/svm-multisig/multisigClient/config"
	"github.com/pushchain/svm-multisig/multisigClient/multisig"
	"github.com/pushchain/svm-multisig/multisigClient/workflow"
)

func sampleResult() *workflow.Result {
	return &workflow.Result{
		Operation:    multisig.OpApprove,
		Transport:    "AQIDBA==",
		Nonce:        "nonce-value",
		NonceAccount: "nonce-account",
		Signers: []workflow.SignerSlot{
			{Position: 0, Key: "payer-key", Role: workflow.RolePayer},
			{Position: 1, Key: "authority-key", Role: workflow.RoleNonceAuthority, Signature: "sig-1"},
		},
		Summary: []multisig.Field{{Label: "Multisig address", Value: "ms-key"}},
		TxID:    "txid-1",
	}
}

func TestPrinterResultText(t *testing.T) {
	var out, errOut bytes.Buffer
	NewPrinter(config.OutputText, &out, &errOut).Result(sampleResult())

	text := out.String()
	assert.Contains(t, text, "Approving a transaction with the following parameters:")
	assert.Contains(t, text, "Multisig address: ms-key")
	assert.Contains(t, text, "AQIDBA==")
	assert.Contains(t, text, "[0] payer-key (payer) pending")
	assert.Contains(t, text, "[1] authority-key (nonce_authority) sig-1")
	assert.Contains(t, text, "Transaction submitted: txid-1")
	assert.Empty(t, errOut.String())
}

func TestPrinterResultJSON(t *testing.T) {
	var out bytes.Buffer
	NewPrinter(config.OutputJSON, &out, &out).Result(sampleResult())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, multisig.OpApprove, decoded["operation"])
	assert.Equal(t, "txid-1", decoded["txid"])
	assert.Len(t, decoded["signers"], 2)
}

func TestPrinterPromptGoesToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	NewPrinter(config.OutputJSON, &out, &errOut).Prompt(ledgerPrompt, "key")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), ledgerPrompt)
}
