package multisig

import (
	"github.com/gagliardetto/solana-go"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// DeriveSigner derives the multisig's program-derived signer from seeds [multisig].
func DeriveSigner(multisig, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	address, bump, err := solana.FindProgramAddress([][]byte{multisig[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, msigerrors.NewInternalError("failed to derive multisig signer", err).
			WithContext("multisig", multisig.String())
	}
	return address, bump, nil
}
