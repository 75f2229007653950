package multisig

import (
	"encoding/binary"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// SPL token instruction tags.
const (
	tokenTransfer        byte = 3
	tokenTransferChecked byte = 12
)

// Transfer is a decoded SPL token Transfer or TransferChecked payload.
type Transfer struct {
	Amount  uint64
	Checked bool
}

// DestinationIndex is the position of the destination among the instruction's accounts:
// Transfer is [source, destination, owner], TransferChecked is [source, mint, destination, owner].
func (t Transfer) DestinationIndex() int {
	if t.Checked {
		return 2
	}
	return 1
}

// DecodeTransfer parses an SPL token Transfer or TransferChecked payload.
func DecodeTransfer(data []byte) (Transfer, error) {
	if len(data) == 0 {
		return Transfer{}, msigerrors.NewValidationError("transaction instruction is empty")
	}
	switch {
	case data[0] == tokenTransfer && len(data) == 9:
		return Transfer{Amount: binary.LittleEndian.Uint64(data[1:9])}, nil
	case data[0] == tokenTransferChecked && len(data) == 10:
		return Transfer{Amount: binary.LittleEndian.Uint64(data[1:9]), Checked: true}, nil
	}
	return Transfer{}, msigerrors.NewValidationError("transaction instruction is not transfer").
		WithContext("tag", data[0])
}

// DecodeTransferAmount extracts the base-unit amount from an SPL token Transfer or
// TransferChecked payload.
func DecodeTransferAmount(data []byte) (uint64, error) {
	t, err := DecodeTransfer(data)
	return t.Amount, err
}
