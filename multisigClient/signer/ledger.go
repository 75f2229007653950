package signer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	ledgergo "github.com/zondax/ledger-go"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// Solana Ledger app APDU constants.
const (
	cla            byte = 0xE0
	insGetPubkey   byte = 0x05
	insSignMessage byte = 0x06
	p1NonConfirm   byte = 0x00
	p1Confirm      byte = 0x01
	p2Extend       byte = 0x01
	p2More         byte = 0x02
	maxChunkSize        = 255
	maxMessageSize      = 0xFFFF
)

// ErrLedgerNotFound is the operator-facing message when no device is attached.
const ErrLedgerNotFound = "Ledger not found. Please, ensure that it is connected, unlocked, and the Solana app is opened"

// device is the exchange surface of a connected ledger-go transport.
type device interface {
	Exchange(command []byte) ([]byte, error)
	Close() error
}

// deviceAdmin enumerates and connects to attached devices.
type deviceAdmin interface {
	CountDevices() int
	Connect(deviceIndex int) (ledgergo.LedgerDevice, error)
}

// LedgerSigner signs on a Ledger device with the Solana app open.
type LedgerSigner struct {
	mu     sync.Mutex
	dev    device
	path   DerivationPath
	pubkey solana.PublicKey
	logger zerolog.Logger
}

var _ Signer = (*LedgerSigner)(nil)

// OpenLedger connects to the first attached Ledger and reads the key at m/44'/501'/<account>'.
func OpenLedger(account uint32, logger zerolog.Logger) (*LedgerSigner, error) {
	return openLedger(ledgergo.NewLedgerAdmin(), account, logger)
}

func openLedger(admin deviceAdmin, account uint32, logger zerolog.Logger) (*LedgerSigner, error) {
	log := logger.With().Str("component", "ledger_signer").Logger()

	count := admin.CountDevices()
	if count == 0 {
		return nil, msigerrors.NewDeviceNotFoundError(ErrLedgerNotFound)
	}
	if count > 1 {
		log.Warn().Int("devices", count).Msg("multiple Ledger devices attached, using the first")
	}

	dev, err := admin.Connect(0)
	if err != nil {
		return nil, msigerrors.NewMultisigError(msigerrors.ErrCodeDeviceNotFound, ErrLedgerNotFound, err)
	}
	return newLedgerSigner(dev, DerivationPath{Account: account}, log)
}

func newLedgerSigner(dev device, path DerivationPath, logger zerolog.Logger) (*LedgerSigner, error) {
	s := &LedgerSigner{dev: dev, path: path, logger: logger}
	pubkey, err := s.getPubkey()
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	s.pubkey = pubkey
	s.logger.Debug().Str("path", path.String()).Str("pubkey", pubkey.String()).Msg("ledger connected")
	return s, nil
}

func apdu(ins, p1, p2 byte, data []byte) []byte {
	cmd := make([]byte, 0, 5+len(data))
	cmd = append(cmd, cla, ins, p1, p2, byte(len(data)))
	return append(cmd, data...)
}

func (s *LedgerSigner) getPubkey() (solana.PublicKey, error) {
	resp, err := s.dev.Exchange(apdu(insGetPubkey, p1NonConfirm, 0, s.path.Serialize()))
	if err != nil {
		return solana.PublicKey{}, deviceError("failed to read public key", err)
	}
	if len(resp) != solana.PublicKeyLength {
		return solana.PublicKey{}, msigerrors.NewDeviceError(
			fmt.Sprintf("unexpected public key length %d", len(resp)), nil)
	}
	return solana.PublicKeyFromBytes(resp), nil
}

type signChunk struct {
	p2   byte
	data []byte
}

// signChunks splits the sign payload into APDU bodies. The first body carries the
// signer count and derivation path ahead of the message.
func (s *LedgerSigner) signChunks(message []byte) []signChunk {
	head := append([]byte{1}, s.path.Serialize()...)
	room := maxChunkSize - len(head)
	first, rest := message, []byte(nil)
	if len(message) > room {
		first, rest = message[:room], message[room:]
	}

	chunks := []signChunk{{data: append(head, first...)}}
	if len(rest) > 0 {
		chunks[0].p2 = p2More
	}
	for len(rest) > 0 {
		n := len(rest)
		if n > maxChunkSize {
			n = maxChunkSize
		}
		chunks = append(chunks, signChunk{p2: p2Extend | p2More, data: rest[:n]})
		rest = rest[n:]
	}
	if len(chunks) > 1 {
		chunks[len(chunks)-1].p2 &^= p2More
	}
	return chunks
}

func (s *LedgerSigner) PublicKey() solana.PublicKey { return s.pubkey }

func (s *LedgerSigner) IsInteractive() bool { return true }

// Path returns the derivation path the signer was opened with.
func (s *LedgerSigner) Path() DerivationPath { return s.path }

func (s *LedgerSigner) Sign(message []byte) (solana.Signature, error) {
	if len(message) > maxMessageSize {
		return solana.Signature{}, msigerrors.NewValidationError("message too long for Ledger signing").
			WithContext("length", len(message))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var resp []byte
	for i, c := range s.signChunks(message) {
		var err error
		resp, err = s.dev.Exchange(apdu(insSignMessage, p1Confirm, c.p2, c.data))
		if err != nil {
			return solana.Signature{}, deviceError("failed to sign message", err).WithContext("chunk", i)
		}
	}
	if len(resp) != 64 {
		return solana.Signature{}, msigerrors.NewDeviceError(
			fmt.Sprintf("unexpected signature length %d", len(resp)), nil)
	}
	return solana.SignatureFromBytes(resp), nil
}

func (s *LedgerSigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.Close()
}

var statusHints = []struct {
	markers []string
	hint    string
}{
	{[]string{"6985", "CONDITIONS_NOT_SATISFIED"}, "the request was rejected on the device"},
	{[]string{"6e00", "6d00", "6e01", "CLA_NOT_SUPPORTED", "INS_NOT_SUPPORTED"}, "open the Solana app on the device"},
	{[]string{"5515"}, "unlock the device"},
}

// deviceError keeps the device's own message and appends an operator hint for well-known status words.
func deviceError(message string, cause error) *msigerrors.MultisigError {
	err := msigerrors.NewDeviceError(message, cause)
	text := strings.ToLower(cause.Error())
	for _, h := range statusHints {
		for _, m := range h.markers {
			if strings.Contains(text, strings.ToLower(m)) {
				return err.WithContext("hint", h.hint)
			}
		}
	}
	return err
}
