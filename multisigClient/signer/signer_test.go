package signer

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ledgergo "github.com/zondax/ledger-go"

	"github.com/pushchain/svm-multisig/multisigClient/config"
	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

func writeKeygenFile(t *testing.T, key solana.PrivateKey) string {
	t.Helper()
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFileSigner(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	message := []byte("nonce anchored message")

	testCases := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "solana-keygen JSON array",
			path: func(t *testing.T) string { return writeKeygenFile(t, key) },
		},
		{
			name: "base58 secret key with trailing newline",
			path: func(t *testing.T) string { return writeFile(t, base58.Encode(key)+"\n") },
		},
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.json") },
			wantErr: true,
		},
		{
			name:    "empty file",
			path:    func(t *testing.T) string { return writeFile(t, "  \n") },
			wantErr: true,
		},
		{
			name:    "not base58",
			path:    func(t *testing.T) string { return writeFile(t, "0OIl") },
			wantErr: true,
		},
		{
			name:    "32-byte seed only",
			path:    func(t *testing.T) string { return writeFile(t, base58.Encode(key[:32])) },
			wantErr: true,
		},
		{
			name: "public half does not match",
			path: func(t *testing.T) string {
				bad := append(solana.PrivateKey(nil), key...)
				bad[63] ^= 0xFF
				return writeFile(t, base58.Encode(bad))
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := LoadFileSigner(tc.path(t))
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeValidation))
				assert.Contains(t, err.Error(), "invalid key file")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, key.PublicKey(), s.PublicKey())
			assert.False(t, s.IsInteractive())

			sig, err := s.Sign(message)
			require.NoError(t, err)
			assert.True(t, sig.Verify(key.PublicKey(), message))

			again, err := s.Sign(message)
			require.NoError(t, err)
			assert.Equal(t, sig, again, "ed25519 signatures are deterministic")
			assert.NoError(t, s.Close())
		})
	}
}

func TestLoad(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	t.Run("key file", func(t *testing.T) {
		s, err := Load(&config.Config{PrivateKey: writeKeygenFile(t, key)}, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey(), s.PublicKey())
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := Load(&config.Config{}, zerolog.Nop())
		require.Error(t, err)
		assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeValidation))
		assert.Contains(t, err.Error(), "private-key is required")
	})
}

func TestDerivationPath(t *testing.T) {
	p := DerivationPath{Account: 2}
	assert.Equal(t, "m/44'/501'/2'", p.String())
	assert.Equal(t, []byte{
		3,
		0x80, 0x00, 0x00, 0x2C,
		0x80, 0x00, 0x01, 0xF5,
		0x80, 0x00, 0x00, 0x02,
	}, p.Serialize())
	assert.Equal(t, p.Serialize(), DerivationPath{Account: 2}.Serialize())
}

// fakeLedger emulates the Solana app: it answers GET_PUBKEY and reassembles
// SIGN_MESSAGE chunks before signing with its key.
type fakeLedger struct {
	key      solana.PrivateKey
	commands [][]byte
	pending  []byte
	signErr  error
	pubErr   error
	closed   bool
}

func (f *fakeLedger) Exchange(cmd []byte) ([]byte, error) {
	f.commands = append(f.commands, append([]byte(nil), cmd...))
	ins, p2, body := cmd[1], cmd[3], cmd[5:]
	switch ins {
	case insGetPubkey:
		if f.pubErr != nil {
			return nil, f.pubErr
		}
		pk := f.key.PublicKey()
		return pk[:], nil
	case insSignMessage:
		if f.signErr != nil {
			return nil, f.signErr
		}
		if p2&p2Extend == 0 {
			// signer count + 13 byte path
			f.pending = append([]byte(nil), body[14:]...)
		} else {
			f.pending = append(f.pending, body...)
		}
		if p2&p2More != 0 {
			return []byte{}, nil
		}
		sig, err := f.key.Sign(f.pending)
		if err != nil {
			return nil, err
		}
		return sig[:], nil
	}
	return nil, errors.New("[APDU_CODE_INS_NOT_SUPPORTED] Instruction code not supported or invalid")
}

func (f *fakeLedger) Close() error {
	f.closed = true
	return nil
}

type fakeAdmin struct {
	devices []*fakeLedger
}

func (a *fakeAdmin) CountDevices() int { return len(a.devices) }

func (a *fakeAdmin) Connect(i int) (ledgergo.LedgerDevice, error) {
	if i >= len(a.devices) {
		return nil, errors.New("no device")
	}
	return a.devices[i], nil
}

func TestOpenLedger(t *testing.T) {
	t.Run("no device attached", func(t *testing.T) {
		_, err := openLedger(&fakeAdmin{}, 0, zerolog.Nop())
		require.Error(t, err)
		assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeDeviceNotFound))
		assert.Contains(t, err.Error(), ErrLedgerNotFound)
	})

	t.Run("app not open", func(t *testing.T) {
		dev := &fakeLedger{
			key:    solana.NewWallet().PrivateKey,
			pubErr: errors.New("[APDU_CODE_CLA_NOT_SUPPORTED] Class not supported"),
		}
		_, err := openLedger(&fakeAdmin{devices: []*fakeLedger{dev}}, 0, zerolog.Nop())
		require.Error(t, err)
		assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeDevice))
		assert.Contains(t, err.Error(), "open the Solana app")
		assert.True(t, dev.closed)
	})

	t.Run("connects to first device", func(t *testing.T) {
		dev := &fakeLedger{key: solana.NewWallet().PrivateKey}
		s, err := openLedger(&fakeAdmin{devices: []*fakeLedger{dev}}, 5, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, dev.key.PublicKey(), s.PublicKey())
		assert.True(t, s.IsInteractive())
		assert.Equal(t, "m/44'/501'/5'", s.Path().String())

		require.Len(t, dev.commands, 1)
		assert.Equal(t, []byte{cla, insGetPubkey, p1NonConfirm, 0, 13}, dev.commands[0][:5])
		require.NoError(t, s.Close())
		assert.True(t, dev.closed)
	})
}

func TestLedgerSign(t *testing.T) {
	testCases := []struct {
		name      string
		size      int
		wantP2    []byte
		wantSizes []int
	}{
		{name: "single chunk", size: 200, wantP2: []byte{0}, wantSizes: []int{214}},
		{name: "exactly fills first chunk", size: 241, wantP2: []byte{0}, wantSizes: []int{255}},
		{name: "three chunks", size: 600, wantP2: []byte{p2More, p2Extend | p2More, p2Extend}, wantSizes: []int{255, 255, 104}},
		{name: "two chunks", size: 300, wantP2: []byte{p2More, p2Extend}, wantSizes: []int{255, 59}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dev := &fakeLedger{key: solana.NewWallet().PrivateKey}
			s, err := newLedgerSigner(dev, DerivationPath{Account: 0}, zerolog.Nop())
			require.NoError(t, err)
			dev.commands = nil

			message := make([]byte, tc.size)
			for i := range message {
				message[i] = byte(i)
			}
			sig, err := s.Sign(message)
			require.NoError(t, err)
			assert.True(t, sig.Verify(dev.key.PublicKey(), message))

			require.Len(t, dev.commands, len(tc.wantP2))
			for i, cmd := range dev.commands {
				assert.Equal(t, insSignMessage, cmd[1])
				assert.Equal(t, p1Confirm, cmd[2])
				assert.Equal(t, tc.wantP2[i], cmd[3], "p2 of chunk %d", i)
				assert.Equal(t, tc.wantSizes[i], int(cmd[4]))
				assert.Len(t, cmd[5:], tc.wantSizes[i])
			}
		})
	}

	t.Run("user rejects", func(t *testing.T) {
		dev := &fakeLedger{key: solana.NewWallet().PrivateKey}
		s, err := newLedgerSigner(dev, DerivationPath{}, zerolog.Nop())
		require.NoError(t, err)
		dev.signErr = errors.New("[APDU_CODE_CONDITIONS_NOT_SATISFIED] Conditions of use not satisfied")

		_, err = s.Sign([]byte("msg"))
		require.Error(t, err)
		assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeDevice))
		assert.Contains(t, err.Error(), "Conditions of use not satisfied")
		assert.Contains(t, err.Error(), "rejected on the device")
	})

	t.Run("message too long", func(t *testing.T) {
		dev := &fakeLedger{key: solana.NewWallet().PrivateKey}
		s, err := newLedgerSigner(dev, DerivationPath{}, zerolog.Nop())
		require.NoError(t, err)

		_, err = s.Sign(make([]byte, maxMessageSize+1))
		assert.True(t, msigerrors.IsCode(err, msigerrors.ErrCodeValidation))
	})
}
