package multisig

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	msigerrors "github.com/pushchain/svm-multisig/multisigClient/errors"
)

// Multisig is the on-chain multisig record.
type Multisig struct {
	Owners        []solana.PublicKey `json:"owners"`
	Threshold     uint64             `json:"threshold"`
	Nonce         uint8              `json:"nonce"`
	OwnerSetSeqno uint32             `json:"owner_set_seqno"`
}

// TransactionAccount is one account descriptor recorded in a proposal.
type TransactionAccount struct {
	Pubkey     solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"is_signer"`
	IsWritable bool             `json:"is_writable"`
}

// Transaction is the on-chain proposal record.
type Transaction struct {
	Multisig      solana.PublicKey     `json:"multisig"`
	ProgramID     solana.PublicKey     `json:"program_id"`
	Accounts      []TransactionAccount `json:"accounts"`
	Data          []byte               `json:"data"`
	Signers       []bool               `json:"signers"`
	DidExecute    bool                 `json:"did_execute"`
	OwnerSetSeqno uint32               `json:"owner_set_seqno"`
}

// Approvals counts the owners that have approved the proposal.
func (t *Transaction) Approvals() int {
	n := 0
	for _, s := range t.Signers {
		if s {
			n++
		}
	}
	return n
}

// accountDecoder reads borsh fields from account data, keeping the first error.
type accountDecoder struct {
	dec *bin.Decoder
	err error
}

func (d *accountDecoder) fail(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

func (d *accountDecoder) pubkey() solana.PublicKey {
	if d.err != nil {
		return solana.PublicKey{}
	}
	b, err := d.dec.ReadNBytes(solana.PublicKeyLength)
	d.fail(err)
	if err != nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (d *accountDecoder) u8() uint8 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint8()
	d.fail(err)
	return v
}

func (d *accountDecoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint32(binary.LittleEndian)
	d.fail(err)
	return v
}

func (d *accountDecoder) u64() uint64 {
	if d.err != nil {
		return 0
	}
	v, err := d.dec.ReadUint64(binary.LittleEndian)
	d.fail(err)
	return v
}

func (d *accountDecoder) boolean() bool {
	if d.err != nil {
		return false
	}
	v, err := d.dec.ReadBool()
	d.fail(err)
	return v
}

// vecLen reads a borsh vector length and rejects lengths the remaining data cannot hold.
func (d *accountDecoder) vecLen(elemSize int) int {
	n := d.u32()
	if d.err != nil {
		return 0
	}
	if uint64(n)*uint64(elemSize) > uint64(d.dec.Remaining()) {
		d.fail(fmt.Errorf("vector of %d elements exceeds account data", n))
		return 0
	}
	return int(n)
}

func (d *accountDecoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	b, err := d.dec.ReadNBytes(n)
	d.fail(err)
	return append([]byte(nil), b...)
}

func newAccountDecoder(kind string, data []byte) (*accountDecoder, error) {
	if len(data) < discriminatorLength {
		return nil, fmt.Errorf("account data too short")
	}
	if !bytes.Equal(data[:discriminatorLength], AccountDiscriminator(kind)) {
		return nil, fmt.Errorf("account discriminator does not match %s", kind)
	}
	return &accountDecoder{dec: bin.NewBinDecoder(data[discriminatorLength:])}, nil
}

func invalidAccount(kind string, address solana.PublicKey, cause error) error {
	return msigerrors.NewMultisigError(msigerrors.ErrCodeValidation,
		fmt.Sprintf("account is not a valid %s", kind), cause).
		WithContext("address", address.String())
}

// DecodeMultisig parses a multisig account.
func DecodeMultisig(address solana.PublicKey, data []byte) (*Multisig, error) {
	d, err := newAccountDecoder(AccountMultisig, data)
	if err != nil {
		return nil, invalidAccount(AccountMultisig, address, err)
	}
	out := &Multisig{}
	n := d.vecLen(solana.PublicKeyLength)
	for i := 0; i < n; i++ {
		out.Owners = append(out.Owners, d.pubkey())
	}
	out.Threshold = d.u64()
	out.Nonce = d.u8()
	out.OwnerSetSeqno = d.u32()
	if d.err != nil {
		return nil, invalidAccount(AccountMultisig, address, d.err)
	}
	return out, nil
}

// DecodeTransaction parses a proposal account.
func DecodeTransaction(address solana.PublicKey, data []byte) (*Transaction, error) {
	d, err := newAccountDecoder(AccountTransaction, data)
	if err != nil {
		return nil, invalidAccount(AccountTransaction, address, err)
	}
	out := &Transaction{
		Multisig:  d.pubkey(),
		ProgramID: d.pubkey(),
	}
	n := d.vecLen(solana.PublicKeyLength + 2)
	for i := 0; i < n; i++ {
		out.Accounts = append(out.Accounts, TransactionAccount{
			Pubkey:     d.pubkey(),
			IsSigner:   d.boolean(),
			IsWritable: d.boolean(),
		})
	}
	out.Data = d.bytes(d.vecLen(1))
	n = d.vecLen(1)
	for i := 0; i < n; i++ {
		out.Signers = append(out.Signers, d.boolean())
	}
	out.DidExecute = d.boolean()
	out.OwnerSetSeqno = d.u32()
	if d.err != nil {
		return nil, invalidAccount(AccountTransaction, address, d.err)
	}
	return out, nil
}

// EncodeMultisig renders m with its account discriminator.
func EncodeMultisig(m *Multisig) ([]byte, error) {
	a := newEncoder()
	a.raw(AccountDiscriminator(AccountMultisig)).u32(uint32(len(m.Owners)))
	for _, o := range m.Owners {
		a.pubkey(o)
	}
	a.u64(m.Threshold).u8(m.Nonce).u32(m.OwnerSetSeqno)
	return a.bytes()
}

// EncodeTransaction renders t with its account discriminator.
func EncodeTransaction(t *Transaction) ([]byte, error) {
	a := newEncoder()
	a.raw(AccountDiscriminator(AccountTransaction)).pubkey(t.Multisig).pubkey(t.ProgramID)
	writeTransactionAccounts(a, t.Accounts)
	a.vecBytes(t.Data).u32(uint32(len(t.Signers)))
	for _, s := range t.Signers {
		a.boolean(s)
	}
	a.boolean(t.DidExecute).u32(t.OwnerSetSeqno)
	return a.bytes()
}

func writeTransactionAccounts(a *argsEncoder, accounts []TransactionAccount) {
	a.u32(uint32(len(accounts)))
	for _, acc := range accounts {
		a.pubkey(acc.Pubkey).boolean(acc.IsSigner).boolean(acc.IsWritable)
	}
}
