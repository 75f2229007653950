package multisig

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction names of the multisig program.
const (
	InstructionCreateMultisig     = "create_multisig"
	InstructionCreateTransaction  = "create_transaction"
	InstructionApprove            = "approve"
	InstructionExecuteTransaction = "execute_transaction"
)

// Account type names of the multisig program.
const (
	AccountMultisig    = "Multisig"
	AccountTransaction = "Transaction"
)

const discriminatorLength = 8

// InstructionDiscriminator is the first 8 bytes of sha256("global:<name>").
func InstructionDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:discriminatorLength]
}

// AccountDiscriminator is the first 8 bytes of sha256("account:<Type>").
func AccountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:discriminatorLength]
}

// instructionName resolves a discriminator back to the instruction name.
func instructionName(data []byte) (string, bool) {
	if len(data) < discriminatorLength {
		return "", false
	}
	for _, name := range []string{
		InstructionCreateMultisig,
		InstructionCreateTransaction,
		InstructionApprove,
		InstructionExecuteTransaction,
	} {
		if bytes.Equal(data[:discriminatorLength], InstructionDiscriminator(name)) {
			return name, true
		}
	}
	return "", false
}

// argsEncoder writes borsh encoded instruction arguments after the discriminator.
type argsEncoder struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func newEncoder() *argsEncoder {
	buf := new(bytes.Buffer)
	return &argsEncoder{buf: buf, enc: bin.NewBinEncoder(buf)}
}

func newArgs(instruction string) *argsEncoder {
	return newEncoder().raw(InstructionDiscriminator(instruction))
}

func (a *argsEncoder) raw(b []byte) *argsEncoder {
	if a.err == nil {
		a.err = a.enc.WriteBytes(b, false)
	}
	return a
}

func (a *argsEncoder) u8(v uint8) *argsEncoder {
	if a.err == nil {
		a.err = a.enc.WriteUint8(v)
	}
	return a
}

func (a *argsEncoder) u32(v uint32) *argsEncoder {
	if a.err == nil {
		a.err = a.enc.WriteUint32(v, binary.LittleEndian)
	}
	return a
}

func (a *argsEncoder) u64(v uint64) *argsEncoder {
	if a.err == nil {
		a.err = a.enc.WriteUint64(v, binary.LittleEndian)
	}
	return a
}

func (a *argsEncoder) boolean(v bool) *argsEncoder {
	if a.err == nil {
		a.err = a.enc.WriteBool(v)
	}
	return a
}

func (a *argsEncoder) pubkey(pk solana.PublicKey) *argsEncoder {
	return a.raw(pk[:])
}

// vecBytes writes a borsh Vec<u8>: u32 length then the bytes.
func (a *argsEncoder) vecBytes(b []byte) *argsEncoder {
	return a.u32(uint32(len(b))).raw(b)
}

func (a *argsEncoder) bytes() ([]byte, error) {
	return a.buf.Bytes(), a.err
}
