package multisig

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Description is a human readable rendering of one compiled instruction.
type Description struct {
	Program  string   `json:"program"`
	Name     string   `json:"name"`
	Details  []Field  `json:"details,omitempty"`
	Accounts []string `json:"accounts"`
}

// DescribeInstruction names an instruction of the system, SPL token or multisig program and
// decodes the arguments an operator needs to review before signing.
func DescribeInstruction(msg *solana.Message, ix solana.CompiledInstruction, multisigProgram solana.PublicKey) Description {
	program, err := msg.Program(ix.ProgramIDIndex)
	if err != nil {
		return Description{Program: "?", Name: "invalid program index"}
	}
	accounts := make([]solana.PublicKey, 0, len(ix.Accounts))
	d := Description{Program: program.String(), Name: "unknown"}
	for _, idx := range ix.Accounts {
		if int(idx) < len(msg.AccountKeys) {
			accounts = append(accounts, msg.AccountKeys[idx])
			d.Accounts = append(d.Accounts, msg.AccountKeys[idx].String())
		}
	}
	data := []byte(ix.Data)

	switch {
	case program.Equals(solana.SystemProgramID):
		d.Program = "system"
		describeSystem(&d, accounts, data)
	case program.Equals(solana.TokenProgramID):
		d.Program = "spl-token"
		describeToken(&d, data)
	case program.Equals(multisigProgram):
		d.Program = "multisig"
		describeMultisig(&d, accounts, data)
	}
	return d
}

func (d *Description) add(label, value string) {
	d.Details = append(d.Details, Field{Label: label, Value: value})
}

func describeSystem(d *Description, accounts []solana.PublicKey, data []byte) {
	if len(data) < 4 {
		return
	}
	switch binary.LittleEndian.Uint32(data) {
	case system.Instruction_CreateAccount:
		d.Name = "CreateAccount"
		if len(data) >= 4+8+8+32 {
			d.add("lamports", fmt.Sprintf("%d", binary.LittleEndian.Uint64(data[4:12])))
			d.add("space", fmt.Sprintf("%d", binary.LittleEndian.Uint64(data[12:20])))
			d.add("owner", solana.PublicKeyFromBytes(data[20:52]).String())
		}
		if len(accounts) >= 2 {
			d.add("funder", accounts[0].String())
			d.add("new account", accounts[1].String())
		}
	case system.Instruction_Transfer:
		d.Name = "Transfer"
		if len(data) >= 12 {
			d.add("lamports", fmt.Sprintf("%d", binary.LittleEndian.Uint64(data[4:12])))
		}
	case system.Instruction_AdvanceNonceAccount:
		d.Name = "AdvanceNonceAccount"
		if len(accounts) >= 3 {
			d.add("nonce account", accounts[0].String())
			d.add("authority", accounts[2].String())
		}
	}
}

func describeToken(d *Description, data []byte) {
	if len(data) == 0 {
		return
	}
	switch data[0] {
	case tokenTransfer:
		d.Name = "Transfer"
	case tokenTransferChecked:
		d.Name = "TransferChecked"
	default:
		return
	}
	if amount, err := DecodeTransferAmount(data); err == nil {
		d.add("amount (base units)", fmt.Sprintf("%d", amount))
	}
}

func describeMultisig(d *Description, accounts []solana.PublicKey, data []byte) {
	name, ok := instructionName(data)
	if !ok {
		return
	}
	d.Name = name
	r := &accountDecoder{dec: bin.NewBinDecoder(data[discriminatorLength:])}

	switch name {
	case InstructionCreateMultisig:
		n := r.vecLen(solana.PublicKeyLength)
		for i := 0; i < n; i++ {
			d.add("owner", r.pubkey().String())
		}
		threshold := r.u64()
		bump := r.u8()
		if r.err == nil {
			d.add("threshold", fmt.Sprintf("%d", threshold))
			d.add("signer bump", fmt.Sprintf("%d", bump))
		}
	case InstructionCreateTransaction:
		pid := r.pubkey()
		n := r.vecLen(solana.PublicKeyLength + 2)
		recorded := make([]TransactionAccount, 0, n)
		for i := 0; i < n; i++ {
			recorded = append(recorded, TransactionAccount{Pubkey: r.pubkey(), IsSigner: r.boolean(), IsWritable: r.boolean()})
		}
		payload := r.bytes(r.vecLen(1))
		if r.err != nil {
			return
		}
		d.add("target program", pid.String())
		for i, acc := range recorded {
			d.add(fmt.Sprintf("target account %d", i), acc.Pubkey.String())
		}
		if pid.Equals(solana.TokenProgramID) {
			if amount, err := DecodeTransferAmount(payload); err == nil {
				d.add("transfer amount (base units)", fmt.Sprintf("%d", amount))
			}
		}
	}
	if len(accounts) > 0 {
		d.add("multisig", accounts[0].String())
	}
}
