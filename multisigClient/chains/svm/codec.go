package svm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// DecodeNonceAccount parses the versioned system nonce account layout:
// version u32, state u32, authority, durable nonce, lamports per signature u64.
func DecodeNonceAccount(address solana.PublicKey, data []byte) (*NonceAccount, error) {
	if len(data) < NonceAccountSize {
		return nil, fmt.Errorf("nonce account data too short: %d bytes", len(data))
	}
	dec := bin.NewBinDecoder(data)
	out := &NonceAccount{Address: address}
	var err error
	if out.Version, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if out.State, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	authority, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, fmt.Errorf("read authority: %w", err)
	}
	out.Authority = solana.PublicKeyFromBytes(authority)
	nonce, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	copy(out.Nonce[:], nonce)
	if out.LamportsPerSignature, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read fee calculator: %w", err)
	}
	return out, nil
}

// EncodeNonceAccount is the inverse of DecodeNonceAccount.
func EncodeNonceAccount(n *NonceAccount) []byte {
	buf := make([]byte, 0, NonceAccountSize)
	buf = binary.LittleEndian.AppendUint32(buf, n.Version)
	buf = binary.LittleEndian.AppendUint32(buf, n.State)
	buf = append(buf, n.Authority[:]...)
	buf = append(buf, n.Nonce[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, n.LamportsPerSignature)
	return buf
}

// decodeTokenAccountFields reads mint, owner and amount from the SPL token
// account layout; the remaining optional fields are not needed.
func decodeTokenAccountFields(data []byte) (mint, owner solana.PublicKey, amount uint64, err error) {
	if len(data) < TokenAccountSize {
		return mint, owner, 0, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	dec := bin.NewBinDecoder(data)
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return mint, owner, 0, err
	}
	mint = solana.PublicKeyFromBytes(raw)
	if raw, err = dec.ReadNBytes(solana.PublicKeyLength); err != nil {
		return mint, owner, 0, err
	}
	owner = solana.PublicKeyFromBytes(raw)
	amount, err = dec.ReadUint64(binary.LittleEndian)
	return mint, owner, amount, err
}

// decodeMintDecimals reads the decimals byte: mint authority COption (36), supply u64, decimals u8.
func decodeMintDecimals(data []byte) (uint8, error) {
	if len(data) < MintAccountSize {
		return 0, fmt.Errorf("mint data too short: %d bytes", len(data))
	}
	dec := bin.NewBinDecoder(data)
	if err := dec.SkipBytes(44); err != nil {
		return 0, err
	}
	return dec.ReadUint8()
}

// EncodeTokenAccount renders a minimal initialized token account (no delegate, not native).
func EncodeTokenAccount(mint, owner solana.PublicKey, amount uint64) []byte {
	buf := make([]byte, TokenAccountSize)
	copy(buf[0:32], mint[:])
	copy(buf[32:64], owner[:])
	binary.LittleEndian.PutUint64(buf[64:72], amount)
	buf[108] = 1 // AccountState::Initialized
	return buf
}

// EncodeMint renders a minimal initialized mint with the given decimals.
func EncodeMint(decimals uint8) []byte {
	buf := make([]byte, MintAccountSize)
	buf[44] = decimals
	buf[45] = 1
	return buf
}

// AmountToDecimal converts base units to human units.
func AmountToDecimal(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

// DecimalToAmount converts human units to base units, dropping digits beyond decimals.
// It fails when the value is negative or overflows u64.
func DecimalToAmount(value decimal.Decimal, decimals uint8) (uint64, error) {
	if value.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", value)
	}
	shifted := value.Shift(int32(decimals)).Truncate(0)
	bi := shifted.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows u64 base units", value)
	}
	return bi.Uint64(), nil
}
