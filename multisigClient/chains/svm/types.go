package svm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Account sizes fixed by the programs that own them.
const (
	NonceAccountSize = 80
	TokenAccountSize = 165
	MintAccountSize  = 82
)

// NonceState values of a system nonce account.
const (
	NonceStateUninitialized uint32 = 0
	NonceStateInitialized   uint32 = 1
)

// AccountData is the raw content and owning program of an account.
type AccountData struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// NonceAccount is a decoded durable nonce account.
type NonceAccount struct {
	Address              solana.PublicKey
	Version              uint32
	State                uint32
	Authority            solana.PublicKey
	Nonce                solana.Hash
	LamportsPerSignature uint64
}

// TokenAccount is an SPL token account joined with the decimals of its mint.
type TokenAccount struct {
	Address  solana.PublicKey
	Mint     solana.PublicKey
	Owner    solana.PublicKey
	Amount   uint64
	Decimals uint8
}

// Balance returns the amount in human units.
func (t *TokenAccount) Balance() decimal.Decimal {
	return AmountToDecimal(t.Amount, t.Decimals)
}
