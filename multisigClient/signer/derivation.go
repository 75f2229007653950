package signer

import (
	"encoding/binary"
	"fmt"
)

const (
	hardened     uint32 = 0x80000000
	bip44Purpose uint32 = 44
	solanaCoin   uint32 = 501
)

// DerivationPath is the BIP44 path m/44'/501'/<account>' used by the Solana Ledger app.
type DerivationPath struct {
	Account uint32
}

func (p DerivationPath) components() []uint32 {
	return []uint32{bip44Purpose, solanaCoin, p.Account}
}

func (p DerivationPath) String() string {
	return fmt.Sprintf("m/%d'/%d'/%d'", bip44Purpose, solanaCoin, p.Account)
}

// Serialize renders the path the way the app expects it: component count, then each
// hardened component as a big-endian u32.
func (p DerivationPath) Serialize() []byte {
	parts := p.components()
	out := make([]byte, 1, 1+4*len(parts))
	out[0] = byte(len(parts))
	for _, c := range parts {
		out = binary.BigEndian.AppendUint32(out, c|hardened)
	}
	return out
}
