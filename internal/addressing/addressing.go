// Package addressing derives record addresses from their logical keys.
//
// Pools, receipts and vaults are addressable from public inputs alone: any
// party can recompute the address a record must live at, and every operation
// validates a caller-supplied address against the recomputed one instead of
// trusting it as an opaque lookup key.
package addressing

import (
	"encoding/binary"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Seed tags keep the derivation domains disjoint.
const (
	seedPool    = "POOL"
	seedReceipt = "RECEIPT"
	seedVault   = "VAULT"
)

// derive hashes the seed parts with Keccak-256 and folds the digest into a
// 20-byte hex address.
func derive(parts ...[]byte) string {
	h := crypto.Keccak256(parts...)
	return common.BytesToAddress(h[12:]).Hex()
}

func idBytes(id uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return b[:]
}

// PoolAddress derives the address of the pool created by admin with the
// given identifier.
func PoolAddress(admin string, id uint64) string {
	return derive([]byte(seedPool), common.HexToAddress(admin).Bytes(), idBytes(id))
}

// ReceiptAddress derives the address of owner's receipt for the given pool.
// Seeding with the pool address rather than its numeric id keeps receipts
// distinct even when two admins hold the same pool id.
func ReceiptAddress(owner string, poolAddress string) string {
	return derive([]byte(seedReceipt), common.HexToAddress(owner).Bytes(), common.HexToAddress(poolAddress).Bytes())
}

// VaultAddress derives the escrow account address for a pool.
func VaultAddress(poolAddress string) string {
	return derive([]byte(seedVault), common.HexToAddress(poolAddress).Bytes())
}

// IsValidAddress reports whether s is a well-formed 20-byte hex address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// Equal compares two hex addresses case-insensitively.
func Equal(a, b string) bool {
	return common.IsHexAddress(a) && common.IsHexAddress(b) &&
		strings.EqualFold(common.HexToAddress(a).Hex(), common.HexToAddress(b).Hex())
}

// Normalize returns the checksummed form of a hex address.
func Normalize(s string) string {
	return common.HexToAddress(s).Hex()
}
