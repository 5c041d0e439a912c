// Package merkle implements the canonical leaf encoding, tree construction,
// and proof verification shared with the on-chain distributor program. The
// byte layouts here must match the program exactly; a single-byte divergence
// breaks claim verification for every recipient.
package merkle

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/sha3"
)

const (
	// LeafDomainSeparator is mixed into every leaf digest. Changing it
	// invalidates all previously committed distributions.
	LeafDomainSeparator = "L33_MERKLE_V1"

	// DistributionIDTag is the domain tag for distribution identifier
	// derivation. Kept distinct from LeafDomainSeparator so identifier
	// preimages can never collide with leaf preimages.
	DistributionIDTag = "L33_DIST_ID_V1"

	// MaxProofLen bounds proof depth, supporting up to 2^20 recipients.
	// Must match the on-chain program.
	MaxProofLen = 20
)

// Hash is the single digest primitive used everywhere: Keccak-256, matching
// solana_program::keccak on-chain.
func Hash(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Leaf computes the digest for one payout entry:
// H(domain_separator || distribution_id || recipient || amount_le_u64).
// No framing or padding; concatenation order is fixed.
func Leaf(distributionID [32]byte, recipient solana.PublicKey, amount uint64) [32]byte {
	var amountLE [8]byte
	binary.LittleEndian.PutUint64(amountLE[:], amount)
	return Hash([]byte(LeafDomainSeparator), distributionID[:], recipient[:], amountLE[:])
}

// DeriveDistributionID derives the 32-byte distribution identifier from the
// identity tuple. The full digest is used verbatim; truncated identifiers are
// incompatible with the on-chain account layout.
func DeriveDistributionID(rewardID, windowID, mint string, totalAmount uint64) [32]byte {
	var totalLE [8]byte
	binary.LittleEndian.PutUint64(totalLE[:], totalAmount)
	return Hash([]byte(DistributionIDTag), []byte(rewardID), []byte(windowID), []byte(mint), totalLE[:])
}
