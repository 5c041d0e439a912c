// Package program is the off-chain view of the on-chain merkle-distributor
// program: program ID, PDA derivations, instruction encoding, and account
// layouts. Seed strings and byte layouts must match the program verbatim.
package program

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ID is the deployed merkle-distributor program.
var ID = solana.MustPublicKeyFromBase58("8LMVzwtrcVCLJPFfUFviqWv49WoyN1PKNLd9EDj4X4H4")

// PDA seed prefixes.
const (
	seedDistribution = "distribution"
	seedVault        = "vault"
	seedClaim        = "claim"
)

// anchorDiscriminator returns the 8-byte instruction or account
// discriminator: sha256("<namespace>:<name>")[:8].
func anchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var (
	initializeDiscriminator  = anchorDiscriminator("global", "initialize")
	claimDiscriminator       = anchorDiscriminator("global", "claim")
	setOperatorDiscriminator = anchorDiscriminator("global", "set_operator")
	pauseDiscriminator       = anchorDiscriminator("global", "pause")
	unpauseDiscriminator     = anchorDiscriminator("global", "unpause")
	clawbackDiscriminator    = anchorDiscriminator("global", "clawback")

	distributionAccountDiscriminator = anchorDiscriminator("account", "Distribution")
	claimRecordAccountDiscriminator  = anchorDiscriminator("account", "ClaimRecord")
)

// DistributionAddress derives the distribution account PDA from
// ("distribution", distribution_id).
func DistributionAddress(distributionID [32]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedDistribution), distributionID[:]}, ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive distribution address: %w", err)
	}
	return addr, nil
}

// VaultAddress derives the vault token account PDA from
// ("vault", distribution_id).
func VaultAddress(distributionID [32]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedVault), distributionID[:]}, ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive vault address: %w", err)
	}
	return addr, nil
}

// ClaimMarkerAddress derives the per-leaf uniqueness marker PDA from
// ("claim", distribution_pubkey, index_le_u64). Its existence on-chain means
// the leaf has been paid.
func ClaimMarkerAddress(distribution solana.PublicKey, index uint64) (solana.PublicKey, error) {
	var indexLE [8]byte
	binary.LittleEndian.PutUint64(indexLE[:], index)
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedClaim), distribution[:], indexLE[:]}, ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive claim marker address: %w", err)
	}
	return addr, nil
}
