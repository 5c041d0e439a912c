package merkle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func testLeaves(n int) [][32]byte {
	leaves := make([][32]byte, n)
	var id [32]byte
	for i := range leaves {
		recipient := solana.NewWallet().PublicKey()
		leaves[i] = Leaf(id, recipient, uint64(100*(i+1)))
	}
	return leaves
}

// referenceRoot recomputes the root level-by-level without the proof
// bookkeeping in Build, as an independent check of the folding rules.
func referenceRoot(leaves [][32]byte) [32]byte {
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		var next [][32]byte
		for i := 0; i < len(level); i += 2 {
			a := level[i]
			b := a
			if i+1 < len(level) {
				b = level[i+1]
			}
			if bytes.Compare(a[:], b[:]) > 0 {
				a, b = b, a
			}
			h := sha3.NewLegacyKeccak256()
			h.Write(a[:])
			h.Write(b[:])
			var node [32]byte
			h.Sum(node[:0])
			next = append(next, node)
		}
		level = next
	}
	return level[0]
}

func TestDistributor_Merkle_Leaf_Encoding(t *testing.T) {
	t.Parallel()

	var id [32]byte
	for i := range id {
		id[i] = byte(i)
	}
	recipient := solana.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")

	leaf := Leaf(id, recipient, 1000)

	// Rebuild the preimage by hand to pin the byte layout.
	var amountLE [8]byte
	binary.LittleEndian.PutUint64(amountLE[:], 1000)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("L33_MERKLE_V1"))
	h.Write(id[:])
	h.Write(recipient[:])
	h.Write(amountLE[:])
	var want [32]byte
	h.Sum(want[:0])

	require.Equal(t, want, leaf)
}

func TestDistributor_Merkle_Leaf_SensitiveToEveryInput(t *testing.T) {
	t.Parallel()

	var id [32]byte
	recipient := solana.NewWallet().PublicKey()
	base := Leaf(id, recipient, 1000)

	var id2 [32]byte
	id2[31] = 1
	require.NotEqual(t, base, Leaf(id2, recipient, 1000))
	require.NotEqual(t, base, Leaf(id, solana.NewWallet().PublicKey(), 1000))
	require.NotEqual(t, base, Leaf(id, recipient, 1001))
}

func TestDistributor_Merkle_DeriveDistributionID(t *testing.T) {
	t.Parallel()

	mint := solana.NewWallet().PublicKey().String()
	base := DeriveDistributionID("epoch-42", "2026-01", mint, 600)

	require.NotEqual(t, [32]byte{}, base)
	require.Equal(t, base, DeriveDistributionID("epoch-42", "2026-01", mint, 600))
	require.NotEqual(t, base, DeriveDistributionID("epoch-43", "2026-01", mint, 600))
	require.NotEqual(t, base, DeriveDistributionID("epoch-42", "2026-02", mint, 600))
	require.NotEqual(t, base, DeriveDistributionID("epoch-42", "2026-01", mint, 601))
	require.NotEqual(t, base, DeriveDistributionID("epoch-42", "2026-01", solana.NewWallet().PublicKey().String(), 600))
}

func TestDistributor_Merkle_Build_Empty(t *testing.T) {
	t.Parallel()

	_, _, err := Build(nil)
	require.ErrorIs(t, err, ErrEmptyLeaves)
}

func TestDistributor_Merkle_Build_SingleLeaf(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(1)
	root, proofs, err := Build(leaves)
	require.NoError(t, err)

	require.Equal(t, leaves[0], root, "single-leaf root is the leaf itself")
	require.Len(t, proofs, 1)
	require.Empty(t, proofs[0], "single-leaf proof is empty")
	require.True(t, VerifyProof(leaves[0], nil, root))
}

func TestDistributor_Merkle_Build_ThreeLeaves(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(3)
	root, proofs, err := Build(leaves)
	require.NoError(t, err)

	// Level 1: (L0,L1) paired canonically, L2 folded with itself.
	h01 := hashPair(leaves[0], leaves[1])
	h22 := hashPair(leaves[2], leaves[2])
	require.Equal(t, hashPair(h01, h22), root)

	// Proof for index 2 is [L2, H(L0,L1)]: the self-sibling first, then the
	// other branch.
	require.Equal(t, [][32]byte{leaves[2], h01}, proofs[2])

	for i, proof := range proofs {
		require.True(t, VerifyProof(leaves[i], proof, root), "proof %d", i)
	}
}

func TestDistributor_Merkle_Build_AllSizes(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 33; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			t.Parallel()

			leaves := testLeaves(n)
			root, proofs, err := Build(leaves)
			require.NoError(t, err)
			require.Equal(t, referenceRoot(leaves), root)
			require.Len(t, proofs, n)

			for i, proof := range proofs {
				require.True(t, VerifyProof(leaves[i], proof, root), "proof %d", i)
				if n > 1 {
					require.NotEmpty(t, proof)
				}
			}
		})
	}
}

func TestDistributor_Merkle_Build_Deterministic(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(17)
	root1, proofs1, err := Build(leaves)
	require.NoError(t, err)
	root2, proofs2, err := Build(leaves)
	require.NoError(t, err)

	require.Equal(t, root1, root2)
	require.Equal(t, proofs1, proofs2)
}

func TestDistributor_Merkle_HashPair_Commutative(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(2)
	require.Equal(t, hashPair(leaves[0], leaves[1]), hashPair(leaves[1], leaves[0]))
}

func TestDistributor_Merkle_VerifyProof_RejectsTampering(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(8)
	root, proofs, err := Build(leaves)
	require.NoError(t, err)

	// Flip one byte of one proof node.
	tampered := make([][32]byte, len(proofs[3]))
	copy(tampered, proofs[3])
	tampered[1][7] ^= 0x01
	require.False(t, VerifyProof(leaves[3], tampered, root))

	// Wrong root.
	badRoot := root
	badRoot[0] ^= 0x01
	require.False(t, VerifyProof(leaves[3], proofs[3], badRoot))

	// Wrong leaf.
	require.False(t, VerifyProof(leaves[4], proofs[3], root))
}

func TestDistributor_Merkle_VerifyProof_RejectsOverlongProof(t *testing.T) {
	t.Parallel()

	leaves := testLeaves(1)
	proof := make([][32]byte, MaxProofLen+1)
	require.False(t, VerifyProof(leaves[0], proof, leaves[0]))
}
