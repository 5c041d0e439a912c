package merkle

import (
	"bytes"
	"errors"
)

var ErrEmptyLeaves = errors.New("merkle: empty leaf sequence")

// hashPair combines two sibling nodes canonically: the lexicographically
// smaller node goes first. This lets the verifier fold proofs without
// carrying sibling-side bits.
func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Hash(a[:], b[:])
}

// Build constructs the tree over the ordered leaf sequence and returns the
// root plus one proof per leaf, indexed by leaf position.
//
// Odd-length levels duplicate their last node: parent = H(last || last). The
// proof entry recorded for such a node is the node itself, which keeps the
// verifier's folding rule unconditional. A single-leaf tree's root is the
// leaf itself and its proof is empty.
func Build(leaves [][32]byte) ([32]byte, [][][32]byte, error) {
	if len(leaves) == 0 {
		return [32]byte{}, nil, ErrEmptyLeaves
	}

	proofs := make([][][32]byte, len(leaves))

	level := make([][32]byte, len(leaves))
	copy(level, leaves)

	// positions[i] tracks where leaf i currently sits in the level.
	positions := make([]int, len(leaves))
	for i := range positions {
		positions[i] = i
	}

	for len(level) > 1 {
		for leafIdx, pos := range positions {
			sibling := pos ^ 1
			if sibling >= len(level) {
				// Last node of an odd-length level pairs with itself.
				sibling = pos
			}
			proofs[leafIdx] = append(proofs[leafIdx], level[sibling])
		}

		next := make([][32]byte, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := i
			if i+1 < len(level) {
				right = i + 1
			}
			next[i/2] = hashPair(level[i], level[right])
		}

		for i := range positions {
			positions[i] /= 2
		}
		level = next
	}

	return level[0], proofs, nil
}
