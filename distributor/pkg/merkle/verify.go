package merkle

// VerifyProof folds the proof into the leaf and accepts iff the result equals
// the expected root. Constant memory, no sibling-side branches; the canonical
// pair ordering in hashPair makes the fold position-independent. Mirrors the
// on-chain verifier, including the proof-depth bound.
func VerifyProof(leaf [32]byte, proof [][32]byte, root [32]byte) bool {
	if len(proof) > MaxProofLen {
		return false
	}
	current := leaf
	for _, sibling := range proof {
		current = hashPair(current, sibling)
	}
	return current == root
}
