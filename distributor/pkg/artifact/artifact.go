// Package artifact builds and validates distribution artifacts: the
// serialized record of a committed payout round, holding the merkle root and
// one proof per recipient. The artifact is read-only after creation; the
// relayer consumes it, it never mutates it.
package artifact

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/l33labs/merkle-distributor/distributor/pkg/merkle"
)

// FormatVersion is bumped on any breaking change to the serialized layout.
const FormatVersion = "1"

var (
	ErrInvalidInput    = errors.New("artifact: invalid input")
	ErrOverflow        = errors.New("artifact: total amount overflows u64")
	ErrArtifactInvalid = errors.New("artifact: invalid artifact")
)

// Entry is one payout: a recipient and an amount in base units, at a fixed
// leaf position.
type Entry struct {
	Index     uint64
	Recipient solana.PublicKey
	Amount    uint64
}

// ProofEntry is one recipient's claim material.
type ProofEntry struct {
	Index     uint64
	Recipient solana.PublicKey
	Amount    uint64
	Proof     [][32]byte
}

// Artifact is the persisted distribution record.
type Artifact struct {
	FormatVersion     string
	CreatedAt         time.Time
	RewardID          string
	WindowID          string
	Mint              solana.PublicKey
	DistributionID    [32]byte
	MerkleRoot        [32]byte
	RecipientCount    uint64
	TotalAmount       uint64
	SourceFingerprint [32]byte
	Proofs            []ProofEntry
}

// BuildParams are the inputs to Build. Source is the canonical input payload
// as received (line-exact); its digest is recorded for operator audit.
type BuildParams struct {
	RewardID string
	WindowID string
	Mint     solana.PublicKey
	Entries  []Entry
	Source   []byte
	Now      time.Time
}

// Build assembles an artifact from a validated payout list.
func Build(params BuildParams) (*Artifact, error) {
	if params.RewardID == "" {
		return nil, fmt.Errorf("%w: reward id is required", ErrInvalidInput)
	}
	if params.WindowID == "" {
		return nil, fmt.Errorf("%w: window id is required", ErrInvalidInput)
	}
	if params.Mint.IsZero() {
		return nil, fmt.Errorf("%w: mint is required", ErrInvalidInput)
	}
	if len(params.Entries) == 0 {
		return nil, fmt.Errorf("%w: empty payout list", ErrInvalidInput)
	}

	entries := make([]Entry, len(params.Entries))
	copy(entries, params.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })

	var total uint64
	for i, entry := range entries {
		if entry.Index != uint64(i) {
			return nil, fmt.Errorf("%w: indices must be dense 0..%d, got %d at position %d",
				ErrInvalidInput, len(entries)-1, entry.Index, i)
		}
		if entry.Amount == 0 {
			return nil, fmt.Errorf("%w: zero amount at index %d", ErrInvalidInput, entry.Index)
		}
		if entry.Recipient.IsZero() {
			return nil, fmt.Errorf("%w: zero recipient at index %d", ErrInvalidInput, entry.Index)
		}
		if entry.Amount > math.MaxUint64-total {
			return nil, ErrOverflow
		}
		total += entry.Amount
	}

	distributionID := merkle.DeriveDistributionID(params.RewardID, params.WindowID, params.Mint.String(), total)

	leaves := make([][32]byte, len(entries))
	for i, entry := range entries {
		leaves[i] = merkle.Leaf(distributionID, entry.Recipient, entry.Amount)
	}

	root, proofs, err := merkle.Build(leaves)
	if err != nil {
		return nil, fmt.Errorf("failed to build merkle tree: %w", err)
	}

	proofEntries := make([]ProofEntry, len(entries))
	for i, entry := range entries {
		proofEntries[i] = ProofEntry{
			Index:     entry.Index,
			Recipient: entry.Recipient,
			Amount:    entry.Amount,
			Proof:     proofs[i],
		}
	}

	createdAt := params.Now
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &Artifact{
		FormatVersion:     FormatVersion,
		CreatedAt:         createdAt.UTC(),
		RewardID:          params.RewardID,
		WindowID:          params.WindowID,
		Mint:              params.Mint,
		DistributionID:    distributionID,
		MerkleRoot:        root,
		RecipientCount:    uint64(len(entries)),
		TotalAmount:       total,
		SourceFingerprint: merkle.Hash(params.Source),
		Proofs:            proofEntries,
	}, nil
}

// Validate checks the artifact invariants after loading. When verifyAll is
// set every proof is folded against the root; otherwise only the first and
// last are, which is enough for operator sanity checks.
func (a *Artifact) Validate(verifyAll bool) error {
	if a.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: unsupported format version %q", ErrArtifactInvalid, a.FormatVersion)
	}
	if a.DistributionID == ([32]byte{}) {
		return fmt.Errorf("%w: missing distribution id", ErrArtifactInvalid)
	}
	if a.MerkleRoot == ([32]byte{}) {
		return fmt.Errorf("%w: missing merkle root", ErrArtifactInvalid)
	}
	if uint64(len(a.Proofs)) != a.RecipientCount {
		return fmt.Errorf("%w: proof count %d != recipient count %d",
			ErrArtifactInvalid, len(a.Proofs), a.RecipientCount)
	}
	if len(a.Proofs) == 0 {
		return fmt.Errorf("%w: no proofs", ErrArtifactInvalid)
	}

	var total uint64
	for i, p := range a.Proofs {
		if p.Index != uint64(i) {
			return fmt.Errorf("%w: indices not a dense sorted permutation (got %d at position %d)",
				ErrArtifactInvalid, p.Index, i)
		}
		if p.Amount > math.MaxUint64-total {
			return fmt.Errorf("%w: amounts overflow u64", ErrArtifactInvalid)
		}
		total += p.Amount
	}
	if total != a.TotalAmount {
		return fmt.Errorf("%w: amounts sum to %d, total_amount is %d",
			ErrArtifactInvalid, total, a.TotalAmount)
	}

	check := func(i int) error {
		p := a.Proofs[i]
		leaf := merkle.Leaf(a.DistributionID, p.Recipient, p.Amount)
		if !merkle.VerifyProof(leaf, p.Proof, a.MerkleRoot) {
			return fmt.Errorf("%w: proof %d does not verify against root", ErrArtifactInvalid, p.Index)
		}
		return nil
	}

	if verifyAll {
		for i := range a.Proofs {
			if err := check(i); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(0); err != nil {
		return err
	}
	return check(len(a.Proofs) - 1)
}
