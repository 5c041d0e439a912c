// Package store is the durable claim-state layer. The relayer only ever
// talks to the Store interface; Postgres is the production backend and the
// in-memory implementation backs unit tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/l33labs/merkle-distributor/distributor/pkg/artifact"
)

var (
	ErrClaimNotFound        = errors.New("store: claim not found")
	ErrDistributionNotFound = errors.New("store: distribution not found")
	ErrInvalidTransition    = errors.New("store: invalid claim state transition")
)

// ClaimState is the per-claim lifecycle state.
type ClaimState string

const (
	ClaimPending   ClaimState = "pending"
	ClaimSubmitted ClaimState = "submitted"
	ClaimConfirmed ClaimState = "confirmed"
	ClaimFailed    ClaimState = "failed"
)

// DistributionStatus is the coarse per-distribution envelope state.
type DistributionStatus string

const (
	DistributionPending    DistributionStatus = "pending"
	DistributionFunded     DistributionStatus = "funded"
	DistributionActive     DistributionStatus = "active"
	DistributionCompleted  DistributionStatus = "completed"
	DistributionClawedBack DistributionStatus = "clawed_back"
)

// Claim is one recipient's payout state, keyed by (distribution_id, index).
type Claim struct {
	DistributionID [32]byte
	Index          uint64
	Recipient      solana.PublicKey
	Amount         uint64
	State          ClaimState
	Attempts       uint32
	LastAttemptAt  *time.Time
	ConfirmedAt    *time.Time
	TxReference    *string
	LastError      *string
}

// Distribution is the coarse record, one per committed payout round.
type Distribution struct {
	ID             [32]byte
	RewardID       string
	WindowID       string
	Mint           solana.PublicKey
	MerkleRoot     [32]byte
	RecipientCount uint64
	TotalAmount    uint64
	Status         DistributionStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Store is the narrow claim-store contract. All mutations are atomic at
// single-record granularity; batches never need an enclosing transaction
// because the relayer reconciles partial progress against ledger truth.
//
// State guards enforced by every implementation:
//   - confirmed is terminal: no transition out, confirmed_at set at most once;
//   - attempts is incremented exactly once per MarkSubmitted;
//   - Requeue only moves submitted back to pending (ledger said not claimed).
type Store interface {
	// SeedFromArtifact upserts the distribution record and inserts one
	// pending claim per proof. Idempotent on (distribution_id, index).
	SeedFromArtifact(ctx context.Context, a *artifact.Artifact) error

	// NextPending returns claims in state pending or failed with
	// attempts < maxAttempts, ordered by index.
	NextPending(ctx context.Context, distributionID [32]byte, maxAttempts uint32) ([]Claim, error)

	// ListSubmitted returns claims stuck in submitted, ordered by index.
	// These are reconciled against the chain before any new submission.
	ListSubmitted(ctx context.Context, distributionID [32]byte) ([]Claim, error)

	MarkSubmitted(ctx context.Context, distributionID [32]byte, index uint64) error
	MarkConfirmed(ctx context.Context, distributionID [32]byte, index uint64, txReference string) error
	MarkFailed(ctx context.Context, distributionID [32]byte, index uint64, errorMessage string) error

	// Requeue moves a submitted claim back to pending after the chain
	// reported no uniqueness marker for it.
	Requeue(ctx context.Context, distributionID [32]byte, index uint64) error

	GetClaim(ctx context.Context, distributionID [32]byte, index uint64) (*Claim, error)
	CountUnconfirmed(ctx context.Context, distributionID [32]byte) (uint64, error)

	GetDistribution(ctx context.Context, distributionID [32]byte) (*Distribution, error)
	SetDistributionStatus(ctx context.Context, distributionID [32]byte, status DistributionStatus) error
}
