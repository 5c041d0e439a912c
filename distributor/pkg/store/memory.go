package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/l33labs/merkle-distributor/distributor/pkg/artifact"
)

// Memory is an in-memory Store with the same transition guards as the
// Postgres backend. Used in unit tests and dry runs.
type Memory struct {
	clock clockwork.Clock

	mu            sync.Mutex
	claims        map[claimKey]*Claim
	distributions map[[32]byte]*Distribution
}

type claimKey struct {
	distributionID [32]byte
	index          uint64
}

func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:         clock,
		claims:        make(map[claimKey]*Claim),
		distributions: make(map[[32]byte]*Distribution),
	}
}

func (m *Memory) SeedFromArtifact(ctx context.Context, a *artifact.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now().UTC()
	if _, ok := m.distributions[a.DistributionID]; !ok {
		m.distributions[a.DistributionID] = &Distribution{
			ID:             a.DistributionID,
			RewardID:       a.RewardID,
			WindowID:       a.WindowID,
			Mint:           a.Mint,
			MerkleRoot:     a.MerkleRoot,
			RecipientCount: a.RecipientCount,
			TotalAmount:    a.TotalAmount,
			Status:         DistributionPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	for _, p := range a.Proofs {
		key := claimKey{a.DistributionID, p.Index}
		if _, ok := m.claims[key]; ok {
			continue
		}
		m.claims[key] = &Claim{
			DistributionID: a.DistributionID,
			Index:          p.Index,
			Recipient:      p.Recipient,
			Amount:         p.Amount,
			State:          ClaimPending,
		}
	}
	return nil
}

func (m *Memory) listByState(distributionID [32]byte, include func(*Claim) bool) []Claim {
	var out []Claim
	for key, claim := range m.claims {
		if key.distributionID != distributionID || !include(claim) {
			continue
		}
		out = append(out, *claim)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (m *Memory) NextPending(ctx context.Context, distributionID [32]byte, maxAttempts uint32) ([]Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listByState(distributionID, func(c *Claim) bool {
		return (c.State == ClaimPending || c.State == ClaimFailed) && c.Attempts < maxAttempts
	}), nil
}

func (m *Memory) ListSubmitted(ctx context.Context, distributionID [32]byte) ([]Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listByState(distributionID, func(c *Claim) bool {
		return c.State == ClaimSubmitted
	}), nil
}

func (m *Memory) claim(distributionID [32]byte, index uint64) (*Claim, error) {
	claim, ok := m.claims[claimKey{distributionID, index}]
	if !ok {
		return nil, fmt.Errorf("%w: (%x, %d)", ErrClaimNotFound, distributionID[:4], index)
	}
	return claim, nil
}

func (m *Memory) MarkSubmitted(ctx context.Context, distributionID [32]byte, index uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	claim, err := m.claim(distributionID, index)
	if err != nil {
		return err
	}
	if claim.State == ClaimConfirmed {
		return fmt.Errorf("%w: claim %d is confirmed", ErrInvalidTransition, index)
	}
	now := m.clock.Now().UTC()
	claim.State = ClaimSubmitted
	claim.Attempts++
	claim.LastAttemptAt = &now
	return nil
}

func (m *Memory) MarkConfirmed(ctx context.Context, distributionID [32]byte, index uint64, txReference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	claim, err := m.claim(distributionID, index)
	if err != nil {
		return err
	}
	if claim.State == ClaimConfirmed {
		return nil
	}
	now := m.clock.Now().UTC()
	claim.State = ClaimConfirmed
	claim.ConfirmedAt = &now
	claim.TxReference = &txReference
	claim.LastError = nil
	return nil
}

func (m *Memory) MarkFailed(ctx context.Context, distributionID [32]byte, index uint64, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	claim, err := m.claim(distributionID, index)
	if err != nil {
		return err
	}
	if claim.State == ClaimConfirmed {
		return fmt.Errorf("%w: claim %d is confirmed", ErrInvalidTransition, index)
	}
	claim.State = ClaimFailed
	claim.LastError = &errorMessage
	return nil
}

func (m *Memory) Requeue(ctx context.Context, distributionID [32]byte, index uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	claim, err := m.claim(distributionID, index)
	if err != nil {
		return err
	}
	if claim.State != ClaimSubmitted {
		return fmt.Errorf("%w: requeue from %s", ErrInvalidTransition, claim.State)
	}
	claim.State = ClaimPending
	return nil
}

func (m *Memory) GetClaim(ctx context.Context, distributionID [32]byte, index uint64) (*Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	claim, err := m.claim(distributionID, index)
	if err != nil {
		return nil, err
	}
	copied := *claim
	return &copied, nil
}

func (m *Memory) CountUnconfirmed(ctx context.Context, distributionID [32]byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count uint64
	for key, claim := range m.claims {
		if key.distributionID == distributionID && claim.State != ClaimConfirmed {
			count++
		}
	}
	return count, nil
}

func (m *Memory) GetDistribution(ctx context.Context, distributionID [32]byte) (*Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dist, ok := m.distributions[distributionID]
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrDistributionNotFound, distributionID[:4])
	}
	copied := *dist
	return &copied, nil
}

func (m *Memory) SetDistributionStatus(ctx context.Context, distributionID [32]byte, status DistributionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dist, ok := m.distributions[distributionID]
	if !ok {
		return fmt.Errorf("%w: %x", ErrDistributionNotFound, distributionID[:4])
	}
	dist.Status = status
	dist.UpdatedAt = m.clock.Now().UTC()
	return nil
}

var _ Store = (*Memory)(nil)
