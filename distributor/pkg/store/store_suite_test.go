package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/l33labs/merkle-distributor/distributor/pkg/artifact"
	"github.com/l33labs/merkle-distributor/distributor/pkg/store"
)

func buildTestArtifact(t *testing.T, n int) *artifact.Artifact {
	t.Helper()
	entries := make([]artifact.Entry, n)
	for i := range entries {
		entries[i] = artifact.Entry{
			Index:     uint64(i),
			Recipient: solana.NewWallet().PublicKey(),
			Amount:    uint64(100 * (i + 1)),
		}
	}
	a, err := artifact.Build(artifact.BuildParams{
		RewardID: "epoch-1",
		WindowID: "w1",
		Mint:     solana.NewWallet().PublicKey(),
		Entries:  entries,
		Source:   []byte("test\n"),
		Now:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return a
}

// runStoreSuite exercises the Store contract against any implementation.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("seed is idempotent", func(t *testing.T) {
		s := newStore(t)
		a := buildTestArtifact(t, 3)

		require.NoError(t, s.SeedFromArtifact(ctx, a))
		require.NoError(t, s.SeedFromArtifact(ctx, a))

		claims, err := s.NextPending(ctx, a.DistributionID, 3)
		require.NoError(t, err)
		require.Len(t, claims, 3)
		for i, claim := range claims {
			require.Equal(t, uint64(i), claim.Index)
			require.Equal(t, store.ClaimPending, claim.State)
			require.Zero(t, claim.Attempts)
		}

		dist, err := s.GetDistribution(ctx, a.DistributionID)
		require.NoError(t, err)
		require.Equal(t, store.DistributionPending, dist.Status)
		require.Equal(t, a.TotalAmount, dist.TotalAmount)
		require.Equal(t, a.MerkleRoot, dist.MerkleRoot)
	})

	t.Run("submit confirm lifecycle", func(t *testing.T) {
		s := newStore(t)
		a := buildTestArtifact(t, 2)
		require.NoError(t, s.SeedFromArtifact(ctx, a))

		require.NoError(t, s.MarkSubmitted(ctx, a.DistributionID, 0))
		claim, err := s.GetClaim(ctx, a.DistributionID, 0)
		require.NoError(t, err)
		require.Equal(t, store.ClaimSubmitted, claim.State)
		require.Equal(t, uint32(1), claim.Attempts)
		require.NotNil(t, claim.LastAttemptAt)

		require.NoError(t, s.MarkConfirmed(ctx, a.DistributionID, 0, "sig-1"))
		claim, err = s.GetClaim(ctx, a.DistributionID, 0)
		require.NoError(t, err)
		require.Equal(t, store.ClaimConfirmed, claim.State)
		require.NotNil(t, claim.ConfirmedAt)
		require.NotNil(t, claim.TxReference)
		require.Equal(t, "sig-1", *claim.TxReference)

		count, err := s.CountUnconfirmed(ctx, a.DistributionID)
		require.NoError(t, err)
		require.Equal(t, uint64(1), count)
	})

	t.Run("confirmed is terminal", func(t *testing.T) {
		s := newStore(t)
		a := buildTestArtifact(t, 1)
		require.NoError(t, s.SeedFromArtifact(ctx, a))

		require.NoError(t, s.MarkSubmitted(ctx, a.DistributionID, 0))
		require.NoError(t, s.MarkConfirmed(ctx, a.DistributionID, 0, "sig-1"))

		claim, err := s.GetClaim(ctx, a.DistributionID, 0)
		require.NoError(t, err)
		firstConfirmedAt := *claim.ConfirmedAt

		// Re-confirming is a no-op; submitting or failing is rejected.
		require.NoError(t, s.MarkConfirmed(ctx, a.DistributionID, 0, "sig-2"))
		require.ErrorIs(t, s.MarkSubmitted(ctx, a.DistributionID, 0), store.ErrInvalidTransition)
		require.ErrorIs(t, s.MarkFailed(ctx, a.DistributionID, 0, "boom"), store.ErrInvalidTransition)

		claim, err = s.GetClaim(ctx, a.DistributionID, 0)
		require.NoError(t, err)
		require.Equal(t, store.ClaimConfirmed, claim.State)
		require.Equal(t, "sig-1", *claim.TxReference)
		require.Equal(t, firstConfirmedAt, *claim.ConfirmedAt)
		require.Equal(t, uint32(1), claim.Attempts)
	})

	t.Run("failed claims retry until max attempts", func(t *testing.T) {
		s := newStore(t)
		a := buildTestArtifact(t, 1)
		require.NoError(t, s.SeedFromArtifact(ctx, a))

		const maxAttempts = 3
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			claims, err := s.NextPending(ctx, a.DistributionID, maxAttempts)
			require.NoError(t, err)
			require.Len(t, claims, 1, "attempt %d", attempt)

			require.NoError(t, s.MarkSubmitted(ctx, a.DistributionID, 0))
			require.NoError(t, s.MarkFailed(ctx, a.DistributionID, 0, "transport failure"))

			claim, err := s.GetClaim(ctx, a.DistributionID, 0)
			require.NoError(t, err)
			require.Equal(t, uint32(attempt), claim.Attempts)
			require.Equal(t, "transport failure", *claim.LastError)
		}

		// Attempts exhausted: no longer eligible.
		claims, err := s.NextPending(ctx, a.DistributionID, maxAttempts)
		require.NoError(t, err)
		require.Empty(t, claims)
	})

	t.Run("requeue only from submitted", func(t *testing.T) {
		s := newStore(t)
		a := buildTestArtifact(t, 1)
		require.NoError(t, s.SeedFromArtifact(ctx, a))

		require.ErrorIs(t, s.Requeue(ctx, a.DistributionID, 0), store.ErrInvalidTransition)

		require.NoError(t, s.MarkSubmitted(ctx, a.DistributionID, 0))
		list, err := s.ListSubmitted(ctx, a.DistributionID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		require.NoError(t, s.Requeue(ctx, a.DistributionID, 0))
		claim, err := s.GetClaim(ctx, a.DistributionID, 0)
		require.NoError(t, err)
		require.Equal(t, store.ClaimPending, claim.State)
		require.Equal(t, uint32(1), claim.Attempts, "requeue keeps the attempt count")
	})

	t.Run("distribution status transitions", func(t *testing.T) {
		s := newStore(t)
		a := buildTestArtifact(t, 1)
		require.NoError(t, s.SeedFromArtifact(ctx, a))

		require.NoError(t, s.SetDistributionStatus(ctx, a.DistributionID, store.DistributionActive))
		// Idempotent re-issue.
		require.NoError(t, s.SetDistributionStatus(ctx, a.DistributionID, store.DistributionActive))
		require.NoError(t, s.SetDistributionStatus(ctx, a.DistributionID, store.DistributionCompleted))

		dist, err := s.GetDistribution(ctx, a.DistributionID)
		require.NoError(t, err)
		require.Equal(t, store.DistributionCompleted, dist.Status)
	})

	t.Run("missing records", func(t *testing.T) {
		s := newStore(t)
		var unknown [32]byte
		unknown[0] = 0xff

		_, err := s.GetClaim(ctx, unknown, 0)
		require.ErrorIs(t, err, store.ErrClaimNotFound)
		_, err = s.GetDistribution(ctx, unknown)
		require.ErrorIs(t, err, store.ErrDistributionNotFound)
		err = s.SetDistributionStatus(ctx, unknown, store.DistributionActive)
		require.ErrorIs(t, err, store.ErrDistributionNotFound)
	})
}
