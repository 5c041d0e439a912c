package artifact

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/l33labs/merkle-distributor/distributor/pkg/merkle"
)

func testParams(t *testing.T, n int) BuildParams {
	t.Helper()
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			Index:     uint64(i),
			Recipient: solana.NewWallet().PublicKey(),
			Amount:    uint64(100 * (i + 1)),
		}
	}
	return BuildParams{
		RewardID: "epoch-42",
		WindowID: "2026-01",
		Mint:     solana.NewWallet().PublicKey(),
		Entries:  entries,
		Source:   []byte("recipient,amount\n"),
		Now:      time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestDistributor_Artifact_Build(t *testing.T) {
	t.Parallel()

	params := testParams(t, 3)
	a, err := Build(params)
	require.NoError(t, err)

	require.Equal(t, FormatVersion, a.FormatVersion)
	require.Equal(t, uint64(3), a.RecipientCount)
	require.Equal(t, uint64(600), a.TotalAmount)
	require.Len(t, a.Proofs, 3)

	wantID := merkle.DeriveDistributionID("epoch-42", "2026-01", params.Mint.String(), 600)
	require.Equal(t, wantID, a.DistributionID)
	require.Equal(t, merkle.Hash(params.Source), a.SourceFingerprint)

	require.NoError(t, a.Validate(true))
}

func TestDistributor_Artifact_Build_SingleRecipient(t *testing.T) {
	t.Parallel()

	params := testParams(t, 1)
	params.Entries[0].Amount = 1000
	a, err := Build(params)
	require.NoError(t, err)

	require.Empty(t, a.Proofs[0].Proof, "single-leaf proof is empty")
	leaf := merkle.Leaf(a.DistributionID, a.Proofs[0].Recipient, 1000)
	require.Equal(t, leaf, a.MerkleRoot, "single-leaf root is the leaf")
	require.NoError(t, a.Validate(true))
}

func TestDistributor_Artifact_Build_UnsortedInput(t *testing.T) {
	t.Parallel()

	params := testParams(t, 4)
	params.Entries[0], params.Entries[3] = params.Entries[3], params.Entries[0]

	a, err := Build(params)
	require.NoError(t, err)
	for i, p := range a.Proofs {
		require.Equal(t, uint64(i), p.Index)
	}
	require.NoError(t, a.Validate(true))
}

func TestDistributor_Artifact_Build_RejectsBadInput(t *testing.T) {
	t.Parallel()

	t.Run("empty entries", func(t *testing.T) {
		t.Parallel()
		params := testParams(t, 1)
		params.Entries = nil
		_, err := Build(params)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("duplicate index", func(t *testing.T) {
		t.Parallel()
		params := testParams(t, 3)
		params.Entries[2].Index = 1
		_, err := Build(params)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("index hole", func(t *testing.T) {
		t.Parallel()
		params := testParams(t, 3)
		params.Entries[2].Index = 5
		_, err := Build(params)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("zero amount", func(t *testing.T) {
		t.Parallel()
		params := testParams(t, 3)
		params.Entries[1].Amount = 0
		_, err := Build(params)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("zero recipient", func(t *testing.T) {
		t.Parallel()
		params := testParams(t, 3)
		params.Entries[1].Recipient = solana.PublicKey{}
		_, err := Build(params)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing reward id", func(t *testing.T) {
		t.Parallel()
		params := testParams(t, 3)
		params.RewardID = ""
		_, err := Build(params)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("overflow", func(t *testing.T) {
		t.Parallel()
		params := testParams(t, 2)
		params.Entries[0].Amount = 1<<64 - 1
		params.Entries[1].Amount = 2
		_, err := Build(params)
		require.ErrorIs(t, err, ErrOverflow)
	})
}

func TestDistributor_Artifact_JSON_RoundTrip(t *testing.T) {
	t.Parallel()

	a, err := Build(testParams(t, 5))
	require.NoError(t, err)

	data, err := json.Marshal(a)
	require.NoError(t, err)

	// Amounts travel as base-10 strings.
	require.Contains(t, string(data), `"total_amount":"1500"`)

	var back Artifact
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, *a, back)
	require.NoError(t, back.Validate(true))
}

func TestDistributor_Artifact_SaveLoad(t *testing.T) {
	t.Parallel()

	a, err := Build(testParams(t, 3))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "artifact.json")
	require.NoError(t, a.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, *a, *loaded)
	require.NoError(t, loaded.Validate(true))
}

func TestDistributor_Artifact_Validate_RejectsTampering(t *testing.T) {
	t.Parallel()

	t.Run("mutated proof node", func(t *testing.T) {
		t.Parallel()
		a, err := Build(testParams(t, 4))
		require.NoError(t, err)
		a.Proofs[2].Proof[0][5] ^= 0x01
		require.ErrorIs(t, a.Validate(true), ErrArtifactInvalid)
	})

	t.Run("mutated amount", func(t *testing.T) {
		t.Parallel()
		a, err := Build(testParams(t, 4))
		require.NoError(t, err)
		a.Proofs[1].Amount++
		require.ErrorIs(t, a.Validate(true), ErrArtifactInvalid)
	})

	t.Run("mutated root", func(t *testing.T) {
		t.Parallel()
		a, err := Build(testParams(t, 4))
		require.NoError(t, err)
		a.MerkleRoot[0] ^= 0x01
		require.ErrorIs(t, a.Validate(false), ErrArtifactInvalid)
	})

	t.Run("count mismatch", func(t *testing.T) {
		t.Parallel()
		a, err := Build(testParams(t, 4))
		require.NoError(t, err)
		a.RecipientCount = 5
		require.ErrorIs(t, a.Validate(false), ErrArtifactInvalid)
	})

	t.Run("bad format version", func(t *testing.T) {
		t.Parallel()
		a, err := Build(testParams(t, 4))
		require.NoError(t, err)
		a.FormatVersion = "0"
		require.ErrorIs(t, a.Validate(false), ErrArtifactInvalid)
	})
}

func TestDistributor_Artifact_ParsePayoutCSV(t *testing.T) {
	t.Parallel()

	r0 := solana.NewWallet().PublicKey()
	r1 := solana.NewWallet().PublicKey()

	src := fmt.Sprintf("recipient,amount\n# comment\n%s,100\n\n%s,200\n", r0, r1)
	entries, err := ParsePayoutCSV([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Index: 0, Recipient: r0, Amount: 100},
		{Index: 1, Recipient: r1, Amount: 200},
	}, entries)
}

func TestDistributor_Artifact_ParsePayoutCSV_Rejects(t *testing.T) {
	t.Parallel()

	r0 := solana.NewWallet().PublicKey()

	cases := map[string]string{
		"empty":               "",
		"bad recipient":       "not-a-key,100\n",
		"bad amount":          fmt.Sprintf("%s,abc\n", r0),
		"zero amount":         fmt.Sprintf("%s,0\n", r0),
		"wrong field count":   fmt.Sprintf("%s,100,extra\n", r0),
		"duplicate recipient": fmt.Sprintf("%s,100\n%s,200\n", r0, r0),
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePayoutCSV([]byte(src))
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDistributor_Artifact_FingerprintIsLineExact(t *testing.T) {
	t.Parallel()

	params := testParams(t, 2)
	params.Source = []byte("a\n")
	a1, err := Build(params)
	require.NoError(t, err)

	params.Source = []byte("a \n")
	a2, err := Build(params)
	require.NoError(t, err)

	require.NotEqual(t, a1.SourceFingerprint, a2.SourceFingerprint)
	require.False(t, strings.EqualFold(
		fmt.Sprintf("%x", a1.SourceFingerprint),
		fmt.Sprintf("%x", a2.SourceFingerprint),
	))
}
