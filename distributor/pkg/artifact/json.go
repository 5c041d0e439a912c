package artifact

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Serialized layout. 32-byte values are hex strings; u64 amounts are base-10
// strings so text transports cannot lose precision.
type artifactJSON struct {
	FormatVersion     string      `json:"format_version"`
	CreatedAt         string      `json:"created_at"`
	RewardID          string      `json:"reward_id"`
	WindowID          string      `json:"window_id"`
	Mint              string      `json:"mint"`
	DistributionID    string      `json:"distribution_id"`
	MerkleRoot        string      `json:"merkle_root"`
	RecipientCount    uint64      `json:"recipient_count"`
	TotalAmount       string      `json:"total_amount"`
	SourceFingerprint string      `json:"source_fingerprint"`
	Proofs            []proofJSON `json:"proofs"`
}

type proofJSON struct {
	Index     uint64   `json:"index"`
	Recipient string   `json:"recipient"`
	Amount    string   `json:"amount"`
	Proof     []string `json:"proof"`
}

func (a *Artifact) MarshalJSON() ([]byte, error) {
	out := artifactJSON{
		FormatVersion:     a.FormatVersion,
		CreatedAt:         a.CreatedAt.UTC().Format(time.RFC3339),
		RewardID:          a.RewardID,
		WindowID:          a.WindowID,
		Mint:              a.Mint.String(),
		DistributionID:    hex.EncodeToString(a.DistributionID[:]),
		MerkleRoot:        hex.EncodeToString(a.MerkleRoot[:]),
		RecipientCount:    a.RecipientCount,
		TotalAmount:       strconv.FormatUint(a.TotalAmount, 10),
		SourceFingerprint: hex.EncodeToString(a.SourceFingerprint[:]),
		Proofs:            make([]proofJSON, len(a.Proofs)),
	}
	for i, p := range a.Proofs {
		nodes := make([]string, len(p.Proof))
		for j, node := range p.Proof {
			nodes[j] = hex.EncodeToString(node[:])
		}
		out.Proofs[i] = proofJSON{
			Index:     p.Index,
			Recipient: p.Recipient.String(),
			Amount:    strconv.FormatUint(p.Amount, 10),
			Proof:     nodes,
		}
	}
	return json.Marshal(out)
}

func (a *Artifact) UnmarshalJSON(data []byte) error {
	var in artifactJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
	}

	createdAt, err := time.Parse(time.RFC3339, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: bad created_at: %v", ErrArtifactInvalid, err)
	}
	mint, err := solana.PublicKeyFromBase58(in.Mint)
	if err != nil {
		return fmt.Errorf("%w: bad mint: %v", ErrArtifactInvalid, err)
	}
	distributionID, err := decodeHex32(in.DistributionID)
	if err != nil {
		return fmt.Errorf("%w: bad distribution_id: %v", ErrArtifactInvalid, err)
	}
	root, err := decodeHex32(in.MerkleRoot)
	if err != nil {
		return fmt.Errorf("%w: bad merkle_root: %v", ErrArtifactInvalid, err)
	}
	fingerprint, err := decodeHex32(in.SourceFingerprint)
	if err != nil {
		return fmt.Errorf("%w: bad source_fingerprint: %v", ErrArtifactInvalid, err)
	}
	total, err := strconv.ParseUint(in.TotalAmount, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad total_amount: %v", ErrArtifactInvalid, err)
	}

	proofs := make([]ProofEntry, len(in.Proofs))
	for i, p := range in.Proofs {
		recipient, err := solana.PublicKeyFromBase58(p.Recipient)
		if err != nil {
			return fmt.Errorf("%w: bad recipient at index %d: %v", ErrArtifactInvalid, p.Index, err)
		}
		amount, err := strconv.ParseUint(p.Amount, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad amount at index %d: %v", ErrArtifactInvalid, p.Index, err)
		}
		nodes := make([][32]byte, len(p.Proof))
		for j, node := range p.Proof {
			nodes[j], err = decodeHex32(node)
			if err != nil {
				return fmt.Errorf("%w: bad proof node at index %d: %v", ErrArtifactInvalid, p.Index, err)
			}
		}
		proofs[i] = ProofEntry{
			Index:     p.Index,
			Recipient: recipient,
			Amount:    amount,
			Proof:     nodes,
		}
	}

	*a = Artifact{
		FormatVersion:     in.FormatVersion,
		CreatedAt:         createdAt,
		RewardID:          in.RewardID,
		WindowID:          in.WindowID,
		Mint:              mint,
		DistributionID:    distributionID,
		MerkleRoot:        root,
		RecipientCount:    in.RecipientCount,
		TotalAmount:       total,
		SourceFingerprint: fingerprint,
		Proofs:            proofs,
	}
	return nil
}

func decodeHex32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// Save writes the artifact as indented JSON.
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// Load reads and parses an artifact file. Callers should Validate the result
// before acting on it.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
