package program

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ErrWrongAccountType = errors.New("program: account discriminator mismatch")

// DistributionState mirrors the on-chain Distribution account (borsh, after
// the 8-byte account discriminator).
type DistributionState struct {
	Authority      solana.PublicKey
	Operator       solana.PublicKey
	Mint           solana.PublicKey
	Vault          solana.PublicKey
	DistributionID [32]byte
	MerkleRoot     [32]byte
	TotalAmount    uint64
	ClaimedAmount  uint64
	NumRecipients  uint64
	NumClaimed     uint64
	Paused         bool
	Bump           uint8
	VaultBump      uint8
}

// DecodeDistributionState decodes a Distribution account's data.
func DecodeDistributionState(data []byte) (*DistributionState, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: account data too short (%d bytes)", ErrWrongAccountType, len(data))
	}
	if !bytes.Equal(data[:8], distributionAccountDiscriminator[:]) {
		return nil, ErrWrongAccountType
	}
	var state DistributionState
	if err := bin.NewBorshDecoder(data[8:]).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode distribution state: %w", err)
	}
	return &state, nil
}

// ClaimRecordState mirrors the on-chain ClaimRecord account, the uniqueness
// marker written when a leaf is paid.
type ClaimRecordState struct {
	Distribution solana.PublicKey
	Index        uint64
	Recipient    solana.PublicKey
	Amount       uint64
	ClaimedAt    int64
	Bump         uint8
}

// DecodeClaimRecordState decodes a ClaimRecord account's data.
func DecodeClaimRecordState(data []byte) (*ClaimRecordState, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: account data too short (%d bytes)", ErrWrongAccountType, len(data))
	}
	if !bytes.Equal(data[:8], claimRecordAccountDiscriminator[:]) {
		return nil, ErrWrongAccountType
	}
	var state ClaimRecordState
	if err := bin.NewBorshDecoder(data[8:]).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode claim record state: %w", err)
	}
	return &state, nil
}
