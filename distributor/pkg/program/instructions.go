package program

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// NewClaimInstruction builds the claim instruction for one leaf.
//
// Data layout: discriminator || index (u64 LE) || amount (u64 LE) ||
// proof_len (u32 LE) || proof_len * 32 bytes. Account order: distribution,
// claim marker, vault, recipient, recipient token account, payer, token
// program, system program.
func NewClaimInstruction(
	distributionID [32]byte,
	index uint64,
	amount uint64,
	proof [][32]byte,
	recipient solana.PublicKey,
	recipientTokenAccount solana.PublicKey,
	payer solana.PublicKey,
) (solana.Instruction, error) {
	distribution, err := DistributionAddress(distributionID)
	if err != nil {
		return nil, err
	}
	claimMarker, err := ClaimMarkerAddress(distribution, index)
	if err != nil {
		return nil, err
	}
	vault, err := VaultAddress(distributionID)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 8+8+8+4+32*len(proof))
	data = append(data, claimDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, index)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(proof)))
	for _, node := range proof {
		data = append(data, node[:]...)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(distribution).WRITE(),
		solana.Meta(claimMarker).WRITE(),
		solana.Meta(vault).WRITE(),
		solana.Meta(recipient),
		solana.Meta(recipientTokenAccount).WRITE(),
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}

	return solana.NewInstruction(ID, accounts, data), nil
}

// NewInitializeInstruction builds the initialize instruction for operator
// tooling. The transaction still has to be approved and executed by the
// distribution authority (typically a multisig); this only prepares it.
func NewInitializeInstruction(
	distributionID [32]byte,
	merkleRoot [32]byte,
	totalAmount uint64,
	numRecipients uint64,
	authority solana.PublicKey,
	mint solana.PublicKey,
) (solana.Instruction, error) {
	distribution, err := DistributionAddress(distributionID)
	if err != nil {
		return nil, err
	}
	vault, err := VaultAddress(distributionID)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 8+32+32+8+8)
	data = append(data, initializeDiscriminator[:]...)
	data = append(data, distributionID[:]...)
	data = append(data, merkleRoot[:]...)
	data = binary.LittleEndian.AppendUint64(data, totalAmount)
	data = binary.LittleEndian.AppendUint64(data, numRecipients)

	accounts := solana.AccountMetaSlice{
		solana.Meta(authority).WRITE().SIGNER(),
		solana.Meta(distribution).WRITE(),
		solana.Meta(mint),
		solana.Meta(vault).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}

	return solana.NewInstruction(ID, accounts, data), nil
}

// NewSetOperatorInstruction builds the set_operator instruction, which lets
// the authority delegate claim submission to a relayer key.
func NewSetOperatorInstruction(
	distributionID [32]byte,
	newOperator solana.PublicKey,
	authority solana.PublicKey,
) (solana.Instruction, error) {
	distribution, err := DistributionAddress(distributionID)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 8+32)
	data = append(data, setOperatorDiscriminator[:]...)
	data = append(data, newOperator[:]...)

	accounts := solana.AccountMetaSlice{
		solana.Meta(distribution).WRITE(),
		solana.Meta(authority).SIGNER(),
	}

	return solana.NewInstruction(ID, accounts, data), nil
}

// NewClawbackInstruction builds the clawback instruction returning unclaimed
// funds to the authority's token account.
func NewClawbackInstruction(
	distributionID [32]byte,
	authority solana.PublicKey,
	authorityTokenAccount solana.PublicKey,
) (solana.Instruction, error) {
	distribution, err := DistributionAddress(distributionID)
	if err != nil {
		return nil, err
	}
	vault, err := VaultAddress(distributionID)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(distribution).WRITE(),
		solana.Meta(vault).WRITE(),
		solana.Meta(authorityTokenAccount).WRITE(),
		solana.Meta(authority).SIGNER(),
		solana.Meta(solana.TokenProgramID),
	}

	return solana.NewInstruction(ID, accounts, clawbackDiscriminator[:]), nil
}

func newAdminInstruction(discriminator [8]byte, distributionID [32]byte, authority solana.PublicKey) (solana.Instruction, error) {
	distribution, err := DistributionAddress(distributionID)
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.Meta(distribution).WRITE(),
		solana.Meta(authority).SIGNER(),
	}
	return solana.NewInstruction(ID, accounts, discriminator[:]), nil
}

// NewPauseInstruction builds the emergency pause instruction.
func NewPauseInstruction(distributionID [32]byte, authority solana.PublicKey) (solana.Instruction, error) {
	return newAdminInstruction(pauseDiscriminator, distributionID, authority)
}

// NewUnpauseInstruction builds the unpause instruction.
func NewUnpauseInstruction(distributionID [32]byte, authority solana.PublicKey) (solana.Instruction, error) {
	return newAdminInstruction(unpauseDiscriminator, distributionID, authority)
}
