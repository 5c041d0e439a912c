// Package relayer drives pending claims from the store onto the chain. One
// Run pass reconciles store state against ledger truth, submits batches of
// claim transactions, and settles the outcome per claim. The ledger is
// authoritative: a claim marker account on chain means paid, whatever the
// store thinks.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/l33labs/merkle-distributor/distributor/pkg/artifact"
	"github.com/l33labs/merkle-distributor/distributor/pkg/metrics"
	"github.com/l33labs/merkle-distributor/distributor/pkg/program"
	"github.com/l33labs/merkle-distributor/distributor/pkg/store"
	"github.com/l33labs/merkle-distributor/utils/pkg/retry"
)

var (
	// ErrNotInitialized means the on-chain distribution account does not
	// exist yet; initialization is an authority action, not the relayer's.
	ErrNotInitialized = errors.New("relayer: distribution not initialized on chain")

	// ErrRootMismatch means the on-chain merkle root differs from the
	// artifact's. Submitting against the wrong tree would burn fees on
	// guaranteed proof rejections, so the run stops immediately.
	ErrRootMismatch = errors.New("relayer: on-chain merkle root does not match artifact")

	// ErrPaused means claims are administratively halted on chain.
	ErrPaused = errors.New("relayer: distribution is paused")

	// ErrProofRejected means the program rejected a proof that verifies
	// locally. That points at artifact/program divergence and needs an
	// operator, not a retry.
	ErrProofRejected = errors.New("relayer: program rejected merkle proof")

	// ErrInsufficientFunds means the vault cannot cover the transfer.
	ErrInsufficientFunds = errors.New("relayer: vault has insufficient funds")

	errAlreadyClaimed = errors.New("relayer: claim marker already exists")
)

type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Store  store.Store
	RPC    ChainRPC

	// Payer signs and pays fees for claim transactions. It does not need
	// any program-level privilege; claiming is permissionless.
	Payer solana.PrivateKey

	// BatchSize is the number of claims packed into one transaction.
	// Proofs are large, so this stays small to fit the packet limit.
	BatchSize int

	// MaxAttempts bounds per-claim submission passes; a claim that has
	// failed this many times needs operator attention.
	MaxAttempts uint32

	// RetryDelay spaces transaction-level retries and confirmation polls.
	RetryDelay time.Duration

	// InterBatchDelay spaces consecutive batches to stay under RPC rate
	// limits.
	InterBatchDelay time.Duration

	// ConfirmPollLimit bounds signature status polls per submission.
	ConfirmPollLimit int

	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.RPC == nil {
		return errors.New("rpc client is required")
	}
	if len(c.Payer) != 64 {
		return errors.New("payer key is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 4
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.InterBatchDelay < 0 {
		c.InterBatchDelay = 0
	}
	if c.ConfirmPollLimit <= 0 {
		c.ConfirmPollLimit = 30
	}
	if c.ComputeUnitLimit == 0 {
		c.ComputeUnitLimit = 400_000
	}
	return nil
}

type Relayer struct {
	log        *slog.Logger
	clock      clockwork.Clock
	store      store.Store
	rpc        ChainRPC
	cfg        Config
	storeRetry retry.Config
}

func New(cfg Config) (*Relayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid relayer config: %w", err)
	}
	return &Relayer{
		log:        cfg.Logger,
		clock:      cfg.Clock,
		store:      cfg.Store,
		rpc:        cfg.RPC,
		cfg:        cfg,
		storeRetry: retry.DefaultConfig(),
	}, nil
}

// Run executes one full relay pass for the artifact's distribution: seed the
// store, reconcile against ledger truth, submit everything claimable in
// batches, then settle the distribution status. It returns nil when the pass
// completed, even if individual claims failed; those are retried on the next
// pass until their attempt budget runs out.
func (r *Relayer) Run(ctx context.Context, a *artifact.Artifact) error {
	if err := a.Validate(false); err != nil {
		return err
	}

	distribution, err := program.DistributionAddress(a.DistributionID)
	if err != nil {
		return err
	}

	log := r.log.With(
		slog.String("distribution", distribution.String()),
		slog.String("reward_id", a.RewardID),
		slog.String("window_id", a.WindowID),
	)

	onchain, err := r.fetchDistributionState(ctx, distribution)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return err
	}
	if onchain.MerkleRoot != a.MerkleRoot {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: chain has %x, artifact has %x",
			ErrRootMismatch, onchain.MerkleRoot, a.MerkleRoot)
	}
	if onchain.Paused {
		log.Warn("relayer: distribution is paused on chain, leaving claims pending")
		metrics.RunsTotal.WithLabelValues("paused").Inc()
		return ErrPaused
	}
	if err := r.checkVaultFunded(ctx, a.DistributionID, onchain); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := r.withStoreRetry(ctx, func() error {
		return r.store.SeedFromArtifact(ctx, a)
	}); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to seed claim store: %w", err)
	}
	if dist, err := r.store.GetDistribution(ctx, a.DistributionID); err == nil {
		if dist.Status == store.DistributionPending || dist.Status == store.DistributionFunded {
			if err := r.store.SetDistributionStatus(ctx, a.DistributionID, store.DistributionActive); err != nil {
				log.Warn("relayer: failed to mark distribution active", "error", err)
			}
		}
	}

	if err := r.reconcileSubmitted(ctx, log, a.DistributionID, distribution); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return err
	}

	claims, err := r.store.NextPending(ctx, a.DistributionID, r.cfg.MaxAttempts)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to list pending claims: %w", err)
	}
	log.Info("relayer: starting pass",
		slog.Int("claimable", len(claims)),
		slog.Int("batch_size", r.cfg.BatchSize))

	for start := 0; start < len(claims); start += r.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			metrics.RunsTotal.WithLabelValues("canceled").Inc()
			return err
		}
		end := min(start+r.cfg.BatchSize, len(claims))
		if err := r.processBatch(ctx, log, a, distribution, claims[start:end]); err != nil {
			metrics.RunsTotal.WithLabelValues("error").Inc()
			return err
		}
		if end < len(claims) {
			if err := r.sleep(ctx, r.cfg.InterBatchDelay); err != nil {
				metrics.RunsTotal.WithLabelValues("canceled").Inc()
				return err
			}
		}
	}

	unconfirmed, err := r.store.CountUnconfirmed(ctx, a.DistributionID)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to count unconfirmed claims: %w", err)
	}
	if unconfirmed == 0 {
		if err := r.store.SetDistributionStatus(ctx, a.DistributionID, store.DistributionCompleted); err != nil {
			log.Warn("relayer: failed to mark distribution completed", "error", err)
		}
		log.Info("relayer: distribution fully paid")
	} else {
		log.Info("relayer: pass complete", slog.Uint64("unconfirmed", unconfirmed))
	}
	metrics.RunsTotal.WithLabelValues("ok").Inc()
	return nil
}

// fetchDistributionState loads and decodes the on-chain Distribution account.
func (r *Relayer) fetchDistributionState(ctx context.Context, distribution solana.PublicKey) (*program.DistributionState, error) {
	info, err := r.rpc.GetAccountInfo(ctx, distribution)
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to fetch distribution account: %w", err)
	}
	if info == nil || info.Value == nil {
		return nil, ErrNotInitialized
	}
	state, err := program.DecodeDistributionState(info.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to decode distribution account: %w", err)
	}
	return state, nil
}

// checkVaultFunded verifies the vault balance covers what is still owed
// before any fee is spent. Balance reads can be flaky, so a failed read is
// logged and the run proceeds; the token program is the real backstop.
func (r *Relayer) checkVaultFunded(ctx context.Context, distributionID [32]byte, onchain *program.DistributionState) error {
	vault, err := program.VaultAddress(distributionID)
	if err != nil {
		return err
	}
	balance, err := r.rpc.GetTokenAccountBalance(ctx, vault, solanarpc.CommitmentFinalized)
	if err != nil || balance == nil || balance.Value == nil {
		r.log.Warn("relayer: could not read vault balance", "error", err)
		return nil
	}
	funded, err := strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		r.log.Warn("relayer: unparseable vault balance", "amount", balance.Value.Amount)
		return nil
	}
	remaining := onchain.TotalAmount - onchain.ClaimedAmount
	if funded < remaining {
		return fmt.Errorf("%w: vault holds %d, %d still owed", ErrInsufficientFunds, funded, remaining)
	}
	return nil
}

// reconcileSubmitted resolves claims stuck in submitted from an interrupted
// earlier pass. The claim marker account is the source of truth: marker
// present means paid, absent means the transaction never landed and the
// claim goes back to pending.
func (r *Relayer) reconcileSubmitted(ctx context.Context, log *slog.Logger, distributionID [32]byte, distribution solana.PublicKey) error {
	submitted, err := r.store.ListSubmitted(ctx, distributionID)
	if err != nil {
		return fmt.Errorf("failed to list submitted claims: %w", err)
	}
	if len(submitted) == 0 {
		return nil
	}
	log.Info("relayer: reconciling interrupted claims", slog.Int("count", len(submitted)))

	exists, markers, err := r.markersExist(ctx, distribution, submitted)
	if err != nil {
		return err
	}
	for i, claim := range submitted {
		if exists[i] {
			if err := r.withStoreRetry(ctx, func() error {
				return r.store.MarkConfirmed(ctx, distributionID, claim.Index, markers[i].String())
			}); err != nil {
				return fmt.Errorf("failed to confirm reconciled claim %d: %w", claim.Index, err)
			}
			metrics.ClaimsTotal.WithLabelValues("reconciled").Inc()
		} else {
			if err := r.withStoreRetry(ctx, func() error {
				return r.store.Requeue(ctx, distributionID, claim.Index)
			}); err != nil {
				return fmt.Errorf("failed to requeue claim %d: %w", claim.Index, err)
			}
		}
	}
	return nil
}

// markersExist checks claim marker PDAs for a set of claims in one RPC call.
func (r *Relayer) markersExist(ctx context.Context, distribution solana.PublicKey, claims []store.Claim) ([]bool, []solana.PublicKey, error) {
	markers := make([]solana.PublicKey, len(claims))
	for i, claim := range claims {
		marker, err := program.ClaimMarkerAddress(distribution, claim.Index)
		if err != nil {
			return nil, nil, err
		}
		markers[i] = marker
	}

	exists := make([]bool, len(claims))
	result, err := r.rpc.GetMultipleAccounts(ctx, markers...)
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return exists, markers, nil
		}
		return nil, nil, fmt.Errorf("failed to fetch claim markers: %w", err)
	}
	if result != nil {
		for i, account := range result.Value {
			if i < len(exists) && account != nil {
				exists[i] = true
			}
		}
	}
	return exists, markers, nil
}

func (r *Relayer) processBatch(ctx context.Context, log *slog.Logger, a *artifact.Artifact, distribution solana.PublicKey, batch []store.Claim) error {
	timer := prometheus.NewTimer(metrics.BatchDuration)
	defer timer.ObserveDuration()

	// Ledger check first: anything already paid is confirmed in place and
	// dropped from the batch.
	exists, markers, err := r.markersExist(ctx, distribution, batch)
	if err != nil {
		return err
	}
	remaining := batch[:0:0]
	for i, claim := range batch {
		if exists[i] {
			if err := r.withStoreRetry(ctx, func() error {
				return r.store.MarkConfirmed(ctx, a.DistributionID, claim.Index, markers[i].String())
			}); err != nil {
				return fmt.Errorf("failed to confirm pre-claimed leaf %d: %w", claim.Index, err)
			}
			metrics.ClaimsTotal.WithLabelValues("reconciled").Inc()
			log.Info("relayer: leaf already claimed on chain", slog.Uint64("index", claim.Index))
			continue
		}
		remaining = append(remaining, claim)
	}
	if len(remaining) == 0 {
		return nil
	}

	instructions, err := r.buildBatchInstructions(ctx, a, remaining)
	if err != nil {
		return err
	}

	for _, claim := range remaining {
		if err := r.withStoreRetry(ctx, func() error {
			return r.store.MarkSubmitted(ctx, a.DistributionID, claim.Index)
		}); err != nil {
			return fmt.Errorf("failed to mark claim %d submitted: %w", claim.Index, err)
		}
		metrics.ClaimsTotal.WithLabelValues("submitted").Inc()
	}

	sig, submitErr := r.submitAndConfirm(ctx, instructions)
	return r.settleBatch(ctx, log, a.DistributionID, distribution, remaining, sig, submitErr)
}

// buildBatchInstructions assembles the transaction body for a batch: compute
// budget hints, then per claim an idempotent token-account create when the
// recipient's ATA is missing, followed by the claim itself.
func (r *Relayer) buildBatchInstructions(ctx context.Context, a *artifact.Artifact, batch []store.Claim) ([]solana.Instruction, error) {
	atas := make([]solana.PublicKey, len(batch))
	for i, claim := range batch {
		ata, _, err := solana.FindAssociatedTokenAddress(claim.Recipient, a.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive token account for %s: %w", claim.Recipient, err)
		}
		atas[i] = ata
	}

	ataExists := make([]bool, len(batch))
	result, err := r.rpc.GetMultipleAccounts(ctx, atas...)
	if err != nil && !errors.Is(err, solanarpc.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch recipient token accounts: %w", err)
	}
	if result != nil {
		for i, account := range result.Value {
			if i < len(ataExists) && account != nil {
				ataExists[i] = true
			}
		}
	}

	payer := r.cfg.Payer.PublicKey()
	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(r.cfg.ComputeUnitLimit).Build(),
	}
	if r.cfg.ComputeUnitPrice > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(r.cfg.ComputeUnitPrice).Build())
	}

	for i, claim := range batch {
		proof, err := proofFor(a, claim)
		if err != nil {
			return nil, err
		}
		if !ataExists[i] {
			instructions = append(instructions,
				associatedtokenaccount.NewCreateInstruction(payer, claim.Recipient, a.Mint).Build())
		}
		claimIx, err := program.NewClaimInstruction(
			a.DistributionID, claim.Index, claim.Amount, proof,
			claim.Recipient, atas[i], payer)
		if err != nil {
			return nil, fmt.Errorf("failed to build claim instruction for leaf %d: %w", claim.Index, err)
		}
		instructions = append(instructions, claimIx)
	}
	return instructions, nil
}

// proofFor cross-checks a stored claim against the artifact before using its
// proof. Any divergence means the store was seeded from a different artifact.
func proofFor(a *artifact.Artifact, claim store.Claim) ([][32]byte, error) {
	if claim.Index >= uint64(len(a.Proofs)) {
		return nil, fmt.Errorf("%w: claim index %d out of range", artifact.ErrArtifactInvalid, claim.Index)
	}
	p := a.Proofs[claim.Index]
	if !p.Recipient.Equals(claim.Recipient) || p.Amount != claim.Amount {
		return nil, fmt.Errorf("%w: claim %d does not match artifact entry", artifact.ErrArtifactInvalid, claim.Index)
	}
	return p.Proof, nil
}

// submitAndConfirm broadcasts one transaction and waits for confirmation,
// re-signing with a fresh blockhash on transient failures. Attempts here are
// transaction-level; per-claim attempt accounting happens in MarkSubmitted.
func (r *Relayer) submitAndConfirm(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	payer := r.cfg.Payer
	var lastErr error

	for attempt := 0; attempt < int(r.cfg.MaxAttempts); attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.cfg.RetryDelay); err != nil {
				return solana.Signature{}, err
			}
		}

		blockhash, err := r.rpc.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
		if err != nil {
			lastErr = fmt.Errorf("failed to fetch blockhash: %w", err)
			continue
		}

		tx, err := solana.NewTransaction(instructions,
			blockhash.Value.Blockhash,
			solana.TransactionPayer(payer.PublicKey()))
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
		}
		if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(payer.PublicKey()) {
				return &payer
			}
			return nil
		}); err != nil {
			return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
		}

		sig, err := r.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
			PreflightCommitment: solanarpc.CommitmentConfirmed,
		})
		if err != nil {
			if terminal := classify(err); terminal != nil {
				return sig, terminal
			}
			lastErr = err
			continue
		}

		if err := r.waitConfirmed(ctx, sig); err != nil {
			if terminal := classify(err); terminal != nil {
				return sig, terminal
			}
			lastErr = err
			continue
		}
		return sig, nil
	}
	return solana.Signature{}, fmt.Errorf("submission failed after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
}

// classify maps a submission error to a terminal sentinel, or nil when the
// error is transient and worth another attempt.
func classify(err error) error {
	if program.IsAlreadyClaimed(err) {
		return errAlreadyClaimed
	}
	if program.IsBlockhashExpired(err) {
		return nil
	}
	if code, ok := program.CustomErrorCode(err); ok {
		switch code {
		case program.ErrCodeInvalidProof, program.ErrCodeProofTooLong:
			return fmt.Errorf("%w: %w", ErrProofRejected, err)
		case program.ErrCodePaused:
			return fmt.Errorf("%w: %w", ErrPaused, err)
		case 1:
			// Token program error 1: source account balance too low.
			return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
		default:
			return fmt.Errorf("program error %d: %w", code, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (r *Relayer) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	for poll := 0; poll < r.cfg.ConfirmPollLimit; poll++ {
		if poll > 0 {
			if err := r.sleep(ctx, r.cfg.RetryDelay); err != nil {
				return err
			}
		}
		result, err := r.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil || result == nil || len(result.Value) == 0 || result.Value[0] == nil {
			continue
		}
		status := result.Value[0]
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed on chain: %v", sig, status.Err)
		}
		switch status.ConfirmationStatus {
		case solanarpc.ConfirmationStatusConfirmed, solanarpc.ConfirmationStatusFinalized:
			return nil
		}
	}
	return fmt.Errorf("transaction %s was not confirmed within %d polls", sig, r.cfg.ConfirmPollLimit)
}

// settleBatch records the submission outcome for every claim in the batch.
func (r *Relayer) settleBatch(ctx context.Context, log *slog.Logger, distributionID [32]byte, distribution solana.PublicKey, batch []store.Claim, sig solana.Signature, submitErr error) error {
	switch {
	case submitErr == nil:
		for _, claim := range batch {
			if err := r.withStoreRetry(ctx, func() error {
				return r.store.MarkConfirmed(ctx, distributionID, claim.Index, sig.String())
			}); err != nil {
				return fmt.Errorf("failed to confirm claim %d: %w", claim.Index, err)
			}
			metrics.ClaimsTotal.WithLabelValues("confirmed").Inc()
		}
		log.Info("relayer: batch confirmed",
			slog.Int("claims", len(batch)),
			slog.String("signature", sig.String()))
		return nil

	case errors.Is(submitErr, errAlreadyClaimed):
		// Some leaf in the batch raced with another claimant. Re-read the
		// markers: confirmed where present, back to pending where not.
		exists, markers, err := r.markersExist(ctx, distribution, batch)
		if err != nil {
			return err
		}
		for i, claim := range batch {
			if exists[i] {
				if err := r.withStoreRetry(ctx, func() error {
					return r.store.MarkConfirmed(ctx, distributionID, claim.Index, markers[i].String())
				}); err != nil {
					return fmt.Errorf("failed to confirm claim %d: %w", claim.Index, err)
				}
				metrics.ClaimsTotal.WithLabelValues("reconciled").Inc()
			} else {
				if err := r.withStoreRetry(ctx, func() error {
					return r.store.Requeue(ctx, distributionID, claim.Index)
				}); err != nil {
					return fmt.Errorf("failed to requeue claim %d: %w", claim.Index, err)
				}
			}
		}
		return nil

	case errors.Is(submitErr, ErrInsufficientFunds):
		// Nobody gets a failure mark for an empty vault; the claims go
		// back to pending and the run stops for the operator to fund it.
		for _, claim := range batch {
			if err := r.withStoreRetry(ctx, func() error {
				return r.store.Requeue(ctx, distributionID, claim.Index)
			}); err != nil {
				return fmt.Errorf("failed to requeue claim %d: %w", claim.Index, err)
			}
		}
		return submitErr

	case errors.Is(submitErr, ErrProofRejected), errors.Is(submitErr, ErrPaused):
		for _, claim := range batch {
			if err := r.withStoreRetry(ctx, func() error {
				return r.store.MarkFailed(ctx, distributionID, claim.Index, submitErr.Error())
			}); err != nil {
				return fmt.Errorf("failed to mark claim %d failed: %w", claim.Index, err)
			}
			metrics.ClaimsTotal.WithLabelValues("failed").Inc()
		}
		return submitErr

	case errors.Is(submitErr, context.Canceled), errors.Is(submitErr, context.DeadlineExceeded):
		// Claims stay submitted; the next pass reconciles them against the
		// ledger.
		return submitErr

	default:
		// Transient budget exhausted. Mark failed so attempts gate further
		// passes, and move on to the next batch.
		msg := submitErr.Error()
		for _, claim := range batch {
			if err := r.withStoreRetry(ctx, func() error {
				return r.store.MarkFailed(ctx, distributionID, claim.Index, msg)
			}); err != nil {
				return fmt.Errorf("failed to mark claim %d failed: %w", claim.Index, err)
			}
			metrics.ClaimsTotal.WithLabelValues("failed").Inc()
		}
		log.Warn("relayer: batch failed", slog.Int("claims", len(batch)), "error", submitErr)
		return nil
	}
}

func (r *Relayer) withStoreRetry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, r.storeRetry, fn)
}

func (r *Relayer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.clock.After(d):
		return nil
	}
}
