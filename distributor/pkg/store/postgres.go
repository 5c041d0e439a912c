package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver with database/sql
	"github.com/jonboulle/clockwork"
	"github.com/pressly/goose/v3"

	"github.com/l33labs/merkle-distributor/distributor/pkg/artifact"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// RunMigrations applies the claim-store schema using goose.
func RunMigrations(log *slog.Logger, connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	log.Info("store: running migrations")
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("store: migrations completed")
	return nil
}

type PostgresConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Pool   *pgxpool.Pool
}

func (cfg *PostgresConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Postgres is the production Store backed by a pgx pool.
type Postgres struct {
	log   *slog.Logger
	clock clockwork.Clock
	pool  *pgxpool.Pool
}

func NewPostgres(cfg PostgresConfig) (*Postgres, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Postgres{
		log:   cfg.Logger,
		clock: cfg.Clock,
		pool:  cfg.Pool,
	}, nil
}

func hexID(id [32]byte) string {
	return hex.EncodeToString(id[:])
}

func (p *Postgres) SeedFromArtifact(ctx context.Context, a *artifact.Artifact) error {
	now := p.clock.Now().UTC()

	// Amounts are u64 on the wire; stored as BIGINT and cast on the way
	// in/out.
	_, err := p.pool.Exec(ctx, `
		INSERT INTO distributions (distribution_id, reward_id, window_id, mint, merkle_root,
			recipient_count, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (distribution_id) DO NOTHING`,
		hexID(a.DistributionID), a.RewardID, a.WindowID, a.Mint.String(),
		hexID(a.MerkleRoot), int64(a.RecipientCount), int64(a.TotalAmount),
		string(DistributionPending), now)
	if err != nil {
		return fmt.Errorf("failed to upsert distribution: %w", err)
	}

	batch := &pgx.Batch{}
	for _, proof := range a.Proofs {
		batch.Queue(`
			INSERT INTO claims (distribution_id, leaf_index, recipient, amount, state)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (distribution_id, leaf_index) DO NOTHING`,
			hexID(a.DistributionID), int64(proof.Index), proof.Recipient.String(),
			int64(proof.Amount), string(ClaimPending))
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed claims: %w", err)
	}

	p.log.Debug("store: seeded claims from artifact",
		"distribution_id", hexID(a.DistributionID), "count", len(a.Proofs))
	return nil
}

const claimColumns = `distribution_id, leaf_index, recipient, amount, state,
	attempts, last_attempt_at, confirmed_at, tx_reference, last_error`

func scanClaim(row pgx.Row) (*Claim, error) {
	var (
		claim     Claim
		distHex   string
		index     int64
		recipient string
		amount    int64
		state     string
		attempts  int32
	)
	err := row.Scan(&distHex, &index, &recipient, &amount, &state,
		&attempts, &claim.LastAttemptAt, &claim.ConfirmedAt, &claim.TxReference, &claim.LastError)
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(distHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("corrupt distribution_id %q", distHex)
	}
	copy(claim.DistributionID[:], raw)

	claim.Recipient, err = solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return nil, fmt.Errorf("corrupt recipient %q: %w", recipient, err)
	}
	claim.Index = uint64(index)
	claim.Amount = uint64(amount)
	claim.State = ClaimState(state)
	claim.Attempts = uint32(attempts)
	return &claim, nil
}

func (p *Postgres) listClaims(ctx context.Context, query string, args ...any) ([]Claim, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var out []Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		out = append(out, *claim)
	}
	return out, rows.Err()
}

func (p *Postgres) NextPending(ctx context.Context, distributionID [32]byte, maxAttempts uint32) ([]Claim, error) {
	return p.listClaims(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE distribution_id = $1 AND state IN ('pending', 'failed') AND attempts < $2
		ORDER BY leaf_index`,
		hexID(distributionID), int32(maxAttempts))
}

func (p *Postgres) ListSubmitted(ctx context.Context, distributionID [32]byte) ([]Claim, error) {
	return p.listClaims(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE distribution_id = $1 AND state = 'submitted'
		ORDER BY leaf_index`,
		hexID(distributionID))
}

// exec runs a guarded single-claim mutation and translates "no rows updated"
// into the transition error.
func (p *Postgres) execClaim(ctx context.Context, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (p *Postgres) MarkSubmitted(ctx context.Context, distributionID [32]byte, index uint64) error {
	return p.execClaim(ctx, `
		UPDATE claims
		SET state = 'submitted', attempts = attempts + 1, last_attempt_at = $3
		WHERE distribution_id = $1 AND leaf_index = $2 AND state != 'confirmed'`,
		hexID(distributionID), int64(index), p.clock.Now().UTC())
}

func (p *Postgres) MarkConfirmed(ctx context.Context, distributionID [32]byte, index uint64, txReference string) error {
	// Idempotent: confirming a confirmed claim is a no-op and keeps the
	// original confirmed_at.
	_, err := p.pool.Exec(ctx, `
		UPDATE claims
		SET state = 'confirmed', confirmed_at = $3, tx_reference = $4, last_error = NULL
		WHERE distribution_id = $1 AND leaf_index = $2 AND state != 'confirmed'`,
		hexID(distributionID), int64(index), p.clock.Now().UTC(), txReference)
	if err != nil {
		return fmt.Errorf("failed to confirm claim: %w", err)
	}
	return nil
}

func (p *Postgres) MarkFailed(ctx context.Context, distributionID [32]byte, index uint64, errorMessage string) error {
	return p.execClaim(ctx, `
		UPDATE claims
		SET state = 'failed', last_error = $3
		WHERE distribution_id = $1 AND leaf_index = $2 AND state != 'confirmed'`,
		hexID(distributionID), int64(index), errorMessage)
}

func (p *Postgres) Requeue(ctx context.Context, distributionID [32]byte, index uint64) error {
	return p.execClaim(ctx, `
		UPDATE claims
		SET state = 'pending'
		WHERE distribution_id = $1 AND leaf_index = $2 AND state = 'submitted'`,
		hexID(distributionID), int64(index))
}

func (p *Postgres) GetClaim(ctx context.Context, distributionID [32]byte, index uint64) (*Claim, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+claimColumns+`
		FROM claims
		WHERE distribution_id = $1 AND leaf_index = $2`,
		hexID(distributionID), int64(index))
	claim, err := scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: (%x, %d)", ErrClaimNotFound, distributionID[:4], index)
	}
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (p *Postgres) CountUnconfirmed(ctx context.Context, distributionID [32]byte) (uint64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM claims
		WHERE distribution_id = $1 AND state != 'confirmed'`,
		hexID(distributionID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unconfirmed claims: %w", err)
	}
	return uint64(count), nil
}

func (p *Postgres) GetDistribution(ctx context.Context, distributionID [32]byte) (*Distribution, error) {
	var (
		dist           Distribution
		distHex        string
		mint           string
		rootHex        string
		recipientCount int64
		totalAmount    int64
		status         string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT distribution_id, reward_id, window_id, mint, merkle_root,
			recipient_count, total_amount, status, created_at, updated_at
		FROM distributions
		WHERE distribution_id = $1`,
		hexID(distributionID)).Scan(
		&distHex, &dist.RewardID, &dist.WindowID, &mint, &rootHex,
		&recipientCount, &totalAmount, &status, &dist.CreatedAt, &dist.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %x", ErrDistributionNotFound, distributionID[:4])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution: %w", err)
	}

	dist.ID = distributionID
	dist.Mint, err = solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("corrupt mint %q: %w", mint, err)
	}
	raw, err := hex.DecodeString(rootHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("corrupt merkle_root %q", rootHex)
	}
	copy(dist.MerkleRoot[:], raw)
	dist.RecipientCount = uint64(recipientCount)
	dist.TotalAmount = uint64(totalAmount)
	dist.Status = DistributionStatus(status)
	return &dist, nil
}

func (p *Postgres) SetDistributionStatus(ctx context.Context, distributionID [32]byte, status DistributionStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE distributions
		SET status = $2, updated_at = $3
		WHERE distribution_id = $1`,
		hexID(distributionID), string(status), p.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set distribution status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %x", ErrDistributionNotFound, distributionID[:4])
	}
	return nil
}

var _ Store = (*Postgres)(nil)
