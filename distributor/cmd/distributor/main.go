package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/l33labs/merkle-distributor/distributor/pkg/artifact"
	"github.com/l33labs/merkle-distributor/distributor/pkg/program"
	"github.com/l33labs/merkle-distributor/distributor/pkg/relayer"
	"github.com/l33labs/merkle-distributor/distributor/pkg/store"
	"github.com/l33labs/merkle-distributor/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present; flags and real env vars win.
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// Artifact inputs
	payoutsFlag := flag.String("payouts", "", "payout CSV file (recipient_base58,amount per line)")
	rewardIDFlag := flag.String("reward-id", "", "reward identifier, e.g. epoch-42")
	windowIDFlag := flag.String("window-id", "", "payout window identifier, e.g. 2026-08")
	mintFlag := flag.String("mint", "", "SPL token mint address")
	artifactFlag := flag.String("artifact", "", "distribution artifact JSON path")

	// Chain configuration
	rpcURLFlag := flag.String("rpc-url", "", "Solana RPC endpoint (or set RPC_URL env var)")
	payerKeypairFlag := flag.String("payer-keypair", "", "path to the fee payer keypair file (or set PAYER_KEYPAIR env var)")

	// Claim store configuration
	pgConnFlag := flag.String("pg-conn", "", "Postgres connection string (or set DATABASE_URL env var)")

	// Relayer tuning
	batchSizeFlag := flag.Int("batch-size", 4, "claims per transaction")
	maxAttemptsFlag := flag.Int("max-attempts", 3, "per-claim submission attempt budget")
	retryDelayFlag := flag.Duration("retry-delay", 2*time.Second, "delay between transaction retries and confirmation polls")
	interBatchDelayFlag := flag.Duration("inter-batch-delay", 500*time.Millisecond, "delay between consecutive batches")
	computeUnitPriceFlag := flag.Uint64("compute-unit-price", 0, "priority fee in micro-lamports per compute unit")
	metricsAddrFlag := flag.String("metrics-addr", "", "listen address for Prometheus metrics (empty = disabled)")

	// Commands
	buildFlag := flag.Bool("build", false, "build a distribution artifact from a payout CSV")
	validateFlag := flag.Bool("validate", false, "validate an artifact, verifying every proof against the root")
	seedFlag := flag.Bool("seed", false, "seed the claim store from an artifact")
	relayFlag := flag.Bool("relay", false, "run one relay pass for an artifact")
	statusFlag := flag.Bool("status", false, "show on-chain and store status for an artifact")
	pgMigrateFlag := flag.Bool("pg-migrate", false, "run claim-store database migrations using goose")

	flag.Parse()

	log := logger.New(*verboseFlag)

	if envRPCURL := os.Getenv("RPC_URL"); envRPCURL != "" && *rpcURLFlag == "" {
		*rpcURLFlag = envRPCURL
	}
	if envPayer := os.Getenv("PAYER_KEYPAIR"); envPayer != "" && *payerKeypairFlag == "" {
		*payerKeypairFlag = envPayer
	}
	if envPGConn := os.Getenv("DATABASE_URL"); envPGConn != "" && *pgConnFlag == "" {
		*pgConnFlag = envPGConn
	}

	ctx := context.Background()

	if *buildFlag {
		if *payoutsFlag == "" {
			return fmt.Errorf("--payouts is required for --build")
		}
		if *rewardIDFlag == "" || *windowIDFlag == "" {
			return fmt.Errorf("--reward-id and --window-id are required for --build")
		}
		if *mintFlag == "" {
			return fmt.Errorf("--mint is required for --build")
		}
		if *artifactFlag == "" {
			return fmt.Errorf("--artifact is required for --build (output path)")
		}
		return buildArtifact(log, *payoutsFlag, *rewardIDFlag, *windowIDFlag, *mintFlag, *artifactFlag)
	}

	if *validateFlag {
		if *artifactFlag == "" {
			return fmt.Errorf("--artifact is required for --validate")
		}
		a, err := artifact.Load(*artifactFlag)
		if err != nil {
			return err
		}
		if err := a.Validate(true); err != nil {
			return err
		}
		log.Info("artifact is valid",
			"distribution_id", fmt.Sprintf("%x", a.DistributionID),
			"merkle_root", fmt.Sprintf("%x", a.MerkleRoot),
			"recipients", a.RecipientCount,
			"total_amount", a.TotalAmount)
		return nil
	}

	if *pgMigrateFlag {
		if *pgConnFlag == "" {
			return fmt.Errorf("--pg-conn is required for --pg-migrate")
		}
		return store.RunMigrations(log, *pgConnFlag)
	}

	if *seedFlag {
		if *artifactFlag == "" {
			return fmt.Errorf("--artifact is required for --seed")
		}
		if *pgConnFlag == "" {
			return fmt.Errorf("--pg-conn is required for --seed")
		}
		a, err := artifact.Load(*artifactFlag)
		if err != nil {
			return err
		}
		if err := a.Validate(false); err != nil {
			return err
		}
		claimStore, pool, err := openStore(ctx, log, *pgConnFlag)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := claimStore.SeedFromArtifact(ctx, a); err != nil {
			return err
		}
		log.Info("claim store seeded", "claims", a.RecipientCount)
		return nil
	}

	if *relayFlag {
		if *artifactFlag == "" {
			return fmt.Errorf("--artifact is required for --relay")
		}
		if *rpcURLFlag == "" {
			return fmt.Errorf("--rpc-url is required for --relay")
		}
		if *payerKeypairFlag == "" {
			return fmt.Errorf("--payer-keypair is required for --relay")
		}
		if *pgConnFlag == "" {
			return fmt.Errorf("--pg-conn is required for --relay")
		}

		a, err := artifact.Load(*artifactFlag)
		if err != nil {
			return err
		}
		payer, err := solana.PrivateKeyFromSolanaKeygenFile(*payerKeypairFlag)
		if err != nil {
			return fmt.Errorf("failed to load payer keypair: %w", err)
		}
		claimStore, pool, err := openStore(ctx, log, *pgConnFlag)
		if err != nil {
			return err
		}
		defer pool.Close()

		if *metricsAddrFlag != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			go func() {
				if err := http.ListenAndServe(*metricsAddrFlag, mux); err != nil {
					log.Error("metrics listener failed", "error", err)
				}
			}()
			log.Info("serving metrics", "addr", *metricsAddrFlag)
		}

		r, err := relayer.New(relayer.Config{
			Logger:           log,
			Store:            claimStore,
			RPC:              relayer.NewClient(*rpcURLFlag),
			Payer:            payer,
			BatchSize:        *batchSizeFlag,
			MaxAttempts:      uint32(*maxAttemptsFlag),
			RetryDelay:       *retryDelayFlag,
			InterBatchDelay:  *interBatchDelayFlag,
			ComputeUnitPrice: *computeUnitPriceFlag,
		})
		if err != nil {
			return err
		}
		return r.Run(ctx, a)
	}

	if *statusFlag {
		if *artifactFlag == "" {
			return fmt.Errorf("--artifact is required for --status")
		}
		if *rpcURLFlag == "" {
			return fmt.Errorf("--rpc-url is required for --status")
		}
		return showStatus(ctx, log, *artifactFlag, *rpcURLFlag, *pgConnFlag)
	}

	flag.Usage()
	return nil
}

func buildArtifact(log *slog.Logger, payoutsPath, rewardID, windowID, mintStr, outPath string) error {
	mint, err := solana.PublicKeyFromBase58(mintStr)
	if err != nil {
		return fmt.Errorf("invalid mint address: %w", err)
	}
	source, err := os.ReadFile(payoutsPath)
	if err != nil {
		return fmt.Errorf("failed to read payouts: %w", err)
	}
	entries, err := artifact.ParsePayoutCSV(source)
	if err != nil {
		return err
	}
	a, err := artifact.Build(artifact.BuildParams{
		RewardID: rewardID,
		WindowID: windowID,
		Mint:     mint,
		Entries:  entries,
		Source:   source,
	})
	if err != nil {
		return err
	}
	if err := a.Save(outPath); err != nil {
		return err
	}
	log.Info("artifact written",
		"path", outPath,
		"distribution_id", fmt.Sprintf("%x", a.DistributionID),
		"merkle_root", fmt.Sprintf("%x", a.MerkleRoot),
		"recipients", a.RecipientCount,
		"total_amount", a.TotalAmount)
	return nil
}

// showStatus prints where a distribution stands: the on-chain counters, and
// when a store is configured, the local claim ledger.
func showStatus(ctx context.Context, log *slog.Logger, artifactPath, rpcURL, pgConn string) error {
	a, err := artifact.Load(artifactPath)
	if err != nil {
		return err
	}
	distribution, err := program.DistributionAddress(a.DistributionID)
	if err != nil {
		return err
	}

	rpc := relayer.NewClient(rpcURL)
	info, err := rpc.GetAccountInfo(ctx, distribution)
	if err != nil || info == nil || info.Value == nil {
		log.Warn("distribution not initialized on chain", "distribution", distribution.String())
	} else {
		state, err := program.DecodeDistributionState(info.Value.Data.GetBinary())
		if err != nil {
			return err
		}
		rootMatches := state.MerkleRoot == a.MerkleRoot
		log.Info("on-chain distribution",
			"distribution", distribution.String(),
			"claimed", state.NumClaimed,
			"recipients", state.NumRecipients,
			"claimed_amount", state.ClaimedAmount,
			"total_amount", state.TotalAmount,
			"paused", state.Paused,
			"root_matches_artifact", rootMatches)
	}

	if pgConn == "" {
		return nil
	}
	claimStore, pool, err := openStore(ctx, log, pgConn)
	if err != nil {
		return err
	}
	defer pool.Close()

	dist, err := claimStore.GetDistribution(ctx, a.DistributionID)
	if err != nil {
		if errors.Is(err, store.ErrDistributionNotFound) {
			log.Warn("claim store has no record of this distribution")
			return nil
		}
		return err
	}
	unconfirmed, err := claimStore.CountUnconfirmed(ctx, a.DistributionID)
	if err != nil {
		return err
	}
	log.Info("claim store",
		"status", string(dist.Status),
		"recipients", dist.RecipientCount,
		"unconfirmed", unconfirmed)
	return nil
}

func openStore(ctx context.Context, log *slog.Logger, connStr string) (*store.Postgres, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	claimStore, err := store.NewPostgres(store.PostgresConfig{
		Logger: log,
		Pool:   pool,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return claimStore, pool, nil
}
