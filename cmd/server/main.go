// Command glimpse-server verifies and records on-chain donations.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/glimpsegive/glimpse-ledger/internal/auth"
	"github.com/glimpsegive/glimpse-ledger/internal/chain"
	"github.com/glimpsegive/glimpse-ledger/internal/config"
	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
	"github.com/glimpsegive/glimpse-ledger/internal/events"
	"github.com/glimpsegive/glimpse-ledger/internal/limiter"
	"github.com/glimpsegive/glimpse-ledger/internal/logging"
	"github.com/glimpsegive/glimpse-ledger/internal/metrics"
	"github.com/glimpsegive/glimpse-ledger/internal/migrate"
	"github.com/glimpsegive/glimpse-ledger/internal/nonce"
	"github.com/glimpsegive/glimpse-ledger/internal/repository"
	"github.com/glimpsegive/glimpse-ledger/internal/repository/cache"
	"github.com/glimpsegive/glimpse-ledger/internal/repository/postgres"
	grpcserver "github.com/glimpsegive/glimpse-ledger/internal/server/grpc"
	httpserver "github.com/glimpsegive/glimpse-ledger/internal/server/http"
	"github.com/glimpsegive/glimpse-ledger/internal/service"
	"github.com/glimpsegive/glimpse-ledger/internal/verify"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("program", cfg.ProgramID.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return fmt.Errorf("pgxpool: %w", err)
	}
	defer db.Close()

	// Repositories
	var needs repository.NeedRepository = postgres.NewNeedRepo(db)
	if cfg.NeedCacheMB > 0 {
		cached, err := cache.NewNeeds(ctx, needs, 10*time.Minute, cfg.NeedCacheMB)
		if err != nil {
			return fmt.Errorf("need cache: %w", err)
		}
		defer func() { _ = cached.Close() }()
		needs = cached
	}
	ledger := postgres.NewLedgerRepo(db)
	profiles := postgres.NewProfileRepo(db)

	vaults, err := loadVaults(ctx, cfg, needs, logger)
	if err != nil {
		return err
	}

	// Collaborators
	m := metrics.New()
	rpc := chain.NewRPCClient(cfg.RPCURL, cfg.FetchTimeout)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	lim := limiter.NewPG(db.Pool, limiter.DefaultWindow, limiter.DefaultMaxFails, limiter.DefaultBlockFor)

	var nonces nonce.Store = nonce.NewPGStore(db.Pool)
	if cfg.NonceBackend == config.NonceRedis {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		nonces = nonce.NewRedisStore(rdb)
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		pub = nc
	}

	// Services
	donations := service.NewDonationService(service.DonationDeps{
		Gate:         auth.NewGate(cfg.JWTSecret),
		Fetcher:      rpc,
		Verifier:     verify.New(cfg.Mint.String(), cfg.Decimals, vaults),
		Needs:        needs,
		Ledger:       ledger,
		Events:       pub,
		Metrics:      m,
		Vaults:       vaults,
		Builder:      &escrow.Builder{Mint: cfg.Mint, Decimals: cfg.Decimals, Vaults: vaults},
		Blockhash:    rpc,
		Log:          logger,
		HistoryLimit: cfg.HistoryLimit,
	})
	signin := service.NewSignInService(nonces, cfg.NonceTTL, lim, profiles, issuer, m, logger)

	api := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpserver.New(donations, signin, db, m, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 15*time.Second,
	}

	hs := grpcserver.NewHealth(logger)
	hlis, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		return fmt.Errorf("listen health: %w", err)
	}
	go hs.Watch(ctx, db, 10*time.Second)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("health listening", zap.String("addr", cfg.HealthAddr))
		errCh <- hs.Serve(hlis)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	// graceful shutdown
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := api.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	done := make(chan struct{})
	go func() {
		hs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-sctx.Done():
		hs.Stop()
	}
	return serveErr
}

// loadVaults registers every need in the database alongside the seed table.
func loadVaults(ctx context.Context, cfg config.Config, needs repository.NeedRepository, logger *zap.Logger) (*escrow.Directory, error) {
	dir := escrow.NewDirectory(cfg.ProgramID)
	slugs, err := needs.Slugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load need slugs: %w", err)
	}
	for _, slug := range slugs {
		if _, err := dir.Add(slug); err != nil {
			logger.Warn("skipping need without a derivable vault", zap.String("slug", slug), zap.Error(err))
		}
	}
	logger.Info("vaults loaded", zap.Int("count", dir.Len()))
	return dir, nil
}
