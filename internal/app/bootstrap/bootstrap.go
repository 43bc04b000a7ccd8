package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	reconciliationengine "scrutin/contexts/election-operations/reconciliation-engine"
	reconciliationpostgres "scrutin/contexts/election-operations/reconciliation-engine/adapters/postgres"
	reconciliationworkers "scrutin/contexts/election-operations/reconciliation-engine/application/workers"
	tallyengine "scrutin/contexts/election-operations/tally-engine"
	tallypostgres "scrutin/contexts/election-operations/tally-engine/adapters/postgres"
	"scrutin/internal/platform/config"
	"scrutin/internal/platform/db"
	"scrutin/internal/platform/httpserver"
	"scrutin/internal/platform/messaging"
)

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  reconciliationworkers.OutboxRelay
	relayEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	reconciliationModule, tallyModule := buildModules(pg, cfg, logger)
	server := httpserver.New(reconciliationModule, tallyModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(nil, logger)
	if err != nil {
		return nil, err
	}

	repo := reconciliationpostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: reconciliationworkers.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     reconciliationpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

// BuildModules wires both election-operations modules over one shared
// postgres connection, for reuse by the API server and the admin CLI.
func BuildModules(pg *db.Postgres, cfg config.Config, logger *slog.Logger) (reconciliationengine.Module, tallyengine.Module) {
	return buildModules(pg, cfg, logger)
}

func buildModules(
	pg *db.Postgres,
	cfg config.Config,
	logger *slog.Logger,
) (reconciliationengine.Module, tallyengine.Module) {
	reconciliationRepo := reconciliationpostgres.NewRepository(pg.DB, logger)
	reconciliationModule := reconciliationengine.NewModule(reconciliationengine.Dependencies{
		Voters:          reconciliationRepo,
		Elections:       reconciliationRepo,
		Candidates:      reconciliationRepo,
		Zones:           reconciliationRepo,
		Ledger:          reconciliationRepo,
		Ballots:         reconciliationRepo,
		MergeTxRunner:   reconciliationRepo,
		Idempotency:     reconciliationRepo,
		Outbox:          reconciliationRepo,
		OutboxRepo:      reconciliationRepo,
		Clock:           reconciliationpostgres.SystemClock{},
		IDGenerator:     reconciliationpostgres.UUIDGenerator{},
		IdempotencyTTL:  7 * 24 * time.Hour,
		OutboxBatchSize: cfg.OutboxBatchSize,
		Logger:          logger,
	})

	tallyRepo := tallypostgres.NewRepository(pg.DB, logger)
	tallyModule := tallyengine.NewModule(tallyengine.Dependencies{
		Elections:  tallyRepo,
		Ledger:     tallyRepo,
		Candidates: tallyRepo,
		Zones:      tallyRepo,
		Logger:     logger,
	})
	return reconciliationModule, tallyModule
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if !w.relayEnabled {
		w.logger.Info("outbox relay disabled, worker idle",
			"event", "bootstrap_worker_idle",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
