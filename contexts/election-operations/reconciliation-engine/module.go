package reconciliationengine

import (
	"log/slog"
	"time"

	httpadapter "scrutin/contexts/election-operations/reconciliation-engine/adapters/http"
	"scrutin/contexts/election-operations/reconciliation-engine/adapters/memory"
	"scrutin/contexts/election-operations/reconciliation-engine/application/commands"
	"scrutin/contexts/election-operations/reconciliation-engine/application/queries"
	"scrutin/contexts/election-operations/reconciliation-engine/application/workers"
	"scrutin/contexts/election-operations/reconciliation-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Relay   workers.OutboxRelay
	Store   *memory.Store
}

type Dependencies struct {
	Voters          ports.VoterDirectory
	Elections       ports.ElectionProvider
	Candidates      ports.CandidateCatalog
	Zones           ports.ZoneRegistry
	Ledger          ports.VoteLedger
	Ballots         ports.OfflineBallotRepository
	MergeTxRunner   ports.MergeTxRunner
	Idempotency     ports.IdempotencyStore
	Outbox          ports.OutboxWriter
	OutboxRepo      ports.OutboxRepository
	Publisher       ports.EventPublisher
	Clock           ports.Clock
	IDGenerator     ports.IDGenerator
	IdempotencyTTL  time.Duration
	OutboxBatchSize int
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	intake := commands.IntakeUseCase{
		Voters:         deps.Voters,
		Elections:      deps.Elections,
		Candidates:     deps.Candidates,
		Zones:          deps.Zones,
		Ledger:         deps.Ledger,
		Ballots:        deps.Ballots,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGenerator,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	reconciler := commands.ReconcilerUseCase{
		Voters:    deps.Voters,
		Elections: deps.Elections,
		Ledger:    deps.Ledger,
		Ballots:   deps.Ballots,
		TxRunner:  deps.MergeTxRunner,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGenerator,
		Logger:    deps.Logger,
	}
	queue := queries.QueueUseCase{
		Elections: deps.Elections,
		Ballots:   deps.Ballots,
	}
	return Module{
		Handler: httpadapter.Handler{
			Intake:     intake,
			Reconciler: reconciler,
			Queue:      queue,
			Logger:     deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.OutboxRepo,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatchSize,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Voters:          store,
		Elections:       store,
		Candidates:      store,
		Zones:           store,
		Ledger:          store,
		Ballots:         store,
		MergeTxRunner:   store,
		Idempotency:     store,
		Outbox:          store,
		OutboxRepo:      store,
		Publisher:       publisher,
		Clock:           store,
		IDGenerator:     store,
		IdempotencyTTL:  24 * time.Hour,
		OutboxBatchSize: 100,
		Logger:          logger,
	})
	module.Store = store
	return module
}
