package tallyengine

import (
	"log/slog"

	httpadapter "scrutin/contexts/election-operations/tally-engine/adapters/http"
	"scrutin/contexts/election-operations/tally-engine/adapters/memory"
	"scrutin/contexts/election-operations/tally-engine/application/queries"
	"scrutin/contexts/election-operations/tally-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections  ports.ElectionProvider
	Ledger     ports.VoteLedgerReader
	Candidates ports.CandidateCatalog
	Zones      ports.ZoneRegistry
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	tally := queries.TallyUseCase{
		Elections:  deps.Elections,
		Ledger:     deps.Ledger,
		Candidates: deps.Candidates,
		Zones:      deps.Zones,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Tally:  tally,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Elections:  store,
		Ledger:     store,
		Candidates: store,
		Zones:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
