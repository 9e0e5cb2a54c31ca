package escrowservice

import (
	"log/slog"
	"time"

	httpadapter "crystalgive/contexts/crowdfunding/escrow-service/adapters/http"
	"crystalgive/contexts/crowdfunding/escrow-service/adapters/memory"
	"crystalgive/contexts/crowdfunding/escrow-service/application/commands"
	"crystalgive/contexts/crowdfunding/escrow-service/application/queries"
	"crystalgive/contexts/crowdfunding/escrow-service/ports"
)

// Module is the composition surface for the escrow service.
// Runtime wiring consumes Handler; Store is set only for in-memory builds.
type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Units          ports.UnitOfWork
	Reader         ports.SnapshotReader
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	Metrics        ports.Metrics
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// NewModule wires escrow use cases against explicit ports.
func NewModule(deps Dependencies) Module {
	handler := httpadapter.Handler{
		CreateCampaign: commands.CreateCampaignUseCase{
			Units:          deps.Units,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			Metrics:        deps.Metrics,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		Donate: commands.DonateUseCase{
			Units:          deps.Units,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			Metrics:        deps.Metrics,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		CreateRequest: commands.CreateRequestUseCase{
			Units:          deps.Units,
			Clock:          deps.Clock,
			IDGenerator:    deps.IDGenerator,
			Metrics:        deps.Metrics,
			IdempotencyTTL: deps.IdempotencyTTL,
			Logger:         deps.Logger,
		},
		ApproveRequest: commands.ApproveRequestUseCase{
			Units:       deps.Units,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		FinalizeRequest: commands.FinalizeRequestUseCase{
			Units:       deps.Units,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		GetCampaign:     queries.GetCampaignUseCase{Reader: deps.Reader, Logger: deps.Logger},
		ListCampaigns:   queries.ListCampaignsUseCase{Reader: deps.Reader, Logger: deps.Logger},
		GetRequest:      queries.GetRequestUseCase{Reader: deps.Reader, Logger: deps.Logger},
		ListRequests:    queries.ListRequestsUseCase{Reader: deps.Reader, Logger: deps.Logger},
		CheckMembership: queries.CheckMembershipUseCase{Reader: deps.Reader, Logger: deps.Logger},
		GetBalance:      queries.GetAccountBalanceUseCase{Reader: deps.Reader, Logger: deps.Logger},
		ListEvents:      queries.ListEventsUseCase{Reader: deps.Reader, Logger: deps.Logger},
		Logger:          deps.Logger,
	}
	return Module{Handler: handler}
}

// NewInMemoryModule wires the use cases against a fresh in-memory store.
func NewInMemoryModule(metrics ports.Metrics, logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	module := NewModule(Dependencies{
		Units:          store,
		Reader:         store,
		Clock:          store,
		IDGenerator:    store,
		Metrics:        metrics,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
