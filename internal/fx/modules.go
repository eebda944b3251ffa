package fx

import (
	"matchplay-engine/internal/api"
	"matchplay-engine/internal/config"
	"matchplay-engine/internal/database"
	"matchplay-engine/internal/logger"
	"matchplay-engine/internal/repository"
	"matchplay-engine/internal/server"
	"matchplay-engine/internal/service"

	"go.uber.org/fx"
)

var CoreModule = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
)

var RepositoryModule = fx.Options(
	fx.Provide(
		repository.NewTournamentRepository,
		repository.NewLadderRepository,
		repository.NewMatchRepository,
	),
)

var APIModule = fx.Options(
	fx.Provide(
		api.NewIdentityClient,
		api.NewDirectoryClient,
		api.NewNotifyClient,
	),
)

var ServiceModule = fx.Options(
	fx.Provide(
		service.NewAdvancer,
		service.NewResultFanout,
		service.NewTournamentService,
		service.NewLadderService,
		service.NewSubmissionService,
		service.NewDisputeService,
		service.NewSweepService,
	),
)

var ServerModule = fx.Options(
	fx.Provide(server.NewServer),
)

var AllModules = fx.Options(
	CoreModule,
	RepositoryModule,
	APIModule,
	ServiceModule,
	ServerModule,
)
