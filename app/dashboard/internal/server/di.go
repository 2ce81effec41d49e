package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/data"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/service"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/usecase"
)

// ProviderSet 是看板服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,

	// Data providers
	data.NewData,
	data.NewUserRepo,
	data.NewToolRepo,
	data.NewArtifactRepo,

	// UseCase providers
	usecase.NewUserUseCase,
	usecase.NewToolUseCase,
	usecase.NewArtifactUseCase,

	// Service providers
	service.NewDashboardService,
)
