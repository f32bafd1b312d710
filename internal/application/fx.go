package application

import (
	"github.com/dfund/marketplace/internal/application/repository"
	"github.com/dfund/marketplace/internal/application/service"
	"go.uber.org/fx"
)

var Module = fx.Module("application.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewOpportunityDirectory),
	fx.Provide(service.New),
)
