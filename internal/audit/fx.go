package audit

import (
	"github.com/dfund/marketplace/internal/audit/repository"
	"github.com/dfund/marketplace/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
