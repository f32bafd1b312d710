package opportunity

import (
	"github.com/dfund/marketplace/internal/opportunity/repository"
	"github.com/dfund/marketplace/internal/opportunity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("opportunity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
