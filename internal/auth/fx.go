package auth

import (
	"github.com/dfund/marketplace/internal/auth/repository"
	"github.com/dfund/marketplace/internal/auth/service"
	"github.com/dfund/marketplace/internal/auth/session"
	"github.com/dfund/marketplace/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
	session.Module,
)
