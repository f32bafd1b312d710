package notification

import (
	"context"

	appdomain "github.com/dfund/marketplace/internal/application/domain"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/dfund/marketplace/internal/config"
	"github.com/dfund/marketplace/internal/observability/metrics"
	"github.com/dfund/marketplace/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(provideDispatcher),
	fx.Provide(New),
	fx.Provide(
		func(n *Notifier) appdomain.Notifier { return n },
		func(n *Notifier) authdomain.Welcomer { return n },
	),
)

type dispatcherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Provider  email.Provider
	Metrics   *metrics.Metrics `optional:"true"`
	Log       *zap.Logger
}

func provideDispatcher(p dispatcherParams) *Dispatcher {
	d := NewDispatcher(p.Config.Notification, p.Provider, p.Metrics, p.Log)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			return nil
		},
		OnStop: d.Stop,
	})
	return d
}
