// Package unabtofx wires a Facade into an fx application: the facade is
// configured and its routes registered at construction, started with the
// application and ticked from a run loop until the application stops.
package unabtofx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/TheusHen/unabto-go/unabto"
	"github.com/TheusHen/unabto-go/unabto/app"
	"github.com/TheusHen/unabto-go/unabto/config"
	"github.com/TheusHen/unabto-go/unabto/discovery"
	"github.com/TheusHen/unabto-go/unabto/runloop"
	"github.com/TheusHen/unabto-go/unabto/stack"
	"github.com/TheusHen/unabto-go/unabto/stack/local"
)

// RouteGroup is the fx value group routes are collected from.
const RouteGroup = "unabto.routes"

var ErrDuplicateRoute = errors.New("unabtofx: duplicate route")

// Route binds a handler to a query id.
type Route struct {
	QueryID uint32
	Handler app.Handler
}

// Settings tunes the facade and its run loop.
type Settings struct {
	TickInterval time.Duration
	Facade       []unabto.Option
}

// Handle contributes a route to the facade.
func Handle(queryID uint32, h app.Handler) fx.Option {
	return fx.Provide(fx.Annotated{
		Group:  RouteGroup,
		Target: func() Route { return Route{QueryID: queryID, Handler: h} },
	})
}

type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     unabto.Config
	Stack      stack.Stack
	Routes     []Route               `group:"unabto.routes"`
	Settings   Settings              `optional:"true"`
	Logger     *zap.Logger           `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// NewFacade builds and configures the facade and ties Init, the run loop
// and Close to the application lifecycle.
//
// Value groups carry no order, so unlike RegisterHandler, routes sharing a
// query id are rejected instead of shadowing each other.
func NewFacade(p Params) (*unabto.Facade, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts := append([]unabto.Option{unabto.WithLogger(log)}, p.Settings.Facade...)
	if p.Registerer != nil {
		opts = append(opts, unabto.WithRegisterer(p.Registerer))
	}
	f := unabto.New(p.Stack, opts...)
	if err := f.Configure(p.Config); err != nil {
		return nil, err
	}

	seen := map[uint32]bool{}
	for _, r := range p.Routes {
		if seen[r.QueryID] {
			return nil, fmt.Errorf("%w: query id %d", ErrDuplicateRoute, r.QueryID)
		}
		seen[r.QueryID] = true
		if err := f.RegisterHandler(r.QueryID, r.Handler); err != nil {
			return nil, fmt.Errorf("unabtofx: route %d: %w", r.QueryID, err)
		}
	}

	runner := runloop.New(f, runloop.WithInterval(p.Settings.TickInterval), runloop.WithLogger(log))
	var cancel context.CancelFunc
	done := make(chan error, 1)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := f.Init(); err != nil {
				return err
			}
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				err := runner.Run(ctx)
				if err != nil {
					log.Error("run loop stopped", zap.Error(err))
					_ = p.Shutdowner.Shutdown()
				}
				done <- err
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return f.Close()
		},
	})
	return f, nil
}

// Module provides *unabto.Facade and makes sure it is constructed.
var Module = fx.Module("unabto",
	fx.Provide(NewFacade),
	fx.Invoke(func(*unabto.Facade) {}),
)

type localParams struct {
	fx.In

	Logger   *zap.Logger        `optional:"true"`
	Resolver discovery.Resolver `optional:"true"`
}

// LocalStack provides a local-connection stack.Stack built with opts.
func LocalStack(opts ...local.Option) fx.Option {
	return fx.Provide(func(p localParams) stack.Stack {
		all := append([]local.Option{local.WithLogger(p.Logger), local.WithResolver(p.Resolver)}, opts...)
		return local.New(all...)
	})
}

// FromFile supplies the facade configuration, settings and local stack
// described by a configuration file.
func FromFile(f config.File) fx.Option {
	return fx.Options(
		fx.Supply(f.Unabto()),
		fx.Supply(Settings{TickInterval: f.TickInterval(), Facade: f.FacadeOptions()}),
		LocalStack(f.LocalOptions()...),
	)
}
