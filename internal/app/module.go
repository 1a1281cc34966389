// Package app composes the client: config, logging, bus, state
// machine, transport, chat service and UI, with lifecycle hooks that
// connect on start and tear down on stop.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/prsnl/prsnl/internal/bus"
	"github.com/prsnl/prsnl/internal/chat"
	"github.com/prsnl/prsnl/internal/config"
	"github.com/prsnl/prsnl/internal/lock"
	"github.com/prsnl/prsnl/internal/logging"
	"github.com/prsnl/prsnl/internal/session"
	"github.com/prsnl/prsnl/internal/status"
	"github.com/prsnl/prsnl/internal/transport"
	"github.com/prsnl/prsnl/internal/tui"
)

// Params holds command-line overrides passed to the fx module.
type Params struct {
	ServerURL string // optional override for config server_url
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("prsnl",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideTransport,
			provideChatService,
			provideUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		return nil, err
	}
	if p.ServerURL != "" {
		cfg.ServerURL = p.ServerURL
	}
	return cfg, nil
}

func provideLogger() (*zap.Logger, error) {
	if err := session.EnsureDirs(); err != nil {
		return nil, err
	}
	return logging.New(session.LogPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock")
	l, err := lock.Acquire(session.LockPath())
	if err != nil {
		return nil, err
	}
	return l, nil
}

func provideTransport(cfg *config.Config, b *bus.Bus, m *status.Machine, logger *zap.Logger) transport.Transport {
	opts := transport.DefaultOptions()
	opts.PingInterval = time.Duration(cfg.PingIntervalSecs) * time.Second
	opts.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	return transport.NewWebsocket(b, m, logger, opts)
}

func provideChatService(tr transport.Transport, b *bus.Bus, logger *zap.Logger) *chat.Service {
	return chat.NewService(tr, b, logger)
}

func provideUI(svc *chat.Service, tr transport.Transport, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.NewApp(svc, tr, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, tr transport.Transport, svc *chat.Service, ui *tui.App, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			svc.Start(context.Background())

			// Connect in the background; a failed first attempt leaves
			// the app usable with a visible Disconnected indicator.
			go func() {
				if err := tr.Connect(context.Background(), cfg.ServerURL); err != nil {
					logger.Warn("initial connect failed", zap.Error(err))
				}
			}()

			go func() {
				if err := ui.Run(context.Background()); err != nil {
					logger.Error("ui error", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()

			return nil
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			svc.Stop()
			tr.Disconnect()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
