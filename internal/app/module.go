// Package app composes the daemon from its parts with fx.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/paulologeh/pychat/internal/api"
	"github.com/paulologeh/pychat/internal/bus"
	"github.com/paulologeh/pychat/internal/config"
	"github.com/paulologeh/pychat/internal/lock"
	"github.com/paulologeh/pychat/internal/logging"
	"github.com/paulologeh/pychat/internal/push"
	"github.com/paulologeh/pychat/internal/session"
	"github.com/paulologeh/pychat/internal/status"
	"github.com/paulologeh/pychat/internal/store"
	intsync "github.com/paulologeh/pychat/internal/sync"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	ServerURL   string // optional override; empty = config/default
	SocketURL   string // optional override; empty = derived from server URL
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideConfig,
			provideClient,
			provideStore,
			provideEngine,
			provideListener,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideConfig(p Params, logger *zap.Logger) *config.Config {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		logger.Info("no config file, using defaults")
		cfg = &config.Config{}
	}
	if p.ServerURL != "" {
		cfg.ServerURL = p.ServerURL
	}
	if p.SocketURL != "" {
		cfg.SocketURL = p.SocketURL
	}
	return cfg
}

func provideClient(p Params, cfg *config.Config, logger *zap.Logger) (*api.Client, error) {
	cookie := session.LoadCookie(p.SessionName)
	if cookie == "" {
		return nil, fmt.Errorf("no session cookie at %s, log in first", session.CookiePath(p.SessionName))
	}
	logger.Info("api client configured", zap.String("server", cfg.Server()))
	return api.NewClient(cfg.Server(), api.WithSessionCookie(cookie)), nil
}

func provideStore(b *bus.Bus) *store.Store {
	return store.New(b)
}

func provideEngine(client *api.Client, st *store.Store, b *bus.Bus, machine *status.Machine, logger *zap.Logger) (*intsync.Engine, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	identity, err := client.Whoami(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	logger.Info("identity resolved",
		zap.Int("user_id", identity.ID),
		zap.String("username", identity.Username))
	return intsync.NewEngine(client, st, b, machine, identity.ID, logger), nil
}

func provideListener(p Params, cfg *config.Config, engine *intsync.Engine, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *push.Listener {
	return push.NewListener(push.Config{
		URL:    cfg.Socket(),
		Cookie: session.LoadCookie(p.SessionName),
	}, engine.Enqueue, b, machine, logger)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, engine *intsync.Engine, listener *push.Listener, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			engine.Start(context.Background())

			// Bootstrap in the background so startup never blocks on the
			// network. The listener connects once initial state is loaded,
			// so no push event can race the first full fetch.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				if err := engine.Bootstrap(ctx); err != nil {
					logger.Error("bootstrap failed", zap.Error(err))
					return
				}
				listener.Start(context.Background())
			}()

			return nil
		},
		OnStop: func(_ context.Context) error {
			listener.Stop()
			engine.Stop()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
