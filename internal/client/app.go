// Package client assembles and runs the sync daemon: the relay connection,
// the metadata store, the content pipeline, the cache and the coordinator.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	stdsync "sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/saleel/nymdrive/internal/cache"
	"github.com/saleel/nymdrive/internal/client/config"
	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/pipeline"
	"github.com/saleel/nymdrive/internal/store"
	"github.com/saleel/nymdrive/internal/sync"
	"github.com/saleel/nymdrive/internal/transport"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	transport   *transport.Client
	store       *store.Store
	coordinator *sync.Coordinator
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if c.ProviderAddress == "" {
		return nil, errors.New("provider address is required (-p, NYMDRIVE_PROVIDER_ADDRESS or config file)")
	}
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	clock := clockwork.NewRealClock()
	st := store.New(c.DataDir, logger, clock)

	tc := transport.NewClient(c.RelayURL, logger, clock)
	if c.RequestTimeout > 0 {
		tc.SetRequestTimeout(c.RequestTimeout)
	}

	pipe := pipeline.New(tc, st, logger, c.ProviderAddress)
	cm := cache.New(pipe, st, filepath.Join(c.DataDir, "cache"), logger)

	approver := sync.ApproverFunc(func(ctx context.Context, address string) (bool, error) {
		if c.AutoApproveJoins {
			logger.Info(ctx, "approving device join", "device", address)
			return true, nil
		}
		logger.Warn(ctx, "rejecting device join, enable auto_approve_joins to accept", "device", address)
		return false, nil
	})
	coord := sync.New(tc, st, pipe, cm, approver, logger)

	return &App{
		config:      c,
		logger:      logger,
		transport:   tc,
		store:       st,
		coordinator: coord,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting sync daemon", "relay", app.config.RelayURL)

	app.initSignalHandler(cancelFunc)

	var wg stdsync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
