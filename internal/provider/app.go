package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/saleel/nymdrive/internal/logging"
	"github.com/saleel/nymdrive/internal/provider/config"
	"github.com/saleel/nymdrive/internal/transport"
)

// App assembles and runs the storage provider daemon.
type App struct {
	config    *config.Config
	logger    logging.Logger
	transport *transport.Client
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	tc := transport.NewClient(c.RelayURL, logger, clockwork.NewRealClock())

	return &App{config: c, logger: logger, transport: tc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newStorage(ctx context.Context) (Storage, error) {
	switch app.config.StorageBackend {
	case "minio":
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:  app.config.S3Endpoint,
			AccessKey: app.config.S3AccessKey,
			SecretKey: app.config.S3SecretKey,
			Bucket:    app.config.S3Bucket,
			UseSSL:    app.config.S3UseSSL,
		})
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", app.config.StorageBackend)
	}
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	storage, err := app.newStorage(ctx)
	if err != nil {
		return err
	}
	New(app.transport, storage, app.logger)

	app.logger.Info(ctx, "starting storage provider", "relay", app.config.RelayURL, "backend", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	if err := app.transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
