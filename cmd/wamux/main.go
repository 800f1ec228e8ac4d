package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dmitrymomot/wamux/pkg/clientip"
	"github.com/dmitrymomot/wamux/pkg/config"
	"github.com/dmitrymomot/wamux/pkg/credstore"
	"github.com/dmitrymomot/wamux/pkg/httpserver"
	"github.com/dmitrymomot/wamux/pkg/logger"
	"github.com/dmitrymomot/wamux/pkg/ratelimiter"
	"github.com/dmitrymomot/wamux/pkg/requestid"
	"github.com/dmitrymomot/wamux/pkg/router"
	"github.com/dmitrymomot/wamux/pkg/supervisor"
	"github.com/dmitrymomot/wamux/pkg/transport"
	"github.com/dmitrymomot/wamux/pkg/waclient"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"wamux"`

	CredentialStore  string `env:"CREDENTIAL_STORE" envDefault:"local"`
	CredentialDir    string `env:"CREDENTIAL_DIR" envDefault:"./data/credentials"`
	CredentialKey    string `env:"CREDENTIAL_ENCRYPTION_KEY"`
	RouterOutboxSize int    `env:"ROUTER_OUTBOX_SIZE" envDefault:"64"`
}

func main() {
	envFiles := pflag.StringSlice("env-file", nil, "dotenv files to load before reading the environment")
	pflag.Parse()

	if err := run(*envFiles); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFiles []string) error {
	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	var (
		supCfg    supervisor.Config
		httpCfg   httpserver.Config
		transCfg  transport.Config
		bridgeCfg waclient.BridgeConfig
	)
	for _, load := range []func() error{
		func() error { return config.Load(&supCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&transCfg) },
		func() error { return config.Load(&bridgeCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			logger.TenantExtractor(),
		),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	store := backend.store
	if cfg.CredentialKey != "" {
		sealed, err := encrypt(store, cfg.CredentialKey)
		if err != nil {
			return err
		}
		store = sealed
	}
	store = credstore.WithTimeout(store, supCfg.StoreTimeout)

	rt := router.New(
		router.WithOutboxSize(cfg.RouterOutboxSize),
		router.WithLogger(log),
	)
	sup, err := supervisor.New(store,
		waclient.NewBridgeFactory(bridgeCfg, waclient.WithBridgeLogger(log)),
		supervisor.WithConfig(supCfg),
		supervisor.WithLogger(log),
		supervisor.WithEmitter(rt),
	)
	if err != nil {
		return err
	}

	// separate stores: a tenant id may look like an address
	sendLimits, connectLimits := ratelimiter.NewMemoryStore(), ratelimiter.NewMemoryStore()
	defer sendLimits.Close()
	defer connectLimits.Close()
	sendLimiter, err := ratelimiter.NewBucket(sendLimits, transCfg.SendLimit())
	if err != nil {
		return err
	}
	connectLimiter, err := ratelimiter.NewBucket(connectLimits, transCfg.ConnectLimit())
	if err != nil {
		return err
	}

	api := transport.New(sup, rt,
		transport.WithConfig(transCfg),
		transport.WithLogger(log),
		transport.WithReadinessChecks(backend.checks...),
		transport.WithSendLimiter(sendLimiter),
		transport.WithConnectLimiter(connectLimiter),
	)

	server := httpserver.New(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithShutdownHook(func(ctx context.Context) error {
			// Sessions first, so terminal events still reach the sockets.
			err := sup.Shutdown(ctx)
			rt.Close()
			return err
		}),
	)

	log.Info("starting",
		slog.String("credential_store", cfg.CredentialStore),
		slog.Bool("credential_encryption", cfg.CredentialKey != ""),
		slog.String("close_policy", string(supCfg.ClosePolicy)),
		slog.Duration("watchdog_timeout", supCfg.WatchdogTimeout),
	)
	if err := server.Run(ctx, api.Handler()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
