// Package server implements the "serve" command: it wires config, logger,
// signing authority, stores, boot-time migration, the Serialized Event
// Processor, metrics, and the HTTP API adapter together, and runs until a
// signal requests graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nspcc-dev/network-map-service/cli/options"
	"github.com/nspcc-dev/network-map-service/pkg/api"
	"github.com/nspcc-dev/network-map-service/pkg/metrics"
	"github.com/nspcc-dev/network-map-service/pkg/processor"
	"github.com/nspcc-dev/network-map-service/pkg/signer"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// NewCommands returns the "serve" command.
func NewCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "serve",
			Usage:     "Start the network map service",
			UsageText: "network-map-service serve --config config.yml",
			Action:    startServer,
			Flags:     options.Flags,
		},
	}
}

// newGraceContext returns a context cancelled on SIGINT/SIGTERM.
func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}

func startServer(ctx *cli.Context) error {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx, cfg.Logger)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = log.Sync() }()

	collectors, registry := metrics.NewCollectors()

	db, stores, err := openStores(cfg, log, collectors)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = db.Close() }()

	auth, err := loadOrCreateSigner(cfg.DB.Dir)
	if err != nil {
		return cli.Exit(err, 1)
	}

	proc, err := processor.New(processor.Config{
		Stores: processor.Stores{
			Parameters:       stores.parameters,
			NodeInfo:         stores.nodeInfo,
			NetworkMap:       stores.networkMap,
			ParametersUpdate: stores.parametersUpdate,
			Text:             stores.text,
		},
		Signer:           auth,
		VerifyIdentity:   signer.VerifyWithPublicKey,
		NotaryDir:        cfg.Notary.Dir,
		ParamUpdateDelay: cfg.Params.Delay.Duration,
		NetworkMapDelay:  cfg.NetMap.Delay.Duration,
		Metrics:          collectors,
		Logger:           log,
	})
	if err != nil {
		return cli.Exit(fmt.Errorf("build processor: %w", err), 1)
	}
	if err := proc.Start(); err != nil {
		return cli.Exit(fmt.Errorf("start processor: %w", err), 1)
	}
	defer proc.Shutdown()

	metricsSvc := metrics.NewService(cfg.Metrics, registry, log)
	metricsSvc.Start()

	adapter := api.New(api.Config{
		Processor: proc,
		Stores: api.Stores{
			Parameters:       stores.parameters,
			NodeInfo:         stores.nodeInfo,
			NetworkMap:       stores.networkMap,
			ParametersUpdate: stores.parametersUpdate,
			Text:             stores.text,
		},
		CacheTimeout:     cfg.Cache.Timeout.Duration,
		ParamUpdateDelay: cfg.Params.Delay.Duration,
		Logger:           log,
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: adapter,
	}
	go func() {
		log.Info("starting network map HTTP API", zap.Int("port", cfg.Port))
		var err error
		if cfg.TLS.Enabled {
			err = httpSrv.ListenAndServeTLS(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP API stopped unexpectedly", zap.Error(err))
		}
	}()

	<-newGraceContext().Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP API shutdown error", zap.Error(err))
	}
	if err := metricsSvc.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown error", zap.Error(err))
	}
	return nil
}
