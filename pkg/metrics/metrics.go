// Package metrics is the Prometheus-backed optional HTTP surface: epoch,
// rebuild count, node count, and migration status gauges/counters,
// toggled by config.BasicService.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nspcc-dev/network-map-service/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "network_map"

// Collectors holds every metric this service publishes.
type Collectors struct {
	Epoch            prometheus.Gauge
	NodeCount        prometheus.Gauge
	RebuildsTotal    prometheus.Counter
	ActivationsTotal prometheus.Counter
	MigrationStatus  prometheus.Gauge
}

// NewCollectors builds and registers every metric against a fresh registry.
func NewCollectors() (*Collectors, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		Epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "current_epoch", Help: "Epoch of the currently active network parameters.",
		}),
		NodeCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "node_count", Help: "Number of node infos in the latest signed network map.",
		}),
		RebuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rebuilds_total", Help: "Number of network map rebuilds performed.",
		}),
		ActivationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "parameter_activations_total", Help: "Number of pending parameter updates activated.",
		}),
		MigrationStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "migration_complete", Help: "1 once the boot-time store migration has completed successfully.",
		}),
	}
	reg.MustRegister(c.Epoch, c.NodeCount, c.RebuildsTotal, c.ActivationsTotal, c.MigrationStatus)
	return c, reg
}

// Service is the optional HTTP surface serving /metrics, gated by
// config.BasicService's enabled flag and bind addresses.
type Service struct {
	cfg config.BasicService
	log *zap.Logger
	srv *http.Server
}

// NewService builds a metrics HTTP service bound to cfg's first address.
// Only one address is used: the metrics endpoint is a single plain HTTP
// listener, so any further entries in cfg.Addresses are ignored.
func NewService(cfg config.BasicService, reg *prometheus.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	addr := ""
	if len(cfg.Addresses) > 0 {
		addr = cfg.Addresses[0]
	}
	return &Service{
		cfg: cfg,
		log: log,
		srv: &http.Server{Addr: addr, Handler: mux},
	}
}

// Start begins serving, if the service is enabled; otherwise it is a no-op.
func (s *Service) Start() {
	if !s.cfg.Enabled {
		return
	}
	go func() {
		s.log.Info("starting metrics service", zap.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics service stopped unexpectedly", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the metrics service, if it was started.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
