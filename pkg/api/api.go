// Package api implements the External API Adapter: it translates inbound
// publish/admin HTTP calls into processor.Processor calls, and serves
// cached signed outputs directly from the blob/text stores. Routing
// itself is an external collaborator's concern, so this is a thin stdlib
// net/http.ServeMux adapter, not a framework.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/processor"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"go.uber.org/zap"
)

// Stores is the read side of the adapter: it serves cached artifacts
// straight from the blob/text stores, bypassing the processor entirely
// (spec §4.H, "serves cached outputs directly from the blob/text stores").
type Stores struct {
	Parameters       store.BlobStore
	NodeInfo         store.BlobStore
	NetworkMap       store.BlobStore
	ParametersUpdate store.BlobStore
	Text             store.TextStore
}

// Config configures the adapter.
type Config struct {
	Processor *processor.Processor
	Stores    Stores

	CacheTimeout     time.Duration
	ParamUpdateDelay time.Duration

	Logger *zap.Logger
}

// Adapter wires an http.ServeMux over the two roots named in spec §6:
// /network-map (protocol API) and /admin/api (management).
type Adapter struct {
	cfg Config
	log *zap.Logger
	mux *http.ServeMux
}

// New builds an Adapter and registers every route.
func New(cfg Config) *Adapter {
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = 2 * time.Second
	}
	if cfg.ParamUpdateDelay <= 0 {
		cfg.ParamUpdateDelay = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &Adapter{cfg: cfg, log: log, mux: http.NewServeMux()}
	a.routes()
	return a
}

// ServeHTTP lets Adapter itself be used as an http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *Adapter) routes() {
	a.mux.HandleFunc("/network-map", a.withCorrelation(a.handleFetchMap))
	a.mux.HandleFunc("/network-map/publish", a.withCorrelation(a.handlePublishNode))
	a.mux.HandleFunc("/network-map/ack-parameters", a.withCorrelation(a.handleAckParameters))
	a.mux.HandleFunc("/network-map/node-info/", a.withCorrelation(a.handleFetchNodeInfo))
	a.mux.HandleFunc("/network-map/network-parameters/", a.withCorrelation(a.handleFetchParameters))

	a.mux.HandleFunc("/admin/api/notaries", a.withCorrelation(a.handleNotaries))
	a.mux.HandleFunc("/admin/api/notaries/", a.withCorrelation(a.handleDeleteNotary))
	a.mux.HandleFunc("/admin/api/nodes", a.withCorrelation(a.handleListNodes))
	a.mux.HandleFunc("/admin/api/nodes/", a.withCorrelation(a.handleDeleteNode))
	a.mux.HandleFunc("/admin/api/whitelist", a.withCorrelation(a.handleWhitelist))
	a.mux.HandleFunc("/admin/api/current-parameters", a.withCorrelation(a.handleCurrentParameters))
	a.mux.HandleFunc("/admin/api/network-parameters/history", a.withCorrelation(a.handleParametersHistory))
	a.mux.HandleFunc("/admin/api/health", a.withCorrelation(a.handleHealth))
}

// withCorrelation stamps every request with a correlation id using
// google/uuid, attached to a per-request logger for downstream handlers.
func (a *Adapter) withCorrelation(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		log := a.log.With(zap.String("request_id", id), zap.String("path", r.URL.Path))
		ctx := context.WithValue(r.Context(), loggerKey, log)
		h(w, r.WithContext(ctx))
	}
}

type ctxKey int

const loggerKey ctxKey = iota

func loggerFrom(r *http.Request) *zap.Logger {
	if log, ok := r.Context().Value(loggerKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrNameConflict):
		return http.StatusConflict
	case errors.Is(err, processor.ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, processor.ErrFatalBootstrap):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, mapdoc.TemplateMaxMessageSize))
}

func hashFromPath(prefix, path string) (mapdoc.Hash, error) {
	hex := strings.TrimPrefix(path, prefix)
	return mapdoc.HashFromHex(hex)
}
