// Package processor implements the Serialized Event Processor (spec §4.F),
// the heart of the service: a single dedicated worker goroutine through
// which every state mutation passes, so that no two mutations ever
// observably interleave (spec §5, "executor of one"). Grounded on
// _pkg.dev/connmgr/connmgr.go's actionch chan func() pattern — there, one
// goroutine owns all connection-list mutation; here, one goroutine owns all
// network-map state mutation — generalized with timer-driven debounce and
// activation borrowed from pkg/consensus/watchdog.go's timer/select loop.
package processor

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/metrics"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"github.com/nspcc-dev/network-map-service/pkg/watcher"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultConflictCacheSize bounds the best-effort name/key decode cache
// (pkg/processor's golang-lru use): it memoizes per-node-info identity
// extraction so repeat conflict checks don't re-decode unchanged blobs,
// but every AddNode still walks the full node-info store, so a bounded,
// evicting cache never compromises correctness (spec invariant 3).
const DefaultConflictCacheSize = 4096

// Stores bundles every named collection the processor reads and writes
// (spec §6, "Persisted layout"). Each field may be backed by the
// filesystem or by bbolt; the processor only depends on the store.BlobStore/
// store.TextStore interfaces.
type Stores struct {
	Parameters       store.BlobStore // signed-network-parameters
	NodeInfo         store.BlobStore // signed-node-info
	NetworkMap       store.BlobStore // signed-network-map
	ParametersUpdate store.BlobStore // parameters-update
	Text             store.TextStore // etc
}

// Config configures a Processor.
type Config struct {
	Stores Stores
	// Signer is captured once at Start and never re-read (spec §4.D).
	Signer mapdoc.Signer
	// VerifyIdentity checks a SignedNodeInfo identity signature, given
	// that identity's own owning public key (not the map's signing key).
	VerifyIdentity func(pubKey, payload, signature []byte) error

	NotaryDir        string
	NotaryPattern    string
	WatchInterval    time.Duration
	NetworkMapDelay  time.Duration
	ParamUpdateDelay time.Duration

	// Metrics is optional; nil disables metric updates.
	Metrics *metrics.Collectors

	Logger *zap.Logger
}

// Processor is the Serialized Event Processor.
type Processor struct {
	cfg Config
	log *zap.Logger

	conflictCache *lru.Cache

	actionch chan func()
	started  *atomic.Bool
	quit     chan struct{}
	finished chan struct{}

	lastRebuildOK *atomic.Bool

	rebuildTimer    *time.Timer
	rebuildArmed    bool
	activationTimer *time.Timer

	notaryWatcher *watcher.Watcher

	now func() time.Time // overridable for tests
}

// New builds a Processor. Call Start to run the boot sequence and begin
// serving enqueued work.
func New(cfg Config) (*Processor, error) {
	if cfg.NetworkMapDelay == 0 {
		cfg.NetworkMapDelay = time.Second
	}
	if cfg.ParamUpdateDelay == 0 {
		cfg.ParamUpdateDelay = 10 * time.Second
	}
	if cfg.NotaryPattern == "" {
		cfg.NotaryPattern = "*.jks"
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cache, err := lru.New(DefaultConflictCacheSize)
	if err != nil {
		return nil, fmt.Errorf("processor: build conflict cache: %w", err)
	}
	p := &Processor{
		cfg:           cfg,
		log:           log,
		conflictCache: cache,
		actionch:      make(chan func(), 256),
		started:       atomic.NewBool(false),
		quit:          make(chan struct{}),
		finished:      make(chan struct{}),
		lastRebuildOK: atomic.NewBool(true),
		now:           time.Now,
	}
	return p, nil
}

// Start runs the boot sequence (spec §4.F "Start sequence") and launches
// the worker goroutine. It blocks until the initial parameters and network
// map are established; a failure here is fatal (spec §7).
func (p *Processor) Start() error {
	if !p.started.CAS(false, true) {
		return nil
	}
	go p.loop()

	if err := <-p.submit(p.createNetworkParametersTask); err != nil {
		return fmt.Errorf("%w: %s", ErrFatalBootstrap, err)
	}
	if err := <-p.submit(func() error { return p.createNetworkMap() }); err != nil {
		return fmt.Errorf("%w: %s", ErrFatalBootstrap, err)
	}

	p.notaryWatcher = watcher.New(watcher.Config{
		Dir:      p.cfg.NotaryDir,
		Pattern:  p.cfg.NotaryPattern,
		Interval: p.cfg.WatchInterval,
		Logger:   p.log,
		OnChange: p.onNotaryDirChanged,
	})
	p.notaryWatcher.Start()

	p.log.Info("network map processor started")
	return nil
}

// Shutdown stops the notary watcher and the worker goroutine.
func (p *Processor) Shutdown() {
	if p.notaryWatcher != nil {
		p.notaryWatcher.Shutdown()
	}
	if p.started.Load() {
		close(p.quit)
		<-p.finished
	}
}

// Healthy reports whether the worker goroutine is running and the most
// recent createNetworkMap rebuild succeeded.
func (p *Processor) Healthy() bool {
	select {
	case <-p.finished:
		return false // worker goroutine has exited
	default:
	}
	return p.started.Load() && p.lastRebuildOK.Load()
}

func (p *Processor) loop() {
	defer close(p.finished)
	for {
		select {
		case <-p.quit:
			return
		case f := <-p.actionch:
			f()
		}
	}
}

// submit enqueues task onto the worker and returns a future-style channel
// completing with task's result, per spec §5 ("Public operations return
// futures that complete when the enqueued worker task completes").
func (p *Processor) submit(task func() error) <-chan error {
	result := make(chan error, 1)
	p.enqueue(func() {
		err := task()
		if err != nil {
			p.log.Error("processor task failed", zap.Error(err))
		}
		result <- err
	})
	return result
}

// enqueue posts f onto the worker channel without blocking forever past
// shutdown.
func (p *Processor) enqueue(f func()) {
	select {
	case p.actionch <- f:
	case <-p.quit:
	}
}

func (p *Processor) onNotaryDirChanged() {
	p.enqueue(func() {
		if err := p.applyNotaryDirectory(); err != nil {
			p.log.Error("failed to apply notary directory change", zap.Error(err))
		}
	})
}
