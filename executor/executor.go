package executor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/caffeineduck/vehicle/hostfunc"
	"github.com/caffeineduck/vehicle/language/javascript"
	"github.com/caffeineduck/vehicle/loader"
	"go.uber.org/zap"
)

var (
	ErrClosed  = errors.New("executor closed")
	ErrTimeout = errors.New("timeout")
)

// Result holds the output and metadata from code execution.
type Result struct {
	Output   string
	Value    string
	Duration time.Duration
	Error    error
}

// Executor runs script modules. Each run gets a fresh host: its own engine,
// resource table and event loop.
type Executor struct {
	registry *hostfunc.Registry
	cfg      executorConfig
	logger   *zap.Logger
	loader   *loader.Loader

	mu     sync.RWMutex
	closed bool
}

// New creates an Executor exposing the ops in registry. A nil registry
// means hostfunc.DefaultRegistry.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if registry == nil {
		registry = hostfunc.DefaultRegistry()
	}
	if cfg.language == nil {
		cfg.language = javascript.New()
	}
	if cfg.outputLimit < 0 {
		return nil, fmt.Errorf("invalid output limit %d", cfg.outputLimit)
	}

	log := cfg.logger
	if log == nil {
		log = Logger()
	}

	ld := cfg.loader
	if ld == nil {
		ld = loader.New(loader.WithLogger(log.Named("loader")))
	}

	return &Executor{
		registry: registry,
		cfg:      cfg,
		logger:   log,
		loader:   ld,
	}, nil
}

// RunFile runs the module at path, relative paths being resolved against the
// working directory.
func (e *Executor) RunFile(ctx context.Context, path string, opts ...Option) Result {
	u, err := loader.ResolvePath(path)
	if err != nil {
		return Result{Error: err}
	}
	return e.Run(ctx, u, opts...)
}

// Run loads the entry module at specifier, evaluates it and drives the event
// loop until no async op is pending and every module has finished. A failure
// to load the entry module is returned as the result's error; so are uncaught
// exceptions, unhandled promise rejections and a top-level await left
// pending.
func (e *Executor) Run(ctx context.Context, specifier *url.URL, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if e.isClosed() {
		return Result{Error: ErrClosed, Duration: time.Since(start)}
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	out := newBoundedBuffer(e.cfg.outputLimit)
	h, err := e.newHost(out)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}
	defer h.close()

	err = h.runModule(ctx, specifier)

	result := Result{
		Output:   out.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		result.Error = runError(ctx, err, cfg.timeout)
	}

	e.logger.Debug("run finished",
		zap.String("specifier", specifier.String()),
		zap.Duration("duration", result.Duration),
		zap.Bool("truncated", out.Truncated()),
		zap.Error(result.Error),
	)

	return result
}

// runError maps context failures to user-facing errors.
func runError(ctx context.Context, err error, timeout time.Duration) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		if timeout > 0 {
			return fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return fmt.Errorf("execution canceled: %w", err)
	default:
		return err
	}
}

func (e *Executor) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// Close marks the executor closed. Runs in progress finish normally; later
// runs fail with ErrClosed.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
