package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caffeineduck/vehicle/loader"
	"github.com/dop251/goja"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSessionBusy   = errors.New("session busy")
)

// Session is a host that persists across Run calls, so globals declared by
// one snippet are visible to the next. Async ops left pending by a snippet
// that timed out keep running and settle during later calls.
type Session struct {
	exec *Executor
	host *host
	out  *boundedBuffer
	cfg  sessionConfig

	mu     sync.Mutex
	closed bool
}

type sessionConfig struct {
	timeout time.Duration
	dir     string
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// WithSessionTimeout bounds each Run call. Zero means no limit.
func WithSessionTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.timeout = d
	}
}

// WithSessionDir sets the directory relative imports in snippets resolve
// against. It defaults to the working directory.
func WithSessionDir(dir string) SessionOption {
	return func(c *sessionConfig) {
		c.dir = dir
	}
}

// NewSession starts a persistent host.
func (e *Executor) NewSession(opts ...SessionOption) (*Session, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}

	var cfg sessionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("session dir: %w", err)
		}
		cfg.dir = wd
	}

	out := newBoundedBuffer(e.cfg.outputLimit)
	h, err := e.newHost(out)
	if err != nil {
		return nil, err
	}

	referrer, err := loader.ResolvePath(filepath.Join(cfg.dir, "$repl.ts"))
	if err != nil {
		h.close()
		return nil, err
	}
	h.vm.Set("require", h.requireFunc(referrer.String()))
	h.vm.Set("__vehicleMeta", h.importMeta(referrer))

	return &Session{exec: e, host: h, out: out, cfg: cfg}, nil
}

// Run evaluates code as a script in the session's global scope, then drives
// the event loop until the work it started completes. The value of the last
// expression is formatted into Result.Value; undefined gives "".
func (s *Session) Run(ctx context.Context, code string) Result {
	if !s.mu.TryLock() {
		return Result{Error: ErrSessionBusy}
	}
	defer s.mu.Unlock()

	start := time.Now()

	if s.closed {
		return Result{Error: ErrSessionClosed, Duration: time.Since(start)}
	}

	if s.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.timeout)
		defer cancel()
	}

	s.out.Reset()
	value, err := s.eval(ctx, code)

	result := Result{
		Output:   s.out.String(),
		Value:    value,
		Duration: time.Since(start),
	}
	if err != nil {
		result.Error = runError(ctx, err, s.cfg.timeout)
	}
	return result
}

func (s *Session) eval(ctx context.Context, code string) (string, error) {
	h := s.host
	stop := h.watch(ctx)
	defer stop()

	js, err := loader.Transpile("repl.ts", code, loader.TypeScript)
	if err != nil {
		return "", err
	}
	js, err = linkScript("repl.ts", js)
	if err != nil {
		return "", err
	}

	v, err := h.vm.RunScript("repl", js)
	if err != nil {
		h.rejected = nil
		return "", scriptErr(err)
	}

	if err := h.drain(); err != nil {
		return "", err
	}
	if err := h.loop.run(ctx, h.checkSettled); err != nil {
		return "", err
	}
	if err := h.unsettledModule(); err != nil {
		return "", err
	}

	if v == nil || goja.IsUndefined(v) {
		return "", nil
	}
	return h.format(v), nil
}

// Close tears the session's host down, closing every resource it holds.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.host.close()

	s.exec.logger.Debug("session closed")
	return nil
}
