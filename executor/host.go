package executor

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/caffeineduck/vehicle/hostfunc"
	"github.com/caffeineduck/vehicle/loader"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// drainProgram is run to flush the promise job queue after Go code settles a
// promise outside of script execution.
var drainProgram = goja.MustCompile("vehicle:drain", "", false)

// host is one script host: an engine instance, the op state it exposes and
// the loop driving async ops. A host is not safe for concurrent use; every
// method runs on the goroutine that drives it.
type host struct {
	vm       *goja.Runtime
	state    *hostfunc.State
	loop     *loop
	registry *hostfunc.Registry
	loader   *loader.Loader
	logger   *zap.Logger

	ctx     context.Context
	inspect goja.Callable

	// modules holds one module per specifier.
	modules map[string]*moduleRecord
	// evaluating holds async modules whose body has not finished.
	evaluating []*moduleRecord
	// entry is the specifier of the module being run.
	entry string
	// rejected holds rejected promises without a handler, oldest first.
	rejected []*goja.Promise
}

func (e *Executor) newHost(out io.Writer) (*host, error) {
	state := hostfunc.NewState()
	state.FS = hostfunc.NewFS(e.cfg.fsOptions...)
	state.Stdout = tee(out, e.cfg.stdout)
	state.Stderr = tee(out, e.cfg.stderr)
	state.Logger = e.logger.Named("ops")

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	h := &host{
		vm:       vm,
		state:    state,
		loop:     newLoop(),
		registry: e.registry,
		loader:   e.loader,
		logger:   e.logger,
		ctx:      context.Background(),
		modules:  make(map[string]*moduleRecord),
	}
	vm.SetPromiseRejectionTracker(h.trackRejection)

	if err := h.bootstrap(e.cfg.language); err != nil {
		h.close()
		return nil, fmt.Errorf("bootstrap %s: %w", e.cfg.language.Name(), err)
	}
	return h, nil
}

func tee(capture io.Writer, stream io.Writer) io.Writer {
	if stream == nil {
		return capture
	}
	return io.MultiWriter(capture, stream)
}

// bootstrap evaluates the language's bootstrap function with the core object.
func (h *host) bootstrap(lang Language) error {
	v, err := h.vm.RunScript("vehicle:"+lang.Name()+"/runtime.js", lang.Bootstrap())
	if err != nil {
		return scriptErr(err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return fmt.Errorf("bootstrap script did not evaluate to a function")
	}

	ret, err := fn(goja.Undefined(), h.coreObject())
	if err != nil {
		return scriptErr(err)
	}

	if obj, ok := ret.(*goja.Object); ok {
		if inspect, ok := goja.AssertFunction(obj.Get("inspect")); ok {
			h.inspect = inspect
		}
	}
	return nil
}

// runModule evaluates the entry module and drives the loop until it and every
// module it loaded have finished.
func (h *host) runModule(ctx context.Context, specifier *url.URL) error {
	stop := h.watch(ctx)
	defer stop()

	h.entry = specifier.String()
	if _, err := h.evaluate(specifier); err != nil {
		return scriptErr(err)
	}
	if err := h.drain(); err != nil {
		return err
	}
	if err := h.loop.run(ctx, h.checkSettled); err != nil {
		return err
	}
	return h.unsettledModule()
}

// watch points the host at ctx and interrupts running script code when ctx
// ends. The returned function undoes both.
func (h *host) watch(ctx context.Context) func() {
	h.ctx = ctx
	stop := context.AfterFunc(ctx, func() {
		h.vm.Interrupt(context.Cause(ctx))
	})
	return func() {
		stop()
		h.vm.ClearInterrupt()
		h.ctx = context.Background()
	}
}

// drain runs pending promise jobs.
func (h *host) drain() error {
	if _, err := h.vm.RunProgram(drainProgram); err != nil {
		return scriptErr(err)
	}
	return nil
}

func (h *host) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		h.rejected = append(h.rejected, p)
	case goja.PromiseRejectionHandle:
		h.forgetRejection(p)
	}
}

func (h *host) forgetRejection(p *goja.Promise) {
	for i, r := range h.rejected {
		if r == p {
			h.rejected = append(h.rejected[:i], h.rejected[i+1:]...)
			return
		}
	}
}

// takeRejection reports the oldest unhandled rejection and forgets all of
// them.
func (h *host) takeRejection() error {
	if len(h.rejected) == 0 {
		return nil
	}
	p := h.rejected[0]
	h.rejected = nil
	return newScriptError(p.Result(), true)
}

// format renders v the way console.log would.
func (h *host) format(v goja.Value) string {
	if h.inspect != nil {
		if s, err := h.inspect(goja.Undefined(), v); err == nil {
			return s.String()
		}
	}
	return v.String()
}

// close tears the host down: every resource is closed, which unblocks
// pending accepts and reads, then outstanding jobs are canceled and waited
// for.
func (h *host) close() {
	if err := h.state.Resources.CloseAll(); err != nil {
		h.logger.Debug("close resources", zap.Error(err))
	}
	h.loop.stop()
}
