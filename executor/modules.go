package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/vehicle/loader"
	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"
)

const (
	moduleParams           = "(exports, require, module, __filename, __dirname, __vehicleMeta, __vehicleRequire, __vehicleExport) {"
	moduleWrapperHead      = "(function " + moduleParams
	asyncModuleWrapperHead = "(async function " + moduleParams
	moduleWrapperTail      = "\n})"
)

// Namespaces of the async linker's plugin. The self namespace holds the
// module being linked; every import it makes is replaced by a shim in the
// require namespace.
const (
	selfNamespace    = "vehicle-self"
	requireNamespace = "vehicle-require"
	selfSpecifier    = "vehicle:self"
)

// moduleDefines points import.meta at the meta object passed to each module
// and keeps top-level this undefined in modules without module syntax.
var moduleDefines = map[string]string{
	"import.meta": "__vehicleMeta",
	"this":        "undefined",
}

// linked is a module body ready to be wrapped in a module function.
type linked struct {
	code string
	// async bodies use top-level await and run as an async function.
	async bool
}

// linkScript rewrites module syntax in code into a CommonJS body. Dynamic
// import() becomes a promise of require so loading errors reject the
// importer's promise.
func linkScript(specifier, code string) (string, error) {
	result := transformModule(specifier, code)
	if len(result.Errors) > 0 {
		return "", transpileError(result.Errors)
	}
	return string(result.Code), nil
}

// link is linkScript for module files. A module using top-level await cannot
// become a plain CommonJS body; it is bundled into an async body instead.
func link(specifier, code string) (*linked, error) {
	result := transformModule(specifier, code)
	if len(result.Errors) > 0 {
		if usesTopLevelAwait(result.Errors) {
			return linkAsync(specifier, code)
		}
		return nil, transpileError(result.Errors)
	}
	return &linked{code: string(result.Code)}, nil
}

func transformModule(specifier, code string) api.TransformResult {
	return api.Transform(code, api.TransformOptions{
		Loader:     api.LoaderJS,
		Format:     api.FormatCommonJS,
		Sourcefile: specifier,
		Target:     api.ESNext,
		Charset:    api.CharsetUTF8,
		Define:     moduleDefines,
		Supported: map[string]bool{
			"dynamic-import": false,
		},
	})
}

func usesTopLevelAwait(msgs []api.Message) bool {
	for _, m := range msgs {
		if strings.HasPrefix(m.Text, "Top-level await") {
			return true
		}
	}
	return false
}

// linkAsync bundles a module that uses top-level await into the body of an
// async function. Each import becomes a shim calling __vehicleRequire, and
// the module hands its namespace to __vehicleExport before any of its own
// statements run, so importers that reach it mid-await see live bindings.
func linkAsync(specifier, code string) (*linked, error) {
	self := `import * as __vehicleSelf from "` + selfSpecifier + `"; __vehicleExport(__vehicleSelf);` + code

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   `import "` + selfSpecifier + `";`,
			Sourcefile: specifier,
			Loader:     api.LoaderJS,
		},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatESModule,
		Platform:    api.PlatformNeutral,
		Target:      api.ESNext,
		Charset:     api.CharsetUTF8,
		TreeShaking: api.TreeShakingFalse,
		LogLevel:    api.LogLevelSilent,
		Define:      moduleDefines,
		Supported: map[string]bool{
			"dynamic-import": false,
		},
		Plugins: []api.Plugin{asyncLinkPlugin(specifier, self)},
	})
	if len(result.Errors) > 0 {
		return nil, transpileError(result.Errors)
	}
	if len(result.OutputFiles) != 1 {
		return nil, fmt.Errorf("link %s: expected one output, got %d", specifier, len(result.OutputFiles))
	}
	return &linked{code: string(result.OutputFiles[0].Contents), async: true}, nil
}

func asyncLinkPlugin(specifier, self string) api.Plugin {
	return api.Plugin{
		Name: "vehicle-link",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Path == selfSpecifier {
						return api.OnResolveResult{Path: specifier, Namespace: selfNamespace}, nil
					}
					return api.OnResolveResult{Path: args.Path, Namespace: requireNamespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: selfNamespace},
				func(api.OnLoadArgs) (api.OnLoadResult, error) {
					return api.OnLoadResult{Contents: &self, Loader: api.LoaderJS}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: requireNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					quoted, err := json.Marshal(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					shim := "module.exports = __vehicleRequire(" + string(quoted) + ");"
					return api.OnLoadResult{Contents: &shim, Loader: api.LoaderJS}, nil
				})
		},
	}
}

func transpileError(msgs []api.Message) error {
	return &loader.TranspileError{Messages: api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: api.ErrorMessage,
	})}
}

// moduleRecord is a module instantiated in one host.
type moduleRecord struct {
	key    string
	module *goja.Object
	// done settles when an async module body finishes. It is nil for
	// modules that finish synchronously.
	done *goja.Promise
}

func (r *moduleRecord) exports() goja.Value {
	return r.module.Get("exports")
}

// evaluate returns the module at specifier, loading and running it on first
// use within this host. An async module is returned as soon as its body
// first suspends; the host waits for it before a run completes.
func (h *host) evaluate(specifier *url.URL) (*moduleRecord, error) {
	key := specifier.String()
	if rec, ok := h.modules[key]; ok {
		return rec, nil
	}

	src, err := h.loader.Load(h.ctx, specifier)
	if err != nil {
		return nil, err
	}

	module := h.vm.NewObject()
	exports := h.vm.NewObject()
	module.Set("exports", exports)
	module.Set("id", key)
	rec := &moduleRecord{key: key, module: module}

	switch src.Kind {
	case loader.StructuredData:
		v, err := h.parseJSON(src.Code)
		if err != nil {
			return nil, &loader.LoadError{Specifier: key, Err: err}
		}
		module.Set("exports", v)
		h.modules[key] = rec

	default:
		body, err := link(key, src.Code)
		if err != nil {
			return nil, &loader.LoadError{Specifier: key, Err: err}
		}
		head := moduleWrapperHead
		if body.async {
			head = asyncModuleWrapperHead
		}
		prog, err := goja.Compile(key, head+body.code+moduleWrapperTail, true)
		if err != nil {
			return nil, &loader.LoadError{Specifier: key, Err: err}
		}
		fnValue, err := h.vm.RunProgram(prog)
		if err != nil {
			return nil, err
		}
		fn, _ := goja.AssertFunction(fnValue)

		filename, dirname := key, ""
		if path, err := loader.FilePath(specifier); err == nil {
			filename, dirname = path, filepath.Dir(path)
		}
		require := h.vm.ToValue(h.requireFunc(key))

		// Registered before running so cyclic imports see the partial
		// exports instead of loading the module twice.
		h.modules[key] = rec
		ret, err := fn(goja.Undefined(), exports, require, module,
			h.vm.ToValue(filename), h.vm.ToValue(dirname), h.importMeta(specifier),
			require, h.vm.ToValue(h.exportFunc(module)))
		if err != nil {
			delete(h.modules, key)
			return nil, err
		}

		if body.async {
			p, _ := ret.Export().(*goja.Promise)
			if p != nil && p.State() == goja.PromiseStateRejected {
				h.forgetRejection(p)
				delete(h.modules, key)
				return nil, newScriptError(p.Result(), false)
			}
			if p != nil && p.State() == goja.PromiseStatePending {
				rec.done = p
				h.evaluating = append(h.evaluating, rec)
			}
		}
	}

	h.logger.Debug("module evaluated",
		zap.String("specifier", key),
		zap.Stringer("kind", src.Kind),
		zap.Bool("pending", rec.done != nil),
	)
	return rec, nil
}

// importMeta builds the import.meta object of the module at specifier.
func (h *host) importMeta(specifier *url.URL) goja.Value {
	key := specifier.String()
	meta := h.vm.NewObject()
	meta.Set("url", key)
	meta.Set("main", key == h.entry)
	meta.Set("resolve", func(call goja.FunctionCall) goja.Value {
		u, err := h.loader.Resolve(call.Argument(0).String(), key)
		if err != nil {
			panic(h.newError(err))
		}
		return h.vm.ToValue(u.String())
	})
	return meta
}

// exportFunc returns the function an async module body uses to publish its
// namespace as its exports.
func (h *host) exportFunc(module *goja.Object) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		ns := call.Argument(0).ToObject(h.vm)
		if err := ns.DefineDataProperty("__esModule", h.vm.ToValue(true),
			goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
			panic(h.newError(err))
		}
		module.Set("exports", ns)
		return goja.Undefined()
	}
}

func (h *host) parseJSON(text string) (goja.Value, error) {
	parse, ok := goja.AssertFunction(h.vm.Get("JSON").ToObject(h.vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse is not available")
	}
	return parse(goja.Undefined(), h.vm.ToValue(text))
}

// requireFunc returns the require function of the module at referrer.
func (h *host) requireFunc(referrer string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()

		u, err := h.loader.Resolve(specifier, referrer)
		if err != nil {
			panic(h.newError(err))
		}

		rec, err := h.evaluate(u)
		if err != nil {
			h.rethrow(err)
		}
		return rec.exports()
	}
}

// rethrow propagates err out of a native function. Script exceptions keep
// their original value.
func (h *host) rethrow(err error) {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		panic(exc.Value())
	}
	var se *ScriptError
	if errors.As(err, &se) && se.value != nil {
		panic(se.value)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}
	panic(h.newError(err))
}

// ErrModuleNotSettled is reported when the loop goes idle while a module's
// top-level await is still pending.
var ErrModuleNotSettled = errors.New("top-level await never settled")

// settleModules reports the first async module whose body failed, as an
// uncaught exception, and forgets modules that finished.
func (h *host) settleModules() error {
	var failed *moduleRecord
	pending := h.evaluating[:0]
	for _, rec := range h.evaluating {
		switch rec.done.State() {
		case goja.PromiseStatePending:
			pending = append(pending, rec)
		case goja.PromiseStateRejected:
			if failed == nil {
				failed = rec
			}
		}
	}
	h.evaluating = pending

	if failed == nil {
		return nil
	}
	h.forgetRejection(failed.done)
	return newScriptError(failed.done.Result(), false)
}

// checkSettled is the loop check of a host: failed modules first, then
// unhandled rejections.
func (h *host) checkSettled() error {
	if err := h.settleModules(); err != nil {
		return err
	}
	return h.takeRejection()
}

// unsettledModule reports a module still awaiting once no op is left to
// settle it.
func (h *host) unsettledModule() error {
	if len(h.evaluating) == 0 {
		return nil
	}
	rec := h.evaluating[0]
	h.evaluating = nil
	return fmt.Errorf("%s: %w", rec.key, ErrModuleNotSettled)
}
