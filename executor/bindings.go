package executor

import (
	"github.com/caffeineduck/vehicle/hostfunc"
	"github.com/caffeineduck/vehicle/resource"
	"github.com/dop251/goja"
)

// coreObject builds the object handed to the bootstrap function:
//
//	{ ops: { <name>: function, ... }, opNames: [...] }
func (h *host) coreObject() *goja.Object {
	ops := h.vm.NewObject()
	names := h.registry.List()
	items := make([]any, 0, len(names))
	for _, name := range names {
		items = append(items, name)
		op, _ := h.registry.Get(name)
		switch op.Kind {
		case hostfunc.OpSync:
			ops.Set(name, h.syncOp(op))
		case hostfunc.OpAsync:
			ops.Set(name, h.asyncOp(op))
		}
	}

	core := h.vm.NewObject()
	core.Set("ops", ops)
	core.Set("opNames", h.vm.NewArray(items...))
	return core
}

func (h *host) syncOp(op hostfunc.Op) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		v, err := op.Sync(h.state, h.exportArgs(call.Arguments))
		if err != nil {
			panic(h.newError(err))
		}
		return h.toValue(v)
	}
}

// asyncOp returns a function that always returns a promise. Argument and
// handle errors found while preparing the job reject it too.
func (h *host) asyncOp(op hostfunc.Op) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := h.vm.NewPromise()

		job, err := op.Async(h.state, h.exportArgs(call.Arguments))
		if err != nil {
			reject(h.newError(err))
			return h.vm.ToValue(promise)
		}

		h.loop.submit(job, func(c hostfunc.Completion) error {
			var (
				v   any
				err error
			)
			if c != nil {
				v, err = c(h.state)
			}
			if err != nil {
				reject(h.newError(err))
			} else {
				resolve(h.toValue(v))
			}
			return h.drain()
		})

		return h.vm.ToValue(promise)
	}
}

// newError converts a host error to a script Error whose name is the error
// kind. Argument errors become real TypeErrors.
func (h *host) newError(err error) *goja.Object {
	kind := hostfunc.KindOf(err)
	if kind == hostfunc.TypeError {
		return h.vm.NewTypeError(err.Error())
	}
	obj := h.vm.NewGoError(err)
	obj.Set("name", string(kind))
	return obj
}

func (h *host) exportArgs(values []goja.Value) hostfunc.Args {
	args := make(hostfunc.Args, len(values))
	for i, v := range values {
		args[i] = exportValue(v)
	}
	return args
}

// exportValue converts a script value to the Go types ops expect. Typed
// arrays and ArrayBuffers become byte slices sharing script memory.
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if obj, ok := v.(*goja.Object); ok {
		if b, ok := bytesOf(obj); ok {
			return b
		}
	}
	return v.Export()
}

func bytesOf(obj *goja.Object) ([]byte, bool) {
	switch x := obj.Export().(type) {
	case goja.ArrayBuffer:
		return x.Bytes(), true
	case []byte:
		return x, true
	}

	buf := obj.Get("buffer")
	if buf == nil {
		return nil, false
	}
	ab, ok := buf.Export().(goja.ArrayBuffer)
	if !ok {
		return nil, false
	}
	data := ab.Bytes()
	off, n := intProp(obj, "byteOffset"), intProp(obj, "byteLength")
	if off < 0 || n < 0 || off+n > int64(len(data)) {
		return nil, false
	}
	return data[off : off+n], true
}

func intProp(obj *goja.Object, name string) int64 {
	v := obj.Get(name)
	if v == nil {
		return -1
	}
	return v.ToInteger()
}

func (h *host) toValue(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Undefined()
	case []byte:
		return h.newUint8Array(x)
	case resource.Handle:
		return h.vm.ToValue(int64(x))
	case hostfunc.ListenResult:
		obj := h.vm.NewObject()
		obj.Set("resourceId", int64(x.ResourceID))
		obj.Set("port", x.Port)
		return obj
	}
	return h.vm.ToValue(v)
}

func (h *host) newUint8Array(b []byte) goja.Value {
	ctor, ok := goja.AssertConstructor(h.vm.Get("Uint8Array"))
	if !ok {
		panic(h.vm.NewTypeError("Uint8Array is not available"))
	}
	arr, err := ctor(nil, h.vm.ToValue(h.vm.NewArrayBuffer(b)))
	if err != nil {
		panic(h.vm.NewGoError(err))
	}
	return arr
}
