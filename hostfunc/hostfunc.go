package hostfunc

import (
	"context"
	"sort"
	"sync"
)

// OpKind says whether an op completes on the calling thread or suspends it.
type OpKind int

const (
	// OpSync ops return their result directly.
	OpSync OpKind = iota
	// OpAsync ops return a promise settled later by the event loop.
	OpAsync
)

func (k OpKind) String() string {
	if k == OpAsync {
		return "async"
	}
	return "sync"
}

// SyncFunc runs on the script thread.
type SyncFunc func(s *State, args Args) (any, error)

// AsyncFunc runs on the script thread, validates its arguments and returns
// the Job that does the blocking work.
type AsyncFunc func(s *State, args Args) (Job, error)

// Job runs on a backend goroutine. It must not touch State; anything that
// mutates host state goes into the returned Completion. ctx is canceled when
// the host shuts down, and a Completion still in flight at that point is
// dropped: a job that acquired a resource must release it itself.
type Job func(ctx context.Context) Completion

// Completion runs back on the script thread and produces the op's result.
// A nil Completion resolves to undefined.
type Completion func(s *State) (any, error)

// Op is one entry of the operation catalog.
type Op struct {
	Name  string
	Kind  OpKind
	Sync  SyncFunc
	Async AsyncFunc
}

// Registry is the catalog of ops exposed to script code.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Op
}

// NewRegistry returns an empty registry. Use RegisterBuiltins or
// DefaultRegistry for the standard catalog.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Op)}
}

// DefaultRegistry returns a registry holding the built-in ops.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterSync adds or replaces a synchronous op.
func (r *Registry) RegisterSync(name string, fn SyncFunc) {
	r.register(Op{Name: name, Kind: OpSync, Sync: fn})
}

// RegisterAsync adds or replaces an asynchronous op.
func (r *Registry) RegisterAsync(name string, fn AsyncFunc) {
	r.register(Op{Name: name, Kind: OpAsync, Async: fn})
}

func (r *Registry) register(op Op) {
	r.mu.Lock()
	r.ops[op.Name] = op
	r.mu.Unlock()
}

// Get looks up an op by name.
func (r *Registry) Get(name string) (Op, bool) {
	r.mu.RLock()
	op, ok := r.ops[name]
	r.mu.RUnlock()
	return op, ok
}

// List returns the registered op names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a snapshot of the catalog.
func (r *Registry) All() map[string]Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Op, len(r.ops))
	for name, op := range r.ops {
		out[name] = op
	}
	return out
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	return &Registry{ops: r.All()}
}
