package resource

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/multierr"
)

// ErrBadResource is returned for handles that are unknown, already closed or
// refer to a resource of another type.
var ErrBadResource = errors.New("bad resource ID")

// ErrTableFull is returned by Add once every handle value has been issued.
var ErrTableFull = errors.New("resource table has no handles left")

// Handle identifies a resource within one Table.
type Handle uint32

// Resource is anything the table can own.
type Resource interface {
	// Name is a short type label used in errors and listings.
	Name() string
	// Close fires the resource's cancellation signal and releases it.
	// It must be safe to call more than once.
	Close() error
}

// Table maps handles to live resources.
type Table struct {
	mu        sync.Mutex
	next      Handle
	exhausted bool
	entries   map[Handle]Resource
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Handle]Resource)}
}

// Add stores r and returns its new handle. Handles are never reissued, so
// once the last handle value is used Add fails with ErrTableFull and r stays
// with the caller.
func (t *Table) Add(r Resource) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.exhausted {
		return 0, ErrTableFull
	}
	h := t.next
	if h == math.MaxUint32 {
		t.exhausted = true
	} else {
		t.next++
	}
	t.entries[h] = r
	return h, nil
}

// Get returns the resource for h.
func (t *Table) Get(h Handle) (Resource, error) {
	t.mu.Lock()
	r, ok := t.entries[h]
	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBadResource, h)
	}
	return r, nil
}

// GetAs returns the resource for h if it has type T.
func GetAs[T Resource](t *Table, h Handle) (T, error) {
	var zero T

	r, err := t.Get(h)
	if err != nil {
		return zero, err
	}

	typed, ok := r.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %d is a %s", ErrBadResource, h, r.Name())
	}
	return typed, nil
}

// Close removes h from the table and closes the resource.
func (t *Table) Close(h Handle) error {
	t.mu.Lock()
	r, ok := t.entries[h]
	delete(t.entries, h)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrBadResource, h)
	}
	return r.Close()
}

// CloseAll closes every resource, leaving the table empty. Resources are
// closed in handle order.
func (t *Table) CloseAll() error {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[Handle]Resource)
	t.mu.Unlock()

	handles := make([]Handle, 0, len(entries))
	for h := range entries {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	var err error
	for _, h := range handles {
		err = multierr.Append(err, entries[h].Close())
	}
	return err
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entry describes one live resource.
type Entry struct {
	Handle Handle
	Name   string
}

// List returns the live resources in handle order.
func (t *Table) List() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for h, r := range t.entries {
		out = append(out, Entry{Handle: h, Name: r.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}
