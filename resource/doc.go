// Package resource owns the native objects script code refers to by handle.
//
// A [Table] maps integer [Handle]s to live resources. Script code only ever
// holds handles; the table holds the objects. Closing a handle removes it from
// the table and fires the resource's cancellation signal, so any accept or
// read blocked on it returns [ErrCanceled]. Handles are never reused.
//
// Two TCP resources are provided. A [Listener] wraps a bound listener. A
// [Stream] wraps a connection with separate read and write locks: one read and
// one write may be in flight at the same time, but two reads (or two writes)
// serialize.
package resource
