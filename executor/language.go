package executor

// Language supplies the bootstrap script a host evaluates before any user
// module runs.
type Language interface {
	// Name returns a unique identifier for this language (e.g. "javascript").
	Name() string

	// Bootstrap returns the source of a function expression. The host calls
	// it with the core object ({ops, opNames}: op functions keyed by name and
	// the registered names) and uses the returned object's inspect function
	// to format values.
	Bootstrap() string
}
