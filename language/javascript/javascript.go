// Package javascript provides the bootstrap script that sets up the script
// environment: console and the vehicle bindings over the host ops.
package javascript

import (
	_ "embed"
)

//go:embed runtime.js
var runtime string

// JavaScript implements the executor.Language interface.
type JavaScript struct{}

// New returns a JavaScript language adapter.
func New() *JavaScript {
	return &JavaScript{}
}

// Name returns "javascript".
func (j *JavaScript) Name() string {
	return "javascript"
}

// Bootstrap returns the runtime.js function expression.
func (j *JavaScript) Bootstrap() string {
	return runtime
}
