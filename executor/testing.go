package executor

import (
	"sync"

	"github.com/caffeineduck/vehicle/hostfunc"
)

// Shared executor for package tests. Each Run still gets its own host, so
// sharing the executor does not share script state between tests.
var (
	testExecutor     *Executor
	testExecutorOnce sync.Once
	testExecutorErr  error
)

// GetTestExecutor returns an executor with the built-in op catalog, the
// default loader and no output streaming. It is created on first use.
func GetTestExecutor() (*Executor, error) {
	testExecutorOnce.Do(func() {
		testExecutor, testExecutorErr = New(hostfunc.DefaultRegistry())
	})
	return testExecutor, testExecutorErr
}

// CloseTestExecutor closes the shared executor so the next GetTestExecutor
// builds a new one. TestMain calls it after the package's tests.
func CloseTestExecutor() {
	if testExecutor == nil {
		return
	}
	testExecutor.Close()
	testExecutor = nil
	testExecutorErr = nil
	testExecutorOnce = sync.Once{}
}
