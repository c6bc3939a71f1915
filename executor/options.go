package executor

import (
	"io"
	"time"

	"github.com/caffeineduck/vehicle/hostfunc"
	"github.com/caffeineduck/vehicle/loader"
	"go.uber.org/zap"
)

// Option configures a single run.
type Option func(*runConfig)

type runConfig struct {
	timeout time.Duration
}

func defaultRunConfig() runConfig {
	return runConfig{}
}

// WithTimeout sets the maximum execution time. Zero means no limit beyond
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	language    Language
	loader      *loader.Loader
	logger      *zap.Logger
	stdout      io.Writer
	stderr      io.Writer
	fsOptions   []hostfunc.FSOption
	outputLimit int
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		outputLimit: DefaultOutputLimit,
	}
}

// WithLanguage sets the bootstrap language. JavaScript is the default.
func WithLanguage(lang Language) ExecutorOption {
	return func(c *executorConfig) {
		c.language = lang
	}
}

// WithLoader sets the module loader. By default a loader sharing the
// executor's logger is used.
func WithLoader(l *loader.Loader) ExecutorOption {
	return func(c *executorConfig) {
		c.loader = l
	}
}

// WithLogger sets the logger used by hosts and ops.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.logger = l
	}
}

// WithStdout streams script stdout to w in addition to Result.Output.
func WithStdout(w io.Writer) ExecutorOption {
	return func(c *executorConfig) {
		c.stdout = w
	}
}

// WithStderr streams script stderr to w in addition to Result.Output.
func WithStderr(w io.Writer) ExecutorOption {
	return func(c *executorConfig) {
		c.stderr = w
	}
}

// WithFSOptions sets the limits of the file ops.
//
//	executor.New(registry,
//	    executor.WithFSOptions(hostfunc.WithMaxFileSize(1<<20)),
//	)
func WithFSOptions(opts ...hostfunc.FSOption) ExecutorOption {
	return func(c *executorConfig) {
		c.fsOptions = append(c.fsOptions, opts...)
	}
}

// WithOutputLimit caps the bytes captured into Result.Output. Output beyond
// the limit is still streamed to WithStdout/WithStderr writers. 0 disables
// the cap.
func WithOutputLimit(n int) ExecutorOption {
	return func(c *executorConfig) {
		c.outputLimit = n
	}
}
