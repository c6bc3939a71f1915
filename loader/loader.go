package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Source is a loaded module ready to hand to the engine.
type Source struct {
	Specifier  string
	Kind       Kind
	Media      MediaType
	Code       string
	Transpiled bool
}

// Loader reads and prepares modules from the local filesystem.
type Loader struct {
	logger   *zap.Logger
	readFile func(name string) ([]byte, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for per-module debug output.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithReadFile replaces the function used to read module files.
func WithReadFile(fn func(name string) ([]byte, error)) Option {
	return func(ld *Loader) {
		if fn != nil {
			ld.readFile = fn
		}
	}
}

// New creates a Loader reading from the host filesystem.
func New(opts ...Option) *Loader {
	l := &Loader{
		logger:   zap.NewNop(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve normalizes specifier against referrer. See the package-level
// Resolve.
func (l *Loader) Resolve(specifier, referrer string) (*url.URL, error) {
	return Resolve(specifier, referrer)
}

// Load reads the module named by specifier and prepares its text.
func (l *Loader) Load(ctx context.Context, specifier *url.URL) (*Source, error) {
	name := specifier.String()
	fail := func(err error) (*Source, error) {
		return nil, &LoadError{Specifier: name, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	path, err := FilePath(specifier)
	if err != nil {
		if errors.Is(err, ErrUnsupportedScheme) {
			return fail(fmt.Errorf("%w %q", err, specifier.Scheme))
		}
		return fail(err)
	}

	data, err := l.readFile(path)
	if err != nil {
		return fail(err)
	}
	if !utf8.Valid(data) {
		return fail(errors.New("source is not valid UTF-8"))
	}

	class := Classify(specifier)
	src := &Source{
		Specifier: name,
		Kind:      class.Kind,
		Media:     class.Media,
		Code:      string(data),
	}

	switch {
	case class.Kind == StructuredData:
		if !json.Valid(data) {
			return fail(errors.New("invalid JSON"))
		}
	case class.Transpile:
		code, err := Transpile(name, src.Code, class.Media)
		if err != nil {
			return fail(err)
		}
		src.Code = code
		src.Transpiled = true
	}

	l.logger.Debug("module loaded",
		zap.String("specifier", name),
		zap.Stringer("media", class.Media),
		zap.Stringer("kind", class.Kind),
		zap.Bool("transpiled", src.Transpiled),
		zap.Bool("best_effort", class.BestEffort))

	return src, nil
}
