package loader

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// Resolve normalizes specifier against referrer.
//
// Absolute URLs are returned as is. Specifiers starting with "/", "./" or
// "../" are resolved against the referrer using standard URL reference
// resolution. Anything else is a bare specifier and fails.
func Resolve(specifier, referrer string) (*url.URL, error) {
	fail := func(err error) (*url.URL, error) {
		return nil, &ResolutionError{Specifier: specifier, Referrer: referrer, Err: err}
	}

	if specifier == "" {
		return fail(errors.New("empty specifier"))
	}

	if u, err := url.Parse(specifier); err == nil && isAbsoluteURL(u) {
		return u, nil
	}

	if !strings.HasPrefix(specifier, "/") &&
		!strings.HasPrefix(specifier, "./") &&
		!strings.HasPrefix(specifier, "../") {
		return fail(ErrBareSpecifier)
	}

	base, err := url.Parse(referrer)
	if err != nil {
		return fail(err)
	}
	if !isAbsoluteURL(base) {
		return fail(errors.New("referrer is not an absolute URL"))
	}

	ref, err := url.Parse(specifier)
	if err != nil {
		return fail(err)
	}

	return base.ResolveReference(ref), nil
}

// ResolvePath converts a filesystem path into a file URL, resolving relative
// paths against the working directory.
func ResolvePath(p string) (*url.URL, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, &ResolutionError{Specifier: p, Err: err}
	}

	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		// Windows volume paths: C:/x -> /C:/x
		slashed = "/" + slashed
	}

	return &url.URL{Scheme: "file", Path: slashed}, nil
}

// FilePath returns the local path named by a file URL.
func FilePath(u *url.URL) (string, error) {
	if u.Scheme != "file" {
		return "", ErrUnsupportedScheme
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", errors.New("file URL with remote host: " + u.Host)
	}

	p := u.Path
	// /C:/x -> C:/x
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}

	return filepath.FromSlash(p), nil
}

// A single-letter scheme is a Windows drive letter, not a URL.
func isAbsoluteURL(u *url.URL) bool {
	return u.IsAbs() && len(u.Scheme) > 1
}
