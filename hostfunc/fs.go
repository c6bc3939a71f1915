package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

var (
	ErrFileTooLarge  = errors.New("file exceeds maximum size")
	ErrWriteTooLarge = errors.New("content exceeds maximum write size")
	ErrPathTooLong   = errors.New("path exceeds maximum length")
	ErrInvalidUTF8   = errors.New("stream did not contain valid UTF-8")
)

// FS implements the file ops. Paths are host paths, relative ones resolve
// against the process working directory. Limits of 0 mean unlimited.
type FS struct {
	maxFileSize   int64
	maxWriteSize  int64
	maxPathLength int
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithMaxFileSize limits how large a file read-file will load.
func WithMaxFileSize(size int64) FSOption {
	return func(f *FS) { f.maxFileSize = size }
}

// WithMaxWriteSize limits the content size accepted by write-file.
func WithMaxWriteSize(size int64) FSOption {
	return func(f *FS) { f.maxWriteSize = size }
}

// WithMaxPathLength limits the length of paths passed to file ops.
func WithMaxPathLength(length int) FSOption {
	return func(f *FS) { f.maxPathLength = length }
}

// NewFS creates a filesystem handler.
func NewFS(opts ...FSOption) *FS {
	f := &FS{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FS) checkPath(path string) error {
	if path == "" {
		return &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	if f.maxPathLength > 0 && len(path) > f.maxPathLength {
		return fmt.Errorf("%w (%d)", ErrPathTooLong, f.maxPathLength)
	}
	return nil
}

// ReadFile returns the whole file as UTF-8 text.
func (f *FS) ReadFile(path string) (string, error) {
	if err := f.checkPath(path); err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var r io.Reader = file
	if f.maxFileSize > 0 {
		r = io.LimitReader(file, f.maxFileSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if f.maxFileSize > 0 && int64(len(data)) > f.maxFileSize {
		return "", fmt.Errorf("read %s: %w (%d bytes)", path, ErrFileTooLarge, f.maxFileSize)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %s: %w", path, ErrInvalidUTF8)
	}

	return string(data), nil
}

// WriteFile creates or truncates path and writes content.
func (f *FS) WriteFile(path, content string) error {
	if err := f.checkPath(path); err != nil {
		return err
	}
	if f.maxWriteSize > 0 && int64(len(content)) > f.maxWriteSize {
		return fmt.Errorf("write %s: %w (%d bytes)", path, ErrWriteTooLarge, f.maxWriteSize)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// RemoveFile deletes a file. Directories are refused and a missing path is
// an error.
func (f *FS) RemoveFile(path string) error {
	if err := f.checkPath(path); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		return &os.PathError{Op: "remove", Path: path, Err: unwrapPathErr(err)}
	}
	if info.IsDir() {
		return &os.PathError{Op: "remove", Path: path, Err: errors.New("is a directory")}
	}

	return os.Remove(path)
}

func unwrapPathErr(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

func opReadFile(s *State, args Args) (Job, error) {
	path, err := args.String(0)
	if err != nil {
		return nil, err
	}
	fs := s.FS

	return func(ctx context.Context) Completion {
		text, err := fs.ReadFile(path)
		return func(*State) (any, error) { return text, err }
	}, nil
}

func opWriteFile(s *State, args Args) (Job, error) {
	path, err := args.String(0)
	if err != nil {
		return nil, err
	}
	content, err := args.String(1)
	if err != nil {
		return nil, err
	}
	fs := s.FS

	return func(ctx context.Context) Completion {
		err := fs.WriteFile(path, content)
		return func(*State) (any, error) { return nil, err }
	}, nil
}

func opRemoveFile(s *State, args Args) (any, error) {
	path, err := args.String(0)
	if err != nil {
		return nil, err
	}
	return nil, s.FS.RemoveFile(path)
}
