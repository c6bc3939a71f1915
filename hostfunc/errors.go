package hostfunc

import (
	"errors"

	"github.com/caffeineduck/vehicle/loader"
	"github.com/caffeineduck/vehicle/resource"
)

// ErrorKind is the error name script code sees on a thrown or rejected op
// error (the Error object's name property).
type ErrorKind string

const (
	ResolutionError ErrorKind = "ResolutionError"
	LoadError       ErrorKind = "LoadError"
	BindError       ErrorKind = "BindError"
	Cancelled       ErrorKind = "Cancelled"
	BadResource     ErrorKind = "BadResource"
	TypeError       ErrorKind = "TypeError"
	IoError         ErrorKind = "IoError"
)

// KindOf classifies err. Anything not recognized is an I/O failure.
func KindOf(err error) ErrorKind {
	var (
		resErr  *loader.ResolutionError
		loadErr *loader.LoadError
		bindErr *resource.BindError
		argErr  *ArgError
	)

	switch {
	case errors.As(err, &resErr):
		return ResolutionError
	case errors.As(err, &loadErr):
		return LoadError
	case errors.As(err, &bindErr):
		return BindError
	case errors.Is(err, resource.ErrCanceled):
		return Cancelled
	case errors.Is(err, resource.ErrBadResource):
		return BadResource
	case errors.As(err, &argErr):
		return TypeError
	default:
		return IoError
	}
}
