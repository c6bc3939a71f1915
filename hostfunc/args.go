package hostfunc

import (
	"fmt"
	"math"
)

// ArgError reports a missing or mistyped op argument.
type ArgError struct {
	Index int
	Want  string
	Got   any
}

func (e *ArgError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("argument %d: expected %s", e.Index, e.Want)
	}
	return fmt.Sprintf("argument %d: expected %s, got %T", e.Index, e.Want, e.Got)
}

// Args holds op arguments already converted to Go values by the engine:
// strings, bools, int64/float64 numbers and []byte views of typed arrays.
type Args []any

func (a Args) at(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// String returns argument i as a string.
func (a Args) String(i int) (string, error) {
	s, ok := a.at(i).(string)
	if !ok {
		return "", &ArgError{Index: i, Want: "string", Got: a.at(i)}
	}
	return s, nil
}

// Int returns argument i as an integer. Floats must be integral.
func (a Args) Int(i int) (int64, error) {
	switch v := a.at(i).(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, &ArgError{Index: i, Want: "integer", Got: v}
		}
		return int64(v), nil
	default:
		return 0, &ArgError{Index: i, Want: "integer", Got: a.at(i)}
	}
}

// Bool returns argument i as a bool; a missing argument is false.
func (a Args) Bool(i int) (bool, error) {
	switch v := a.at(i).(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, &ArgError{Index: i, Want: "boolean", Got: v}
	}
}

// Bytes returns argument i as a byte slice. The slice may alias script
// memory and must only be touched on the script thread.
func (a Args) Bytes(i int) ([]byte, error) {
	b, ok := a.at(i).([]byte)
	if !ok {
		return nil, &ArgError{Index: i, Want: "Uint8Array", Got: a.at(i)}
	}
	return b, nil
}
