package executor

import (
	"errors"
	"strings"

	"github.com/dop251/goja"
)

// ScriptError is an exception that escaped script code, either thrown from
// module evaluation or carried by a promise rejection nobody handled.
type ScriptError struct {
	Name      string
	Message   string
	Stack     string
	Rejection bool
	// Err is the host error behind an op failure, if any.
	Err error

	value goja.Value
}

func (e *ScriptError) Error() string {
	var b strings.Builder
	b.WriteString("Uncaught ")
	if e.Rejection {
		b.WriteString("(in promise) ")
	}
	switch {
	case e.Name != "" && e.Message != "":
		b.WriteString(e.Name + ": " + e.Message)
	case e.Name != "":
		b.WriteString(e.Name)
	default:
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *ScriptError) Unwrap() error { return e.Err }

func newScriptError(v goja.Value, rejection bool) *ScriptError {
	se := &ScriptError{Rejection: rejection, value: v}
	if v == nil {
		se.Message = "undefined"
		return se
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		se.Message = v.String()
		return se
	}

	se.Name = stringProp(obj, "name")
	se.Message = stringProp(obj, "message")
	se.Stack = stringProp(obj, "stack")
	if gv := obj.Get("value"); gv != nil {
		if err, ok := gv.Export().(error); ok {
			se.Err = err
		}
	}
	if se.Name == "" && se.Message == "" {
		se.Message = v.String()
	}
	return se
}

func stringProp(obj *goja.Object, name string) string {
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// scriptErr converts engine errors into ScriptError or the interrupt cause.
func scriptErr(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return err
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		se := newScriptError(exc.Value(), false)
		if se.Stack == "" {
			se.Stack = exc.String()
		}
		return se
	}
	return err
}
