package sandbox

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")

	// ErrScriptTimeout is the outcome of a run that outlived its deadline. The
	// message is part of the host protocol.
	ErrScriptTimeout = errors.New("Timeout: Running script took too long") //nolint:staticcheck

	// ErrSendUnavailable is thrown by sendRequest when no sender is configured.
	ErrSendUnavailable = errors.New("sendRequest is not available in this runner")
)

// invalidReturn is reported when the script body does not hand back the root object.
const invalidReturn = "insomnia object is invalid or script returns earlier than expected."

// ScriptError is an exception thrown, or a rejection raised, by a script.
type ScriptError struct {
	Message string
	Stack   string
	// Value is the stringified thrown value when it carried no message.
	Value string
}

func (e *ScriptError) Error() string {
	if e.Message == "" {
		return e.Value
	}
	return fmt.Sprintf("message: %s; stack: %s", e.Message, e.Stack)
}

// scriptErrorFromValue converts a thrown JS value.
func scriptErrorFromValue(v goja.Value) *ScriptError {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return &ScriptError{Value: fmt.Sprint(v)}
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return &ScriptError{Value: v.String()}
	}
	msg := obj.Get("message")
	if msg == nil || goja.IsUndefined(msg) || msg.String() == "" {
		return &ScriptError{Value: v.String()}
	}
	se := &ScriptError{Message: msg.String()}
	if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
		se.Stack = stack.String()
	}
	return se
}

// scriptErrorFrom converts an error returned by the engine. Interrupts keep
// their cause so callers can match ErrScriptTimeout or a context error.
func scriptErrorFrom(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return scriptErrorFromValue(ex.Value())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause := interrupted.Unwrap(); cause != nil {
			return cause
		}
		return err
	}
	return err
}

// thrownValue returns the JS value behind err, rethrowing uncatchable ones.
func thrownValue(vm *goja.Runtime, err error) goja.Value {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Value()
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		panic(interrupted)
	}
	return vm.NewGoError(err)
}
