package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// removedGlobals are loop helpers scripts must not reach.
var removedGlobals = []string{"require", "setInterval", "clearInterval", "setImmediate", "clearImmediate", "process", "module", "exports"}

// outcome is what a session hands back to Run.
type outcome struct {
	context *types.RequestContext
	err     error
}

// session is the state of one run. Apart from interrupt, its methods run on
// the event loop goroutine.
type session struct {
	ctx     context.Context
	loop    *eventloop.EventLoop
	rc      *types.RequestContext
	obj     *sdk.InsomniaObject
	console *scriptConsole
	sender  Sender
	log     *logging.Logger
	done    chan outcome

	vm      *goja.Runtime
	modules *require.RequireModule
	root    *goja.Object
	tasks   taskTracker
	timers  map[*eventloop.Timer]func()
	wrapped map[any]goja.Value

	mu          sync.Mutex
	attached    *goja.Runtime
	interrupted any
}

// interrupt stops the VM. It may be called from any goroutine, including
// before the VM exists.
func (s *session) interrupt(reason any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = reason
	if s.attached != nil {
		s.attached.Interrupt(reason)
	}
}

func (s *session) attach(vm *goja.Runtime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = vm
	if s.interrupted != nil {
		vm.Interrupt(s.interrupted)
	}
}

func (s *session) finish(ctx *types.RequestContext, err error) {
	select {
	case s.done <- outcome{context: ctx, err: err}:
	default:
	}
}

// guard converts a Go panic on the loop into a failed run.
func (s *session) guard() {
	if r := recover(); r != nil {
		s.log.Error("sandbox panic", zap.Any("panic", r))
		s.finish(nil, fmt.Errorf("sandbox panic: %v", r))
	}
}

func (s *session) start(vm *goja.Runtime, registry *require.Registry, maxCallStack int, script string) {
	defer s.guard()

	s.vm = vm
	s.attach(vm)
	vm.SetFieldNameMapper(fieldMapper{})
	vm.SetMaxCallStackSize(maxCallStack)

	s.modules = registry.Enable(vm)
	global := vm.GlobalObject()
	for _, name := range removedGlobals {
		_ = global.Delete(name)
	}
	_ = global.Set("clearTimeout", s.clearTimeout)

	s.root = s.buildRoot()
	fn, err := compile(vm, script, s.bridge())
	if err != nil {
		s.finish(nil, scriptErrorFrom(err))
		return
	}

	ret, err := fn(goja.Undefined(),
		s.root,
		vm.ToValue(s.require),
		s.console.object(vm),
		newUtil(vm),
		vm.ToValue(s.setTimeout),
		goja.Undefined(),
		goja.Undefined(),
		goja.Undefined(),
	)
	if err != nil {
		s.finish(nil, scriptErrorFrom(err))
		return
	}
	s.settle(ret, s.complete, func(reason goja.Value) {
		s.finish(nil, scriptErrorFromValue(reason))
	})
}

// complete validates the script's return value and merges the result.
func (s *session) complete(ret goja.Value) {
	obj, ok := ret.(*goja.Object)
	if !ok || !obj.SameAs(s.root) {
		s.finish(nil, &sdk.ContractViolationError{Reason: invalidReturn})
		return
	}
	s.finish(sdk.MergeContext(s.rc, s.obj.ToObject(), s.console.Dump()), nil)
}

// settle calls onFulfilled or onRejected once v settles. Non-promise values
// are fulfilled immediately.
func (s *session) settle(v goja.Value, onFulfilled, onRejected func(goja.Value)) {
	obj, ok := v.(*goja.Object)
	if !ok {
		onFulfilled(v)
		return
	}
	if _, isPromise := obj.Export().(*goja.Promise); !isPromise {
		onFulfilled(v)
		return
	}
	then, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		onFulfilled(v)
		return
	}
	_, err := then(obj,
		s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			onFulfilled(call.Argument(0))
			return goja.Undefined()
		}),
		s.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			onRejected(call.Argument(0))
			return goja.Undefined()
		}),
	)
	if err != nil {
		onRejected(thrownValue(s.vm, err))
	}
}

// bridge exposes async task tracking to the script wrapper.
func (s *session) bridge() *goja.Object {
	b := s.vm.NewObject()
	_ = b.Set("resetAsyncTasks", func() { s.tasks.reset() })
	_ = b.Set("stopMonitorAsyncTasks", func() { s.tasks.stop() })
	_ = b.Set("asyncTasksAllSettled", func() goja.Value {
		promise, resolve, _ := s.vm.NewPromise()
		s.tasks.whenSettled(func() { _ = resolve(goja.Undefined()) })
		return s.vm.ToValue(promise)
	})
	return b
}

// wrap converts a Go value once so aliases stay identical in scripts.
func (s *session) wrap(v any) goja.Value {
	if w, ok := s.wrapped[v]; ok {
		return w
	}
	w := s.vm.ToValue(v)
	s.wrapped[v] = w
	return w
}

func (s *session) buildRoot() *goja.Object {
	vm, obj := s.vm, s.obj
	root := vm.NewObject()

	_ = root.Set("environment", s.wrap(obj.Environment))
	_ = root.Set("collectionVariables", s.wrap(obj.CollectionVariables))
	_ = root.Set("baseEnvironment", s.wrap(obj.BaseEnvironment))
	_ = root.Set("iterationData", s.wrap(obj.IterationData))
	_ = root.Set("globals", s.wrap(obj.Globals))
	_ = root.Set("variables", s.wrap(obj.Variables))
	_ = root.Set("request", newRequestObject(vm, obj.Request))
	if obj.Response != nil {
		_ = root.Set("response", s.wrap(obj.Response))
	} else {
		_ = root.Set("response", goja.Undefined())
	}
	_ = root.Set("cookies", s.wrap(obj.Cookies))
	_ = root.Set("info", s.wrap(obj.Info))
	_ = root.Set("execution", s.wrap(obj.Execution))

	test := vm.ToValue(s.test).(*goja.Object)
	_ = test.Set("skip", s.skip)
	_ = root.Set("test", test)
	_ = root.Set("expect", expect(vm))
	_ = root.Set("sendRequest", s.sendRequest)
	return root
}

// test implements insomnia.test(name, fn). The returned promise settles
// once fn's outcome is recorded; a failing fn never rejects it.
func (s *session) test(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	tc := s.obj.Tests().Begin(name)
	done := s.tasks.add()
	promise, resolve, _ := s.vm.NewPromise()

	finish := func(failure goja.Value) {
		if failure == nil {
			tc.Finish(nil)
		} else {
			tc.FinishWithMessage(true, failure.String())
		}
		_ = resolve(goja.Undefined())
		done()
	}

	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		finish(s.vm.ToValue("TypeError: test callback is not a function"))
		return s.vm.ToValue(promise)
	}
	ret, err := fn(goja.Undefined())
	if err != nil {
		finish(thrownValue(s.vm, err))
		return s.vm.ToValue(promise)
	}
	s.settle(ret, func(goja.Value) { finish(nil) }, finish)
	return s.vm.ToValue(promise)
}

// skip implements insomnia.test.skip(name, fn).
func (s *session) skip(call goja.FunctionCall) goja.Value {
	s.obj.Tests().Skip(call.Argument(0).String())
	promise, resolve, _ := s.vm.NewPromise()
	_ = resolve(goja.Undefined())
	return s.vm.ToValue(promise)
}

// require resolves the whitelisted modules.
func (s *session) require(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	if _, ok := modules[name]; !ok {
		panic(s.vm.NewGoError(fmt.Errorf("no module is found for %q", name)))
	}
	v, err := s.modules.Require(name)
	if err != nil {
		panic(s.vm.NewGoError(err))
	}
	return v
}

// setTimeout schedules fn on the loop and tracks it as an async task.
func (s *session) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(s.vm.NewTypeError("setTimeout callback is not a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	done := s.tasks.add()
	var timer *eventloop.Timer
	timer = s.loop.SetTimeout(func(*goja.Runtime) {
		defer s.guard()
		defer done()
		delete(s.timers, timer)
		if _, err := fn(goja.Undefined(), args...); err != nil {
			s.uncaught(err)
		}
	}, delay)
	s.timers[timer] = done
	return s.vm.ToValue(timer)
}

func (s *session) clearTimeout(call goja.FunctionCall) goja.Value {
	timer, ok := call.Argument(0).Export().(*eventloop.Timer)
	if !ok {
		return goja.Undefined()
	}
	s.loop.ClearTimeout(timer)
	if done, tracked := s.timers[timer]; tracked {
		delete(s.timers, timer)
		done()
	}
	return goja.Undefined()
}

// sendRequest implements insomnia.sendRequest(request, callback). The IO runs
// off the loop; the callback and the returned promise settle back on it.
func (s *session) sendRequest(call goja.FunctionCall) goja.Value {
	if s.sender == nil {
		panic(s.vm.NewGoError(ErrSendUnavailable))
	}
	req, err := s.requestArg(call.Argument(0))
	if err != nil {
		panic(s.vm.NewGoError(err))
	}
	callback, hasCallback := goja.AssertFunction(call.Argument(1))
	opts := sdk.SendOptionsFor(s.obj)

	promise, resolve, reject := s.vm.NewPromise()
	done := s.tasks.add()

	go func() {
		resp, sendErr := s.sender.Send(s.ctx, req, opts)
		s.loop.RunOnLoop(func(vm *goja.Runtime) {
			defer s.guard()
			defer done()

			errVal, respVal := goja.Null(), goja.Undefined()
			if sendErr != nil {
				errVal = vm.NewGoError(sendErr)
			} else {
				respVal = vm.ToValue(resp)
			}

			if !hasCallback {
				if sendErr != nil {
					_ = reject(errVal)
				} else {
					_ = resolve(respVal)
				}
				return
			}
			if _, err := callback(goja.Undefined(), errVal, respVal); err != nil {
				s.uncaught(err)
			}
			_ = resolve(respVal)
		})
	}()
	return s.vm.ToValue(promise)
}

// requestArg accepts a url string, the script's request, or a request object.
func (s *session) requestArg(v goja.Value) (*sdk.Request, error) {
	if obj, ok := v.(*goja.Object); ok && obj.SameAs(s.root.Get("request")) {
		return s.obj.Request.Clone(), nil
	}
	return sdk.ParseRequest(v.Export())
}

// uncaught reports an exception thrown from a callback nobody awaits.
func (s *session) uncaught(err error) {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return
	}
	msg := scriptErrorFrom(err).Error()
	s.console.print("error", "Uncaught "+msg)
	s.log.Warn("uncaught script error", zap.String("error", msg))
}
