package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// modules lists what require() resolves inside scripts.
var modules = map[string]require.ModuleLoader{
	"uuid":   uuidModule,
	"lodash": lodashModule,
}

// wrapperSource turns a script into an async function over the curated
// parameters. Parameters after setTimeout shadow globals scripts must not use.
const wrapperSource = `(function (__scriptBridge) {
return async function (insomnia, require, console, _, setTimeout, setImmediate, queueMicrotask, process) {
const $ = insomnia;
__scriptBridge.resetAsyncTasks();
%s
;
__scriptBridge.stopMonitorAsyncTasks();
await __scriptBridge.asyncTasksAllSettled();
return insomnia;
};
})`

// Runner executes scripts against request contexts. Each run gets a fresh
// VM and event loop, so a Runner is safe for concurrent use.
type Runner struct {
	config   Config
	log      *logging.Logger
	registry *require.Registry
}

// NewRunner creates a runner.
func NewRunner(config Config) *Runner {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxCallStack <= 0 {
		config.MaxCallStack = DefaultConfig().MaxCallStack
	}

	registry := new(require.Registry)
	for name, loader := range modules {
		registry.RegisterNativeModule(name, loader)
	}

	return &Runner{
		config:   config,
		log:      logging.OrNop(config.Logger).Component("sandbox"),
		registry: registry,
	}
}

// TimeoutFor returns the deadline of a run over rc.
func (r *Runner) TimeoutFor(rc *types.RequestContext) time.Duration {
	if rc != nil && rc.Timeout > 0 {
		return time.Duration(rc.Timeout) * time.Millisecond
	}
	return r.config.Timeout
}

// Run executes script against rc and returns the merged context. A run that
// outlives its deadline is interrupted and reported as ErrScriptTimeout.
func (r *Runner) Run(ctx context.Context, script string, rc *types.RequestContext) (*Result, error) {
	start := time.Now()
	runID := id.NewRunID().String()
	log := r.log.ForRun(runID)

	console := newConsole(log)
	obj, err := sdk.InitInsomniaObject(rc, console.Log)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := eventloop.NewEventLoop(eventloop.WithRegistry(r.registry), eventloop.EnableConsole(false))
	loop.Start()
	defer loop.StopNoWait()

	s := &session{
		ctx:     runCtx,
		loop:    loop,
		rc:      rc,
		obj:     obj,
		console: console,
		sender:  r.config.Sender,
		log:     log,
		done:    make(chan outcome, 1),
		timers:  make(map[*eventloop.Timer]func()),
		wrapped: make(map[any]goja.Value),
	}
	loop.RunOnLoop(func(vm *goja.Runtime) {
		s.start(vm, r.registry, r.config.MaxCallStack, script)
	})

	timeout := r.TimeoutFor(rc)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	log.Debug("script started", zap.Duration("timeout", timeout), zap.Int("size", len(script)))

	select {
	case out := <-s.done:
		if out.err != nil {
			log.Debug("script failed", zap.Error(out.err))
			return nil, out.err
		}
		log.Debug("script completed", zap.Duration("duration", time.Since(start)))
		return &Result{RunID: runID, Context: out.context, Duration: time.Since(start)}, nil
	case <-timer.C:
		s.interrupt(ErrScriptTimeout)
		log.Warn("script timed out", zap.Duration("timeout", timeout))
		return nil, ErrScriptTimeout
	case <-ctx.Done():
		s.interrupt(ctx.Err())
		return nil, ctx.Err()
	}
}

// compile builds the async script function inside vm.
func compile(vm *goja.Runtime, script string, bridge *goja.Object) (goja.Callable, error) {
	factory, err := vm.RunString(fmt.Sprintf(wrapperSource, awaitTestCalls(script)))
	if err != nil {
		return nil, err
	}
	build, ok := goja.AssertFunction(factory)
	if !ok {
		return nil, fmt.Errorf("script wrapper is not a function")
	}
	fn, err := build(goja.Undefined(), bridge)
	if err != nil {
		return nil, err
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("script wrapper returned %s", fn)
	}
	return call, nil
}
