package sandbox

import (
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
)

// Console levels exposed to scripts.
var consoleLevels = []string{"log", "info", "debug", "warn", "error"}

// LogEntry is one console row as handed back to the host.
type LogEntry struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	LogLevel  string `json:"logLevel"`
}

// scriptConsole accumulates console output for one run.
type scriptConsole struct {
	mu      sync.Mutex
	entries []LogEntry
	now     func() time.Time
	log     *logging.Logger
}

func newConsole(log *logging.Logger) *scriptConsole {
	return &scriptConsole{now: time.Now, log: logging.OrNop(log)}
}

// Log records a diagnostic at the log level. It satisfies sdk.LogFunc.
func (c *scriptConsole) Log(msg string) {
	c.print("log", msg)
}

func (c *scriptConsole) print(level, msg string) {
	c.mu.Lock()
	c.entries = append(c.entries, LogEntry{Value: msg, Timestamp: c.now().UnixMilli(), LogLevel: level})
	c.mu.Unlock()
	c.log.Debug("script console", zap.String("level", level), zap.String("value", msg))
}

// Entries returns a copy of the recorded rows.
func (c *scriptConsole) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogEntry(nil), c.entries...)
}

// Dump serializes each row as a JSON line.
func (c *scriptConsole) Dump() []string {
	entries := c.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		line, err := sonic.MarshalString(e)
		if err != nil {
			continue
		}
		out = append(out, line+"\n")
	}
	return out
}

// object builds the console value passed to scripts.
func (c *scriptConsole) object(vm *goja.Runtime) *goja.Object {
	console := vm.NewObject()
	for _, level := range consoleLevels {
		level := level
		_ = console.Set(level, func(call goja.FunctionCall) goja.Value {
			c.print(level, formatArgs(vm, call.Arguments))
			return goja.Undefined()
		})
	}
	return console
}

// formatArgs joins console arguments: objects are pretty JSON, null and
// undefined are empty.
func formatArgs(vm *goja.Runtime, args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatValue(vm, arg)
	}
	return strings.Join(parts, " ")
}

func formatValue(vm *goja.Runtime, v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return v.String()
	}
	if s, ok := stringify(vm, obj, "  "); ok {
		return s
	}
	return v.String()
}

// stringify runs the engine's JSON.stringify. ok is false when it throws or
// yields undefined.
func stringify(vm *goja.Runtime, v goja.Value, indent string) (s string, ok bool) {
	json := vm.GlobalObject().Get("JSON")
	if json == nil {
		return "", false
	}
	fn, isFunc := goja.AssertFunction(json.ToObject(vm).Get("stringify"))
	if !isFunc {
		return "", false
	}
	args := []goja.Value{v}
	if indent != "" {
		args = append(args, goja.Null(), vm.ToValue(indent))
	}
	out, err := fn(json, args...)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return "", false
	}
	return out.String(), true
}
