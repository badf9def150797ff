package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

func newTestContext() *types.RequestContext {
	return &types.RequestContext{
		Request: &types.Request{
			ID:     "req_1",
			Name:   "List users",
			URL:    "https://api.example.com/users",
			Method: "GET",
			Body: types.RequestBody{
				MimeType: types.Ptr("text/plain"),
				Text:     types.Ptr("hello"),
			},
		},
		Environment: types.EnvironmentData{
			ID:   "env_1",
			Name: "Staging",
			Data: map[string]any{"host": "staging.example.com"},
		},
		BaseEnvironment: types.EnvironmentData{
			ID:   "env_base",
			Name: "Base",
			Data: map[string]any{"shared": "yes"},
		},
		RequestInfo: types.RequestInfo{EventName: "prerequest"},
	}
}

func runScript(t *testing.T, runner *Runner, script string, rc *types.RequestContext) (*Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return runner.Run(ctx, script, rc)
}

func TestRunMergesContext(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		insomnia.environment.set('token', 'abc');
		$.baseEnvironment.set('fromBase', insomnia.baseEnvironment.get('shared'));
		insomnia.variables.set('local', 1);
		insomnia.request.method = 'POST';
		insomnia.request.url = 'https://api.example.com/accounts';
		insomnia.request.addHeader({key: 'X-Test', value: '1'});
		console.log('hello', insomnia.environment.get('host'));
	`, newTestContext())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)

	out := result.Context
	assert.Equal(t, "env_1", out.Environment.ID)
	assert.Equal(t, "abc", out.Environment.Data["token"])
	assert.Equal(t, "staging.example.com", out.Environment.Data["host"])
	assert.Equal(t, "yes", out.BaseEnvironment.Data["fromBase"])
	require.NotNil(t, out.TransientVariables)
	assert.EqualValues(t, 1, out.TransientVariables.Data["local"])

	assert.Equal(t, "POST", out.Request.Method)
	assert.Equal(t, "https://api.example.com/accounts", out.Request.URL)
	require.Len(t, out.Request.Headers, 1)
	assert.Equal(t, "X-Test", out.Request.Headers[0].Name)
	assert.Equal(t, "1", out.Request.Headers[0].Value)

	require.Len(t, out.Logs, 1)
	assert.Contains(t, out.Logs[0], `"value":"hello staging.example.com"`)
	assert.Contains(t, out.Logs[0], `"logLevel":"log"`)
	assert.True(t, strings.HasSuffix(out.Logs[0], "\n"))
}

func TestRunRecordsTests(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		insomnia.test('passes', () => {
			insomnia.expect(1).to.equal(1);
		});
		insomnia.test('fails', () => {
			insomnia.expect(1).to.equal(2);
		});
		insomnia.test.skip('skipped', () => {});
		insomnia.test('async', async () => {
			await new Promise(resolve => setTimeout(resolve, 10));
			insomnia.expect(true).to.be.true;
		});
	`, newTestContext())
	require.NoError(t, err)

	results := result.Context.RequestTestResults
	require.Len(t, results, 4)

	assert.Equal(t, "passes", results[0].TestCase)
	assert.Equal(t, types.TestPassed, results[0].Status)
	assert.Equal(t, types.CategoryPreRequest, results[0].Category)

	assert.Equal(t, "fails", results[1].TestCase)
	assert.Equal(t, types.TestFailed, results[1].Status)
	assert.Equal(t, "AssertionError: expected 1 to equal 2", results[1].ErrorMessage)

	assert.Equal(t, "skipped", results[2].TestCase)
	assert.Equal(t, types.TestSkipped, results[2].Status)

	assert.Equal(t, "async", results[3].TestCase)
	assert.Equal(t, types.TestPassed, results[3].Status)
	assert.GreaterOrEqual(t, results[3].ExecutionTime, float64(0))
}

func TestRunWaitsForTimers(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		setTimeout(() => {
			insomnia.environment.set('late', 'yes');
			$.test('from timer', () => {});
		}, 20);
	`, newTestContext())
	require.NoError(t, err)

	assert.Equal(t, "yes", result.Context.Environment.Data["late"])
	require.Len(t, result.Context.RequestTestResults, 1)
	assert.Equal(t, "from timer", result.Context.RequestTestResults[0].TestCase)
}

func TestRunClearTimeout(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		const id = setTimeout(() => insomnia.environment.set('fired', true), 10000);
		clearTimeout(id);
	`, newTestContext())
	require.NoError(t, err)
	assert.NotContains(t, result.Context.Environment.Data, "fired")
}

func TestRunTimeout(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	scripts := map[string]string{
		"busy loop":       "while (true) {}",
		"pending promise": "await new Promise(() => {});",
	}
	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			rc := newTestContext()
			rc.Timeout = 50

			start := time.Now()
			_, err := runScript(t, runner, script, rc)
			assert.ErrorIs(t, err, ErrScriptTimeout)
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestRunContextCanceled(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := runner.Run(ctx, "while (true) {}", newTestContext())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunScriptErrors(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	t.Run("early return", func(t *testing.T) {
		_, err := runScript(t, runner, "return;", newTestContext())
		require.Error(t, err)
		assert.True(t, sdk.IsContractViolation(err))
		assert.Contains(t, err.Error(), "returns earlier than expected")
	})

	t.Run("thrown error", func(t *testing.T) {
		_, err := runScript(t, runner, "throw new Error('boom');", newTestContext())
		var se *ScriptError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "boom", se.Message)
		assert.Contains(t, se.Error(), "message: boom; stack: ")
	})

	t.Run("thrown string", func(t *testing.T) {
		_, err := runScript(t, runner, "throw 'plain';", newTestContext())
		var se *ScriptError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "plain", se.Error())
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := runScript(t, runner, "let = ;", newTestContext())
		var se *ScriptError
		assert.True(t, errors.As(err, &se))
	})

	t.Run("missing request", func(t *testing.T) {
		rc := newTestContext()
		rc.Request = nil
		_, err := runScript(t, runner, "", rc)
		assert.True(t, sdk.IsContractViolation(err))
	})
}

func TestRunSharedEnvironment(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	rc := newTestContext()
	rc.Environment = rc.BaseEnvironment

	result, err := runScript(t, runner, `
		insomnia.environment.set('both', 'x');
		insomnia.environment.set('same', insomnia.environment === insomnia.baseEnvironment);
		insomnia.environment.set('collection', insomnia.collectionVariables === insomnia.baseEnvironment);
	`, rc)
	require.NoError(t, err)

	out := result.Context
	assert.Equal(t, "x", out.Environment.Data["both"])
	assert.Equal(t, "x", out.BaseEnvironment.Data["both"])
	assert.Equal(t, true, out.Environment.Data["same"])
	assert.Equal(t, true, out.Environment.Data["collection"])

	require.NotEmpty(t, out.Logs)
	assert.Contains(t, out.Logs[0], "No environment is selected")
}

func TestRunRequire(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		const uuid = require('uuid');
		const lodash = require('lodash');
		insomnia.environment.set('valid', uuid.validate(uuid.v4()));
		insomnia.environment.set('picked', lodash.get({a: {b: 'c'}}, 'a.b'));
		insomnia.environment.set('underscore', _.isEqual([1], [1]));
	`, newTestContext())
	require.NoError(t, err)

	data := result.Context.Environment.Data
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "c", data["picked"])
	assert.Equal(t, true, data["underscore"])

	_, err = runScript(t, runner, "require('fs');", newTestContext())
	var se *ScriptError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, `no module is found for "fs"`, se.Message)
}

func TestRunHidesGlobals(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		insomnia.environment.set('types', [typeof process, typeof setImmediate, typeof setInterval, typeof queueMicrotask].join(','));
	`, newTestContext())
	require.NoError(t, err)
	assert.Equal(t, "undefined,undefined,undefined,undefined", result.Context.Environment.Data["types"])
}

func TestRunUncaughtTimerError(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		setTimeout(() => { throw new Error('late failure'); }, 5);
	`, newTestContext())
	require.NoError(t, err)
	require.Len(t, result.Context.Logs, 1)
	assert.Contains(t, result.Context.Logs[0], "Uncaught message: late failure")
	assert.Contains(t, result.Context.Logs[0], `"logLevel":"error"`)
}

func TestRunUpdatesBody(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	result, err := runScript(t, runner, `
		insomnia.environment.set('before', insomnia.request.body.raw);
		insomnia.request.body.update({mode: 'raw', raw: 'world'});
	`, newTestContext())
	require.NoError(t, err)

	out := result.Context
	assert.Equal(t, "hello", out.Environment.Data["before"])
	require.NotNil(t, out.Request.Body.Text)
	assert.Equal(t, "world", *out.Request.Body.Text)
}

type fakeSender struct {
	mu       sync.Mutex
	requests []*sdk.Request
	err      error
}

func (f *fakeSender) Send(_ context.Context, req *sdk.Request, _ sdk.SendOptions) (*sdk.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return sdk.NewResponse(200, "OK", nil, []byte(`{"ok":true}`), 12, req), nil
}

func TestRunSendRequest(t *testing.T) {
	sender := &fakeSender{}
	config := DefaultConfig()
	config.Sender = sender
	runner := NewRunner(config)

	result, err := runScript(t, runner, `
		insomnia.sendRequest('https://api.example.com/ping', (err, resp) => {
			insomnia.environment.set('callbackCode', resp.code);
			insomnia.environment.set('callbackErr', err);
		});
		const resp = await insomnia.sendRequest({url: 'https://api.example.com/items', method: 'post'});
		insomnia.environment.set('awaitedOk', resp.json().ok);
		await insomnia.sendRequest(insomnia.request);
	`, newTestContext())
	require.NoError(t, err)

	data := result.Context.Environment.Data
	assert.EqualValues(t, 200, data["callbackCode"])
	assert.Nil(t, data["callbackErr"])
	assert.Equal(t, true, data["awaitedOk"])

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.requests, 3)
	sent := map[string]string{}
	for _, req := range sender.requests {
		sent[req.Url.String()] = req.Method
	}
	assert.Equal(t, map[string]string{
		"https://api.example.com/ping":  "GET",
		"https://api.example.com/items": "POST",
		"https://api.example.com/users": "GET",
	}, sent)
}

func TestRunSendRequestFailure(t *testing.T) {
	config := DefaultConfig()
	config.Sender = &fakeSender{err: errors.New("connection refused")}
	runner := NewRunner(config)

	result, err := runScript(t, runner, `
		try {
			await insomnia.sendRequest('https://api.example.com/ping');
		} catch (e) {
			insomnia.environment.set('error', e.message);
		}
	`, newTestContext())
	require.NoError(t, err)
	assert.Equal(t, "connection refused", result.Context.Environment.Data["error"])
}

func TestRunSendRequestUnavailable(t *testing.T) {
	runner := NewRunner(DefaultConfig())

	_, err := runScript(t, runner, "insomnia.sendRequest('https://api.example.com');", newTestContext())
	var se *ScriptError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrSendUnavailable.Error(), se.Message)
}

func TestTimeoutFor(t *testing.T) {
	runner := NewRunner(Config{Timeout: time.Second})

	assert.Equal(t, time.Second, runner.TimeoutFor(nil))
	assert.Equal(t, time.Second, runner.TimeoutFor(&types.RequestContext{}))
	assert.Equal(t, 250*time.Millisecond, runner.TimeoutFor(&types.RequestContext{Timeout: 250}))
}
