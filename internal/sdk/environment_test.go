package sdk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

func TestEnvironmentBasics(t *testing.T) {
	data := map[string]any{"a": "1"}
	env := NewEnvironment("dev", data)

	env.Set("b", 2.0)
	assert.True(t, env.Has("b"))
	assert.Equal(t, 2.0, env.Get("b"))
	assert.Nil(t, env.Get("missing"))
	assert.NotContains(t, data, "b")

	env.Unset("a")
	assert.False(t, env.Has("a"))

	env.Clear()
	assert.Empty(t, env.ToObject())
	assert.NotNil(t, NewEnvironment("empty", nil).ToObject())
}

func TestReplaceIn(t *testing.T) {
	env := NewEnvironment("dev", map[string]any{
		"host":    "api.example.com",
		"base":    "https://{{host}}",
		"self":    "{{self}}",
		"ping":    "{{pong}}",
		"pong":    "{{ping}}",
		"count":   3.0,
		"ratio":   0.5,
		"enabled": true,
		"obj":     map[string]any{"k": "v"},
	})

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain", "{{host}}", "api.example.com"},
		{"whitespace", "{{  host  }}", "api.example.com"},
		{"nested", "{{base}}/users", "https://api.example.com/users"},
		{"local prefix", "{{ _.host }}", "api.example.com"},
		{"unknown left as is", "{{nope}}/x", "{{nope}}/x"},
		{"self reference", "{{self}}", "{{self}}"},
		{"integral number", "n={{count}}", "n=3"},
		{"fraction", "{{ratio}}", "0.5"},
		{"bool", "{{enabled}}", "true"},
		{"object", "{{obj}}", `{"k":"v"}`},
		{"no templates", "plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.ReplaceIn(tt.template))
		})
	}

	t.Run("cycle terminates", func(t *testing.T) {
		out := env.ReplaceIn("{{ping}}")
		assert.Contains(t, []string{"{{ping}}", "{{pong}}"}, out)
	})
}

func TestVariablesPrecedence(t *testing.T) {
	globals := NewEnvironment("globals", map[string]any{"k": "globals", "g": "g"})
	collection := NewEnvironment("collection", map[string]any{"k": "collection", "c": "c"})
	environment := NewEnvironment("environment", map[string]any{"k": "environment"})
	iteration := NewEnvironment("iterationData", map[string]any{"k": "iteration"})
	local := NewEnvironment("transientVariables", map[string]any{"k": "local"})

	vars := NewVariables(VariablesOptions{
		Globals:       globals,
		Collection:    collection,
		Environment:   environment,
		IterationData: iteration,
		Local:         local,
	})

	steps := []struct {
		unset *Environment
		want  string
	}{
		{nil, "local"},
		{local, "iteration"},
		{iteration, "environment"},
		{environment, "collection"},
		{collection, "globals"},
	}
	for _, step := range steps {
		if step.unset != nil {
			step.unset.Unset("k")
		}
		assert.Equal(t, step.want, vars.Get("k"))
	}

	globals.Unset("k")
	assert.False(t, vars.Has("k"))
	assert.Nil(t, vars.Get("k"))

	assert.Equal(t, "g-c", vars.ReplaceIn("{{g}}-{{c}}"))
}

func TestVariablesSetWritesLocal(t *testing.T) {
	env := NewEnvironment("environment", map[string]any{"token": "env"})
	vars := NewVariables(VariablesOptions{Environment: env})

	vars.Set("token", "local")

	assert.Equal(t, "local", vars.Get("token"))
	assert.Equal(t, "env", env.Get("token"))
	assert.Equal(t, map[string]any{"token": "local"}, vars.LocalVarsToObject())
	assert.Equal(t, map[string]any{"token": "local"}, vars.ToObject())
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, types.CategoryPreRequest, CategoryFor("prerequest"))
	assert.Equal(t, types.CategoryAfterResponse, CategoryFor("test"))
	assert.Equal(t, types.CategoryAfterResponse, CategoryFor("afterResponse"))
	assert.Equal(t, types.CategoryUnknown, CategoryFor("other"))
}

func TestTestRecorder(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := NewTestRecorder(types.CategoryPreRequest)
	rec.now = func() time.Time { return clock }

	Test(rec, "passes", func() error {
		clock = clock.Add(5 * time.Millisecond)
		return nil
	})
	Test(rec, "fails", func() error { return errors.New("expected 1 to equal 2") })
	rec.Skip("skipped")

	c := rec.Begin("finished twice")
	c.Finish(nil)
	c.Finish(errors.New("ignored"))

	results := rec.Results()
	require.Len(t, results, 4)

	assert.Equal(t, types.RequestTestResult{
		TestCase:      "passes",
		Status:        types.TestPassed,
		ExecutionTime: 5,
		Category:      types.CategoryPreRequest,
	}, results[0])
	assert.Equal(t, types.TestFailed, results[1].Status)
	assert.Equal(t, "expected 1 to equal 2", results[1].ErrorMessage)
	assert.Equal(t, types.TestSkipped, results[2].Status)
	assert.Equal(t, types.TestPassed, results[3].Status)

	results[0].TestCase = "mutated"
	assert.Equal(t, "passes", rec.Results()[0].TestCase)
}

func TestExecution(t *testing.T) {
	exec := NewExecution(types.Execution{Location: []string{"folder", "request"}})
	exec.SkipRequest()
	exec.SetNextRequest("req_2")

	assert.Equal(t, types.Execution{
		Location:            []string{"folder", "request"},
		SkipRequest:         true,
		NextRequestIDOrName: "req_2",
	}, exec.ToObject())
}
