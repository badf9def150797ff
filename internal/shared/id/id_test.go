package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	assert.NotEqual(t, gen.Generate(), gen.Generate())
	assert.Len(t, gen.GenerateString(), 26)
}

func TestTypedIDs(t *testing.T) {
	tests := []struct {
		prefix string
		id     string
	}{
		{RunPrefix, NewRunID().String()},
		{ConnPrefix, NewConnID().String()},
		{SendPrefix, NewSendID().String()},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			parts := strings.Split(tt.id, "_")
			require.Len(t, parts, 2)
			assert.Equal(t, tt.prefix, parts[0])
			assert.True(t, IsValid(parts[1]))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(NewGenerator().GenerateString()))

	for _, bad := range []string{"", "invalid", "1234567890", "zzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		assert.False(t, IsValid(bad), bad)
	}
}

func TestParseAndTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	runID := NewRunID()
	after := time.Now().UnixMilli()

	parsed, err := Parse(runID.String())
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(runID.String(), "run_"), parsed.String())

	ts, err := Timestamp(runID.String())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts.UnixMilli(), before)
	assert.LessOrEqual(t, ts.UnixMilli(), after)

	_, err = Timestamp("run_nope")
	assert.Error(t, err)
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const perGoroutine = 50

	var wg sync.WaitGroup
	ids := make(chan string, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ids <- gen.GenerateWithPrefix(RunPrefix)
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}
