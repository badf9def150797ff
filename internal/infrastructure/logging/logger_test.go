package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"development", DevelopmentConfig(), false},
		{"cli", CLIConfig("warn"), false},
		{"empty output paths", Config{Level: "info"}, false},
		{"bad level", Config{Level: "loud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger.Logger)
		})
	}
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil).Logger)
	assert.NotNil(t, OrNop(&Logger{}).Logger)

	logger := NewNop()
	assert.Same(t, logger, OrNop(logger))
}

func TestForRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Component("sandbox").ForRun("run_1").Info("script finished")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sandbox", entries[0].LoggerName)
	assert.Equal(t, "run_1", entries[0].ContextMap()["run_id"])
}
