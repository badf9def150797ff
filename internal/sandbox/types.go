package sandbox

import (
	"context"
	"time"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// Config defines runner configuration
type Config struct {
	Timeout      time.Duration // Default run timeout, overridden by context.timeout
	MaxCallStack int           // Maximum JS call stack depth
	PoolSize     int           // Concurrent runs allowed by a Pool
	Logger       *logging.Logger
	Sender       Sender // Transport behind insomnia.sendRequest; nil disables it
}

// Sender performs the network IO behind insomnia.sendRequest.
type Sender interface {
	Send(ctx context.Context, req *sdk.Request, opts sdk.SendOptions) (*sdk.Response, error)
}

// Result holds the outcome of a completed run
type Result struct {
	RunID    string
	Context  *types.RequestContext // Merged context, logs included
	Duration time.Duration
}

// Default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		MaxCallStack: 1024,
		PoolSize:     4,
	}
}
