package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sandbox"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sdk"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/utils"
)

// Service runs scripts for a host and signals busy state around each run.
type Service struct {
	pool    *sandbox.Pool
	metrics *monitoring.Metrics
	log     *logging.Logger
	busy    atomic.Int64
}

// NewService creates a service running scripts on pool
func NewService(pool *sandbox.Pool, metrics *monitoring.Metrics, logger *logging.Logger) *Service {
	return &Service{
		pool:    pool,
		metrics: metrics,
		log:     logging.OrNop(logger).Component("bridge"),
	}
}

// Busy reports whether any run is in progress
func (s *Service) Busy() bool {
	return s.busy.Load() > 0
}

// PoolStats returns the statistics of the runner pool
func (s *Service) PoolStats() sandbox.PoolStats {
	return s.pool.Stats()
}

// RunScript executes script against rc and returns the merged context. The
// busy signal is raised for the whole call and cleared on every path.
func (s *Service) RunScript(ctx context.Context, script string, rc *types.RequestContext) (*types.RequestContext, error) {
	if rc == nil {
		return nil, fmt.Errorf("%w: context is required", sdk.ErrInvalidArgument)
	}
	if err := utils.ValidateScript(script); err != nil {
		return nil, err
	}
	if err := utils.ValidateContext(rc); err != nil {
		return nil, err
	}

	s.setBusy(true)
	defer s.setBusy(false)

	timer := monitoring.NewTimer(s.metrics)
	result, err := s.pool.Run(ctx, script, rc)
	if err != nil {
		outcome := monitoring.OutcomeErrored
		if errors.Is(err, sandbox.ErrScriptTimeout) {
			outcome = monitoring.OutcomeTimeout
		}
		duration := timer.Stop(outcome)
		s.log.Warn("script run failed",
			zap.String("outcome", outcome),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	duration := timer.Stop(monitoring.OutcomeCompleted)
	merged := result.Context
	if s.metrics != nil {
		for _, r := range merged.RequestTestResults {
			s.metrics.RecordTestResult(string(r.Status), string(r.Category))
		}
	}
	s.log.Info("script run completed",
		zap.String("run_id", result.RunID),
		zap.Duration("duration", duration),
		zap.Int("tests", len(merged.RequestTestResults)),
	)
	return merged, nil
}

func (s *Service) setBusy(busy bool) {
	if busy {
		s.busy.Add(1)
	} else {
		s.busy.Add(-1)
	}
	if s.metrics != nil {
		s.metrics.SetBusy(busy)
	}
}

// statusFor maps a run error to the HTTP status of its error result. Script
// failures are results, not transport failures, so they answer 200.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sdk.ErrInvalidArgument), errors.Is(err, utils.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, sandbox.ErrPoolClosed), errors.Is(err, sandbox.ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusOK
	}
}

// errorResult is the error-shaped result returned to hosts.
type errorResult struct {
	Error string `json:"error"`
}
