// Package logging provides structured logging using uber/zap.
//
// Two modes are available:
//   - Production: JSON output for machine parsing
//   - Development: colored console output
//
// Script runs get a child logger carrying their run id:
//
//	logger := logging.NewDefault()
//	runLog := logger.ForRun("run_01H...")
//	runLog.Warn("script timed out", zap.Duration("timeout", 5*time.Second))
package logging
