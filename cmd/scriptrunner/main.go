package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/sandbox"
	"github.com/GriffinCanCode/AgentOS/scripting/internal/transport"
)

var version = "dev"

type runOptions struct {
	scriptPath  string
	contextPath string
	outputPath  string
	timeoutMS   int
	offline     bool
	pretty      bool
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var failed *runError
		if errors.As(err, &failed) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scriptrunner",
		Short:         "Run request scripts against a request context",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a script and print the merged context",
		Long: `run executes a pre-request or after-response script against a request
context loaded from JSON, YAML or TOML, and prints the merged context as JSON.
A failed run prints {"error": "..."} and exits with status 1.

Examples:
  scriptrunner run --script pre.js --context ctx.json
  scriptrunner run --script tests.js --context ctx.yaml --pretty --output out.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runScript(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.scriptPath, "script", "s", "", "path to the script file")
	cmd.Flags().StringVarP(&opts.contextPath, "context", "c", "", "path to the request context (.json, .yaml, .toml)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().IntVar(&opts.timeoutMS, "timeout", 0, "script timeout in milliseconds (default: context timeout or SCRIPT_TIMEOUT_MS)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "disable insomnia.sendRequest")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	_ = cmd.MarkFlagRequired("script")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

// runError marks a run that produced an error result.
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }

func (e *runError) Unwrap() error { return e.err }

func runScript(ctx context.Context, opts runOptions, stdout io.Writer) error {
	script, err := os.ReadFile(opts.scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	rc, err := loadContext(opts.contextPath)
	if err != nil {
		return err
	}
	if opts.timeoutMS > 0 {
		rc.Timeout = opts.timeoutMS
	}

	logger, err := logging.New(logging.CLIConfig(opts.logLevel))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.LoadOrDefault()
	runnerCfg := sandbox.Config{
		Timeout:      cfg.Sandbox.Timeout(),
		MaxCallStack: cfg.Sandbox.MaxCallStack,
		Logger:       logger,
	}
	if !opts.offline {
		sender, err := transport.NewClient(transport.Config{
			Timeout:           cfg.Transport.Timeout,
			Retries:           cfg.Transport.Retries,
			RequestsPerSecond: cfg.Transport.RequestsPerSecond,
			UserAgent:         cfg.Transport.UserAgent,
			Logger:            logger,
		})
		if err != nil {
			return err
		}
		runnerCfg.Sender = sender
	}

	out := stdout
	if opts.outputPath != "" {
		f, err := os.Create(opts.outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	start := time.Now()
	result, runErr := sandbox.NewRunner(runnerCfg).Run(ctx, string(script), rc)

	logger.Debug("run finished", zap.Duration("duration", time.Since(start)), zap.Error(runErr))

	if runErr != nil {
		if err := writeResult(out, map[string]string{"error": runErr.Error()}, opts.pretty); err != nil {
			return err
		}
		return &runError{err: runErr}
	}
	return writeResult(out, result.Context, opts.pretty)
}

func writeResult(w io.Writer, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = sonic.ConfigStd.MarshalIndent(v, "", "  ")
	} else {
		data, err = sonic.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
