// Package main is the entry point for the ptyterm binary.
// ptyterm runs a program on a pseudo-terminal, either interactively inside the
// current terminal or headless to capture its final screen.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kandev/ptyterm/internal/common/config"
	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// exitError carries the child's exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("program exited with code %d", e.code)
}

func run(ctx context.Context, args []string) int {
	opts := &rootOptions{}
	root := newRootCmd(opts)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)

	if opts.shutdownTracing != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opts.shutdownTracing(shutdownCtx)
	}

	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "ptyterm: %v\n", err)
	return 1
}

type rootOptions struct {
	configPath      string
	shutdownTracing tracing.ShutdownFunc
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "ptyterm",
		Short:         "Run programs on a pseudo-terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "directory containing config.yaml")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newCaptureCmd(opts))
	return root
}

// setup loads configuration, builds the logger and starts tracing.
// Interactive front-ends own the terminal, so their logs go to a file
// instead of stderr.
func setup(ctx context.Context, opts *rootOptions, interactive bool) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithPath(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logging.Logger()
	if interactive && (logCfg.OutputPath == "" || logCfg.OutputPath == "stderr" || logCfg.OutputPath == "stdout") {
		logCfg.OutputPath = filepath.Join(os.TempDir(), "ptyterm.log")
	}
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)

	shutdown, err := tracing.Setup(ctx, tracing.Settings{
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	} else {
		opts.shutdownTracing = shutdown
	}
	log.Debug("configuration loaded",
		zap.String("term", cfg.Terminal.Term),
		zap.Int("scrollback", cfg.Terminal.Scrollback))
	return cfg, log, nil
}
