package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/terminal"
	"github.com/kandev/ptyterm/internal/terminal/grid"
)

const (
	fallbackCols = 80
	fallbackRows = 24
)

type captureOptions struct {
	cols    int
	rows    int
	format  string
	timeout time.Duration
	workDir string
}

// captureResult is the YAML form of a captured screen.
type captureResult struct {
	Command  []string     `yaml:"command"`
	ExitCode int          `yaml:"exitCode"`
	Title    string       `yaml:"title,omitempty"`
	Cols     int          `yaml:"cols"`
	Rows     int          `yaml:"rows"`
	Cursor   cursorResult `yaml:"cursor"`
	Lines    []string     `yaml:"lines"`
}

type cursorResult struct {
	Line   int  `yaml:"line"`
	Column int  `yaml:"column"`
	Hidden bool `yaml:"hidden,omitempty"`
}

func newCaptureCmd(root *rootOptions) *cobra.Command {
	opts := &captureOptions{}
	cmd := &cobra.Command{
		Use:   "capture [flags] -- program [args...]",
		Short: "Run a program headless and print its final screen",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "yaml" {
				return fmt.Errorf("unknown format %q (want text or yaml)", opts.format)
			}
			cfg, log, err := setup(cmd.Context(), root, false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cols, rows := captureSize(opts.cols, opts.rows)
			tc := terminal.ConfigFromSettings(&cfg.Terminal)
			tc.Program, tc.Args = args[0], args[1:]
			tc.Dimensions = cellDimensions(cols, rows)
			if opts.workDir != "" {
				tc.WorkingDir = opts.workDir
			}

			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			snap, code, err := capture(ctx, tc, log)
			if snap != nil {
				if werr := writeCapture(cmd.OutOrStdout(), opts.format, args, code, snap); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
			log.Debug("capture finished", zap.Int("exit_code", code))
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.cols, "cols", 0, "terminal width (default: current terminal or 80)")
	cmd.Flags().IntVar(&opts.rows, "rows", 0, "terminal height (default: current terminal or 24)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text or yaml")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "stop the program after this long")
	cmd.Flags().StringVar(&opts.workDir, "workdir", "", "working directory for the program")
	return cmd
}

// captureSize fills unset dimensions from the controlling terminal.
func captureSize(cols, rows int) (int, int) {
	if cols > 0 && rows > 0 {
		return cols, rows
	}
	w, h := fallbackCols, fallbackRows
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if tw, th, err := term.GetSize(fd); err == nil && tw > 0 && th > 0 {
			w, h = tw, th
		}
	}
	if cols <= 0 {
		cols = w
	}
	if rows <= 0 {
		rows = h
	}
	return cols, rows
}

// cellDimensions describes a grid measured in character cells.
func cellDimensions(cols, rows int) grid.Dimensions {
	return grid.Dimensions{
		CellWidth:  1,
		LineHeight: 1,
		Bounds:     grid.Bounds{Width: float64(cols), Height: float64(rows)},
	}
}

// capture runs the session until the program exits. When ctx ends first the
// program is stopped and the screen at that moment is returned with the error.
func capture(ctx context.Context, cfg terminal.Config, log *logger.Logger) (*grid.Content, int, error) {
	s, err := terminal.New(context.WithoutCancel(ctx), cfg, log)
	if err != nil {
		return nil, 0, err
	}
	defer s.Close()

	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return s.Snapshot(), s.ExitCode(), nil
			}
			if ev.Kind == terminal.EventCloseRequested {
				return s.Snapshot(), ev.ExitCode, nil
			}
		case <-ctx.Done():
			return s.Sync(), -1, fmt.Errorf("program still running: %w", ctx.Err())
		}
	}
}

func writeCapture(w io.Writer, format string, command []string, code int, snap *grid.Content) error {
	lines := snap.Lines()
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if format == "text" {
		if len(lines) == 0 {
			return nil
		}
		_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
		return err
	}

	res := captureResult{
		Command:  command,
		ExitCode: code,
		Title:    snap.Title,
		Cols:     snap.Cols,
		Rows:     snap.Rows,
		Cursor: cursorResult{
			Line:   snap.Cursor.Line,
			Column: snap.Cursor.Column,
			Hidden: snap.Cursor.Shape == grid.CursorHidden,
		},
		Lines: lines,
	}
	if res.Lines == nil {
		res.Lines = []string{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}
	return enc.Close()
}
