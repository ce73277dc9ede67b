package terminal

import (
	"github.com/kandev/ptyterm/internal/common/config"
	"github.com/kandev/ptyterm/internal/terminal/grid"
)

const (
	defaultWheelLinesPerTick = 3
	defaultPixelsPerLine     = 20
)

// Config describes a session to spawn.
type Config struct {
	// ID identifies the session in logs and in the Manager. Generated when empty.
	ID string

	WorkingDir string
	// Program is started instead of the user's shell when set.
	Program string
	Args    []string
	// Env holds extra KEY=VALUE entries for the child.
	Env  []string
	Term string

	Dimensions grid.Dimensions
	// Scrollback is the history limit. Zero uses the engine default and a
	// negative value disables history.
	Scrollback   int
	OptionAsMeta bool

	WheelLinesPerTick int
	PixelsPerLine     float64
}

// ConfigFromSettings builds a session config from the loaded application settings.
func ConfigFromSettings(tc *config.TerminalConfig) Config {
	scrollback := tc.Scrollback
	if scrollback == 0 {
		scrollback = -1
	}
	return Config{
		WorkingDir:        tc.WorkDir,
		Program:           tc.Shell,
		Args:              tc.ShellArgs,
		Term:              tc.Term,
		Dimensions:        tc.Dimensions(),
		Scrollback:        scrollback,
		OptionAsMeta:      tc.OptionAsMeta,
		WheelLinesPerTick: tc.WheelLinesPerTick,
		PixelsPerLine:     tc.PixelsPerLine,
	}
}

func (c Config) withDefaults() Config {
	if c.Dimensions.CellWidth <= 0 || c.Dimensions.LineHeight <= 0 {
		c.Dimensions = grid.DefaultDimensions()
	}
	if c.WheelLinesPerTick <= 0 {
		c.WheelLinesPerTick = defaultWheelLinesPerTick
	}
	if c.PixelsPerLine <= 0 {
		c.PixelsPerLine = defaultPixelsPerLine
	}
	return c
}

// engineScrollback maps the session setting onto the engine's convention,
// where negative means default.
func (c Config) engineScrollback() int {
	switch {
	case c.Scrollback == 0:
		return -1
	case c.Scrollback < 0:
		return 0
	default:
		return c.Scrollback
	}
}
