package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/terminal"
	"github.com/kandev/ptyterm/internal/terminal/grid"
	"github.com/kandev/ptyterm/internal/terminal/keys"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [-- program [args...]]",
		Short: "Run a program, by default your shell, inside the current terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd.Context(), root, true)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("failed to create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("failed to initialize screen: %w", err)
			}
			defer screen.Fini()
			screen.EnableMouse()
			screen.EnablePaste()

			tc := terminal.ConfigFromSettings(&cfg.Terminal)
			tc.Dimensions = cellDimensions(screen.Size())
			if len(args) > 0 {
				tc.Program, tc.Args = args[0], args[1:]
			}

			s, err := terminal.New(cmd.Context(), tc, log)
			if err != nil {
				return err
			}
			defer s.Close()

			fe := &frontEnd{screen: screen, session: s, logger: log.WithComponent("front-end")}
			if code := fe.loop(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
}

// frontEnd renders a session into a tcell screen and feeds it input.
type frontEnd struct {
	screen  tcell.Screen
	session *terminal.Session
	logger  *logger.Logger

	pressed bool
	pasting bool
	paste   strings.Builder
}

// forward moves session events onto the screen's event queue so that all UI
// work happens on the polling goroutine. A nil payload marks the end.
func (f *frontEnd) forward() {
	for ev := range f.session.Events() {
		f.post(ev)
	}
	f.post(nil)
}

func (f *frontEnd) post(data any) {
	for f.screen.PostEvent(tcell.NewEventInterrupt(data)) != nil {
		time.Sleep(time.Millisecond)
	}
}

// loop processes screen events until the program exits and returns its exit code.
func (f *frontEnd) loop() int {
	go f.forward()
	f.redraw()

	for {
		switch ev := f.screen.PollEvent().(type) {
		case nil:
			return f.session.ExitCode()
		case *tcell.EventInterrupt:
			te, ok := ev.Data().(terminal.Event)
			if !ok {
				return f.session.ExitCode()
			}
			if done := f.handleSessionEvent(te); done {
				return te.ExitCode
			}
		case *tcell.EventResize:
			f.session.Resize(cellDimensions(ev.Size()))
			f.screen.Sync()
			f.redraw()
		case *tcell.EventPaste:
			f.handlePaste(ev)
		case *tcell.EventKey:
			f.handleKey(ev)
		case *tcell.EventMouse:
			f.handleMouse(ev)
		}
	}
}

func (f *frontEnd) handleSessionEvent(ev terminal.Event) bool {
	switch ev.Kind {
	case terminal.EventWakeup:
		draw(f.screen, f.session.Snapshot())
	case terminal.EventBell:
		_ = f.screen.Beep()
	case terminal.EventTitleChanged:
		f.logger.Debug("title changed", zap.String("title", ev.Title))
	case terminal.EventOpenURL:
		if err := openURL(ev.URL); err != nil {
			f.logger.Warn("failed to open url", zap.String("url", ev.URL), zap.Error(err))
		}
	case terminal.EventCloseRequested:
		return true
	}
	return false
}

func (f *frontEnd) redraw() {
	draw(f.screen, f.session.Sync())
}

func (f *frontEnd) handlePaste(ev *tcell.EventPaste) {
	if ev.Start() {
		f.pasting = true
		f.paste.Reset()
		return
	}
	f.pasting = false
	f.session.Paste(f.paste.String())
}

func (f *frontEnd) handleKey(ev *tcell.EventKey) {
	if f.pasting {
		switch ev.Key() {
		case tcell.KeyRune:
			f.paste.WriteRune(ev.Rune())
		case tcell.KeyEnter:
			f.paste.WriteByte('\n')
		case tcell.KeyTab:
			f.paste.WriteByte('\t')
		}
		return
	}

	kev, ok := keyEvent(ev)
	if !ok || f.session.TryKeystroke(kev) {
		return
	}
	if scroll := scrollAction(kev); scroll != nil {
		scroll(f.session)
		f.redraw()
	}
}

// pointerAt maps a mouse position onto the grid. Positions past the edge of
// the session, as after a shrink the program has not caught up with, clamp
// to the last cell.
func pointerAt(d grid.Dimensions, ev *tcell.EventMouse) grid.Point {
	x, y := ev.Position()
	return d.PointAt(float64(x), float64(y))
}

func (f *frontEnd) handleMouse(ev *tcell.EventMouse) {
	p := pointerAt(f.session.Dimensions(), ev)
	// Ctrl stands in for the platform modifier, which terminals do not report.
	mods := keys.Modifiers{Platform: ev.Modifiers()&tcell.ModCtrl != 0}

	switch btn := ev.Buttons(); {
	case btn&tcell.WheelUp != 0:
		f.session.ScrollWheel(terminal.WheelDelta{Y: 1, Unit: terminal.WheelLines})
		f.redraw()
	case btn&tcell.WheelDown != 0:
		f.session.ScrollWheel(terminal.WheelDelta{Y: -1, Unit: terminal.WheelLines})
		f.redraw()
	case btn&tcell.Button1 != 0:
		if !f.pressed {
			f.pressed = true
			f.session.PointerPress(p, mods)
		}
	default:
		if f.pressed {
			f.pressed = false
			f.session.PointerRelease(p, mods)
		}
		f.session.PointerMove(p, mods)
		draw(f.screen, f.session.Snapshot())
	}
}
