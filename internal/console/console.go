// Package console prints user-facing status lines, spinners and the
// daemon's structured log.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

// Predefined highlights for inline values.
var (
	Highlight = color.New(color.FgCyan, color.Bold).SprintFunc()
	Money     = color.New(color.FgGreen, color.Bold).SprintFunc()
	Muted     = color.New(color.FgHiBlack).SprintFunc()
	Alert     = color.New(color.FgRed, color.Bold).SprintFunc()
	Notice    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// Console writes prefixed status messages to stderr. In quiet mode only
// warnings and errors are shown.
type Console struct {
	w     io.Writer
	quiet bool
}

// New creates a Console writing to stderr.
func New(quiet bool) *Console {
	return NewWithWriter(os.Stderr, quiet)
}

// NewWithWriter creates a Console writing to w.
func NewWithWriter(w io.Writer, quiet bool) *Console {
	return &Console{w: w, quiet: quiet}
}

// Quiet reports whether info and progress output is suppressed.
func (c *Console) Quiet() bool {
	return c.quiet
}

// LogInfo prints an informational message.
func (c *Console) LogInfo(format string, a ...any) {
	if c.quiet {
		return
	}
	pterm.Info.WithWriter(c.w).Printfln(format, a...)
}

// LogSuccess prints a success message.
func (c *Console) LogSuccess(format string, a ...any) {
	if c.quiet {
		return
	}
	pterm.Success.WithWriter(c.w).Printfln(format, a...)
}

// LogWarning prints a warning.
func (c *Console) LogWarning(format string, a ...any) {
	pterm.Warning.WithWriter(c.w).Printfln(format, a...)
}

// LogError prints an error.
func (c *Console) LogError(format string, a ...any) {
	pterm.Error.WithWriter(c.w).Printfln(format, a...)
}

// StatusHandle controls a running spinner.
type StatusHandle interface {
	Update(message string)
	Success(message string)
	Stop()
}

type spinnerHandle struct {
	spinner *pterm.SpinnerPrinter
}

func (h *spinnerHandle) Update(message string) {
	if h.spinner != nil {
		h.spinner.UpdateText(message)
	}
}

func (h *spinnerHandle) Success(message string) {
	if h.spinner != nil {
		h.spinner.Success(message)
	}
}

func (h *spinnerHandle) Stop() {
	if h.spinner != nil {
		_ = h.spinner.Stop()
	}
}

// Status starts a spinner with the given message. Quiet consoles return a
// handle that does nothing.
func (c *Console) Status(message string) StatusHandle {
	if c.quiet {
		return &spinnerHandle{}
	}
	spinner, err := pterm.DefaultSpinner.WithWriter(c.w).WithRemoveWhenDone(true).Start(message)
	if err != nil {
		return &spinnerHandle{}
	}
	return &spinnerHandle{spinner: spinner}
}

// ProgressHandle controls a running progress bar.
type ProgressHandle interface {
	Increment()
	Stop()
}

type progressHandle struct {
	bar *pterm.ProgressbarPrinter
}

func (h *progressHandle) Increment() {
	if h.bar != nil {
		h.bar.Increment()
	}
}

func (h *progressHandle) Stop() {
	if h.bar != nil {
		_, _ = h.bar.Stop()
	}
}

// Progress starts a progress bar over total steps.
func (c *Console) Progress(title string, total int) ProgressHandle {
	if c.quiet || total <= 0 {
		return &progressHandle{}
	}
	bar, err := pterm.DefaultProgressbar.
		WithWriter(c.w).
		WithTotal(total).
		WithTitle(title).
		WithShowCount(true).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		return &progressHandle{}
	}
	return &progressHandle{bar: bar}
}

// Field renders a "label: value" line with the label padded to width.
func Field(label string, width int, value any) string {
	return fmt.Sprintf("    %-*s %v", width, label+":", value)
}

// NewLogger returns the structured logger used by long-running commands.
// JSON output is selected for non-terminal writers such as log files.
func NewLogger(w io.Writer, debug, json bool) *pterm.Logger {
	level := pterm.LogLevelInfo
	if debug {
		level = pterm.LogLevelDebug
	}
	logger := pterm.DefaultLogger.WithWriter(w).WithLevel(level).WithTime(true)
	if json {
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	}
	return logger
}
