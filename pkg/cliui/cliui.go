// Package cliui provides reusable terminal UI helpers (spinners, step indicators,
// markdown rendering) for ragloop CLI commands.
package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	NameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	IDStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ScoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	RankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	HeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	ErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const defaultWidth = 80

// spinnerFrames is the braille dot spinner.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})
	var mu sync.Mutex

	go func() {
		defer close(stopped)
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// Width returns the terminal width of f, or 80 when it is not a terminal.
func Width(f *os.File) int {
	if !IsTerminal(f) {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // fd fits in int
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// Truncate shortens s to at most width printable cells, counting ANSI
// styled text by its visible width.
func Truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}

// markdownStyle picks a glamour style for the terminal's background.
// Output that is not a terminal gets the plain "notty" style.
func markdownStyle(f *os.File) string {
	if !IsTerminal(f) {
		return "notty"
	}
	if termenv.NewOutput(f).HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// RenderMarkdown renders markdown content for terminal display using glamour.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(markdownStyle(os.Stdout)),
		glamour.WithWordWrap(min(Width(os.Stdout), 100)),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
