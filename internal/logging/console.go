package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

// Console writes styled status lines for interactive use and mirrors every
// line into the persistent run log when one is attached. A nil Console is
// safe to call.
type Console struct {
	out  io.Writer
	file *Logger
}

// NewConsole builds a console writing to stderr, mirroring to file when
// non-nil.
func NewConsole(file *Logger) *Console {
	return &Console{out: os.Stderr, file: file}
}

// NewConsoleTo builds a console writing to the given writer. Used by tests.
func NewConsoleTo(out io.Writer, file *Logger) *Console {
	return &Console{out: out, file: file}
}

func (c *Console) emit(style lipgloss.Style, prefix, format string, args ...any) {
	if c == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	if c.out != nil {
		fmt.Fprintln(c.out, style.Render(prefix+line))
	}
	c.file.Printf("%s%s", prefix, line)
}

// Success reports a completed operation.
func (c *Console) Success(format string, args ...any) {
	c.emit(successStyle, "✓ ", format, args...)
}

// Error reports a failed operation.
func (c *Console) Error(format string, args ...any) {
	c.emit(errorStyle, "✗ ", format, args...)
}

// Warning reports a recoverable problem.
func (c *Console) Warning(format string, args ...any) {
	c.emit(warningStyle, "! ", format, args...)
}

// Info reports routine progress.
func (c *Console) Info(format string, args ...any) {
	c.emit(infoStyle, "", format, args...)
}

// Step announces the start of a pipeline phase.
func (c *Console) Step(format string, args ...any) {
	c.emit(stepStyle, "→ ", format, args...)
}

// Summary prints the aggregate result of a batch of operations.
func (c *Console) Summary(title string, total, succeeded, failed, skipped int) {
	if c == nil {
		return
	}
	c.Step("%s: %d/%d succeeded", title, succeeded, total)
	if skipped > 0 {
		c.Info("%d skipped", skipped)
	}
	if failed > 0 {
		c.Warning("%d failed", failed)
	}
}
