package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)

	mu          sync.Mutex
	verboseMode bool
	writer      io.Writer = os.Stdout
)

// SetVerbose enables or disables verbose output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = v
}

// SetWriter redirects all output. Passing nil restores stdout.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	writer = w
}

func emit(style lipgloss.Style, msg string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(writer, style.Render(msg))
}

// Success prints a completed-operation message.
func Success(msg string) { emit(successStyle, "✅ "+msg) }

// Error prints a failure that needs user attention.
func Error(msg string) { emit(errorStyle, "❌ "+msg) }

// Warn prints a non-blocking problem.
func Warn(msg string) { emit(warnStyle, "⚠️  "+msg) }

// Info prints a status update.
func Info(msg string) { emit(infoStyle, "ℹ️  "+msg) }

// Step prints an indented sub-item.
func Step(msg string) { emit(stepStyle, "   "+msg) }

// Header prints a section title.
func Header(msg string) { emit(headerStyle, msg) }

// Verbose prints msg only when verbose mode is enabled.
func Verbose(msg string) {
	mu.Lock()
	enabled := verboseMode
	mu.Unlock()
	if enabled {
		emit(stepStyle, "🔍 "+msg)
	}
}

// Rule prints a horizontal separator.
func Rule() {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(writer, strings.Repeat("━", 40))
}

// isTerminal is swapped in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsCI reports whether the run is unattended.
func IsCI() bool {
	if v := strings.TrimSpace(os.Getenv("CI")); v != "" && v != "0" && !strings.EqualFold(v, "false") {
		return true
	}
	return !isTerminal()
}
