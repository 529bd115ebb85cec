package validate

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// PrintOptions controls issue output
type PrintOptions struct {
	// CI hides info issues entirely
	CI bool
	// InfoCap bounds how many info issues are shown outside CI
	InfoCap int
	// NoColor disables severity colouring
	NoColor bool
}

// Print writes issues grouped by severity followed by a summary line
func Print(w io.Writer, res *Result, opts PrintOptions) {
	paint := func(c *color.Color, s string) string {
		if opts.NoColor {
			return s
		}
		return c.Sprint(s)
	}
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	infoShown, infoHidden := 0, 0
	for _, issue := range res.Issues {
		var label string
		switch issue.Severity {
		case SeverityError:
			label = paint(red, "error  ")
		case SeverityWarning:
			label = paint(yellow, "warning")
		default:
			if opts.CI {
				continue
			}
			if opts.InfoCap > 0 && infoShown >= opts.InfoCap {
				infoHidden++
				continue
			}
			infoShown++
			label = paint(faint, "info   ")
		}
		fmt.Fprintf(w, "%s %s %s%s\n", label, issue.Code, issue.Message, location(issue))
	}
	if infoHidden > 0 {
		fmt.Fprintf(w, "%s ...and %d more\n", paint(faint, "info   "), infoHidden)
	}

	summary := fmt.Sprintf("%d error(s), %d warning(s), %d info",
		res.Count(SeverityError), res.Count(SeverityWarning), res.Count(SeverityInfo))
	if res.Failed() {
		fmt.Fprintln(w, paint(red, "FAIL ")+summary)
	} else {
		fmt.Fprintln(w, paint(color.New(color.FgGreen), "PASS ")+summary)
	}
}

func location(issue Issue) string {
	switch {
	case issue.File != "" && issue.Line > 0:
		return fmt.Sprintf(" (%s:%d)", issue.File, issue.Line)
	case issue.File != "":
		return fmt.Sprintf(" (%s)", issue.File)
	default:
		return ""
	}
}
