package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// mark renders a status glyph. It is evaluated per call so DisableColor
// takes effect.
func mark(attr color.Attribute, glyph string) string {
	return color.New(attr).Sprint(glyph)
}

// Success prints a green check followed by the formatted message.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark(color.FgGreen, "✓"), fmt.Sprintf(format, args...))
}

// Warning prints a yellow marker followed by the formatted message.
func Warning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark(color.FgYellow, "!"), fmt.Sprintf(format, args...))
}

// Failure prints a red cross followed by the formatted message.
func Failure(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark(color.FgRed, "✗"), fmt.Sprintf(format, args...))
}

// Highlight returns s in bold for inline emphasis.
func Highlight(s string) string {
	return color.New(color.Bold).Sprint(s)
}

// DisableColor turns off ANSI colors, for --no-color or piped output.
func DisableColor() {
	color.NoColor = true
}
