// Package diag renders the parser's error list as terminal
// diagnostics: a headline with the error message, a path:line:column
// locator, the offending source line in a numbered gutter, a caret
// underline and a static suggestion.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/lookbusy1344/cvma-interpreter/parser"
)

// Renderer formats diagnostics onto a writer
type Renderer struct {
	Out   io.Writer
	red   *color.Color
	blue  *color.Color
	bold  *color.Color
	rbold *color.Color
}

// NewRenderer creates a renderer. With colorize false every style is a
// pass-through, for pipes and tests.
func NewRenderer(out io.Writer, colorize bool) *Renderer {
	r := &Renderer{
		Out:   out,
		red:   color.New(color.FgRed, color.Bold),
		blue:  color.New(color.FgBlue, color.Bold),
		bold:  color.New(color.Bold),
		rbold: color.New(color.FgRed, color.Bold),
	}
	if !colorize {
		r.red.DisableColor()
		r.blue.DisableColor()
		r.bold.DisableColor()
		r.rbold.DisableColor()
	}
	return r
}

// digits returns the width of n printed in decimal
func digits(n int) int {
	count := 1
	for n >= 10 {
		count++
		n /= 10
	}
	return count
}

// sourceLine returns the 1-based line ln of content, trimmed
func sourceLine(content string, ln int) string {
	lines := strings.Split(content, "\n")
	if ln < 1 || ln > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[ln-1])
}

// Print renders every error in the list against the source text
func (r *Renderer) Print(path, content string, list *parser.ErrorList) {
	gutter := 0
	for _, err := range list.Errors {
		if w := digits(err.Pos.Line); w > gutter {
			gutter = w
		}
	}
	pad := strings.Repeat(" ", gutter)

	for _, err := range list.Errors {
		msg := err.Kind.Message()

		fmt.Fprintf(r.Out, "%s%s%s\n",
			r.red.Sprint("error"), r.bold.Sprint(": "), r.bold.Sprint(msg))
		fmt.Fprintf(r.Out, "%s%s %s:%d:%d\n",
			pad, r.blue.Sprint("-->"), path, err.Pos.Line, err.Pos.Column)

		fmt.Fprintf(r.Out, "%s %s\n", pad, r.blue.Sprint("|"))
		lineNo := fmt.Sprintf("%d", err.Pos.Line)
		fmt.Fprintf(r.Out, "%s%s %s    %s\n",
			r.blue.Sprint(lineNo),
			strings.Repeat(" ", gutter-len(lineNo)),
			r.blue.Sprint("|"),
			sourceLine(content, err.Pos.Line))
		fmt.Fprintf(r.Out, "%s %s    %s%s %s\n",
			pad, r.blue.Sprint("|"),
			strings.Repeat(" ", err.Pos.Column),
			r.rbold.Sprint("^^"),
			r.rbold.Sprint(msg))

		fmt.Fprintf(r.Out, "%s %s %s: %s\n\n",
			pad, r.blue.Sprint("="),
			r.bold.Sprint("suggestion"),
			err.Kind.Suggestion())
	}
}
