package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter renders one kind of CLI output. Without color, open and close
// are wrapped around the text instead.
type Formatter struct {
	attrs []color.Attribute
	open  string
	close string
}

func style(open, close string, attrs ...color.Attribute) Formatter {
	return Formatter{attrs: attrs, open: open, close: close}
}

// Sprint formats like fmt.Sprint.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats like fmt.Sprintf.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if Plain() {
		return f.open + text + f.close
	}
	return color.New(f.attrs...).Sprint(text)
}

// Plain reports whether output is uncolored, because NO_COLOR is set or
// fatih/color detected a terminal without color support.
func Plain() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return color.NoColor
}

// EnsureNewline appends a newline unless s already ends with one.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

var (
	// Code is a runnable command, `syncany connect` when plain.
	Code = style("`", "`", color.FgYellow)

	// Path is a local file or directory.
	Path = style("", "", color.FgYellow)

	Success = style("", "", color.FgGreen)
	Error   = style("", "", color.FgRed)
	Warning = style("", "", color.FgYellow)
	Info    = style("", "", color.FgCyan)

	// Highlight marks values such as plugin ids, repo ids and transformer
	// chains. Quoted when plain.
	Highlight = style("'", "'", color.FgCyan)

	// Link is a repository link. The angle brackets keep it copyable as a
	// whole when plain.
	Link = style("<", ">", color.FgCyan, color.Bold)

	// Muted is secondary text, parenthesized when plain.
	Muted = style("(", ")", color.FgHiBlack)
)
