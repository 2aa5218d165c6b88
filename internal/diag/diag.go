// Package diag writes rm-style diagnostics ("prog: message: reason") to
// standard error.
package diag

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/sys/unix"
)

// Reporter formats diagnostics for one program. It is safe for use by a
// single goroutine.
type Reporter struct {
	prog  string
	w     io.Writer
	warn  lipgloss.Style
	color bool
}

// New returns a Reporter writing to w. When color is set the WARNING prefix
// of safety prompts is rendered bold red.
func New(prog string, w io.Writer, color bool) *Reporter {
	renderer := lipgloss.NewRenderer(w)
	if color {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return &Reporter{
		prog:  prog,
		w:     w,
		warn:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		color: color,
	}
}

// Writer is the underlying destination.
func (r *Reporter) Writer() io.Writer {
	return r.w
}

// Prefix is the text every diagnostic and prompt starts with.
func (r *Reporter) Prefix() string {
	return r.prog + ": "
}

// WarningPrefix starts prompts about protected files.
func (r *Reporter) WarningPrefix() string {
	return r.Prefix() + r.warn.Render("WARNING") + ": "
}

// Error writes one diagnostic line. A nil err omits the reason.
func (r *Reporter) Error(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + Reason(err)
	}
	fmt.Fprintf(r.w, "%s%s\n", r.Prefix(), msg)
}

// Reason renders err the way strerror would when it wraps an errno.
func Reason(err error) string {
	var errno unix.Errno
	if errors.As(err, &errno) {
		s := errno.Error()
		if s == "" {
			return err.Error()
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
	return err.Error()
}

// Quote wraps s in single quotes, escaping it when it contains quotes,
// backslashes or unprintable bytes.
func Quote(s string) string {
	q := strconv.Quote(s)
	if !strings.ContainsAny(s, `'\`) && q[1:len(q)-1] == s {
		return "'" + s + "'"
	}
	return "'" + strings.ReplaceAll(q[1:len(q)-1], "'", `\'`) + "'"
}
