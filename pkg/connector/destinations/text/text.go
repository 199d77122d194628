// Package text renders rows for a terminal, either as an aligned table or
// as one block per row.
package text

import (
	"bufio"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// Option keys understood by the text sinks.
const (
	OptionSampleRows = "sample_rows"
	OptionMaxWidth   = "max_width"
	OptionTruncate   = "truncate"
	OptionFooter     = "footer"
)

const overflowMark = "~"

// cell makes a display string safe for a single terminal line: every
// control character is escaped.
func cell(s string) string {
	if !strings.ContainsFunc(s, unicode.IsControl) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case unicode.IsControl(r):
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// runeWidth is the number of terminal columns r occupies.
func runeWidth(r rune) int {
	if unicode.In(r, unicode.Mn, unicode.Me, unicode.Cf) {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

// fit truncates s to n columns, ending it with the overflow mark. n <= 0
// disables truncation.
func fit(s string, n int) string {
	if n <= 0 || displayWidth(s) <= n {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runeWidth(r)
		if used+w > n-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + overflowMark
}

func pad(s string, n int, right bool) string {
	gap := n - displayWidth(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// lineWriter collects the first write error so rendering code stays flat.
type lineWriter struct {
	w   *bufio.Writer
	err error
}

func (l *lineWriter) line(s string) {
	if l.err != nil {
		return
	}
	if _, l.err = l.w.WriteString(s); l.err == nil {
		l.err = l.w.WriteByte('\n')
	}
}

func (l *lineWriter) check(msg string) error {
	if l.err != nil {
		return errors.Wrap(l.err, errors.ErrorTypeSink, msg)
	}
	return nil
}

func (l *lineWriter) flush() error {
	if err := l.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to flush text output")
	}
	return nil
}

func footer(rows int64) string {
	if rows == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", rows)
}

func incomplete(cause error) string {
	return "-- output incomplete: " + cell(cause.Error()) + " --"
}
