package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...any) error {
	return cr.Newf(format, args...)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

// Is reports whether err or any error it wraps matches target, including
// marks attached with Mark.
func Is(err, target error) bool {
	return cr.Is(err, target)
}

// Mark attaches markErr to err while the original chain (and its stack) is
// preserved. Both Is and the standard errors.Is see the mark.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return &marked{err: cr.Mark(err, markErr)}
}

// Markf builds a new error with a message and marks it in one step.
func Markf(markErr error, format string, args ...any) error {
	return &marked{err: cr.Mark(cr.Newf(format, args...), markErr)}
}

// marked exposes cockroach marks to errors.Is from the standard library.
type marked struct {
	err error
}

func (m *marked) Error() string { return m.err.Error() }

func (m *marked) Unwrap() error { return m.err }

func (m *marked) Is(target error) bool { return cr.Is(m.err, target) }

func (m *marked) Format(s fmt.State, verb rune) {
	if f, ok := m.err.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, m.err.Error())
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
