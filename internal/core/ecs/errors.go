package ecs

import "github.com/rotisserie/eris"

// Root errors. Call sites wrap them with eris.Wrapf so the returned error
// carries a stack trace; callers match with eris.Is.
var (
	ErrPrecondition       = eris.New("precondition violated")
	ErrNotFound           = eris.New("not found")
	ErrAlreadyExists      = eris.New("already exists")
	ErrCorruptData        = eris.New("corrupt data")
	ErrUnsupportedVersion = eris.New("unsupported format version")
)

func notFound(id EntityID) error {
	return eris.Wrapf(ErrNotFound, "entity %d", id)
}

// FirstErr returns the first non-nil error of errs.
func FirstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// CheckLen fails when n differs from want. what names the offending array.
func CheckLen(what string, n, want int) error {
	if n != want {
		return eris.Wrapf(ErrPrecondition, "%s: got %d elements, want %d", what, n, want)
	}
	return nil
}

// CheckNotEmpty fails when n is zero.
func CheckNotEmpty(what string, n int) error {
	if n == 0 {
		return eris.Wrapf(ErrPrecondition, "%s: empty input", what)
	}
	return nil
}
