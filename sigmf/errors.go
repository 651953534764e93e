package sigmf

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports an unreadable or invalid recording or metadata file.
	ErrFormat = errors.New("sigmf: invalid recording")
	// ErrBounds reports a sample range outside the available data.
	ErrBounds = errors.New("sigmf: sample range out of bounds")
)

// FormatError describes why a recording could not be opened.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %s: %v", ErrFormat, e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s: %s", ErrFormat, e.Path, e.Reason)
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrFormat}
}

func formatError(path string, err error, format string, args ...any) error {
	return &FormatError{Path: path, Reason: fmt.Sprintf(format, args...), Err: err}
}

// BoundsError describes a rejected [Start, End) sample range.
type BoundsError struct {
	Start, End, Len int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%v: [%d:%d] of %d samples", ErrBounds, e.Start, e.End, e.Len)
}

func (e *BoundsError) Is(target error) bool { return target == ErrBounds }

// CheckRange returns a *BoundsError unless 0 <= start <= end <= length.
func CheckRange(start, end, length int) error {
	if start < 0 || end < start || end > length {
		return &BoundsError{Start: start, End: end, Len: length}
	}
	return nil
}
