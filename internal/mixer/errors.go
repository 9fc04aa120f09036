package mixer

import "errors"

// ErrOutputUnavailable matches any OutputError via errors.Is.
var ErrOutputUnavailable = errors.New("audio output unavailable")

// OutputError reports that no output device could be opened. It is the only
// failure Initialize surfaces; everything layer-local is absorbed.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string {
	if e.Err == nil {
		return ErrOutputUnavailable.Error()
	}
	return ErrOutputUnavailable.Error() + ": " + e.Err.Error()
}

func (e *OutputError) Unwrap() error { return e.Err }

func (e *OutputError) Is(target error) bool { return target == ErrOutputUnavailable }
