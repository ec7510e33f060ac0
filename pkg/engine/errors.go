package engine

import (
	"errors"
	"fmt"
)

// Band classifies an error by how the engine must respond to it, per
// spec.md §7's four bands.
type Band int

const (
	// Fatal means the engine cannot continue: clean shutdown, state
	// persisted, non-zero exit code.
	Fatal Band = iota
	// Recoverable means a transient failure worth retrying with backoff
	// before escalating to Fatal.
	Recoverable
	// Degraded means a single passage failed; the engine skips it and
	// keeps playing everything else.
	Degraded
	// Transient means a momentary condition (underrun, brief clipping)
	// that needs only a log line and an event, no corrective action.
	Transient
)

func (b Band) String() string {
	switch b {
	case Fatal:
		return "fatal"
	case Recoverable:
		return "recoverable"
	case Degraded:
		return "degraded"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// BandedError wraps an error with the band that determines how the engine
// responds to it, mirroring the teacher's types.ErrInsufficientSpace
// sentinel-error pattern generalized to carry a response class.
type BandedError struct {
	Band Band
	Err  error
}

func (e *BandedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Band, e.Err)
}

func (e *BandedError) Unwrap() error { return e.Err }

func fatalf(format string, args ...any) error {
	return &BandedError{Band: Fatal, Err: fmt.Errorf(format, args...)}
}

func recoverablef(format string, args ...any) error {
	return &BandedError{Band: Recoverable, Err: fmt.Errorf(format, args...)}
}

func degradedf(format string, args ...any) error {
	return &BandedError{Band: Degraded, Err: fmt.Errorf(format, args...)}
}

// BandOf extracts the band from err, defaulting to Degraded for an
// unclassified error — a single passage misbehaving should never bring the
// whole engine down.
func BandOf(err error) Band {
	var be *BandedError
	if errors.As(err, &be) {
		return be.Band
	}
	return Degraded
}

// Exit codes, spec.md §6's exit taxonomy: 0 clean,
// 2 fatal configuration, 3 fatal device, 4 recoverable escalated to fatal
// after exhausting retries.
const (
	ExitClean              = 0
	ExitConfigError        = 2
	ExitDeviceError        = 3
	ExitRecoverableEscalated = 4
)

// ErrEntryNotFound is returned by Dequeue/Seek for an unknown entry ID.
var ErrEntryNotFound = errors.New("engine: entry not found")
