package lab

import (
	"errors"
	"fmt"
)

// UsageError marks a problem with the requested configuration itself
// (mutually exclusive flags, malformed constructor spec, unknown test or
// placement name). Nothing has been built when one is raised, so the
// top-level handler skips emulation cleanup for it.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string { return e.Reason }

func usagef(format string, args ...any) error {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownKeyError reports a registry lookup for a key that is not present.
type UnknownKeyError struct {
	Role string
	Key  string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown %s key %q", e.Role, e.Key)
}

// InvalidDefaultError rejects registry construction when the configured
// default key is absent from the initial contents.
type InvalidDefaultError struct {
	Role string
	Key  string
}

func (e *InvalidDefaultError) Error() string {
	return fmt.Sprintf("%s registry: default key %q not in initial contents", e.Role, e.Key)
}

// CustomSourceNotFoundError reports a custom-override source that does not
// resolve to a readable file.
type CustomSourceNotFoundError struct {
	Source string
}

func (e *CustomSourceNotFoundError) Error() string {
	return fmt.Sprintf("could not find custom file %q", e.Source)
}

// NoDefaultControllerError is fatal: the chosen switch requires a
// controller, the default alias was requested, and none is available.
type NoDefaultControllerError struct {
	Switch string
}

func (e *NoDefaultControllerError) Error() string {
	return fmt.Sprintf("no default controller available for switch %q", e.Switch)
}

// BuildError wraps any failure during experiment construction, NAT
// attachment, or the validation hook.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string { return "build failed: " + e.Err.Error() }
func (e *BuildError) Unwrap() error { return e.Err }

// RunError wraps any failure after the experiment was built: start, test
// dispatch, scripts, stop.
type RunError struct {
	Err error
}

func (e *RunError) Error() string { return "run failed: " + e.Err.Error() }
func (e *RunError) Unwrap() error { return e.Err }

// Classify maps an error to the failure category reported in the
// top-level error box.
func Classify(err error) string {
	var usage *UsageError
	var unknown *UnknownKeyError
	var invdef *InvalidDefaultError
	var missing *CustomSourceNotFoundError
	var noctl *NoDefaultControllerError
	var build *BuildError
	var run *RunError
	switch {
	case errors.As(err, &usage):
		return "UsageError"
	case errors.As(err, &noctl):
		return "ResolutionError"
	case errors.As(err, &unknown), errors.As(err, &invdef), errors.As(err, &missing):
		return "ConfigurationError"
	case errors.As(err, &build):
		return "BuildFailure"
	case errors.As(err, &run):
		return "RuntimeFailure"
	default:
		return "InternalError"
	}
}

// IsUsage reports whether err is a usage error, for which no emulation
// resources exist and no cleanup is attempted.
func IsUsage(err error) bool {
	var usage *UsageError
	return errors.As(err, &usage)
}
