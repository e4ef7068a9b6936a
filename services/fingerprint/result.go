package fingerprint

import (
	"errors"
	"fmt"
)

// ErrNotSupported marks a signal the environment cannot provide.
var ErrNotSupported = errors.New("not supported")

// Sentinels substituted for a signal that could not be collected.
const (
	SentinelNotSupported = "not_supported"
	SentinelError        = "error"
)

// Result is the outcome of one signal collector: a value, or the reason there is none.
type Result struct {
	Value string
	Err   error
}

func ok(value string) Result {
	return Result{Value: value}
}

func fail(err error) Result {
	return Result{Err: err}
}

// String renders the value, or the sentinel standing in for it.
func (r Result) String() string {
	if r.Err == nil {
		return r.Value
	}
	if errors.Is(r.Err, ErrNotSupported) {
		return SentinelNotSupported
	}
	return SentinelError
}

// Supported reports whether the signal was collected.
func (r Result) Supported() bool {
	return r.Err == nil
}

// guard runs a collector and converts a panic into an error result.
func guard(name string, collect func() Result) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = fail(fmt.Errorf("%s collector panicked: %v", name, p))
		}
	}()
	return collect()
}
