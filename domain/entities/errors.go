package entities

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies why a step or scenario failed
type FailureKind string

const (
	FailureNavigationTimeout      FailureKind = "NavigationTimeout"
	FailureElementNotFound        FailureKind = "ElementNotFound"
	FailureAmbiguousMatch         FailureKind = "AmbiguousMatch"
	FailureElementNotInteractable FailureKind = "ElementNotInteractable"
	FailureWaitTimeout            FailureKind = "WaitTimeout"
	FailureArtifactWrite          FailureKind = "ArtifactWriteFailure"
	FailureSession                FailureKind = "SessionFailure"
	FailureUnexpected             FailureKind = "UnexpectedFault"
)

// Sentinel errors, one per failure kind. Use errors.Is against these.
var (
	ErrNavigationTimeout      = errors.New("navigation timeout")
	ErrElementNotFound        = errors.New("element not found")
	ErrAmbiguousMatch         = errors.New("ambiguous match")
	ErrElementNotInteractable = errors.New("element not interactable")
	ErrWaitTimeout            = errors.New("wait timeout")
	ErrArtifactWrite          = errors.New("artifact write failure")
	ErrSession                = errors.New("session failure")
)

var kindSentinels = []struct {
	kind FailureKind
	err  error
}{
	{FailureNavigationTimeout, ErrNavigationTimeout},
	// wait timeouts may wrap a locator error as their last error
	{FailureWaitTimeout, ErrWaitTimeout},
	{FailureAmbiguousMatch, ErrAmbiguousMatch},
	{FailureElementNotFound, ErrElementNotFound},
	{FailureElementNotInteractable, ErrElementNotInteractable},
	{FailureArtifactWrite, ErrArtifactWrite},
	{FailureSession, ErrSession},
}

// KindOf returns the failure kind carried by err, or FailureUnexpected when
// err does not wrap any of the known sentinels.
func KindOf(err error) FailureKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Kind != "" {
		return stepErr.Kind
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return FailureUnexpected
}

// StepError is a failure attributed to one step of a scenario.
type StepError struct {
	Kind        FailureKind
	StepIndex   int
	Description string
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %s: %v", e.StepIndex+1, e.Description, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// WaitTimeoutError is returned when a polled condition never held.
type WaitTimeoutError struct {
	Condition string
	Timeout   time.Duration
	Elapsed   time.Duration
	// LastErr is the last error returned by the condition, if any.
	LastErr error
}

func (e *WaitTimeoutError) Error() string {
	msg := fmt.Sprintf("condition %q not met after %s (timeout %s)", e.Condition, e.Elapsed.Round(time.Millisecond), e.Timeout)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *WaitTimeoutError) Is(target error) bool {
	return target == ErrWaitTimeout
}

func (e *WaitTimeoutError) Unwrap() error {
	return e.LastErr
}
