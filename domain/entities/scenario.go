package entities

import (
	"errors"
	"fmt"
)

// Scenario is one ordered sequence of steps verifying one user-facing behaviour
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Viewport overrides the session viewport for this scenario.
	Viewport *Viewport `yaml:"viewport,omitempty" json:"viewport,omitempty"`
	// FailureScreenshot is the diagnostic checkpoint written when a step fails.
	FailureScreenshot string `yaml:"failure_screenshot,omitempty" json:"failure_screenshot,omitempty"`
	Steps             []Step `yaml:"steps" json:"steps"`
}

// Validate checks every step and that refs are defined before they are used.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	if s.Viewport != nil && (s.Viewport.Width <= 0 || s.Viewport.Height <= 0) {
		return errors.New("viewport must be positive")
	}

	defined := make(map[string]bool)
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		for _, ref := range step.refs() {
			if !defined[ref] {
				return fmt.Errorf("step %d: ref @%s used before any locate step defines it", i+1, ref)
			}
		}
		if step.Kind == StepLocate && step.As != "" {
			defined[step.As] = true
		}
	}
	return nil
}

// ScenarioStatus represents the terminal status of a scenario run
type ScenarioStatus string

const (
	StatusSuccess ScenarioStatus = "success"
	StatusFailed  ScenarioStatus = "failed"
)

// ScenarioState is the executor level state machine of a run
type ScenarioState string

const (
	StateIdle        ScenarioState = "idle"
	StateSessionOpen ScenarioState = "session_open"
	StateNavigating  ScenarioState = "navigating"
	StateActing      ScenarioState = "acting"
	StateWaiting     ScenarioState = "waiting"
	StateCaptured    ScenarioState = "captured"
	StateClosed      ScenarioState = "closed"
	StateFailed      ScenarioState = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ScenarioState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
