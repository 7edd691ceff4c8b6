package entities

import "time"

// Failure describes why a scenario stopped.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
	// StepIndex is zero based; -1 when the failure happened outside any step.
	StepIndex       int    `json:"step_index"`
	StepDescription string `json:"step_description,omitempty"`
}

// ScenarioResult is the outcome of one scenario run. It is returned by value
// once the session has been torn down.
type ScenarioResult struct {
	RunID      string         `json:"run_id"`
	Scenario   string         `json:"scenario"`
	Status     ScenarioStatus `json:"status"`
	Failure    *Failure       `json:"failure,omitempty"`
	Artifacts  []string       `json:"artifacts"`
	Log        []string       `json:"log"`
	FinalState ScenarioState  `json:"final_state"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Passed reports whether the scenario succeeded.
func (r ScenarioResult) Passed() bool {
	return r.Status == StatusSuccess
}

// Duration returns the wall time of the run.
func (r ScenarioResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
