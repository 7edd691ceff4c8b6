package interfaces

import "ui_harness/domain/entities"

// RunHistory persists scenario results between runs
type RunHistory interface {
	// Append stores a finished result
	Append(result entities.ScenarioResult) error

	// Load returns stored results, oldest first
	Load() ([]entities.ScenarioResult, error)
}
