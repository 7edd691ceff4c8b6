package interfaces

import "ui_harness/domain/entities"

// Reporter receives progress of a scenario run
type Reporter interface {
	ScenarioStarted(scenario entities.Scenario)
	StepStarted(index int, step entities.Step)
	ArtifactSaved(path string)
	ScenarioFinished(result entities.ScenarioResult)
}
