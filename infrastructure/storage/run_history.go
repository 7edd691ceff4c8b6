package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

// MaxHistoryEntries caps the stored results; the oldest are dropped first.
const MaxHistoryEntries = 500

type runHistory struct {
	mu          sync.Mutex
	historyPath string
}

// NewRunHistory - creates run history storage in dir, defaulting to ~/.ui_harness
func NewRunHistory(dir string) (interfaces.RunHistory, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to find home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".ui_harness")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &runHistory{historyPath: filepath.Join(dir, "history.json")}, nil
}

// Append - adds a result to the history file
func (s *runHistory) Append(result entities.ScenarioResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.load()
	if err != nil {
		return err
	}
	history = append(history, result)
	if len(history) > MaxHistoryEntries {
		history = history[len(history)-MaxHistoryEntries:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}

	// write then rename so a crash never leaves a truncated file
	tmp := s.historyPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.historyPath)
}

// Load - loads stored results, oldest first
func (s *runHistory) Load() ([]entities.ScenarioResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *runHistory) load() ([]entities.ScenarioResult, error) {
	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.ScenarioResult{}, nil
		}
		return nil, err
	}

	var history []entities.ScenarioResult
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("corrupt history file %s: %w", s.historyPath, err)
	}

	return history, nil
}
