package scenarios

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"ui_harness/domain/entities"
)

// LoadFile reads every scenario of a YAML file. Several scenarios may share a
// file as separate documents. Unknown fields are rejected.
func LoadFile(path string) ([]entities.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenarios, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenarios, nil
}

// Parse decodes and validates the scenarios of a YAML stream
func Parse(data []byte) ([]entities.Scenario, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var scenarios []entities.Scenario
	for {
		var sc entities.Scenario
		err := decoder.Decode(&sc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario %q: %w", sc.Name, err)
		}
		scenarios = append(scenarios, sc)
	}
	if len(scenarios) == 0 {
		return nil, errors.New("no scenarios found")
	}
	return scenarios, nil
}

// LoadDir reads every *.yaml and *.yml file of dir in lexical order
func LoadDir(dir string) ([]entities.Scenario, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	var scenarios []entities.Scenario
	for _, f := range files {
		loaded, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, loaded...)
	}
	return scenarios, nil
}
