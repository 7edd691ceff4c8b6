package entities

import (
	"errors"
	"fmt"
	"regexp"
)

// ConditionType is the kind of state a wait step polls for
type ConditionType string

const (
	ConditionVisible        ConditionType = "visible"
	ConditionAttributeEqual ConditionType = "attribute_equals"
	ConditionTextMatches    ConditionType = "text_matches"
	ConditionCountAtLeast   ConditionType = "count_at_least"
)

// Condition is a predicate over page or element state.
type Condition struct {
	Type      ConditionType `yaml:"type" json:"type"`
	Target    Query         `yaml:"target" json:"target"`
	Attribute string        `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Value     string        `yaml:"value,omitempty" json:"value,omitempty"`
	// Pattern is a Go regular expression matched against the text content.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Count   int    `yaml:"count,omitempty" json:"count,omitempty"`
}

// Validate checks the fields required by the condition type.
func (c Condition) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	switch c.Type {
	case ConditionVisible:
	case ConditionAttributeEqual:
		if c.Attribute == "" {
			return errors.New("attribute_equals needs an attribute name")
		}
	case ConditionTextMatches:
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("text_matches pattern: %w", err)
		}
	case ConditionCountAtLeast:
		if c.Count < 1 {
			return errors.New("count_at_least needs a count of at least 1")
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	return nil
}

// String describes the condition for logs and failure reasons.
func (c Condition) String() string {
	switch c.Type {
	case ConditionVisible:
		return fmt.Sprintf("%s is visible", c.Target)
	case ConditionAttributeEqual:
		return fmt.Sprintf("%s has %s=%q", c.Target, c.Attribute, c.Value)
	case ConditionTextMatches:
		return fmt.Sprintf("%s text matches /%s/", c.Target, c.Pattern)
	case ConditionCountAtLeast:
		return fmt.Sprintf("at least %d of %s", c.Count, c.Target)
	}
	return string(c.Type)
}
