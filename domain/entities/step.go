package entities

import (
	"errors"
	"fmt"
	"time"
)

// StepKind is one of the five protocol steps
type StepKind string

const (
	StepNavigate StepKind = "navigate"
	StepLocate   StepKind = "locate"
	StepAct      StepKind = "act"
	StepWait     StepKind = "wait"
	StepCapture  StepKind = "capture"
)

// Step is a single instruction of a scenario. Which fields apply depends on Kind.
type Step struct {
	Kind        StepKind `yaml:"kind" json:"kind"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`

	// navigate
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// locate
	Query *Query `yaml:"query,omitempty" json:"query,omitempty"`
	As    string `yaml:"as,omitempty" json:"as,omitempty"`

	// act; Target is also the optional element of a capture
	Target   *Query     `yaml:"target,omitempty" json:"target,omitempty"`
	Action   ActionType `yaml:"action,omitempty" json:"action,omitempty"`
	Value    string     `yaml:"value,omitempty" json:"value,omitempty"`
	Viewport *Viewport  `yaml:"viewport,omitempty" json:"viewport,omitempty"`

	// wait
	Condition *Condition `yaml:"condition,omitempty" json:"condition,omitempty"`

	// capture
	Path         string `yaml:"path,omitempty" json:"path,omitempty"`
	ViewportOnly bool   `yaml:"viewport_only,omitempty" json:"viewport_only,omitempty"`

	// Timeout and PollInterval override the executor defaults for this step.
	Timeout      time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
}

// Describe returns the human readable description used in logs and results.
func (s Step) Describe() string {
	if s.Description != "" {
		return s.Description
	}
	switch s.Kind {
	case StepNavigate:
		return "navigate to " + s.URL
	case StepLocate:
		desc := "locate " + s.Query.String()
		if s.As != "" {
			desc += " as @" + s.As
		}
		return desc
	case StepAct:
		switch s.Action {
		case ActionClick:
			return "click " + s.Target.String()
		case ActionFill:
			return fmt.Sprintf("fill %s with %q", s.Target, s.Value)
		case ActionSetViewport:
			return fmt.Sprintf("set viewport to %dx%d", s.Viewport.Width, s.Viewport.Height)
		}
		return string(s.Action)
	case StepWait:
		return "wait until " + s.Condition.String()
	case StepCapture:
		if s.Target != nil {
			return fmt.Sprintf("capture %s of %s", s.Path, s.Target)
		}
		return "capture " + s.Path
	}
	return string(s.Kind)
}

// Validate checks that the fields required by the step kind are present.
func (s Step) Validate() error {
	switch s.Kind {
	case StepNavigate:
		if s.URL == "" {
			return errors.New("navigate needs a url")
		}
	case StepLocate:
		if s.Query == nil {
			return errors.New("locate needs a query")
		}
		return s.Query.Validate()
	case StepAct:
		switch s.Action {
		case ActionClick, ActionFill, ActionSetViewport:
		default:
			return fmt.Errorf("unknown action %q", s.Action)
		}
		if s.Action.NeedsTarget() {
			if s.Target == nil {
				return fmt.Errorf("%s needs a target", s.Action)
			}
			return s.Target.Validate()
		}
		if s.Viewport == nil || s.Viewport.Width <= 0 || s.Viewport.Height <= 0 {
			return errors.New("set_viewport needs a positive viewport")
		}
	case StepWait:
		if s.Condition == nil {
			return errors.New("wait needs a condition")
		}
		return s.Condition.Validate()
	case StepCapture:
		if s.Path == "" {
			return errors.New("capture needs a path")
		}
		if s.Target != nil {
			return s.Target.Validate()
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// refs returns every handle name the step reads.
func (s Step) refs() []string {
	var out []string
	walk := func(q *Query) {
		for ; q != nil; q = q.Within {
			if q.Ref != "" {
				out = append(out, q.Ref)
			}
		}
	}
	walk(s.Query)
	walk(s.Target)
	if s.Condition != nil {
		walk(&s.Condition.Target)
	}
	return out
}

// Query constructors

func ByRole(role, name string) Query { return Query{Role: role, Name: name} }

func ByLabel(label string) Query { return Query{Label: label} }

func ByText(text string) Query { return Query{Text: text} }

func BySelector(selector string) Query { return Query{Selector: selector} }

func Ref(name string) Query { return Query{Ref: name} }

// Step constructors

func Navigate(url string) Step {
	return Step{Kind: StepNavigate, URL: url}
}

func Locate(as string, q Query) Step {
	return Step{Kind: StepLocate, Query: &q, As: as}
}

func Click(target Query) Step {
	return Step{Kind: StepAct, Action: ActionClick, Target: &target}
}

func Fill(target Query, value string) Step {
	return Step{Kind: StepAct, Action: ActionFill, Target: &target, Value: value}
}

func SetViewport(width, height int) Step {
	return Step{Kind: StepAct, Action: ActionSetViewport, Viewport: &Viewport{Width: width, Height: height}}
}

func Wait(c Condition, timeout time.Duration) Step {
	return Step{Kind: StepWait, Condition: &c, Timeout: timeout}
}

func Capture(path string) Step {
	return Step{Kind: StepCapture, Path: path}
}

func CaptureElement(path string, target Query) Step {
	return Step{Kind: StepCapture, Path: path, Target: &target}
}

// Condition constructors

func Visible(q Query) Condition {
	return Condition{Type: ConditionVisible, Target: q}
}

func AttributeEquals(q Query, name, value string) Condition {
	return Condition{Type: ConditionAttributeEqual, Target: q, Attribute: name, Value: value}
}

func TextMatches(q Query, pattern string) Condition {
	return Condition{Type: ConditionTextMatches, Target: q, Pattern: pattern}
}

func CountAtLeast(q Query, n int) Condition {
	return Condition{Type: ConditionCountAtLeast, Target: q, Count: n}
}

// WithDescription overrides the derived description.
func (s Step) WithDescription(desc string) Step {
	s.Description = desc
	return s
}
