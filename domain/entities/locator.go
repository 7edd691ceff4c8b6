package entities

import (
	"errors"
	"fmt"
	"strings"
)

// LocatorKind is the lookup strategy a Query uses. Kinds are listed in
// priority order: semantic lookups first, structural selectors last.
type LocatorKind string

const (
	LocateByRole     LocatorKind = "role"
	LocateByLabel    LocatorKind = "label"
	LocateByText     LocatorKind = "text"
	LocateBySelector LocatorKind = "selector"
	LocateByRef      LocatorKind = "ref"
)

// Query describes an element declaratively. Exactly one of Role, Label, Text,
// Selector or Ref must be set.
type Query struct {
	Role string `yaml:"role,omitempty" json:"role,omitempty"`
	// Name is the accessible name, only meaningful together with Role.
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Label    string `yaml:"label,omitempty" json:"label,omitempty"`
	Text     string `yaml:"text,omitempty" json:"text,omitempty"`
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`
	// Ref points at a handle stored by an earlier locate step.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// Exact disables the default case-insensitive substring match.
	Exact bool `yaml:"exact,omitempty" json:"exact,omitempty"`
	// Unique makes more than one match an AmbiguousMatch failure unless
	// Index is set.
	Unique bool `yaml:"unique,omitempty" json:"unique,omitempty"`
	Index  *int `yaml:"index,omitempty" json:"index,omitempty"`
	// Within restricts the lookup to the first element matched by another query.
	Within *Query `yaml:"within,omitempty" json:"within,omitempty"`
}

// Kind returns the lookup strategy of the query.
func (q Query) Kind() LocatorKind {
	switch {
	case q.Role != "":
		return LocateByRole
	case q.Label != "":
		return LocateByLabel
	case q.Text != "":
		return LocateByText
	case q.Selector != "":
		return LocateBySelector
	case q.Ref != "":
		return LocateByRef
	}
	return ""
}

// Validate checks that the query names exactly one strategy.
func (q Query) Validate() error {
	set := 0
	for _, v := range []string{q.Role, q.Label, q.Text, q.Selector, q.Ref} {
		if v != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return errors.New("query needs one of role, label, text, selector or ref")
	case set > 1:
		return fmt.Errorf("query %s mixes several strategies", q)
	case q.Name != "" && q.Role == "":
		return fmt.Errorf("query %s: name is only valid with role", q)
	case q.Index != nil && *q.Index < 0:
		return fmt.Errorf("query %s: negative index", q)
	case q.Ref != "" && q.Within != nil:
		return fmt.Errorf("query %s: ref cannot be scoped", q)
	}
	if q.Within != nil {
		if err := q.Within.Validate(); err != nil {
			return fmt.Errorf("within: %w", err)
		}
	}
	return nil
}

// WithIndex returns a copy of q pinned to the i-th match.
func (q Query) WithIndex(i int) Query {
	q.Index = &i
	return q
}

// String renders the query the way it is shown in step descriptions.
func (q Query) String() string {
	var b strings.Builder
	switch q.Kind() {
	case LocateByRole:
		b.WriteString(q.Role)
		if q.Name != "" {
			fmt.Fprintf(&b, " %q", q.Name)
		}
	case LocateByLabel:
		fmt.Fprintf(&b, "label %q", q.Label)
	case LocateByText:
		fmt.Fprintf(&b, "text %q", q.Text)
	case LocateBySelector:
		fmt.Fprintf(&b, "selector %q", q.Selector)
	case LocateByRef:
		b.WriteString("@" + q.Ref)
	default:
		b.WriteString("<empty query>")
	}
	if q.Exact {
		b.WriteString(" (exact)")
	}
	if q.Index != nil {
		fmt.Fprintf(&b, "[%d]", *q.Index)
	}
	if q.Within != nil {
		fmt.Fprintf(&b, " within %s", q.Within.String())
	}
	return b.String()
}
