package fake

import (
	"fmt"
	"strings"
)

// Node is an element of the in-memory document
type Node struct {
	Tag string
	// Role overrides the implicit role of the tag.
	Role string
	// Label is the text of an associated <label> element.
	Label    string
	Text     string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Value    string
	Children []*Node
	// OnClick runs outside the page lock and may mutate the page.
	OnClick func(p *Page)
}

// El creates a node with children
func El(tag string, children ...*Node) *Node {
	return &Node{Tag: tag, Children: children}
}

// Button creates a button whose text is its accessible name
func Button(text string) *Node {
	return &Node{Tag: "button", Text: text}
}

// Input creates an input with an id, a type and a label
func Input(id, typ, label string) *Node {
	return &Node{Tag: "input", Label: label, Attrs: map[string]string{"id": id, "type": typ}}
}

// Textf creates a paragraph
func Textf(format string, args ...interface{}) *Node {
	return &Node{Tag: "p", Text: fmt.Sprintf(format, args...)}
}

// Attr sets an attribute and returns n
func (n *Node) Attr(name, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
	return n
}

// ID sets the id attribute and returns n
func (n *Node) ID(id string) *Node {
	return n.Attr("id", id)
}

// Hide marks n hidden and returns it
func (n *Node) Hide() *Node {
	n.Hidden = true
	return n
}

// Disable marks n disabled and returns it
func (n *Node) Disable() *Node {
	n.Disabled = true
	return n
}

// Clicked sets the click handler and returns n
func (n *Node) Clicked(fn func(p *Page)) *Node {
	n.OnClick = fn
	return n
}

// Append adds children to n
func (n *Node) Append(children ...*Node) {
	n.Children = append(n.Children, children...)
}

// Remove detaches child from n
func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i:i], n.Children[i+1:]...)
			return
		}
	}
}

// ByID finds a node by id in the subtree of n
func (n *Node) ByID(id string) *Node {
	var found *Node
	walk(n, func(c *Node) bool {
		if c.Attrs["id"] == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits the subtree in document order until visit returns false
func walk(n *Node, visit func(*Node) bool) bool {
	if !visit(n) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// descendants returns the subtree below n in document order
func descendants(n *Node) []*Node {
	var out []*Node
	for _, c := range n.Children {
		walk(c, func(d *Node) bool {
			out = append(out, d)
			return true
		})
	}
	return out
}

// ancestry returns the chain from root to target, or nil when target is detached
func ancestry(root, target *Node) []*Node {
	if root == target {
		return []*Node{root}
	}
	for _, c := range root.Children {
		if chain := ancestry(c, target); chain != nil {
			return append([]*Node{root}, chain...)
		}
	}
	return nil
}

func (n *Node) role() string {
	if n.Role != "" {
		return n.Role
	}
	switch n.Tag {
	case "button":
		return "button"
	case "a":
		return "link"
	case "dialog":
		return "dialog"
	case "nav":
		return "navigation"
	case "form":
		return "form"
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "textarea":
		return "textbox"
	case "input":
		switch n.Attrs["type"] {
		case "button", "submit", "reset":
			return "button"
		case "checkbox", "radio":
			return n.Attrs["type"]
		case "password", "hidden":
			return ""
		}
		return "textbox"
	}
	return ""
}

func (n *Node) textContent() string {
	parts := []string{n.Text}
	for _, c := range n.Children {
		parts = append(parts, c.textContent())
	}
	return normalize(strings.Join(parts, " "))
}

func (n *Node) accessibleName() string {
	if v := n.Attrs["aria-label"]; v != "" {
		return v
	}
	if n.Label != "" {
		return n.Label
	}
	return n.textContent()
}

func (n *Node) labels() []string {
	var out []string
	if v := n.Attrs["aria-label"]; v != "" {
		out = append(out, v)
	}
	if n.Label != "" {
		out = append(out, n.Label)
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textMatches(actual, expected string, exact bool) bool {
	actual, expected = normalize(actual), normalize(expected)
	if exact {
		return actual == expected
	}
	return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
}

func matchRole(candidates []*Node, ancestorsHidden func(*Node) bool, role, name string, exact bool) []*Node {
	var out []*Node
	for _, n := range candidates {
		if n.role() != role || ancestorsHidden(n) {
			continue
		}
		if name != "" && !textMatches(n.accessibleName(), name, exact) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func matchLabel(candidates []*Node, text string, exact bool) []*Node {
	var out []*Node
	for _, n := range candidates {
		for _, l := range n.labels() {
			if textMatches(l, text, exact) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// matchText returns the innermost elements whose text content matches
func matchText(candidates []*Node, text string, exact bool) []*Node {
	var out []*Node
	for _, n := range candidates {
		if !textMatches(n.textContent(), text, exact) {
			continue
		}
		inner := false
		for _, c := range n.Children {
			if textMatches(c.textContent(), text, exact) {
				inner = true
				break
			}
		}
		if !inner {
			out = append(out, n)
		}
	}
	return out
}

// selector is a compound CSS selector: tag, #id, .class and [attr] or [attr=value]
type selector struct {
	tag   string
	attrs map[string]*string
}

func parseSelector(s string) (selector, error) {
	sel := selector{attrs: make(map[string]*string)}
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(outsideBrackets(s), " >+~,") {
		return sel, fmt.Errorf("unsupported selector %q", s)
	}

	i := 0
	for i < len(s) && s[i] != '#' && s[i] != '.' && s[i] != '[' {
		i++
	}
	sel.tag = s[:i]

	for i < len(s) {
		switch s[i] {
		case '#', '.':
			j := i + 1
			for j < len(s) && s[j] != '#' && s[j] != '.' && s[j] != '[' {
				j++
			}
			value := s[i+1 : j]
			if s[i] == '#' {
				sel.attrs["id"] = &value
			} else {
				sel.attrs["class~"] = &value
			}
			i = j
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return sel, fmt.Errorf("unterminated attribute in selector %q", s)
			}
			body := s[i+1 : i+end]
			if name, value, ok := strings.Cut(body, "="); ok {
				value = strings.Trim(value, `"'`)
				sel.attrs[name] = &value
			} else {
				sel.attrs[body] = nil
			}
			i += end + 1
		default:
			return sel, fmt.Errorf("unsupported selector %q", s)
		}
	}
	return sel, nil
}

// outsideBrackets drops attribute bodies, which may contain any character
func outsideBrackets(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (sel selector) matches(n *Node) bool {
	if sel.tag != "" && sel.tag != "*" && sel.tag != n.Tag {
		return false
	}
	for name, want := range sel.attrs {
		if name == "class~" {
			if !containsField(n.Attrs["class"], *want) {
				return false
			}
			continue
		}
		got, ok := n.attribute(name)
		if !ok || (want != nil && got != *want) {
			return false
		}
	}
	return true
}

// attribute reads an attribute; Disabled also shows as the disabled attribute
func (n *Node) attribute(name string) (string, bool) {
	if name == "disabled" && n.Disabled {
		return "", true
	}
	v, ok := n.Attrs[name]
	return v, ok
}

func containsField(list, field string) bool {
	for _, f := range strings.Fields(list) {
		if f == field {
			return true
		}
	}
	return false
}
