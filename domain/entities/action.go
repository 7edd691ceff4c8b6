package entities

// ActionType represents an interaction applied to the page
type ActionType string

const (
	ActionClick       ActionType = "click"
	ActionFill        ActionType = "fill"
	ActionSetViewport ActionType = "set_viewport"
)

// NeedsTarget reports whether the action operates on an element.
func (a ActionType) NeedsTarget() bool {
	return a != ActionSetViewport
}

// Viewport is a browser viewport size in CSS pixels
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Common viewport presets
var (
	DesktopViewport = Viewport{Width: 1280, Height: 720}
	MobileViewport  = Viewport{Width: 375, Height: 667}
)
