package entities

// PageInfo identifies the page a session is on; logged with failures.
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SessionOptions configures one browser session
type SessionOptions struct {
	BaseURL  string
	Viewport Viewport
	Headless bool
	// SlowMoMs delays every engine operation, useful when watching a headed run.
	SlowMoMs float64
}
