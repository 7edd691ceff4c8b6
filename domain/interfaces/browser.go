package interfaces

import (
	"context"
	"time"

	"ui_harness/domain/entities"
)

// Launcher opens isolated browser sessions
type Launcher interface {
	// Open launches a browser instance with a single page
	Open(ctx context.Context, opts entities.SessionOptions) (Session, error)
}

// Session owns one browser process and its page
type Session interface {
	// Page returns the session's only page
	Page() Page

	// Close releases the page, the browser and the engine. Safe to call more than once.
	Close() error
}

// Finder looks up elements, either in the whole page or below an element
type Finder interface {
	// FindByRole finds elements by ARIA role and accessible name
	FindByRole(ctx context.Context, role, name string, exact bool) ([]Element, error)

	// FindByLabel finds form controls by their associated label text
	FindByLabel(ctx context.Context, text string, exact bool) ([]Element, error)

	// FindByText finds elements by visible text
	FindByText(ctx context.Context, text string, exact bool) ([]Element, error)

	// FindBySelector finds elements by CSS selector
	FindBySelector(ctx context.Context, selector string) ([]Element, error)
}

// Page is the capability surface of an open page
type Page interface {
	Finder

	// Navigate loads url and blocks until the load state or the timeout
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// SetViewport resizes the viewport
	SetViewport(ctx context.Context, width, height int) error

	// Screenshot writes a screenshot of the page to path
	Screenshot(ctx context.Context, path string, fullPage bool) error

	// Info returns the current URL and title
	Info(ctx context.Context) (entities.PageInfo, error)
}

// Element is a matched element on the page
type Element interface {
	Finder

	IsVisible(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)

	// Attribute returns the attribute value and whether it is present
	Attribute(ctx context.Context, name string) (string, bool, error)

	// Text returns the text content
	Text(ctx context.Context) (string, error)

	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error

	// Screenshot writes a screenshot of the element to path
	Screenshot(ctx context.Context, path string) error
}
