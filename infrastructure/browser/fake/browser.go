// Package fake is an in-memory browser used to exercise the executor without
// a real engine. Pages are built from Go node trees and can change over time.
package fake

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

// ErrDetached is returned when an element was removed from the document
var ErrDetached = errors.New("element is not attached to the DOM")

// screenshotBytes is written for every screenshot
var screenshotBytes = []byte("\x89PNG fake screenshot\n")

// Route is one page of a Site
type Route struct {
	Title string
	// Delay is how long loading takes; a delay above the navigation timeout times out.
	Delay time.Duration
	Build func() *Node
}

// Site maps URL paths to routes
type Site struct {
	Routes map[string]Route
	// Unreachable makes every navigation fail with a connection error.
	Unreachable bool
}

// Browser is a Launcher opening sessions on a Site
type Browser struct {
	Site *Site
	// FailOpen is returned by Open when set.
	FailOpen error

	mu         sync.Mutex
	opened     int
	closeCalls int
	pages      []*Page
}

// NewBrowser - creates a launcher serving site
func NewBrowser(site *Site) *Browser {
	return &Browser{Site: site}
}

func (b *Browser) Open(ctx context.Context, opts entities.SessionOptions) (interfaces.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailOpen != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSession, b.FailOpen)
	}
	b.opened++
	page := &Page{site: b.Site, viewport: opts.Viewport, doc: El("html")}
	b.pages = append(b.pages, page)
	return &session{browser: b, page: page}, nil
}

// Opened returns how many sessions were opened
func (b *Browser) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// CloseCalls returns how many times Close was called on any session
func (b *Browser) CloseCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCalls
}

// LastPage returns the page of the most recent session
func (b *Browser) LastPage() *Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pages) == 0 {
		return nil
	}
	return b.pages[len(b.pages)-1]
}

type session struct {
	browser *Browser
	page    *Page
}

func (s *session) Page() interfaces.Page {
	return s.page
}

func (s *session) Close() error {
	s.browser.mu.Lock()
	s.browser.closeCalls++
	s.browser.mu.Unlock()
	s.page.close()
	return nil
}

// Page is an in-memory page
type Page struct {
	site *Site

	mu          sync.Mutex
	url         string
	title       string
	doc         *Node
	viewport    entities.Viewport
	timers      []*time.Timer
	closed      bool
	screenshots []string
}

// Mutate changes the document under the page lock
func (p *Page) Mutate(fn func(doc *Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		fn(p.doc)
	}
}

// Later runs a mutation after d, unless the page navigates or closes first
func (p *Page) Later(d time.Duration, fn func(doc *Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.timers = append(p.timers, time.AfterFunc(d, func() { p.Mutate(fn) }))
}

// Viewport returns the current viewport
func (p *Page) Viewport() entities.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

// Screenshots returns every screenshot path written so far
func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.screenshots...)
}

// Closed reports whether the session owning the page was closed
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.stopTimers()
}

func (p *Page) stopTimers() {
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
}

func (p *Page) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if p.Closed() {
		return errors.New("target page has been closed")
	}
	if p.site == nil || p.site.Unreachable {
		return fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	route, ok := p.site.Routes[u.Path]
	if !ok {
		route = Route{Title: "404", Build: func() *Node { return El("body", Textf("404 Not Found")) }}
	}

	delay := route.Delay
	if delay > timeout {
		delay = timeout
	}
	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}
	if route.Delay > timeout {
		return fmt.Errorf("timeout %s exceeded loading %s", timeout, rawURL)
	}

	doc := El("html")
	if route.Build != nil {
		doc.Append(route.Build())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimers()
	p.url = rawURL
	p.title = route.Title
	p.doc = doc
	return nil
}

func (p *Page) SetViewport(ctx context.Context, width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewport = entities.Viewport{Width: width, Height: height}
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string, fullPage bool) error {
	return p.writeScreenshot(path)
}

func (p *Page) Info(ctx context.Context) (entities.PageInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return entities.PageInfo{URL: p.url, Title: p.title}, nil
}

func (p *Page) FindByRole(ctx context.Context, role, name string, exact bool) ([]interfaces.Element, error) {
	return p.find(nil, func(all []*Node) ([]*Node, error) {
		return matchRole(all, p.hiddenLocked, role, name, exact), nil
	})
}

func (p *Page) FindByLabel(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return p.find(nil, func(all []*Node) ([]*Node, error) {
		return matchLabel(all, text, exact), nil
	})
}

func (p *Page) FindByText(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return p.find(nil, func(all []*Node) ([]*Node, error) {
		return matchText(all, text, exact), nil
	})
}

func (p *Page) FindBySelector(ctx context.Context, sel string) ([]interfaces.Element, error) {
	return p.find(nil, selectorMatcher(sel))
}

// find runs match over the subtree below scope, or the whole document when scope is nil
func (p *Page) find(scope *Node, match func([]*Node) ([]*Node, error)) ([]interfaces.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("target page has been closed")
	}

	var all []*Node
	if scope == nil {
		all = append([]*Node{p.doc}, descendants(p.doc)...)
	} else {
		if ancestry(p.doc, scope) == nil {
			return nil, ErrDetached
		}
		all = descendants(scope)
	}

	nodes, err := match(all)
	if err != nil {
		return nil, err
	}
	elements := make([]interfaces.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &element{page: p, node: n})
	}
	return elements, nil
}

// hiddenLocked reports whether n or one of its ancestors is hidden. Callers hold p.mu.
func (p *Page) hiddenLocked(n *Node) bool {
	for _, a := range ancestry(p.doc, n) {
		if a.Hidden {
			return true
		}
	}
	return false
}

func (p *Page) writeScreenshot(path string) error {
	if err := os.WriteFile(path, screenshotBytes, 0644); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screenshots = append(p.screenshots, path)
	return nil
}

func selectorMatcher(sel string) func([]*Node) ([]*Node, error) {
	return func(all []*Node) ([]*Node, error) {
		parsed, err := parseSelector(sel)
		if err != nil {
			return nil, err
		}
		var out []*Node
		for _, n := range all {
			if parsed.matches(n) {
				out = append(out, n)
			}
		}
		return out, nil
	}
}

// element is a live reference to a node of a page
type element struct {
	page *Page
	node *Node
}

// attached runs fn with the page locked if the node is still in the document
func (e *element) attached(fn func(chain []*Node) error) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.page.closed {
		return errors.New("target page has been closed")
	}
	chain := ancestry(e.page.doc, e.node)
	if chain == nil {
		return ErrDetached
	}
	return fn(chain)
}

func (e *element) FindByRole(ctx context.Context, role, name string, exact bool) ([]interfaces.Element, error) {
	return e.page.find(e.node, func(all []*Node) ([]*Node, error) {
		return matchRole(all, e.page.hiddenLocked, role, name, exact), nil
	})
}

func (e *element) FindByLabel(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return e.page.find(e.node, func(all []*Node) ([]*Node, error) {
		return matchLabel(all, text, exact), nil
	})
}

func (e *element) FindByText(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return e.page.find(e.node, func(all []*Node) ([]*Node, error) {
		return matchText(all, text, exact), nil
	})
}

func (e *element) FindBySelector(ctx context.Context, sel string) ([]interfaces.Element, error) {
	return e.page.find(e.node, selectorMatcher(sel))
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	visible := false
	err := e.attached(func(chain []*Node) error {
		visible = true
		for _, n := range chain {
			if n.Hidden {
				visible = false
			}
		}
		return nil
	})
	if errors.Is(err, ErrDetached) {
		return false, nil
	}
	return visible, err
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	enabled := false
	err := e.attached(func([]*Node) error {
		enabled = !e.node.Disabled
		return nil
	})
	return enabled, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.attached(func([]*Node) error {
		value, ok = e.node.attribute(name)
		return nil
	})
	return value, ok, err
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.attached(func([]*Node) error {
		text = e.node.textContent()
		return nil
	})
	return text, err
}

// Click runs the click handler outside the page lock
func (e *element) Click(ctx context.Context) error {
	var handler func(*Page)
	err := e.attached(func(chain []*Node) error {
		if err := interactable(e.node, chain); err != nil {
			return err
		}
		handler = e.node.OnClick
		return nil
	})
	if err != nil {
		return err
	}
	if handler != nil {
		handler(e.page)
	}
	return nil
}

func (e *element) Fill(ctx context.Context, value string) error {
	return e.attached(func(chain []*Node) error {
		if err := interactable(e.node, chain); err != nil {
			return err
		}
		if e.node.Tag != "input" && e.node.Tag != "textarea" {
			return fmt.Errorf("element <%s> is not an input", e.node.Tag)
		}
		e.node.Value = value
		return nil
	})
}

func (e *element) Screenshot(ctx context.Context, path string) error {
	err := e.attached(func(chain []*Node) error {
		for _, n := range chain {
			if n.Hidden {
				return errors.New("element is not visible")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.page.writeScreenshot(path)
}

func interactable(n *Node, chain []*Node) error {
	for _, a := range chain {
		if a.Hidden {
			return errors.New("element is not visible")
		}
	}
	if n.Disabled {
		return errors.New("element is disabled")
	}
	return nil
}

// Value returns the value of the input with the given id
func (p *Page) Value(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.doc.ByID(id); n != nil {
		return n.Value
	}
	return ""
}
