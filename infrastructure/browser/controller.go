package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

// elementTimeoutMs bounds single element operations. The executor does its own
// waiting, so engine level auto-waits are kept short.
const elementTimeoutMs = 2000

type playwrightLauncher struct {
	logger *logrus.Logger
}

// NewPlaywrightLauncher - creates a launcher backed by playwright's chromium
func NewPlaywrightLauncher(logger *logrus.Logger) interfaces.Launcher {
	return &playwrightLauncher{logger: logger}
}

// Open - starts playwright, launches chromium and opens one page
func (l *playwrightLauncher) Open(ctx context.Context, opts entities.SessionOptions) (interfaces.Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start playwright: %v", entities.ErrSession, err)
	}

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	}
	if opts.SlowMoMs > 0 {
		launchOptions.SlowMo = playwright.Float(opts.SlowMoMs)
	}

	browser, err := pw.Chromium.Launch(launchOptions)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to launch browser: %v", entities.ErrSession, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to create context: %v", entities.ErrSession, err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to create page: %v", entities.ErrSession, err)
	}

	page.OnDialog(func(dialog playwright.Dialog) {
		l.logger.WithField("message", dialog.Message()).Debug("Accepting browser dialog")
		dialog.Accept()
	})

	l.logger.WithFields(logrus.Fields{
		"headless": opts.Headless,
		"viewport": fmt.Sprintf("%dx%d", opts.Viewport.Width, opts.Viewport.Height),
	}).Debug("Playwright session opened")

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    &playwrightPage{page: page, locatorFinder: locatorFinder{root: page.Locator(":root")}},
		logger:  l.logger,
	}, nil
}

type playwrightSession struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	context   playwright.BrowserContext
	page      *playwrightPage
	logger    *logrus.Logger
	closeOnce sync.Once
	closeErr  error
}

func (s *playwrightSession) Page() interfaces.Page {
	return s.page
}

// Close - closes the context, the browser and stops the playwright driver
func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		var err error
		if cerr := s.context.Close(); cerr != nil && !isClosedError(cerr) {
			err = multierr.Append(err, fmt.Errorf("failed to close context: %w", cerr))
		}
		if cerr := s.browser.Close(); cerr != nil && !isClosedError(cerr) {
			err = multierr.Append(err, fmt.Errorf("failed to close browser: %w", cerr))
		}
		if cerr := s.pw.Stop(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to stop playwright: %w", cerr))
		}
		s.closeErr = err
		s.logger.Debug("Playwright session closed")
	})
	return s.closeErr
}

type playwrightPage struct {
	locatorFinder
	page playwright.Page
}

// Navigate - navigates to url and waits for the load event
func (p *playwrightPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (p *playwrightPage) SetViewport(ctx context.Context, width, height int) error {
	return p.page.SetViewportSize(width, height)
}

// Screenshot - takes a screenshot of the current page
func (p *playwrightPage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	return err
}

func (p *playwrightPage) Info(ctx context.Context) (entities.PageInfo, error) {
	title, err := p.page.Title()
	if err != nil {
		return entities.PageInfo{}, err
	}
	return entities.PageInfo{URL: p.page.URL(), Title: title}, nil
}

// locatorFinder runs semantic lookups below a root locator
type locatorFinder struct {
	root playwright.Locator
}

func (f locatorFinder) FindByRole(ctx context.Context, role, name string, exact bool) ([]interfaces.Element, error) {
	opts := playwright.LocatorGetByRoleOptions{Exact: playwright.Bool(exact)}
	if name != "" {
		opts.Name = name
	}
	return expand(f.root.GetByRole(playwright.AriaRole(role), opts))
}

func (f locatorFinder) FindByLabel(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return expand(f.root.GetByLabel(text, playwright.LocatorGetByLabelOptions{Exact: playwright.Bool(exact)}))
}

func (f locatorFinder) FindByText(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return expand(f.root.GetByText(text, playwright.LocatorGetByTextOptions{Exact: playwright.Bool(exact)}))
}

func (f locatorFinder) FindBySelector(ctx context.Context, selector string) ([]interfaces.Element, error) {
	return expand(f.root.Locator(selector))
}

// expand turns a multi-match locator into one lazy locator per match
func expand(loc playwright.Locator) ([]interfaces.Element, error) {
	count, err := loc.Count()
	if err != nil {
		return nil, err
	}
	elements := make([]interfaces.Element, 0, count)
	for i := 0; i < count; i++ {
		nth := loc.Nth(i)
		elements = append(elements, &locatorElement{locatorFinder{root: nth}})
	}
	return elements, nil
}

// locatorElement is a lazy nth-match locator; every call re-queries the page
type locatorElement struct {
	locatorFinder
}

func (e *locatorElement) IsVisible(ctx context.Context) (bool, error) {
	return e.root.IsVisible()
}

func (e *locatorElement) IsEnabled(ctx context.Context) (bool, error) {
	return e.root.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: playwright.Float(elementTimeoutMs)})
}

// Attribute - reads an attribute, distinguishing a missing attribute from an empty one
func (e *locatorElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.root.Evaluate("(el, name) => el.getAttribute(name)", name,
		playwright.LocatorEvaluateOptions{Timeout: playwright.Float(elementTimeoutMs)})
	if err != nil {
		return "", false, err
	}
	s, ok := value.(string)
	return s, ok, nil
}

func (e *locatorElement) Text(ctx context.Context) (string, error) {
	return e.root.TextContent(playwright.LocatorTextContentOptions{Timeout: playwright.Float(elementTimeoutMs)})
}

func (e *locatorElement) Click(ctx context.Context) error {
	return e.root.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(elementTimeoutMs)})
}

func (e *locatorElement) Fill(ctx context.Context, value string) error {
	return e.root.Fill(value, playwright.LocatorFillOptions{Timeout: playwright.Float(elementTimeoutMs)})
}

func (e *locatorElement) Screenshot(ctx context.Context, path string) error {
	_, err := e.root.Screenshot(playwright.LocatorScreenshotOptions{
		Path:    playwright.String(path),
		Timeout: playwright.Float(elementTimeoutMs),
	})
	return err
}

// isClosedError - reports errors caused by an already closed target
func isClosedError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}
