package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"go.uber.org/multierr"

	"ui_harness/domain/entities"
	"ui_harness/domain/interfaces"
)

// SeleniumConfig locates chromedriver and chrome
type SeleniumConfig struct {
	DriverPath   string
	ChromeBinary string
	Port         int
}

type seleniumLauncher struct {
	cfg    SeleniumConfig
	logger *logrus.Logger
}

// NewSeleniumLauncher - creates a launcher driving chrome through chromedriver
func NewSeleniumLauncher(cfg SeleniumConfig, logger *logrus.Logger) interfaces.Launcher {
	if cfg.Port == 0 {
		cfg.Port = 9515
	}
	return &seleniumLauncher{cfg: cfg, logger: logger}
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		return "", fmt.Errorf("chromedriver not found at %s", configured)
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chromedriver not found, install it or set browser.selenium.driver_path")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// Open - starts chromedriver and a fresh chrome profile with one window
func (l *seleniumLauncher) Open(ctx context.Context, opts entities.SessionOptions) (interfaces.Session, error) {
	driverPath, err := findChromeDriver(l.cfg.DriverPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSession, err)
	}
	l.logger.Debugf("Using ChromeDriver at: %s", driverPath)

	service, err := selenium.NewChromeDriverService(driverPath, l.cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start chromedriver: %v", entities.ErrSession, err)
	}

	chromeCaps := chrome.Capabilities{
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.Viewport.Width, opts.Viewport.Height),
		},
	}
	if opts.Headless {
		chromeCaps.Args = append(chromeCaps.Args, "--headless=new")
	}
	if binary := findChromeBinary(l.cfg.ChromeBinary); binary != "" {
		chromeCaps.Path = binary
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", l.cfg.Port))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("%w: chrome not found, install it or set browser.selenium.chrome_binary: %v", entities.ErrSession, err)
		}
		return nil, fmt.Errorf("%w: failed to create webdriver: %v", entities.ErrSession, err)
	}

	return &seleniumSession{
		wd:      wd,
		service: service,
		page:    &seleniumPage{seleniumFinder: seleniumFinder{wd: wd}},
		logger:  l.logger,
	}, nil
}

type seleniumSession struct {
	wd        selenium.WebDriver
	service   *selenium.Service
	page      *seleniumPage
	logger    *logrus.Logger
	closeOnce sync.Once
	closeErr  error
}

func (s *seleniumSession) Page() interfaces.Page {
	return s.page
}

// Close - quits the browser and stops ChromeDriver service
func (s *seleniumSession) Close() error {
	s.closeOnce.Do(func() {
		var err error
		if qerr := s.wd.Quit(); qerr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to quit browser: %w", qerr))
		}
		if serr := s.service.Stop(); serr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to stop chromedriver: %w", serr))
		}
		s.closeErr = err
	})
	return s.closeErr
}

type seleniumPage struct {
	seleniumFinder
}

// Navigate - loads url, bounded by the page load timeout
func (p *seleniumPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.wd.SetPageLoadTimeout(timeout); err != nil {
		return err
	}
	return p.wd.Get(url)
}

// SetViewport resizes the window; chromedriver has no separate viewport size.
func (p *seleniumPage) SetViewport(ctx context.Context, width, height int) error {
	handle, err := p.wd.CurrentWindowHandle()
	if err != nil {
		return err
	}
	return p.wd.ResizeWindow(handle, width, height)
}

// Screenshot - webdriver screenshots always cover the viewport only
func (p *seleniumPage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	data, err := p.wd.Screenshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (p *seleniumPage) Info(ctx context.Context) (entities.PageInfo, error) {
	url, err := p.wd.CurrentURL()
	if err != nil {
		return entities.PageInfo{}, err
	}
	title, err := p.wd.Title()
	if err != nil {
		return entities.PageInfo{}, err
	}
	return entities.PageInfo{URL: url, Title: title}, nil
}

// seleniumFinder resolves queries below root, or the whole document when root is nil
type seleniumFinder struct {
	wd   selenium.WebDriver
	root selenium.WebElement
}

func (f seleniumFinder) FindByRole(ctx context.Context, role, name string, exact bool) ([]interfaces.Element, error) {
	return f.semantic("role", role, name, exact)
}

func (f seleniumFinder) FindByLabel(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return f.semantic("label", text, "", exact)
}

func (f seleniumFinder) FindByText(ctx context.Context, text string, exact bool) ([]interfaces.Element, error) {
	return f.semantic("text", text, "", exact)
}

func (f seleniumFinder) FindBySelector(ctx context.Context, selector string) ([]interfaces.Element, error) {
	var (
		found []selenium.WebElement
		err   error
	)
	if f.root != nil {
		found, err = f.root.FindElements(selenium.ByCSSSelector, selector)
	} else {
		found, err = f.wd.FindElements(selenium.ByCSSSelector, selector)
	}
	if err != nil {
		return nil, err
	}
	return f.wrap(found), nil
}

// semantic - runs the in-page resolver script and decodes the matched elements
func (f seleniumFinder) semantic(kind, value, name string, exact bool) ([]interfaces.Element, error) {
	var root interface{}
	if f.root != nil {
		root = f.root
	}
	raw, err := f.wd.ExecuteScriptRaw(semanticLookupJS, []interface{}{root, kind, value, name, exact})
	if err != nil {
		return nil, fmt.Errorf("semantic lookup failed: %w", err)
	}
	found, err := f.wd.DecodeElements(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode elements: %w", err)
	}
	return f.wrap(found), nil
}

func (f seleniumFinder) wrap(found []selenium.WebElement) []interfaces.Element {
	elements := make([]interfaces.Element, 0, len(found))
	for _, we := range found {
		elements = append(elements, &seleniumElement{seleniumFinder{wd: f.wd, root: we}})
	}
	return elements
}

type seleniumElement struct {
	seleniumFinder
}

func (e *seleniumElement) IsVisible(ctx context.Context) (bool, error) {
	return e.root.IsDisplayed()
}

func (e *seleniumElement) IsEnabled(ctx context.Context) (bool, error) {
	return e.root.IsEnabled()
}

func (e *seleniumElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.wd.ExecuteScript("return arguments[0].getAttribute(arguments[1]);", []interface{}{e.root, name})
	if err != nil {
		return "", false, err
	}
	s, ok := value.(string)
	return s, ok, nil
}

func (e *seleniumElement) Text(ctx context.Context) (string, error) {
	value, err := e.wd.ExecuteScript("return arguments[0].textContent;", []interface{}{e.root})
	if err != nil {
		return "", err
	}
	s, _ := value.(string)
	return s, nil
}

func (e *seleniumElement) Click(ctx context.Context) error {
	return e.root.Click()
}

// Fill - clears the field and types value
func (e *seleniumElement) Fill(ctx context.Context, value string) error {
	if err := e.root.Clear(); err != nil {
		return fmt.Errorf("failed to clear element: %w", err)
	}
	return e.root.SendKeys(value)
}

func (e *seleniumElement) Screenshot(ctx context.Context, path string) error {
	data, err := e.root.Screenshot(true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// semanticLookupJS resolves role, label and text queries in the page.
// arguments: root element or null, kind, value, accessible name, exact.
const semanticLookupJS = `
	const [root, kind, value, name, exact] = arguments;
	const scope = root || document;
	const norm = s => (s || '').replace(/\s+/g, ' ').trim();
	const matches = (actual, expected) => {
		actual = norm(actual);
		expected = norm(expected);
		if (exact) return actual === expected;
		return actual.toLowerCase().includes(expected.toLowerCase());
	};

	const implicitRole = el => {
		const tag = el.tagName.toLowerCase();
		const type = (el.getAttribute('type') || 'text').toLowerCase();
		switch (tag) {
			case 'button': return 'button';
			case 'a': return el.hasAttribute('href') ? 'link' : '';
			case 'input':
				if (['button', 'submit', 'reset', 'image'].includes(type)) return 'button';
				if (type === 'checkbox' || type === 'radio') return type;
				if (type === 'hidden' || type === 'password') return '';
				return 'textbox';
			case 'textarea': return 'textbox';
			case 'select': return el.multiple ? 'listbox' : 'combobox';
			case 'dialog': return 'dialog';
			case 'nav': return 'navigation';
			case 'main': return 'main';
			case 'form': return 'form';
			case 'ul': case 'ol': return 'list';
			case 'li': return 'listitem';
			case 'h1': case 'h2': case 'h3': case 'h4': case 'h5': case 'h6': return 'heading';
			case 'img': return el.getAttribute('alt') === '' ? 'presentation' : 'img';
		}
		return '';
	};
	const roleOf = el => norm(el.getAttribute('role')).split(' ')[0] || implicitRole(el);

	const labelsOf = el => {
		const out = [];
		const aria = el.getAttribute('aria-label');
		if (aria) out.push(aria);
		const by = el.getAttribute('aria-labelledby');
		if (by) {
			out.push(by.split(/\s+/).map(id => {
				const ref = document.getElementById(id);
				return ref ? ref.textContent : '';
			}).join(' '));
		}
		if (el.labels) {
			for (const label of el.labels) out.push(label.textContent);
		}
		return out;
	};

	const nameFromContent = ['button', 'link', 'heading', 'tab', 'menuitem', 'option', 'checkbox', 'radio', 'listitem'];
	const accessibleName = el => {
		const labels = labelsOf(el);
		if (labels.length) return labels[0];
		if (el.tagName === 'INPUT' && el.value && roleOf(el) === 'button') return el.value;
		if (nameFromContent.includes(roleOf(el))) return el.textContent;
		return el.getAttribute('title') || el.getAttribute('alt') || el.getAttribute('placeholder') || '';
	};

	const skip = ['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'TITLE'];
	const all = Array.from(scope.querySelectorAll('*')).filter(el => !skip.includes(el.tagName));

	switch (kind) {
		case 'role':
			return all.filter(el => roleOf(el) === value && (!name || matches(accessibleName(el), name)));
		case 'label':
			return all.filter(el => labelsOf(el).some(label => matches(label, value)));
		case 'text':
			return all.filter(el => matches(el.textContent, value) &&
				!Array.from(el.children).some(child => matches(child.textContent, value)));
	}
	return [];
`
