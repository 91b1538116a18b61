package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mandi-prices/logging"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// RodOptions configures the Chrome process behind a RodDriver
type RodOptions struct {
	Headless bool
	// BrowserBin overrides browser lookup. When empty a system Chrome is used
	// if one is found, otherwise rod downloads a compatible Chromium.
	BrowserBin string
}

// RodDriver implements Driver on a single headless Chrome launched on first
// use. Every session gets its own incognito browser context.
type RodDriver struct {
	opts RodOptions
	log  zerolog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodDriver creates a RodDriver. The browser is not started until Open.
func NewRodDriver(opts RodOptions) *RodDriver {
	return &RodDriver{
		opts: opts,
		log:  logging.NewLogger("rod"),
	}
}

// newLauncher builds the Chrome command line: headless, no GPU, no sandbox
func (d *RodDriver) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(d.opts.Headless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("mute-audio")

	if d.opts.BrowserBin != "" {
		return l.Bin(d.opts.BrowserBin)
	}
	if path, ok := launcher.LookPath(); ok {
		return l.Bin(path)
	}
	return l
}

func (d *RodDriver) ensureBrowser() (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		return d.browser, nil
	}

	l := d.newLauncher()
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	d.log.Info().Bool("headless", d.opts.Headless).Str("control_url", controlURL).Msg("browser launched")
	d.launcher = l
	d.browser = browser
	return browser, nil
}

// Open implements Driver
func (d *RodDriver) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := d.ensureBrowser()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &rodSession{browser: incognito, page: page}, nil
}

// Close shuts the browser down if it was started
func (d *RodDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser == nil {
		return nil
	}

	err := d.browser.Close()
	d.launcher.Cleanup()
	d.browser = nil
	d.launcher = nil
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	d.log.Info().Msg("browser closed")
	return nil
}

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

func (s *rodSession) NextControl(ctx context.Context, text string) (Control, error) {
	// ElementsX does not wait, an absent control returns immediately
	els, err := s.page.Context(ctx).ElementsX(fmt.Sprintf("//a[text()=%s]", xpathLiteral(text)))
	if err != nil {
		return nil, fmt.Errorf("failed to query pagination control: %w", err)
	}
	if len(els) == 0 {
		return nil, ErrNoControl
	}
	return &rodControl{el: els.First()}, nil
}

// Close disposes the incognito context together with its page
func (s *rodSession) Close() error {
	if err := s.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser context: %w", err)
	}
	return nil
}

type rodControl struct {
	el *rod.Element
}

func (c *rodControl) Class() (string, error) {
	class, err := c.el.Attribute("class")
	if err != nil {
		return "", fmt.Errorf("failed to read class attribute: %w", err)
	}
	if class == nil {
		return "", nil
	}
	return *class, nil
}

func (c *rodControl) Click(ctx context.Context) error {
	if err := c.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click pagination control: %w", err)
	}
	return nil
}

// xpathLiteral quotes s for use in an XPath 1.0 expression, which has no
// escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
