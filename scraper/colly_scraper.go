package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticDriver implements Driver with plain HTTP through colly. It suits
// server-rendered tables whose Next control is a real link; clicking a
// control follows its href.
type StaticDriver struct {
	userAgent string
	timeout   time.Duration
}

// NewStaticDriver creates a StaticDriver. A zero timeout keeps colly's default.
func NewStaticDriver(timeout time.Duration) *StaticDriver {
	return &StaticDriver{
		userAgent: defaultUserAgent,
		timeout:   timeout,
	}
}

// Open implements Driver. The session's requests are cancelled when ctx ends.
func (d *StaticDriver) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ctx bounds every fetch of the session, including one in flight
	c := colly.NewCollector(
		colly.UserAgent(d.userAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	if d.timeout > 0 {
		c.SetRequestTimeout(d.timeout)
	}

	s := &staticSession{collector: c}
	c.OnResponse(func(r *colly.Response) {
		s.html = string(r.Body)
		s.current = r.Request.URL
	})

	return s, nil
}

// Close implements Driver
func (d *StaticDriver) Close() error {
	return nil
}

type staticSession struct {
	collector *colly.Collector
	html      string
	current   *url.URL
}

func (s *staticSession) visit(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.collector.Visit(target); err != nil {
		return fmt.Errorf("failed to visit %s: %w", target, err)
	}
	return nil
}

func (s *staticSession) Navigate(ctx context.Context, target string) error {
	if err := s.visit(ctx, target); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	return nil
}

func (s *staticSession) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.current == nil {
		return "", errors.New("no page loaded")
	}
	return s.html, nil
}

func (s *staticSession) NextControl(ctx context.Context, text string) (Control, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	link := doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.TrimSpace(a.Text()) == text
	}).First()
	if link.Length() == 0 {
		return nil, ErrNoControl
	}

	return &staticControl{
		session: s,
		class:   link.AttrOr("class", ""),
		href:    strings.TrimSpace(link.AttrOr("href", "")),
	}, nil
}

func (s *staticSession) Close() error {
	s.html = ""
	s.current = nil
	return nil
}

type staticControl struct {
	session *staticSession
	class   string
	href    string
}

func (c *staticControl) Class() (string, error) {
	return c.class, nil
}

func (c *staticControl) Click(ctx context.Context) error {
	if c.href == "" || strings.HasPrefix(c.href, "#") || strings.HasPrefix(strings.ToLower(c.href), "javascript:") {
		return fmt.Errorf("pagination control has no navigable href %q", c.href)
	}

	ref, err := url.Parse(c.href)
	if err != nil {
		return fmt.Errorf("invalid pagination href %q: %w", c.href, err)
	}

	return c.session.visit(ctx, c.session.current.ResolveReference(ref).String())
}
