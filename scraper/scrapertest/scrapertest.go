// Package scrapertest provides an in-memory scraper.Driver that serves a fixed
// sequence of table pages, for tests that must not start a browser.
package scrapertest

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"

	"mandi-prices/scraper"
)

// LoadingHTML is served while a session is still "rendering"
const LoadingHTML = "<html><body><div class=\"spinner\">Loading...</div></body></html>"

// EmptyTableHTML is a dashboard that has drawn its table but no rows yet
var EmptyTableHTML = TableHTML()

// Page is one page of the fake dashboard
type Page struct {
	HTML string
	// Next is the pagination control; nil means the page has none
	Next *Next
}

// Next describes the pagination control of a Page
type Next struct {
	Class    string
	ClassErr error
	ClickErr error
}

// Driver is a scraper.Driver over Pages
type Driver struct {
	Pages []Page

	OpenErr     error
	NavigateErr error
	HTMLErr     error
	// Loading is served while a page renders; empty means LoadingHTML
	Loading string
	// LoadingReads is how many HTML reads after navigation return Loading
	LoadingReads int
	// Lag is how many HTML reads after a click still return the previous page
	Lag int
	// ClickLoadingReads is how many HTML reads after the lag return Loading
	ClickLoadingReads int
	// Stuck makes clicks succeed without advancing
	Stuck bool

	mu       sync.Mutex
	sessions []*Session
	closed   bool
}

// Open implements scraper.Driver
func (d *Driver) Open(ctx context.Context) (scraper.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &Session{driver: d}
	d.sessions = append(d.sessions, s)
	return s, nil
}

// Close implements scraper.Driver
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Sessions returns every session opened so far
func (d *Driver) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Session(nil), d.sessions...)
}

// Session is a fake browser tab. Its counters are safe to read once the
// session's owner is done with it.
type Session struct {
	driver *Driver

	Navigated   []string
	Clicks      int
	NextLookups int
	Closed      bool

	index   int
	loading int
	lag     int
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.driver.NavigateErr != nil {
		return s.driver.NavigateErr
	}
	s.Navigated = append(s.Navigated, url)
	s.index = 0
	s.loading = s.driver.LoadingReads
	s.lag = 0
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.Navigated) == 0 {
		return "", errors.New("no page loaded")
	}
	if s.driver.HTMLErr != nil {
		return "", s.driver.HTMLErr
	}
	if s.lag > 0 && s.index > 0 {
		s.lag--
		return s.driver.Pages[s.index-1].HTML, nil
	}
	if s.loading > 0 {
		s.loading--
		if s.driver.Loading != "" {
			return s.driver.Loading, nil
		}
		return LoadingHTML, nil
	}
	if len(s.driver.Pages) == 0 {
		return "<html><body></body></html>", nil
	}
	return s.driver.Pages[s.index].HTML, nil
}

func (s *Session) NextControl(ctx context.Context, text string) (scraper.Control, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.NextLookups++
	if len(s.driver.Pages) == 0 || s.driver.Pages[s.index].Next == nil || text != "Next" {
		return nil, scraper.ErrNoControl
	}
	return &control{session: s, next: s.driver.Pages[s.index].Next}, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Page returns the 0-based index of the page currently shown
func (s *Session) Page() int {
	return s.index
}

type control struct {
	session *Session
	next    *Next
}

func (c *control) Class() (string, error) {
	if c.next.ClassErr != nil {
		return "", c.next.ClassErr
	}
	return c.next.Class, nil
}

func (c *control) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.next.ClickErr != nil {
		return c.next.ClickErr
	}
	s := c.session
	s.Clicks++
	if s.driver.Stuck || s.index >= len(s.driver.Pages)-1 {
		return nil
	}
	s.index++
	s.lag = s.driver.Lag
	s.loading = s.driver.ClickLoadingReads
	return nil
}

// TableHTML renders rows as a dashboard-like table
func TableHTML(rows ...[]string) string {
	var b strings.Builder
	b.WriteString("<html><body><table><thead><tr>")
	for _, h := range []string{"State", "APMC", "Commodity", "Min Price", "Modal Price", "Max Price"} {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></body></html>")
	return b.String()
}
