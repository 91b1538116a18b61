package scraper

import (
	"context"
	"errors"
)

// ErrNoControl is returned by Session.NextControl when the page has no
// pagination control with the requested text
var ErrNoControl = errors.New("pagination control not found")

// ErrPoolClosed is returned when a session is requested after shutdown
var ErrPoolClosed = errors.New("session pool closed")

// Driver opens browser sessions. A session is owned by exactly one caller
// until it is closed.
type Driver interface {
	// Open starts a new isolated session
	Open(ctx context.Context) (Session, error)
	// Close releases the driver's own resources, e.g. the browser process
	Close() error
}

// Session is one exclusively-owned browser tab
type Session interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	// HTML returns the current rendered document
	HTML(ctx context.Context) (string, error)
	// NextControl finds the first link whose text is exactly text. It returns
	// ErrNoControl when there is none.
	NextControl(ctx context.Context, text string) (Control, error)
	// Close ends the session
	Close() error
}

// Control is a pagination link on the current page
type Control interface {
	// Class returns the class attribute, empty when absent
	Class() (string, error)
	// Click activates the control
	Click(ctx context.Context) error
}
