package quiz

import (
	"errors"
	"fmt"

	"github.com/pavelanni/flashquiz/internal/model"
)

var (
	// ErrNoData is returned when a group materializes to zero questions.
	ErrNoData = errors.New("no questions in group")
	// ErrUnknownGroup is returned when selecting a group the index does not offer.
	ErrUnknownGroup = errors.New("unknown group")
	// ErrNotLoaded is returned when acting on a session before a successful load.
	ErrNotLoaded = errors.New("no data loaded")
	// ErrUnknownMode is returned for a mode with no sheet behind it.
	ErrUnknownMode = errors.New("unknown mode")
)

// FetchError is a network or HTTP failure while retrieving a sheet.
type FetchError struct {
	Mode       model.Mode
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s sheet: HTTP %d", e.Mode, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s sheet: %v", e.Mode, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is a malformed response or one without any expected column.
type ParseError struct {
	Mode model.Mode
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s sheet: %v", e.Mode, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
