package lifecycle

import (
	"time"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// SystemClock reads the wall clock in the business time zone.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock loads the named zone, falling back to UTC when unknown.
func NewSystemClock(zone string) (*SystemClock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return &SystemClock{Location: time.UTC}, err
	}
	return &SystemClock{Location: loc}, nil
}

func (c *SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// Today returns the calendar date of now in the clock's zone.
func (c *SystemClock) Today() domain.Date {
	return domain.DateOf(c.Now())
}

// FixedClock always answers the same instant. Used by tests and the CLI
// --today flag.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time    { return c.At }
func (c FixedClock) Today() domain.Date { return domain.DateOf(c.At) }
