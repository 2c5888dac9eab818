package compliance

import (
	"time"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

// Clock turns the current instant into the calendar date the division operates in.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock builds a Clock. A nil now defaults to time.Now and a nil loc to UTC.
func NewClock(now func() time.Time, loc *time.Location) Clock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return Clock{now: now, loc: loc}
}

// FixedClock always reports the given date.
func FixedClock(d models.Date) Clock {
	return NewClock(func() time.Time { return d.Time() }, time.UTC)
}

// Now returns the current instant.
func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Today returns the current calendar date in the clock's location.
func (c Clock) Today() models.Date {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return models.DateOf(c.Now(), loc)
}
