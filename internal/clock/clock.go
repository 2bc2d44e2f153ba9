package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time so validity windows and aging can be tested.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Date truncates t to midnight UTC. Entry, invoice and tax dates are compared
// at day granularity.
func Date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current date of c.
func Today(c Clock) time.Time {
	return Date(c.Now())
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
