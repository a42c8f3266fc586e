package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is the time source for lifecycle timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Today truncates t to its UTC calendar day.
func Today(c Clock) time.Time {
	return DateOnly(c.Now())
}

func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var Module = fx.Module("clock",
	fx.Provide(New),
)
