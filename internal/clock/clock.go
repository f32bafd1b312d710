package clock

import (
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)

// Clock returns the current time in UTC.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func NewSystem() Clock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
