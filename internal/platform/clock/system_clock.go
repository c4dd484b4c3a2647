package clock

import (
	"time"

	portclock "github.com/travelplan/itinerary-api/internal/ports/out/clock"
)

// SystemClock returns the current wall-clock time.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }

func (SystemClock) AfterFunc(d time.Duration, f func()) portclock.Timer {
	return time.AfterFunc(d, f)
}
