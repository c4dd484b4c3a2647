package clock

import (
	"testing"
	"time"
)

func TestManualClock_FiresDueTimersInOrder(t *testing.T) {
	t.Parallel()

	c := NewManualClock(time.Unix(0, 0).UTC())
	var got []string
	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	stopped := c.AfterFunc(time.Second, func() { got = append(got, "never") })
	if !stopped.Stop() {
		t.Fatalf("Stop() = false on pending timer")
	}

	c.Advance(1500 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("after 1.5s got=%v", got)
	}
	c.Advance(time.Second)
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("after 2.5s got=%v", got)
	}
	if !c.Now().Equal(time.Unix(2, 500_000_000).UTC()) {
		t.Fatalf("now=%s", c.Now())
	}
	if c.PendingTimers() != 0 {
		t.Fatalf("pending=%d", c.PendingTimers())
	}
}
