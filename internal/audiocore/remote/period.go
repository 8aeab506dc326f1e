package remote

import "time"

// PeriodClock schedules wake-ups on multiples of a fixed period measured from
// a start time, so late wake-ups do not accumulate drift.
type PeriodClock struct {
	start  time.Time
	period time.Duration
	last   int64 // index of the last boundary reached
}

// NewPeriodClock returns a clock whose first boundary is start+period.
func NewPeriodClock(start time.Time, period time.Duration) *PeriodClock {
	if period <= 0 {
		panic("remote: period must be positive")
	}
	return &PeriodClock{start: start, period: period}
}

// Reset moves the phase origin to start.
func (c *PeriodClock) Reset(start time.Time) {
	c.start = start
	c.last = 0
}

// Start returns the current phase origin.
func (c *PeriodClock) Start() time.Time { return c.start }

// Period returns the period duration.
func (c *PeriodClock) Period() time.Duration { return c.period }

// Elapsed returns the time since the phase origin.
func (c *PeriodClock) Elapsed(now time.Time) time.Duration {
	return now.Sub(c.start)
}

// Boundary returns start + ceil((now-start)/period)*period, the first period
// boundary at or after now, and the time remaining until it.
func (c *PeriodClock) Boundary(now time.Time) (time.Time, time.Duration) {
	k := ceilDiv(now.Sub(c.start), c.period)
	next := c.start.Add(time.Duration(k) * c.period)
	return next, next.Sub(now)
}

// Next returns the next boundary that has not been reached yet and the wait
// until it. The wait is zero when the boundary is already in the past.
func (c *PeriodClock) Next(now time.Time) (time.Time, time.Duration) {
	k := max(ceilDiv(now.Sub(c.start), c.period), c.last+1)
	next := c.start.Add(time.Duration(k) * c.period)
	return next, max(0, next.Sub(now))
}

// Tick records that now has been processed, marking every boundary at or before it reached.
func (c *PeriodClock) Tick(now time.Time) {
	elapsed := now.Sub(c.start)
	if elapsed < 0 {
		return
	}
	c.last = max(c.last, int64(elapsed/c.period))
}

func ceilDiv(d, period time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + period - 1) / period)
}

// framesIn returns the number of whole frames played at rate during d.
func framesIn(d time.Duration, rate int) int64 {
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	rem := int64(d % time.Second)
	return secs*int64(rate) + rem*int64(rate)/int64(time.Second)
}

// durationOf returns the playing time of frames at rate.
func durationOf(frames, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(rate))
}
