package timing

import "time"

// Hardware timing constants.
const (
	CPUFrequency   = 4194304
	CyclesPerFrame = 70224
)

// FrameDuration is the wall-clock length of one frame (about 59.73 per
// second).
func FrameDuration() time.Duration {
	secondsPerFrame := float64(time.Second) * CyclesPerFrame / CPUFrequency
	return time.Duration(secondsPerFrame)
}

// Limiter controls frame pacing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it is time for the next frame,
	// returning immediately when behind schedule.
	WaitForNextFrame()

	// Reset clears the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that never waits, for headless runs.
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// frameLimiter schedules frames on an absolute timeline so sleep jitter
// does not accumulate, finishing each wait with a short busy spin for
// accuracy.
type frameLimiter struct {
	interval time.Duration
	next     time.Time
}

// NewFrameLimiter returns a limiter paced to the hardware frame rate.
func NewFrameLimiter() Limiter {
	return &frameLimiter{
		interval: FrameDuration(),
		next:     time.Now(),
	}
}

func (l *frameLimiter) WaitForNextFrame() {
	now := time.Now()
	wait := l.next.Sub(now)

	if wait > 2*time.Millisecond {
		time.Sleep(wait - time.Millisecond)
	}
	for time.Now().Before(l.next) {
	}

	if wait < -5*time.Millisecond {
		// too far behind, drop the backlog instead of racing to catch up
		l.next = now
	}
	l.next = l.next.Add(l.interval)
}

func (l *frameLimiter) Reset() {
	l.next = time.Now()
}
