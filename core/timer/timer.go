package timer

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Interval between two ticks of a running Timer.
const Interval = time.Second

// Timer drives a Countdown with a single ticker. Callbacks run on the ticker
// goroutine, never while the Timer lock is held, so they may call back into the Timer.
type Timer struct {
	clock clock.WithTicker

	mu      sync.Mutex
	cd      *Countdown
	ticker  clock.Ticker
	done    chan struct{}
	pending []func()
}

// New returns a stopped Timer. clk defaults to the real clock.
func New(opts Options, clk clock.WithTicker) (*Timer, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	t := &Timer{clock: clk}

	// callbacks are queued and run once the lock is released
	inner := opts
	if opts.OnWarning != nil {
		inner.OnWarning = func(secs int) { t.pending = append(t.pending, func() { opts.OnWarning(secs) }) }
	}
	if opts.OnTimeUp != nil {
		inner.OnTimeUp = func() { t.pending = append(t.pending, opts.OnTimeUp) }
	}
	if opts.OnTick != nil {
		inner.OnTick = func(st State) { t.pending = append(t.pending, func() { opts.OnTick(st) }) }
	}

	cd, err := NewCountdown(inner)
	if err != nil {
		return nil, err
	}
	t.cd = cd
	return t, nil
}

// Start activates the countdown and its ticker. Starting a running Timer is a no-op.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.ticker == nil {
		t.cd.Activate(t.clock.Now())
		if !t.cd.Done() {
			t.ticker = t.clock.NewTicker(Interval)
			t.done = make(chan struct{})
			go t.run(t.ticker, t.done)
		}
	}
	t.flushLocked()
}

// Stop deactivates the countdown and releases the ticker. No callback fires.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cd.Deactivate()
	t.stopTickerLocked()
}

func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cd.Pause(t.clock.Now())
}

func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cd.Resume(t.clock.Now())
}

// Extend adds d to the remaining time.
func (t *Timer) Extend(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cd.Extend(d)
}

// State returns the snapshot as of the last tick.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cd.State()
}

// Running reports whether the ticker is alive.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticker != nil
}

func (t *Timer) run(ticker clock.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			t.tick(ticker)
		}
	}
}

func (t *Timer) tick(ticker clock.Ticker) {
	t.mu.Lock()
	if t.ticker != ticker {
		// stopped (and maybe restarted) since the tick was sent
		t.mu.Unlock()
		return
	}
	t.cd.Tick(t.clock.Now())
	if t.cd.Done() {
		t.stopTickerLocked()
	}
	t.flushLocked()
}

func (t *Timer) stopTickerLocked() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.done)
	t.ticker, t.done = nil, nil
}

// flushLocked releases the lock, then runs the queued callbacks.
func (t *Timer) flushLocked() {
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}
