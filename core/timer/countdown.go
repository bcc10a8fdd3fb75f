// Package timer implements the quiz countdown: a severity-banded clock that
// fires edge-triggered callbacks on entering the warning band and on time up.
package timer

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type Severity int

const (
	Normal Severity = iota
	Warning
	Danger
	Expired
)

func (s Severity) String() string {
	switch s {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

type Options struct {
	Total            time.Duration
	WarningThreshold time.Duration
	DangerThreshold  time.Duration

	// OnWarning receives the seconds left when the warning band is entered.
	OnWarning func(secondsRemaining int)
	OnTimeUp  func()
	OnTick    func(State)
}

// Validate checks the durations. Thresholds at or above Total are allowed:
// the countdown then starts inside the band.
func (o Options) Validate() error {
	switch {
	case o.Total <= 0:
		return errors.Errorf("total time must be positive, got %s", o.Total)
	case o.WarningThreshold < 0 || o.DangerThreshold < 0:
		return errors.New("thresholds cannot be negative")
	case o.DangerThreshold > o.WarningThreshold:
		return errors.Errorf("danger threshold %s exceeds warning threshold %s", o.DangerThreshold, o.WarningThreshold)
	}
	return nil
}

// State is a snapshot of a countdown.
type State struct {
	Remaining        time.Duration
	SecondsRemaining int
	Severity         Severity
	Active           bool
	Paused           bool
}

func (s State) String() string {
	secs := s.SecondsRemaining
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// Countdown is the timer state machine. It holds no goroutine: callers feed it
// the current time and it reconciles the remaining time from timestamp deltas.
// A Countdown is not safe for concurrent use.
type Countdown struct {
	opts      Options
	remaining time.Duration
	mark      time.Time // last reconciliation, zero when not running
	active    bool
	paused    bool
	warned    bool
	timeUp    bool
}

func NewCountdown(opts Options) (*Countdown, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Countdown{opts: opts, remaining: opts.Total}, nil
}

// Activate starts (or restarts after Deactivate) the countdown at now.
func (c *Countdown) Activate(now time.Time) {
	if c.active || c.timeUp {
		return
	}
	c.active = true
	if !c.paused {
		c.mark = now
		c.evaluate()
	}
}

// Deactivate halts the countdown without firing anything.
func (c *Countdown) Deactivate() {
	c.active = false
	c.mark = time.Time{}
}

// Pause freezes the remaining time and suppresses callbacks until Resume.
func (c *Countdown) Pause(now time.Time) {
	if c.paused {
		return
	}
	c.reconcile(now)
	c.paused = true
	c.mark = time.Time{}
}

func (c *Countdown) Resume(now time.Time) {
	if !c.paused {
		return
	}
	c.paused = false
	if c.active {
		c.mark = now
	}
}

// Tick advances the countdown to now and fires the callbacks due.
func (c *Countdown) Tick(now time.Time) State {
	if c.running() {
		c.reconcile(now)
		c.evaluate()
		if c.opts.OnTick != nil {
			c.opts.OnTick(c.State())
		}
	}
	return c.State()
}

// Extend adds d to the remaining time. An expired countdown stays expired.
func (c *Countdown) Extend(d time.Duration) {
	if c.timeUp || d <= 0 {
		return
	}
	c.remaining += d
	if c.severity() == Normal {
		c.warned = false
	}
}

func (c *Countdown) State() State {
	return State{
		Remaining:        c.remaining,
		SecondsRemaining: c.seconds(),
		Severity:         c.severity(),
		Active:           c.active,
		Paused:           c.paused,
	}
}

// Done reports whether time-up has fired. A paused countdown at zero is not done.
func (c *Countdown) Done() bool {
	return c.timeUp
}

func (c *Countdown) running() bool {
	return c.active && !c.paused && !c.timeUp
}

func (c *Countdown) reconcile(now time.Time) {
	if !c.running() || c.mark.IsZero() {
		return
	}
	if elapsed := now.Sub(c.mark); elapsed > 0 {
		c.remaining -= elapsed
		c.mark = now
	}
	if c.remaining < 0 {
		c.remaining = 0
	}
}

func (c *Countdown) evaluate() {
	switch c.severity() {
	case Expired:
		c.timeUp = true
		c.mark = time.Time{}
		if c.opts.OnTimeUp != nil {
			c.opts.OnTimeUp()
		}
	case Warning, Danger:
		if !c.warned {
			c.warned = true
			if c.opts.OnWarning != nil {
				c.opts.OnWarning(c.seconds())
			}
		}
	case Normal:
		c.warned = false
	}
}

// seconds is the displayed remaining time, rounded up.
func (c *Countdown) seconds() int {
	if c.remaining <= 0 {
		return 0
	}
	return int((c.remaining + time.Second - 1) / time.Second)
}

func (c *Countdown) severity() Severity {
	left := time.Duration(c.seconds()) * time.Second
	switch {
	case left == 0:
		return Expired
	case left <= c.opts.DangerThreshold:
		return Danger
	case left <= c.opts.WarningThreshold:
		return Warning
	default:
		return Normal
	}
}
