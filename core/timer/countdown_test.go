package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	warnings []int
	timeUps  int
	ticks    int
}

func (r *recorder) options(total, warn, danger time.Duration) Options {
	return Options{
		Total:            total,
		WarningThreshold: warn,
		DangerThreshold:  danger,
		OnWarning:        func(secs int) { r.warnings = append(r.warnings, secs) },
		OnTimeUp:         func() { r.timeUps++ },
		OnTick:           func(State) { r.ticks++ },
	}
}

// ticker feeds a countdown one second at a time.
type ticker struct {
	cd  *Countdown
	now time.Time
}

func (tk *ticker) tick(n int) State {
	var st State
	for i := 0; i < n; i++ {
		tk.now = tk.now.Add(time.Second)
		st = tk.cd.Tick(tk.now)
	}
	return st
}

func newTicker(t *testing.T, opts Options) *ticker {
	t.Helper()
	cd, err := NewCountdown(opts)
	require.NoError(t, err)
	cd.Activate(epoch)
	return &ticker{cd: cd, now: epoch}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "valid", opts: Options{Total: 30 * time.Minute, WarningThreshold: 5 * time.Minute, DangerThreshold: time.Minute}},
		{name: "thresholds above total", opts: Options{Total: time.Minute, WarningThreshold: 5 * time.Minute, DangerThreshold: 2 * time.Minute}},
		{name: "no thresholds", opts: Options{Total: time.Minute}},
		{name: "zero total", opts: Options{}, wantErr: true},
		{name: "negative total", opts: Options{Total: -time.Second}, wantErr: true},
		{name: "negative threshold", opts: Options{Total: time.Minute, WarningThreshold: -time.Second}, wantErr: true},
		{name: "danger above warning", opts: Options{Total: time.Minute, WarningThreshold: time.Second, DangerThreshold: 2 * time.Second}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCountdown_expiry(t *testing.T) {
	rec := &recorder{}
	tk := newTicker(t, rec.options(time.Minute, time.Minute, 0))

	st := tk.cd.State()
	assert.Equal(t, 60, st.SecondsRemaining)
	assert.Equal(t, Warning, st.Severity)

	st = tk.tick(59)
	assert.Equal(t, 1, st.SecondsRemaining)
	assert.Equal(t, Warning, st.Severity)
	assert.Equal(t, 0, rec.timeUps)

	st = tk.tick(1)
	assert.Equal(t, 0, st.SecondsRemaining)
	assert.Equal(t, Expired, st.Severity)
	assert.Equal(t, 1, rec.timeUps)

	// terminal
	st = tk.tick(10)
	assert.Equal(t, 0, st.SecondsRemaining)
	assert.Equal(t, 1, rec.timeUps)
	assert.Equal(t, 60, rec.ticks)
	assert.Equal(t, []int{60}, rec.warnings)
}

func TestCountdown_severityBands(t *testing.T) {
	rec := &recorder{}
	tk := newTicker(t, rec.options(10*time.Second, 5*time.Second, 2*time.Second))

	want := []Severity{Normal, Normal, Normal, Normal, Warning, Warning, Warning, Danger, Danger, Expired}
	for i, sev := range want {
		st := tk.tick(1)
		assert.Equal(t, sev, st.Severity, "tick %d (%d left)", i+1, st.SecondsRemaining)
	}
	assert.Equal(t, []int{5}, rec.warnings)
	assert.Equal(t, 1, rec.timeUps)
}

func TestCountdown_warningOncePerStay(t *testing.T) {
	rec := &recorder{}
	tk := newTicker(t, rec.options(20*time.Second, 10*time.Second, 0))

	tk.tick(12) // 8s left
	assert.Equal(t, []int{10}, rec.warnings)

	// extending inside the band keeps the latch
	tk.cd.Extend(time.Second)
	tk.tick(1)
	assert.Len(t, rec.warnings, 1)

	// back to normal, then re-enter
	tk.cd.Extend(10 * time.Second)
	assert.Equal(t, Normal, tk.cd.State().Severity)
	st := tk.tick(8)
	assert.Equal(t, 10, st.SecondsRemaining)
	assert.Equal(t, []int{10, 10}, rec.warnings)

	tk.tick(5)
	assert.Len(t, rec.warnings, 2)
}

func TestCountdown_pause(t *testing.T) {
	ticksToExpiry := func(pauseAt, pauseFor int) int {
		rec := &recorder{}
		tk := newTicker(t, rec.options(time.Minute, 30*time.Second, 10*time.Second))
		for n := 1; n <= 200; n++ {
			if n == pauseAt+1 {
				tk.cd.Pause(tk.now)
			}
			if n == pauseAt+pauseFor+1 {
				tk.cd.Resume(tk.now)
			}
			if st := tk.tick(1); st.Severity == Expired {
				return n
			}
		}
		return -1
	}

	base := ticksToExpiry(-10, 0)
	require.Equal(t, 60, base)
	for _, n := range []int{1, 7, 45} {
		assert.Equal(t, base+n, ticksToExpiry(20, n), "paused for %d ticks", n)
	}
}

func TestCountdown_pauseKeepsLatchAndSilence(t *testing.T) {
	rec := &recorder{}
	tk := newTicker(t, rec.options(20*time.Second, 10*time.Second, 0))
	tk.tick(11)
	require.Len(t, rec.warnings, 1)
	ticks := rec.ticks

	tk.cd.Pause(tk.now)
	st := tk.tick(30)
	assert.Equal(t, 9, st.SecondsRemaining)
	assert.True(t, st.Paused)
	assert.Equal(t, ticks, rec.ticks)
	assert.Zero(t, rec.timeUps)

	tk.cd.Resume(tk.now)
	tk.tick(1)
	assert.Len(t, rec.warnings, 1)
}

func TestCountdown_pauseAtZero(t *testing.T) {
	rec := &recorder{}
	tk := newTicker(t, rec.options(3*time.Second, 0, 0))
	tk.tick(2)

	tk.now = tk.now.Add(1500 * time.Millisecond)
	tk.cd.Pause(tk.now)
	st := tk.tick(5)
	assert.Equal(t, Expired, st.Severity)
	assert.True(t, st.Paused)
	assert.False(t, tk.cd.Done())
	assert.Zero(t, rec.timeUps)

	tk.cd.Resume(tk.now)
	tk.tick(1)
	assert.True(t, tk.cd.Done())
	assert.Equal(t, 1, rec.timeUps)

	tk.tick(3)
	assert.Equal(t, 1, rec.timeUps)
}

func TestCountdown_deactivate(t *testing.T) {
	rec := &recorder{}
	tk := newTicker(t, rec.options(5*time.Second, 0, 0))
	tk.tick(2)

	tk.cd.Deactivate()
	st := tk.tick(10)
	assert.False(t, st.Active)
	assert.Equal(t, 3, st.SecondsRemaining)
	assert.Zero(t, rec.timeUps)
	assert.Empty(t, rec.warnings)
}

func TestCountdown_driftFree(t *testing.T) {
	cd, err := NewCountdown(Options{Total: 10 * time.Second})
	require.NoError(t, err)
	cd.Activate(epoch)

	// late and irregular ticks still land on the wall clock
	st := cd.Tick(epoch.Add(1300 * time.Millisecond))
	assert.Equal(t, 9, st.SecondsRemaining)
	st = cd.Tick(epoch.Add(4100 * time.Millisecond))
	assert.Equal(t, 6, st.SecondsRemaining)
	assert.Equal(t, 5900*time.Millisecond, st.Remaining)
	st = cd.Tick(epoch.Add(time.Minute))
	assert.Equal(t, Expired, st.Severity)
	assert.Zero(t, st.Remaining)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "30:00", State{SecondsRemaining: 1800}.String())
	assert.Equal(t, "01:05", State{SecondsRemaining: 65}.String())
	assert.Equal(t, "00:00", State{}.String())
}
