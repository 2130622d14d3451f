package monitor

import "time"

// debounceConfig controls the full-rescan timer.
type debounceConfig struct {
	// Delay after the last activity. Default: 50ms.
	Delay time.Duration
	// MaxWait caps how long a continuous stream of activity can postpone
	// the rescan. Default: 1s.
	MaxWait time.Duration
}

func (dc *debounceConfig) defaults() {
	if dc.Delay <= 0 {
		dc.Delay = 50 * time.Millisecond
	}
	if dc.MaxWait <= 0 {
		dc.MaxWait = time.Second
	}
}

// debouncer is a resettable timer owned by the monitor loop. It is not safe
// for concurrent use.
type debouncer struct {
	cfg     debounceConfig
	first   time.Time // first touch of the pending window
	timer   *time.Timer
	timerCh <-chan time.Time
}

func newDebouncer(cfg debounceConfig) *debouncer {
	cfg.defaults()
	return &debouncer{cfg: cfg}
}

// touch (re)starts the window.
func (d *debouncer) touch(now time.Time) {
	if d.first.IsZero() {
		d.first = now
	}
	wait := d.cfg.Delay
	if deadline := d.first.Add(d.cfg.MaxWait); now.Add(wait).After(deadline) {
		wait = deadline.Sub(now)
		if wait < 0 {
			wait = 0
		}
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.NewTimer(wait)
	d.timerCh = d.timer.C
}

// timerC returns the channel that fires when the window expires. It is nil
// (blocks forever in a select) while nothing is pending.
func (d *debouncer) timerC() <-chan time.Time {
	return d.timerCh
}

func (d *debouncer) pending() bool { return d.timer != nil }

// reset clears the window after it fired or on shutdown.
func (d *debouncer) reset() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.timerCh = nil
	d.first = time.Time{}
}
