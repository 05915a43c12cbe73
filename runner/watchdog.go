package runner

import (
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
)

// Watchdog terminates a running job once its time budget elapses. It is
// armed before the solver starts and disarmed on the job's completion
// path. The expiry callback runs under the watchdog's lock, so once
// Disarm returns the callback can no longer start; disarming after the
// deadline has already fired is a no-op.
type Watchdog struct {
	clk clock.Clock

	mu    sync.Mutex
	armed bool
	fired bool
	stop  chan struct{}
}

// NewWatchdog returns a watchdog driven by clk.
func NewWatchdog(clk clock.Clock) *Watchdog {
	return &Watchdog{clk: clk}
}

// Arm schedules onExpire to run after d unless Disarm is called first.
// A non-positive duration means no limit: nothing is armed.
func (w *Watchdog) Arm(d time.Duration, onExpire func()) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed = true
	w.fired = false
	w.stop = make(chan struct{})
	stop := w.stop

	timer := w.clk.NewTimer(d)
	go func() {
		select {
		case <-timer.C():
			w.mu.Lock()
			if w.armed {
				w.fired = true
				onExpire()
			}
			w.mu.Unlock()
		case <-stop:
			timer.Stop()
		}
	}()
}

// Disarm cancels a pending expiry. After Disarm returns the callback is
// guaranteed not to run, even if the deadline passes afterwards.
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed {
		return
	}
	w.armed = false
	close(w.stop)
}

// Fired reports whether the expiry callback ran.
func (w *Watchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
