package metrics

import (
	"sync"
	"time"
)

// rpsWindow counts requests per wall-clock second and reports the mean
// over the most recent complete seconds.
type rpsWindow struct {
	mu     sync.Mutex
	counts map[int64]int64
	size   int
}

func newRPSWindow(size int) *rpsWindow {
	return &rpsWindow{
		counts: make(map[int64]int64),
		size:   size,
	}
}

func (w *rpsWindow) add(at time.Time) {
	sec := at.Unix()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.counts[sec]++

	// Keep one extra second for the in-progress bucket
	for s := range w.counts {
		if s < sec-int64(w.size) {
			delete(w.counts, s)
		}
	}
}

// current returns the mean requests per second over the last complete
// seconds, capped at the window size. ok is false until a full second
// has elapsed since start.
func (w *rpsWindow) current(start, now time.Time) (rps float64, ok bool) {
	nowSec := now.Unix()
	complete := nowSec - start.Unix()
	if complete <= 0 {
		return 0, false
	}
	if complete > int64(w.size) {
		complete = int64(w.size)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var sum int64
	for s := nowSec - complete; s < nowSec; s++ {
		sum += w.counts[s]
	}
	return float64(sum) / float64(complete), true
}
