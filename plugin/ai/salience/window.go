package salience

import (
	"sync"
	"time"
)

const (
	// windowSize is how many recent scores feed the context boost.
	windowSize = 5

	// boostGate is the window mean above which the boost applies.
	boostGate = 0.5

	boostFactor = 0.1
)

// window is a bounded ring of one session's recent scores. Each window has
// its own lock so concurrent scoring of different sessions never contends.
type window struct {
	mu      sync.Mutex
	scores  [windowSize]float64
	count   int
	next    int
	touched time.Time
}

func (w *window) push(score float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scores[w.next] = score
	w.next = (w.next + 1) % windowSize
	if w.count < windowSize {
		w.count++
	}
	w.touched = time.Now()
}

func (w *window) mean() (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < w.count; i++ {
		sum += w.scores[i]
	}
	return sum / float64(w.count), true
}

// sessionWindows owns the per-session windows.
type sessionWindows struct {
	mu      sync.Mutex
	windows map[string]*window
}

func newSessionWindows() *sessionWindows {
	return &sessionWindows{windows: map[string]*window{}}
}

func (s *sessionWindows) get(sessionID string) *window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[sessionID]
	if !ok {
		w = &window{}
		s.windows[sessionID] = w
	}
	return w
}

// boost returns the context-window boost for the session's recent scores.
func (s *sessionWindows) boost(sessionID string) float64 {
	mean, ok := s.get(sessionID).mean()
	if !ok || mean <= boostGate {
		return 0
	}
	return boostFactor * (mean - boostGate)
}

func (s *sessionWindows) record(sessionID string, score float64) {
	s.get(sessionID).push(score)
}

// prune keeps only the most recently touched windows.
func (s *sessionWindows) prune(keep int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keep <= 0 || len(s.windows) <= keep {
		return
	}
	type aged struct {
		id      string
		touched time.Time
	}
	all := make([]aged, 0, len(s.windows))
	for id, w := range s.windows {
		w.mu.Lock()
		all = append(all, aged{id: id, touched: w.touched})
		w.mu.Unlock()
	}
	// Evict oldest first until at the keep limit.
	for len(all) > keep {
		oldest := 0
		for i := range all {
			if all[i].touched.Before(all[oldest].touched) {
				oldest = i
			}
		}
		delete(s.windows, all[oldest].id)
		all = append(all[:oldest], all[oldest+1:]...)
	}
}
