package archive

import (
	"sync"
	"time"
)

// Scheduler owns the set of running countdowns, keyed by transaction id.
// Each countdown ticks once per interval, reporting the remaining count,
// and fires its expiry callback when the count reaches zero. Countdowns for
// different ids run independently.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	tasks    map[int64]*task
}

type task struct {
	stop chan struct{}
}

func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		interval: interval,
		tasks:    make(map[int64]*task),
	}
}

// Start begins a countdown from the given number of ticks. It reports false
// without side effects if a countdown for this id is already running.
// onTick fires once per elapsed interval with the remaining count, down to
// zero; onExpire fires after the zero tick unless the countdown was
// cancelled first.
func (s *Scheduler) Start(id int64, ticks int, onTick func(id int64, remaining int), onExpire func(id int64)) bool {
	s.mu.Lock()
	if _, running := s.tasks[id]; running {
		s.mu.Unlock()
		return false
	}
	t := &task{stop: make(chan struct{})}
	s.tasks[id] = t
	s.mu.Unlock()

	go s.run(id, t, ticks, onTick, onExpire)
	return true
}

func (s *Scheduler) run(id int64, t *task, ticks int, onTick func(int64, int), onExpire func(int64)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	remaining := ticks
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			if onTick != nil {
				onTick(id, remaining)
			}
			if remaining <= 0 {
				if !s.finish(id, t) {
					return // cancelled in the same instant
				}
				if onExpire != nil {
					onExpire(id)
				}
				return
			}
		}
	}
}

// finish removes the task on natural expiry. It reports false if a
// concurrent Cancel already claimed the entry.
func (s *Scheduler) finish(id int64, t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.tasks[id]; !ok || current != t {
		return false
	}
	delete(s.tasks, id)
	return true
}

// Cancel stops the countdown for id. It reports whether one was running.
func (s *Scheduler) Cancel(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	delete(s.tasks, id)
	close(t.stop)
	return true
}

// Active reports whether a countdown for id is currently running.
func (s *Scheduler) Active(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// Stop cancels every running countdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		delete(s.tasks, id)
		close(t.stop)
	}
}
