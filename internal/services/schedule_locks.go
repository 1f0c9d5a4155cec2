package services

import "sync"

// ScheduleLocks hands out one mutex per schedule. Entries are reference
// counted and dropped when no goroutine holds or waits for them.
type ScheduleLocks struct {
	mu    sync.Mutex
	locks map[string]*scheduleLock
}

type scheduleLock struct {
	mu   sync.Mutex
	refs int
}

// NewScheduleLocks creates an empty lock map
func NewScheduleLocks() *ScheduleLocks {
	return &ScheduleLocks{locks: make(map[string]*scheduleLock)}
}

// Lock blocks until the schedule's lock is held and returns its release func
func (l *ScheduleLocks) Lock(scheduleID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[scheduleID]
	if !ok {
		lock = &scheduleLock{}
		l.locks[scheduleID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()

			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, scheduleID)
			}
			l.mu.Unlock()
		})
	}
}

// size returns the number of live entries
func (l *ScheduleLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
