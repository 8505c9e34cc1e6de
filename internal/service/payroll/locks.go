package payroll

import "sync"

// runLocks serializes mutations per run inside this process. The row lock taken in
// the transaction covers other processes.
type runLocks struct {
	mu    sync.Mutex
	locks map[string]*runLock
}

type runLock struct {
	mu   sync.Mutex
	refs int
}

func newRunLocks() *runLocks {
	return &runLocks{locks: make(map[string]*runLock)}
}

// Lock blocks until runID is free and returns the matching unlock func.
func (l *runLocks) Lock(runID string) func() {
	l.mu.Lock()
	rl, ok := l.locks[runID]
	if !ok {
		rl = &runLock{}
		l.locks[runID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, runID)
		}
		l.mu.Unlock()
	}
}
