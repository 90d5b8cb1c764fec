package ledger

import "sync"

// accountLocks serializes ledger operations per user. SQLite already allows
// only one writer at a time; the per-user lock additionally guarantees that
// two operations for the same account never interleave their read-check-write
// sequence, so each user's operations are strictly ordered.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int64]*sync.Mutex)}
}

// get returns the lock for a user, creating it on first use. Locks are never
// removed; the map grows by one pointer per user ever seen, which is fine.
func (a *accountLocks) get(userID int64) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[userID] = lock
	}
	return lock
}
