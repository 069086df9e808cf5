package syncer

import (
	"sync"
	"time"
)

// lease marks that remote-driven change is being applied to the player.
// It expires on its own, so a lost release never blocks local events forever.
type lease struct {
	mx    *sync.Mutex
	now   func() time.Time
	until time.Time
}

func newLease(now func() time.Time) *lease {
	return &lease{
		mx:  &sync.Mutex{},
		now: now,
	}
}

// acquire holds the lease for at least d from now. Overlapping acquires extend it.
func (l *lease) acquire(d time.Duration) {
	l.mx.Lock()
	defer l.mx.Unlock()

	if until := l.now().Add(d); until.After(l.until) {
		l.until = until
	}
}

func (l *lease) held() bool {
	l.mx.Lock()
	defer l.mx.Unlock()

	return l.now().Before(l.until)
}
