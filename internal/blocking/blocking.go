// Package blocking implements the wait/wake machinery behind BLPOP and the
// blocking form of XREAD (§4.E). Waiters queue per key in FIFO order; a
// deadline min-heap (adapted from the teacher's processmgr.scheduler, which
// schedules process-restart events the same way) drives timeout expiry
// without a goroutine per waiter.
package blocking

import (
	"container/heap"
	"sync"
	"time"

	"github.com/edirooss/vredis/internal/event"
)

// Waiter is a single blocked client's ticket. Exactly one of Ready or
// TimedOut will eventually receive a value, and only once.
type Waiter struct {
	ID       uint64
	Keys     []string
	Deadline time.Time // zero value means "block forever"
	Ready    chan string // receives the key that became ready
	TimedOut chan struct{}
	index    int // heap index, -1 when not scheduled
}

// Manager tracks, per key, a FIFO queue of waiters, plus a global deadline
// heap for timeout sweeping.
type Manager struct {
	mu      sync.Mutex
	waiters map[string][]*Waiter // key -> FIFO queue of waiters blocked on it
	byID    map[uint64]*Waiter
	deadl   deadlineHeap
	nextID  uint64
}

func NewManager() *Manager {
	h := deadlineHeap{}
	heap.Init(&h)
	return &Manager{
		waiters: make(map[string][]*Waiter),
		byID:    make(map[uint64]*Waiter),
		deadl:   h,
	}
}

// Register enqueues a new waiter against the given keys (checked in the
// order supplied, matching BLPOP's left-to-right key priority) and arms its
// timeout if deadline is non-zero. The caller must have already confirmed,
// under the store's lock, that none of the keys currently hold data —
// otherwise a wakeup could be missed between the check and the register.
func (m *Manager) Register(keys []string, deadline time.Time) *Waiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	w := &Waiter{
		ID:       m.nextID,
		Keys:     keys,
		Deadline: deadline,
		Ready:    make(chan string, 1),
		TimedOut: make(chan struct{}, 1),
		index:    -1,
	}
	m.byID[w.ID] = w
	for _, k := range keys {
		m.waiters[k] = append(m.waiters[k], w)
	}
	if !deadline.IsZero() {
		heap.Push(&m.deadl, w)
	}
	return w
}

// Cancel removes a waiter from every queue it's enqueued in (used when a
// client disconnects, or after it's been woken/timed out) so it is never
// delivered to twice.
func (m *Manager) Cancel(w *Waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(w)
}

func (m *Manager) cancelLocked(w *Waiter) {
	delete(m.byID, w.ID)
	for _, k := range w.Keys {
		q := m.waiters[k]
		for i, qw := range q {
			if qw == w {
				q = append(q[:i], q[i+1:]...)
				break
			}
		}
		if len(q) == 0 {
			delete(m.waiters, k)
		} else {
			m.waiters[k] = q
		}
	}
	if w.index >= 0 {
		heap.Remove(&m.deadl, w.index)
	}
}

// OnEvent implements event.Subscriber: a data_added on key wakes every
// waiter currently queued on that key, in FIFO registration order (§4.E) —
// not just the oldest one. A push can add more than one value, and only
// waking a single waiter per event leaves the rest parked even though data
// they could consume is already in the container. Each woken waiter
// re-validates against the store itself when it retries (see
// blpopHandler/xreadHandler's Execute loops), so waking one that turns out
// to find nothing is harmless: it simply re-registers and waits again.
func (m *Manager) OnEvent(e event.Event) {
	if e.Kind != event.KindDataAdded {
		return
	}
	for m.WakeOne(e.Key) {
	}
}

// WakeOne pops the oldest waiter blocked on key (if any) and delivers key to
// it. Returns true iff a waiter was woken.
func (m *Manager) WakeOne(key string) bool {
	m.mu.Lock()
	q := m.waiters[key]
	if len(q) == 0 {
		m.mu.Unlock()
		return false
	}
	w := q[0]
	m.cancelLocked(w)
	m.mu.Unlock()

	select {
	case w.Ready <- key:
	default:
	}
	return true
}

// SweepTimeouts pops every waiter whose deadline is at or before now and
// signals its TimedOut channel. Intended to be called periodically from the
// scheduler package alongside store.SweepExpired.
func (m *Manager) SweepTimeouts(now time.Time) {
	m.mu.Lock()
	var fired []*Waiter
	for len(m.deadl) > 0 && !m.deadl[0].Deadline.After(now) {
		w := heap.Pop(&m.deadl).(*Waiter)
		delete(m.byID, w.ID)
		for _, k := range w.Keys {
			q := m.waiters[k]
			for i, qw := range q {
				if qw == w {
					q = append(q[:i], q[i+1:]...)
					break
				}
			}
			if len(q) == 0 {
				delete(m.waiters, k)
			} else {
				m.waiters[k] = q
			}
		}
		fired = append(fired, w)
	}
	m.mu.Unlock()

	for _, w := range fired {
		select {
		case w.TimedOut <- struct{}{}:
		default:
		}
	}
}

// --- deadline heap ----------------------------------------------------------

type deadlineHeap []*Waiter

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool { return h[i].Deadline.Before(h[j].Deadline) }

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x any) {
	w := x.(*Waiter)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	w.index = -1
	*h = old[:n-1]
	return w
}
