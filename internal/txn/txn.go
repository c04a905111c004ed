// Package txn implements MULTI/EXEC/WATCH/DISCARD/UNWATCH transaction state
// (§4.F). Invalidation is push-based: the manager subscribes to the shared
// event.Bus and flags a client's transaction dirty the moment any watched
// key changes, rather than EXEC re-reading every watched key's version
// (avoiding the store ↔ blocking-manager style back-reference the design
// notes in spec.md §9 call out, mirrored here for WATCH).
package txn

import (
	"sync"

	"github.com/edirooss/vredis/internal/event"
)

// QueuedCommand is one command buffered between MULTI and EXEC.
type QueuedCommand struct {
	Name string
	Args [][]byte
}

// ExecStatus reports the outcome of Exec's queue-validity check.
type ExecStatus int

const (
	// ExecOK means the queue is intact and should run.
	ExecOK ExecStatus = iota
	// ExecDirty means a watched key changed; EXEC replies with a null array
	// and runs nothing.
	ExecDirty
	// ExecAborted means a structural error (unknown command or wrong arity)
	// was hit while queuing; EXEC replies EXECABORT and runs nothing (§4.F).
	ExecAborted
)

// ClientState is the per-connection transaction state.
type ClientState struct {
	mgr     *Manager
	mu      sync.Mutex
	inMulti bool
	dirty   bool
	abort   bool
	queue   []QueuedCommand
	watched map[string]struct{}
}

func newClientState(mgr *Manager) *ClientState {
	return &ClientState{mgr: mgr, watched: make(map[string]struct{})}
}

func (c *ClientState) InMulti() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inMulti
}

// Begin starts MULTI. Returns false if already in a transaction.
func (c *ClientState) Begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inMulti {
		return false
	}
	c.inMulti = true
	c.queue = c.queue[:0]
	c.abort = false
	return true
}

// Enqueue buffers cmd while inside MULTI. Caller must have checked InMulti.
func (c *ClientState) Enqueue(name string, args [][]byte) {
	c.mu.Lock()
	c.queue = append(c.queue, QueuedCommand{Name: name, Args: args})
	c.mu.Unlock()
}

// MarkAbort flags the in-progress transaction as abort-at-exec. Called by the
// dispatcher when a structural error (unknown command, wrong arity) is hit
// while queuing, per §4.F: such errors don't fail the MULTI block outright,
// but EXEC must then refuse to run any of the queued commands.
func (c *ClientState) MarkAbort() {
	c.mu.Lock()
	c.abort = true
	c.mu.Unlock()
}

// Discard clears transaction state without executing. Returns false if no
// transaction was open.
func (c *ClientState) Discard() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inMulti {
		return false
	}
	c.inMulti = false
	c.queue = nil
	c.dirty = false
	c.abort = false
	c.mgr.unwatchAll(c)
	return true
}

// Exec ends the transaction and returns the queued commands to run, the
// queue's validity status, and whether a transaction was actually open.
func (c *ClientState) Exec() ([]QueuedCommand, ExecStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inMulti {
		return nil, ExecOK, false
	}
	cmds := c.queue
	status := ExecOK
	switch {
	case c.abort:
		status = ExecAborted
	case c.dirty:
		status = ExecDirty
	}
	c.inMulti = false
	c.queue = nil
	c.dirty = false
	c.abort = false
	c.mgr.unwatchAll(c)
	return cmds, status, true
}

// Watch registers interest in key. A no-op once inside MULTI (the WATCH
// command handler rejects that case with an error before calling here).
func (c *ClientState) Watch(key string) {
	c.mu.Lock()
	if c.inMulti {
		c.mu.Unlock()
		return
	}
	c.watched[key] = struct{}{}
	c.mu.Unlock()
	c.mgr.watch(c, key)
}

// Unwatch clears all watched keys outside a transaction.
func (c *ClientState) Unwatch() {
	c.mu.Lock()
	c.watched = make(map[string]struct{})
	c.dirty = false
	c.mu.Unlock()
	c.mgr.unwatchAll(c)
}

func (c *ClientState) markDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Manager owns the key → watching-clients index and subscribes to the
// store's event bus to learn of mutations.
type Manager struct {
	mu       sync.Mutex
	watchers map[string]map[*ClientState]struct{}
}

func NewManager(bus *event.Bus) *Manager {
	m := &Manager{watchers: make(map[string]map[*ClientState]struct{})}
	bus.Subscribe(m)
	return m
}

// NewClient creates transaction state for a fresh connection.
func (m *Manager) NewClient() *ClientState {
	return newClientState(m)
}

func (m *Manager) watch(c *ClientState, key string) {
	m.mu.Lock()
	set, ok := m.watchers[key]
	if !ok {
		set = make(map[*ClientState]struct{})
		m.watchers[key] = set
	}
	set[c] = struct{}{}
	m.mu.Unlock()
}

func (m *Manager) unwatchAll(c *ClientState) {
	m.mu.Lock()
	for key := range c.watched {
		if set, ok := m.watchers[key]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(m.watchers, key)
			}
		}
	}
	m.mu.Unlock()
}

// OnEvent implements event.Subscriber: any add/remove/modify on a watched
// key marks every watching client's transaction dirty.
func (m *Manager) OnEvent(e event.Event) {
	m.mu.Lock()
	set, ok := m.watchers[e.Key]
	if !ok {
		m.mu.Unlock()
		return
	}
	clients := make([]*ClientState, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		c.markDirty()
	}
}
