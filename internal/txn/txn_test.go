package txn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edirooss/vredis/internal/event"
)

func TestBeginEnqueueExecHappyPath(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	require.True(t, c.Begin())
	assert.False(t, c.Begin()) // already in MULTI

	c.Enqueue("SET", [][]byte{[]byte("k"), []byte("v")})
	c.Enqueue("GET", [][]byte{[]byte("k")})

	cmds, status, hadTxn := c.Exec()
	require.True(t, hadTxn)
	require.Equal(t, ExecOK, status)
	require.Len(t, cmds, 2)
	assert.Equal(t, "SET", cmds[0].Name)
	assert.False(t, c.InMulti())
}

func TestExecWithoutMultiReportsNoTxn(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	_, _, hadTxn := c.Exec()
	assert.False(t, hadTxn)
}

func TestDiscardClearsQueueAndWatches(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	c.Watch("k")
	require.True(t, c.Begin())
	c.Enqueue("SET", nil)
	assert.True(t, c.Discard())
	assert.False(t, c.Discard())

	// watch was cleared; a key change after discard must not dirty a future txn
	bus.KeyModified("k")
	require.True(t, c.Begin())
	_, status, _ := c.Exec()
	assert.Equal(t, ExecOK, status)
}

func TestWatchedKeyChangeDirtiesTransaction(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	c.Watch("k")
	bus.DataAdded("k") // mutation after WATCH, before MULTI
	require.True(t, c.Begin())
	c.Enqueue("GET", [][]byte{[]byte("k")})

	_, status, hadTxn := c.Exec()
	require.True(t, hadTxn)
	assert.Equal(t, ExecDirty, status, "watched key changed; EXEC must report dirty")
}

func TestWatchIsNoOpInsideMulti(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	require.True(t, c.Begin())
	c.Watch("k") // no-op per spec
	bus.DataAdded("k")
	_, status, _ := c.Exec()
	assert.Equal(t, ExecOK, status, "watch issued inside MULTI must not register")
}

func TestUnwatchClearsDirtyAndWatchSet(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	c.Watch("k")
	bus.DataAdded("k")
	c.Unwatch()

	require.True(t, c.Begin())
	_, status, _ := c.Exec()
	assert.Equal(t, ExecOK, status)
}

func TestOtherClientsWatchIsIndependent(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	a := mgr.NewClient()
	b := mgr.NewClient()

	a.Watch("k")
	b.Watch("other")

	bus.DataAdded("k")

	require.True(t, a.Begin())
	_, statusA, _ := a.Exec()
	assert.Equal(t, ExecDirty, statusA)

	require.True(t, b.Begin())
	_, statusB, _ := b.Exec()
	assert.Equal(t, ExecOK, statusB)
}

func TestMarkAbortOverridesDirtyAtExec(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	require.True(t, c.Begin())
	c.Enqueue("FOOBAR", nil)
	c.MarkAbort() // dispatcher would call this on an unknown command while queuing

	_, status, hadTxn := c.Exec()
	require.True(t, hadTxn)
	assert.Equal(t, ExecAborted, status)
}

func TestBeginResetsAbortFlagFromPriorTransaction(t *testing.T) {
	bus := event.New()
	mgr := NewManager(bus)
	c := mgr.NewClient()

	require.True(t, c.Begin())
	c.MarkAbort()
	_, status, _ := c.Exec()
	require.Equal(t, ExecAborted, status)

	require.True(t, c.Begin())
	c.Enqueue("GET", [][]byte{[]byte("k")})
	_, status, _ = c.Exec()
	assert.Equal(t, ExecOK, status, "abort flag must not leak into the next transaction")
}
