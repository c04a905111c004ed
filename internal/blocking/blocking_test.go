package blocking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edirooss/vredis/internal/event"
)

func TestWakeOneDeliversToOldestWaiterFIFO(t *testing.T) {
	m := NewManager()
	w1 := m.Register([]string{"k"}, time.Time{})
	w2 := m.Register([]string{"k"}, time.Time{})

	woke := m.WakeOne("k")
	require.True(t, woke)

	select {
	case key := <-w1.Ready:
		assert.Equal(t, "k", key)
	default:
		t.Fatal("expected w1 to be woken first")
	}

	select {
	case <-w2.Ready:
		t.Fatal("w2 should not have been woken")
	default:
	}

	woke = m.WakeOne("k")
	require.True(t, woke)
	select {
	case key := <-w2.Ready:
		assert.Equal(t, "k", key)
	default:
		t.Fatal("expected w2 to be woken second")
	}
}

func TestWakeOneOnEmptyQueueReturnsFalse(t *testing.T) {
	m := NewManager()
	assert.False(t, m.WakeOne("nosuch"))
}

func TestOnEventOnlyWakesForDataAdded(t *testing.T) {
	m := NewManager()
	w := m.Register([]string{"k"}, time.Time{})

	m.OnEvent(event.Event{Kind: event.KindDataRemoved, Key: "k"})
	select {
	case <-w.Ready:
		t.Fatal("should not wake on data_removed")
	default:
	}

	m.OnEvent(event.Event{Kind: event.KindDataAdded, Key: "k"})
	select {
	case <-w.Ready:
	default:
		t.Fatal("should wake on data_added")
	}
}

func TestOnEventDrainsEveryQueuedWaiterNotJustOne(t *testing.T) {
	m := NewManager()
	w1 := m.Register([]string{"k"}, time.Time{})
	w2 := m.Register([]string{"k"}, time.Time{})
	w3 := m.Register([]string{"k"}, time.Time{})

	// a single data_added event (e.g. one RPUSH adding several values, or
	// simply several clients parked on a key that just got data) must wake
	// every waiter queued on the key, in FIFO order, not just the first.
	m.OnEvent(event.Event{Kind: event.KindDataAdded, Key: "k"})

	for i, w := range []*Waiter{w1, w2, w3} {
		select {
		case key := <-w.Ready:
			assert.Equal(t, "k", key)
		default:
			t.Fatalf("waiter %d was not woken", i)
		}
	}

	assert.False(t, m.WakeOne("k"), "queue should be fully drained")
}

func TestCancelRemovesWaiterFromAllQueuedKeys(t *testing.T) {
	m := NewManager()
	w := m.Register([]string{"a", "b"}, time.Time{})
	m.Cancel(w)
	assert.False(t, m.WakeOne("a"))
	assert.False(t, m.WakeOne("b"))
}

func TestSweepTimeoutsFiresExpiredWaitersOnly(t *testing.T) {
	m := NewManager()
	past := time.Now().Add(-time.Second)
	future := time.Now().Add(time.Hour)

	expired := m.Register([]string{"k1"}, past)
	alive := m.Register([]string{"k2"}, future)

	m.SweepTimeouts(time.Now())

	select {
	case <-expired.TimedOut:
	default:
		t.Fatal("expected expired waiter to time out")
	}

	select {
	case <-alive.TimedOut:
		t.Fatal("alive waiter should not have timed out")
	default:
	}

	// the timed-out waiter must also be gone from its key's FIFO queue
	assert.False(t, m.WakeOne("k1"))
}

func TestRegisterForeverBlockDoesNotArmTimeout(t *testing.T) {
	m := NewManager()
	w := m.Register([]string{"k"}, time.Time{})
	m.SweepTimeouts(time.Now().Add(time.Hour * 24 * 365))
	select {
	case <-w.TimedOut:
		t.Fatal("zero-deadline waiter must never time out")
	default:
	}
}
