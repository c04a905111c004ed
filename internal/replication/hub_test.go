package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edirooss/vredis/internal/resp"
)

func TestRingBufferWrapsAtCapacity(t *testing.T) {
	rb := newRingBuffer()
	for i := 0; i < backlogCap+5; i++ {
		rb.Append([]byte("x"))
	}
	assert.Equal(t, backlogCap, rb.Len())
	assert.True(t, rb.full)
	assert.Equal(t, int64(5), rb.base)
}

func TestRingBufferLenBeforeFull(t *testing.T) {
	rb := newRingBuffer()
	rb.Append([]byte("a"))
	rb.Append([]byte("b"))
	assert.Equal(t, 2, rb.Len())
	assert.False(t, rb.full)
}

type fakeReplicaWriter struct {
	id        int
	delivered []*resp.Message
}

func (f *fakeReplicaWriter) Deliver(m *resp.Message) error {
	f.delivered = append(f.delivered, m)
	return nil
}

func TestRegisterReplicaReturnsEmptyRDB(t *testing.T) {
	h := NewHub()
	w := &fakeReplicaWriter{id: 1}
	got := h.RegisterReplica(w)
	assert.Equal(t, emptyRDB, got)
}

func TestPropagateFansOutToRegisteredReplicas(t *testing.T) {
	h := NewHub()
	w1 := &fakeReplicaWriter{id: 1}
	w2 := &fakeReplicaWriter{id: 2}
	h.RegisterReplica(w1)
	h.RegisterReplica(w2)

	h.Propagate([][]byte{[]byte("SET"), []byte("k"), []byte("v")})

	require.Len(t, w1.delivered, 1)
	require.Len(t, w2.delivered, 1)
	assert.Equal(t, resp.KindRaw, w1.delivered[0].Kind)
}

func TestUnregisterStopsFutureDelivery(t *testing.T) {
	h := NewHub()
	w := &fakeReplicaWriter{id: 1}
	h.RegisterReplica(w)
	h.Unregister(w)

	h.Propagate([][]byte{[]byte("PING")})
	assert.Len(t, w.delivered, 0)
}

func TestInfoReportsMasterRoleAndSlaveCount(t *testing.T) {
	h := NewHub()
	h.RegisterReplica(&fakeReplicaWriter{id: 1})

	info := h.Info()
	assert.Equal(t, "master", info["role"])
	assert.Equal(t, "1", info["connected_slaves"])
	assert.NotEmpty(t, info["master_replid"])
}

func TestPropagateAdvancesOffset(t *testing.T) {
	h := NewHub()
	before := h.Info()["master_repl_offset"]
	h.Propagate([][]byte{[]byte("SET"), []byte("k"), []byte("v")})
	after := h.Info()["master_repl_offset"]
	assert.NotEqual(t, before, after)
}
