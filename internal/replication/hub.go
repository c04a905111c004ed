// Package replication implements the master side of the replication link
// (§4.I): replica registration, full-resync framing, and write propagation
// over a backlog ring buffer adapted from the teacher's processmgr log
// buffer. The replica (slave) side's handshake state machine lives in
// client.go.
package replication

import (
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/edirooss/vredis/internal/command"
	"github.com/edirooss/vredis/internal/persistence"
	"github.com/edirooss/vredis/internal/resp"
)

// emptyRDB is the minimal 18-byte RDB payload sent on every FULLRESYNC: the
// "REDIS0011" magic/version header plus an EOF opcode and an 8-byte
// (unchecked) checksum, per §9's resolved open question — this server never
// persists real keyspace snapshots, so every resync starts a replica from
// an empty dataset and lets command propagation repopulate it.
var emptyRDB = []byte{
	'R', 'E', 'D', 'I', 'S', '0', '0', '1', '1',
	0xFF, // EOF opcode
	0, 0, 0, 0, 0, 0, 0, 0, // checksum (unchecked)
}

type replicaConn struct {
	w        command.MessageWriter
	port     string
	capa     []string
}

// Hub tracks connected replicas and propagates writes to each of them.
type Hub struct {
	mu       sync.RWMutex
	replicas map[command.MessageWriter]*replicaConn
	backlog  *ringBuffer
	replid   string
	offset   int64
	aof      *persistence.AppendOnlyLog
}

// SetAOF attaches an append-only log; once set, every propagated write is
// also appended to it before being fanned out to replicas.
func (h *Hub) SetAOF(aof *persistence.AppendOnlyLog) {
	h.mu.Lock()
	h.aof = aof
	h.mu.Unlock()
}

func NewHub() *Hub {
	return &Hub{
		replicas: make(map[command.MessageWriter]*replicaConn),
		backlog:  newRingBuffer(),
		replid:   uuid.NewString(),
	}
}

// RegisterReplica records w as a replica sink and returns the RDB payload to
// send as the body of the FULLRESYNC response.
func (h *Hub) RegisterReplica(w command.MessageWriter) []byte {
	h.mu.Lock()
	h.replicas[w] = &replicaConn{w: w}
	h.mu.Unlock()
	return emptyRDB
}

// SetReplConf records a REPLCONF parameter reported by a connecting replica.
func (h *Hub) SetReplConf(w command.MessageWriter, key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rc, ok := h.replicas[w]
	if !ok {
		rc = &replicaConn{w: w}
		h.replicas[w] = rc
	}
	switch key {
	case "LISTENING-PORT":
		rc.port = value
	case "CAPA":
		rc.capa = append(rc.capa, value)
	}
}

// Unregister drops a replica link, e.g. on disconnect.
func (h *Hub) Unregister(w command.MessageWriter) {
	h.mu.Lock()
	delete(h.replicas, w)
	h.mu.Unlock()
}

// Propagate re-serializes a write command and forwards it to every
// registered replica, appending it to the backlog first.
func (h *Hub) Propagate(args [][]byte) {
	frame := resp.EncodeCommandToBytes(args)
	h.backlog.Append(frame)

	h.mu.Lock()
	h.offset += int64(len(frame))
	aof := h.aof
	replicas := make([]command.MessageWriter, 0, len(h.replicas))
	for w := range h.replicas {
		replicas = append(replicas, w)
	}
	h.mu.Unlock()

	if aof != nil {
		_ = aof.Append(args)
	}

	msg := resp.Preformatted(frame)
	for _, w := range replicas {
		_ = w.Deliver(msg)
	}
}

// Info reports replication status fields for the INFO command.
func (h *Hub) Info() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]string{
		"role":                "master",
		"connected_slaves":    strconv.Itoa(len(h.replicas)),
		"master_replid":       h.replid,
		"master_repl_offset":  strconv.FormatInt(h.offset, 10),
	}
}
