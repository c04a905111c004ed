package replication

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/edirooss/vredis/internal/command"
	"github.com/edirooss/vredis/internal/resp"
)

// State is a step in the replica-side handshake state machine (§4.I).
type State int

const (
	StateInitial State = iota
	StateConnecting
	StatePingSent
	StateReplConfPortSent
	StateReplConfCapaSent
	StatePsyncSent
	StateRdbReceiving
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateConnecting:
		return "connecting"
	case StatePingSent:
		return "ping-sent"
	case StateReplConfPortSent:
		return "replconf-port-sent"
	case StateReplConfCapaSent:
		return "replconf-capa-sent"
	case StatePsyncSent:
		return "psync-sent"
	case StateRdbReceiving:
		return "rdb-receiving"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// ReplicaLink drives this process's replica role: connect to a master,
// perform the handshake, and apply the propagated command stream to the
// local store. Per §9's resolved open question, commands received over this
// link are applied directly and never re-propagated or persisted — this
// link is the only writer standing between a master's stream and the local
// store's Compute calls.
type ReplicaLink struct {
	masterAddr string
	myPort     string
	dispatcher *command.Dispatcher
	ec         *command.ExecContext
	log        *zap.Logger

	state State
}

func NewReplicaLink(masterAddr, myPort string, dispatcher *command.Dispatcher, ec *command.ExecContext, log *zap.Logger) *ReplicaLink {
	return &ReplicaLink{
		masterAddr: masterAddr,
		myPort:     myPort,
		dispatcher: dispatcher,
		ec:         ec,
		log:        log,
		state:      StateInitial,
	}
}

// Run performs the handshake and then blocks, applying the propagated
// stream, until ctx is cancelled or the link drops. Callers that want
// automatic reconnection should call Run in a retry loop.
func (r *ReplicaLink) Run(ctx context.Context) error {
	r.state = StateConnecting
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", r.masterAddr)
	if err != nil {
		return fmt.Errorf("replica: dial master: %w", err)
	}
	defer conn.Close()

	bw := bufio.NewWriter(conn)
	br := bufio.NewReader(conn)

	if err := r.handshake(bw, br); err != nil {
		return fmt.Errorf("replica: handshake: %w", err)
	}

	r.state = StateActive
	r.log.Info("replica link active", zap.String("master", r.masterAddr))

	dec := resp.NewDecoder(0)
	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		args, ok, derr := dec.Next()
		if derr != nil {
			return derr
		}
		if !ok {
			dec.Compact()
			n, rerr := conn.Read(buf)
			if n > 0 {
				dec.Feed(buf[:n])
			}
			if rerr != nil {
				return rerr
			}
			continue
		}
		if len(args) == 0 {
			continue
		}
		r.dispatcher.Dispatch(ctx, r.ec, string(args[0]), args)
	}
}

func (r *ReplicaLink) handshake(bw *bufio.Writer, br *bufio.Reader) error {
	send := func(args ...string) error {
		frame := make([][]byte, len(args))
		for i, a := range args {
			frame[i] = []byte(a)
		}
		return resp.EncodeCommand(bw, frame)
	}
	readLine := func() (string, error) {
		line, _, err := br.ReadLine()
		return string(line), err
	}

	r.state = StatePingSent
	if err := send("PING"); err != nil {
		return err
	}
	if _, err := readLine(); err != nil {
		return err
	}

	r.state = StateReplConfPortSent
	if err := send("REPLCONF", "listening-port", r.myPort); err != nil {
		return err
	}
	if _, err := readLine(); err != nil {
		return err
	}

	r.state = StateReplConfCapaSent
	if err := send("REPLCONF", "capa", "eof", "capa", "psync2"); err != nil {
		return err
	}
	if _, err := readLine(); err != nil {
		return err
	}

	r.state = StatePsyncSent
	if err := send("PSYNC", "?", "-1"); err != nil {
		return err
	}
	if _, err := readLine(); err != nil { // +FULLRESYNC <replid> <offset>
		return err
	}

	r.state = StateRdbReceiving
	lenLine, err := readLine()
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(trimBulkLenPrefix(lenLine))
	if err != nil {
		return fmt.Errorf("replica: malformed RDB length %q", lenLine)
	}
	rdb := make([]byte, n)
	if _, err := readFull(br, rdb); err != nil {
		return err
	}
	return nil
}

func trimBulkLenPrefix(line string) string {
	if len(line) > 0 && line[0] == '$' {
		return line[1:]
	}
	return line
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := br.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
