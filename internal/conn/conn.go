// Package conn implements the per-connection client: a goroutine reading
// RESP request frames off the socket, dispatching them, and writing back
// replies — plus an independent write path for pushed messages (pub/sub,
// replication stream). The teacher's HTTP handlers are all short-lived
// per-request; here the analogous unit of concurrency is "one goroutine per
// TCP connection, blocking I/O for natural backpressure" (matching the
// plain net.Listener accept loop the teacher's cmd/zmux-server/main.go
// drives, generalized to a persistent duplex connection).
package conn

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/edirooss/vredis/internal/command"
	"github.com/edirooss/vredis/internal/pubsub"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/txn"
)

var nextClientID uint64

// Client owns one TCP connection's lifecycle: decoding requests, dispatching
// them, and serializing replies and asynchronous pushes onto a single
// writer so the two paths never interleave mid-frame.
type Client struct {
	id     uint64
	conn   net.Conn
	dec    *resp.Decoder
	bw     *bufio.Writer
	writeMu sync.Mutex

	log *zap.Logger

	state *command.ClientState
	ec    *command.ExecContext
	debug bool

	closed atomic.Bool
}

// Deps bundles the shared server-wide components a connection dispatches
// against.
type Deps struct {
	Dispatcher *command.Dispatcher
	TxnMgr     *txn.Manager
	PubSub     *pubsub.Registry
	Base       command.ExecContext // Store/Bus/Blocking/Repl/Now prefilled; Client/Dispatcher overwritten per-conn
	MaxBulkLen int
	Logger     *zap.Logger
	Debug      bool // spew-dump parsed args at trace level when set
}

func NewClient(c net.Conn, deps Deps) *Client {
	id := atomic.AddUint64(&nextClientID, 1)
	cl := &Client{
		id:  id,
		conn: c,
		dec:   resp.NewDecoder(deps.MaxBulkLen),
		bw:    bufio.NewWriter(c),
		log:   deps.Logger.With(zap.Uint64("client_id", id)),
		debug: deps.Debug,
	}
	cl.state = command.NewClientState(id, deps.TxnMgr.NewClient(), cl)
	ec := deps.Base
	ec.Client = cl.state
	ec.Dispatcher = deps.Dispatcher
	cl.ec = &ec
	return cl
}

// Deliver implements command.MessageWriter: used for pub/sub pushes and the
// replication stream, serialized against the normal reply path.
func (c *Client) Deliver(m *resp.Message) error {
	if c.closed.Load() {
		return errors.New("connection closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return resp.Encode(c.bw, m)
}

// Serve runs the read/dispatch loop until the connection closes or ctx is
// cancelled. It never returns an error the caller must act on beyond
// logging — a closed connection is a normal outcome.
func (c *Client) Serve(ctx context.Context) {
	defer c.cleanup()

	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return
		}
		args, ok, err := c.dec.Next()
		if err != nil {
			c.writeErr(err)
			return
		}
		if !ok {
			c.dec.Compact()
			n, rerr := c.conn.Read(buf)
			if n > 0 {
				c.dec.Feed(buf[:n])
			}
			if rerr != nil {
				return
			}
			continue
		}
		if len(args) == 0 {
			continue
		}
		c.handle(ctx, args)
		if strings.EqualFold(string(args[0]), "QUIT") {
			c.flush()
			return
		}
	}
}

func (c *Client) handle(ctx context.Context, args [][]byte) {
	name := string(args[0])
	if c.debug {
		c.log.Debug("dispatching command", zap.String("name", name), zap.String("args", spew.Sdump(args)))
	}
	out := c.ec.Dispatcher.Dispatch(ctx, c.ec, name, args)

	if out.Mutated && c.ec.Repl != nil {
		c.ec.Repl.Propagate(args)
	}

	if out.Reply == nil {
		c.flush()
		return
	}
	c.writeMu.Lock()
	_ = resp.Encode(c.bw, out.Reply) // Encode flushes
	c.writeMu.Unlock()
}

func (c *Client) flush() {
	c.writeMu.Lock()
	_ = c.bw.Flush()
	c.writeMu.Unlock()
}

func (c *Client) writeErr(err error) {
	c.log.Debug("protocol error, closing connection", zap.Error(err))
	c.writeMu.Lock()
	_ = resp.Encode(c.bw, resp.Error(err.Error()))
	c.writeMu.Unlock()
}

func (c *Client) cleanup() {
	c.closed.Store(true)
	c.ec.PubSub.UnsubscribeAll(c.state)
	c.state.Txn.Discard()
	c.state.Txn.Unwatch()
	if c.ec.Repl != nil {
		c.ec.Repl.Unregister(c)
	}
	_ = c.conn.Close()
}
