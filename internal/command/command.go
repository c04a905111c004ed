// Package command implements the dispatcher and handler registry described
// in §4.G: arity/category checks, MULTI queuing, subscribe-mode
// restriction, and execution against the shared store and its satellite
// managers.
package command

import (
	"context"
	"strings"
	"sync"

	"github.com/edirooss/vredis/internal/blocking"
	"github.com/edirooss/vredis/internal/errs"
	"github.com/edirooss/vredis/internal/event"
	"github.com/edirooss/vredis/internal/pubsub"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/store"
	"github.com/edirooss/vredis/internal/txn"
)

// Category classifies a command for the dispatch rules in §4.G.
type Category int

const (
	CategoryRead Category = iota
	CategoryWrite
	CategoryBlocking
	CategoryTxnControl
	CategoryPubSub
	CategoryAdmin
	CategoryConnection
)

// Handler implements one command. Arity follows the redis convention:
// a positive value is exact argc (including the command name itself),
// a negative value is a minimum.
type Handler interface {
	Name() string
	Arity() int
	Category() Category
	Execute(ctx context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error)
}

// ConditionalBlocker is implemented by handlers whose blocking behavior
// depends on the arguments of a given call, unlike a command such as BLPOP
// that always blocks. XREAD only parks on ec.Blocking when called with
// BLOCK; Category() alone can't express that, so the dispatcher consults
// IsBlocking before deciding whether the MULTI-queuing guard applies.
type ConditionalBlocker interface {
	IsBlocking(args [][]byte) bool
}

// effectiveCategory returns h.Category(), upgraded to CategoryBlocking if h
// is a ConditionalBlocker and this particular call would actually block.
func effectiveCategory(h Handler, args [][]byte) Category {
	if cb, ok := h.(ConditionalBlocker); ok && cb.IsBlocking(args) {
		return CategoryBlocking
	}
	return h.Category()
}

// MessageWriter delivers an out-of-band message (pub/sub push, replication
// stream data) to a connection without going through the normal
// request/response cycle.
type MessageWriter interface {
	Deliver(m *resp.Message) error
}

// ClientState is the per-connection state a handler may read or mutate:
// transaction state, subscription bookkeeping, and replica-link flag.
type ClientState struct {
	ID       uint64
	Txn      *txn.ClientState
	IsReplica bool
	Writer   MessageWriter

	mu       sync.Mutex
	channels map[string]struct{}
	patterns map[string]struct{}
}

func NewClientState(id uint64, txnState *txn.ClientState, w MessageWriter) *ClientState {
	return &ClientState{
		ID:       id,
		Txn:      txnState,
		Writer:   w,
		channels: make(map[string]struct{}),
		patterns: make(map[string]struct{}),
	}
}

func (c *ClientState) SubscriberID() uint64 { return c.ID }

func (c *ClientState) DeliverMessage(channel string, payload []byte) {
	_ = c.Writer.Deliver(resp.Array(resp.BulkString("message"), resp.BulkString(channel), resp.Bulk(payload)))
}

func (c *ClientState) DeliverPatternMessage(pattern, channel string, payload []byte) {
	_ = c.Writer.Deliver(resp.Array(resp.BulkString("pmessage"), resp.BulkString(pattern), resp.BulkString(channel), resp.Bulk(payload)))
}

func (c *ClientState) AddChannel(ch string) {
	c.mu.Lock()
	c.channels[ch] = struct{}{}
	c.mu.Unlock()
}

func (c *ClientState) RemoveChannel(ch string) {
	c.mu.Lock()
	delete(c.channels, ch)
	c.mu.Unlock()
}

func (c *ClientState) AddPattern(p string) {
	c.mu.Lock()
	c.patterns[p] = struct{}{}
	c.mu.Unlock()
}

func (c *ClientState) RemovePattern(p string) {
	c.mu.Lock()
	delete(c.patterns, p)
	c.mu.Unlock()
}

// Channels returns a snapshot of subscribed channel names.
func (c *ClientState) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// Patterns returns a snapshot of subscribed pattern names.
func (c *ClientState) Patterns() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.patterns))
	for p := range c.patterns {
		out = append(out, p)
	}
	return out
}

// SubscriptionCount is the total channel+pattern subscription count, used to
// decide whether the connection has left subscribe-only mode.
func (c *ClientState) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels) + len(c.patterns)
}

// ExecContext bundles everything a handler needs to run: the shared store
// and its satellite managers, plus the calling client's per-connection
// state. One ExecContext is built per connection and reused across that
// connection's commands; Client is swapped out per call only in tests.
type ExecContext struct {
	Store    *store.Store
	Bus      *event.Bus
	Blocking *blocking.Manager
	Txn      *txn.Manager
	PubSub   *pubsub.Registry
	Repl     ReplicationHub
	Client   *ClientState
	Now      func() int64
	// Dispatcher lets EXEC re-enter dispatch for each queued command. Set by
	// NewDispatcher's caller after both are constructed.
	Dispatcher *Dispatcher
}

// ReplicationHub is the subset of the replication package's Hub that command
// handlers need — kept as an interface here to avoid command depending on
// replication's net/TCP machinery.
type ReplicationHub interface {
	Propagate(args [][]byte)
	RegisterReplica(w MessageWriter) (fullresyncPayload []byte)
	SetReplConf(w MessageWriter, key, value string)
	Unregister(w MessageWriter)
	Info() map[string]string
}

// Registry is the name → Handler lookup table.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) {
	r.handlers[strings.ToUpper(h.Name())] = h
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[strings.ToUpper(name)]
	return h, ok
}

// subscribeModeAllowed is the fixed allow-list from §4.G step 2: inside
// subscribe mode only (P)SUBSCRIBE, (P)UNSUBSCRIBE, PING and QUIT may run.
func subscribeModeAllowed(name string) bool {
	switch strings.ToUpper(name) {
	case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE", "PING", "QUIT":
		return true
	default:
		return false
	}
}

// isTxnControl reports whether a command category bypasses MULTI queuing
// entirely — such commands manage the transaction itself rather than being
// subject to it.
func isTxnControl(cat Category) bool { return cat == CategoryTxnControl }

// Dispatcher applies §4.G's ordering: unknown command -> arity -> pub/sub
// restriction -> MULTI queuing -> execution.
type Dispatcher struct {
	reg *Registry
}

func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Outcome distinguishes a normal reply from "queued inside MULTI", since the
// caller (conn) needs to know whether to also feed the command into
// replication/AOF propagation.
type Outcome struct {
	Reply   *resp.Message
	Queued  bool
	Mutated bool // true if the command is categorized as a write and executed (not merely queued)
}

func (d *Dispatcher) Dispatch(ctx context.Context, ec *ExecContext, name string, args [][]byte) Outcome {
	h, ok := d.reg.Lookup(name)
	if !ok {
		// A structural error hit while queuing doesn't fail the command
		// outright — it flags the whole transaction abort-at-exec (§4.F).
		if ec.Client.Txn.InMulti() {
			ec.Client.Txn.MarkAbort()
		}
		return Outcome{Reply: resp.Error(errs.ErrFor(errs.ErrUnknownCommand).Error())}
	}

	if !arityOK(h.Arity(), len(args)) {
		if ec.Client.Txn.InMulti() {
			ec.Client.Txn.MarkAbort()
		}
		return Outcome{Reply: resp.Error(errs.WrongArity(strings.ToLower(name)).Error())}
	}

	if ec.Client.SubscriptionCount() > 0 && !subscribeModeAllowed(name) {
		return Outcome{Reply: resp.Error(errs.ErrFor(errs.ErrPubSubContext).Error())}
	}

	cat := effectiveCategory(h, args)
	if ec.Client.Txn.InMulti() && !isTxnControl(cat) {
		if cat == CategoryBlocking {
			return Outcome{Reply: resp.Error(errs.Err("%s %s", strings.ToUpper(name), errs.ErrBlockingInTxn.Error()).Error())}
		}
		ec.Client.Txn.Enqueue(strings.ToUpper(name), args)
		return Outcome{Reply: resp.Simple("QUEUED"), Queued: true}
	}

	reply, err := h.Execute(ctx, ec, args)
	if err != nil {
		return Outcome{Reply: errToMessage(err)}
	}
	return Outcome{Reply: reply, Mutated: h.Category() == CategoryWrite}
}

func arityOK(arity, argc int) bool {
	if arity >= 0 {
		return argc == arity
	}
	return argc >= -arity
}

func errToMessage(err error) *resp.Message {
	if we, ok := err.(interface{ Error() string }); ok {
		return resp.Error(we.Error())
	}
	return resp.Error(err.Error())
}
