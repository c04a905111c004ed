// Package server wires the store and its satellite managers into a running
// TCP listener, following the teacher's Start/Stop lifecycle shape
// (internal/infrastructure/processmgr.ProcessManager) but built around
// golang.org/x/sync/errgroup for goroutine supervision instead of a raw
// sync.WaitGroup, matching the pack's preference for errgroup over hand-
// rolled fan-in where error propagation matters.
package server

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/edirooss/vredis/internal/blocking"
	"github.com/edirooss/vredis/internal/command"
	"github.com/edirooss/vredis/internal/config"
	"github.com/edirooss/vredis/internal/conn"
	"github.com/edirooss/vredis/internal/event"
	"github.com/edirooss/vredis/internal/persistence"
	"github.com/edirooss/vredis/internal/pubsub"
	"github.com/edirooss/vredis/internal/replication"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/scheduler"
	"github.com/edirooss/vredis/internal/store"
	"github.com/edirooss/vredis/internal/txn"
)

// Server owns every shared component and the accept loop.
type Server struct {
	cfg *config.Config
	log *zap.Logger

	store    *store.Store
	bus      *event.Bus
	blocking *blocking.Manager
	txnMgr   *txn.Manager
	pubsub   *pubsub.Registry
	repl     *replication.Hub
	aof      *persistence.AppendOnlyLog
	ticker   *scheduler.Ticker

	dispatcher *command.Dispatcher
	base       command.ExecContext

	// connSem bounds concurrent connections at cfg.MaxConnections, the same
	// counting-semaphore admission-control role the teacher's processmgr
	// slotPool plays for process slots.
	connSem *semaphore.Weighted

	listener net.Listener
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// New constructs a Server with every component wired: the store reports
// mutations to the bus, which the blocking manager and transaction manager
// both subscribe to independently (§9 design notes).
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	bus := event.New()
	st := store.New(bus, nowMillis)
	blockMgr := blocking.NewManager()
	bus.Subscribe(blockMgr)
	txnMgr := txn.NewManager(bus)
	pubsubReg := pubsub.NewRegistry()
	repl := replication.NewHub()

	var aof *persistence.AppendOnlyLog
	if cfg.AOFPath != "" {
		a, err := persistence.OpenAppendOnlyLog(cfg.AOFPath)
		if err != nil {
			return nil, err
		}
		aof = a
		repl.SetAOF(aof)
	}

	reg := command.NewRegistry()
	command.RegisterAll(reg)
	dispatcher := command.NewDispatcher(reg)

	base := command.ExecContext{
		Store:      st,
		Bus:        bus,
		Blocking:   blockMgr,
		Txn:        txnMgr,
		PubSub:     pubsubReg,
		Repl:       repl,
		Now:        nowMillis,
		Dispatcher: dispatcher,
	}

	return &Server{
		cfg:        cfg,
		log:        log,
		store:      st,
		bus:        bus,
		blocking:   blockMgr,
		txnMgr:     txnMgr,
		pubsub:     pubsubReg,
		repl:       repl,
		aof:        aof,
		ticker:     scheduler.NewTicker(st, blockMgr, cfg.SweepInterval, cfg.SweepSampleSize, log),
		dispatcher: dispatcher,
		base:       base,
		connSem:    semaphore.NewWeighted(cfg.MaxConnections),
	}, nil
}

// Run starts the listener, the background sweeper, and (if configured) the
// replica link, then blocks until ctx is cancelled or a fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.AOFPath != "" {
		replayEC := s.base
		replayEC.Repl = nil // commands replayed from our own log must not re-propagate
		replayEC.Client = command.NewClientState(0, s.txnMgr.NewClient(), discardWriter{})
		if err := persistence.Replay(s.cfg.AOFPath, func(args [][]byte) {
			s.dispatcher.Dispatch(ctx, &replayEC, string(args[0]), args)
		}); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info("listening", zap.String("addr", s.cfg.ListenAddr))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.ticker.Run(gctx)
		return nil
	})

	if s.cfg.ReplicaOf != "" {
		g.Go(func() error {
			return s.runReplicaLink(gctx)
		})
	}

	g.Go(func() error {
		return s.acceptLoop(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		_ = ln.Close()
		return nil
	})

	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		// Block admitting a new connection until a slot frees up, the same
		// backpressure the teacher's slotPool applies to process spawns.
		if err := s.connSem.Acquire(ctx, 1); err != nil {
			return nil
		}
		c, err := s.listener.Accept()
		if err != nil {
			s.connSem.Release(1)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		go s.handleConn(ctx, c)
	}
}

func (s *Server) handleConn(ctx context.Context, c net.Conn) {
	defer s.connSem.Release(1)
	deps := conn.Deps{
		Dispatcher: s.dispatcher,
		TxnMgr:     s.txnMgr,
		PubSub:     s.pubsub,
		Base:       s.base,
		MaxBulkLen: s.cfg.MaxBulkLen,
		Logger:     s.log,
		Debug:      s.cfg.Debug,
	}
	client := conn.NewClient(c, deps)
	client.Serve(ctx)
}

func (s *Server) runReplicaLink(ctx context.Context) error {
	replicaEC := s.base
	replicaEC.Repl = nil // never re-propagate what the master already sent
	replicaEC.Client = command.NewClientState(0, s.txnMgr.NewClient(), discardWriter{})

	_, myPort, _ := net.SplitHostPort(s.cfg.ListenAddr)
	link := replication.NewReplicaLink(s.cfg.ReplicaOf, myPort, s.dispatcher, &replicaEC, s.log.Named("replica"))

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := link.Run(ctx); err != nil {
			s.log.Warn("replica link dropped", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

// discardWriter satisfies command.MessageWriter for the synthetic replica-
// apply client, which never needs to push anything back to a master.
type discardWriter struct{}

func (discardWriter) Deliver(*resp.Message) error { return nil }
