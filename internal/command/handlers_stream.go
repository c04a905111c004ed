package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/edirooss/vredis/internal/container/stream"
	"github.com/edirooss/vredis/internal/errs"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/store"
)

type xaddHandler struct{}

func (xaddHandler) Name() string       { return "XADD" }
func (xaddHandler) Arity() int         { return -5 }
func (xaddHandler) Category() Category { return CategoryWrite }
func (xaddHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	key := string(args[1])
	idSpec := string(args[2])
	fieldArgs := args[3:]
	if len(fieldArgs)%2 != 0 {
		return nil, errs.Err("wrong number of arguments for 'xadd' command")
	}
	fields := make([]stream.Field, 0, len(fieldArgs)/2)
	for i := 0; i < len(fieldArgs); i += 2 {
		fields = append(fields, stream.Field{Name: string(fieldArgs[i]), Value: string(fieldArgs[i+1])})
	}

	var newID stream.ID
	_, _, err := ec.Store.Compute(key, func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
		var s *stream.Stream
		exp := store.Never()
		if exists {
			if cur.Kind != store.KindStream {
				return nil, false, errs.Wrong()
			}
			s = cur.Stream
			exp = cur.Expiry
		} else {
			s = stream.New()
		}
		id, err := s.ResolveID(idSpec, uint64(ec.Now()))
		if err != nil {
			return nil, false, err
		}
		if err := s.Append(id, fields); err != nil {
			return nil, false, err
		}
		newID = id
		return store.NewStream(s, exp), true, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.BulkString(newID.String()), nil
}

type xrangeHandler struct{}

func (xrangeHandler) Name() string       { return "XRANGE" }
func (xrangeHandler) Arity() int         { return -4 }
func (xrangeHandler) Category() Category { return CategoryRead }
func (xrangeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	start, err := stream.ParseRangeID(string(args[2]), 0)
	if err != nil {
		return nil, err
	}
	end, err := stream.ParseRangeID(string(args[3]), ^uint64(0))
	if err != nil {
		return nil, err
	}
	count := -1
	if len(args) >= 6 && strings.EqualFold(string(args[4]), "COUNT") {
		n, perr := strconv.Atoi(string(args[5]))
		if perr != nil {
			return nil, errs.ErrFor(errs.ErrNotInteger)
		}
		count = n
	}

	e, ok, err := ec.Store.GetStream(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.ArrayOf(nil), nil
	}
	entries := e.Stream.Range(start, end, count)
	return entriesToMessage(entries), nil
}

func entriesToMessage(entries []stream.Entry) *resp.Message {
	items := make([]*resp.Message, len(entries))
	for i, e := range entries {
		fieldItems := make([]*resp.Message, 0, len(e.Fields)*2)
		for _, f := range e.Fields {
			fieldItems = append(fieldItems, resp.BulkString(f.Name), resp.BulkString(f.Value))
		}
		items[i] = resp.Array(resp.BulkString(e.ID.String()), resp.ArrayOf(fieldItems))
	}
	return resp.ArrayOf(items)
}

type xreadHandler struct{}

func (xreadHandler) Name() string       { return "XREAD" }
func (xreadHandler) Arity() int         { return -4 }
func (xreadHandler) Category() Category { return CategoryRead }

// IsBlocking implements ConditionalBlocker: only a call with a BLOCK option
// actually parks on ec.Blocking; a plain XREAD is a straight read.
func (xreadHandler) IsBlocking(args [][]byte) bool {
	for i := 1; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "BLOCK":
			return true
		case "STREAMS":
			return false
		}
	}
	return false
}
func (xreadHandler) Execute(ctx context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	i := 1
	count := -1
	var blockMs int64 = -1
	for i < len(args) {
		switch strings.ToUpper(string(args[i])) {
		case "COUNT":
			n, err := strconv.Atoi(string(args[i+1]))
			if err != nil {
				return nil, errs.ErrFor(errs.ErrNotInteger)
			}
			count = n
			i += 2
		case "BLOCK":
			ms, err := strconv.ParseInt(string(args[i+1]), 10, 64)
			if err != nil {
				return nil, errs.ErrFor(errs.ErrNotInteger)
			}
			blockMs = ms
			i += 2
		case "STREAMS":
			i++
			goto streamsParsed
		default:
			return nil, errs.Err("syntax error")
		}
	}
streamsParsed:
	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, errs.Err("Unbalanced XREAD list of streams: for each stream key an ID or '$' must be specified.")
	}
	n := len(rest) / 2
	keys := make([]string, n)
	ids := make([]stream.ID, n)
	for j := 0; j < n; j++ {
		keys[j] = string(rest[j])
		idSpec := string(rest[n+j])
		if idSpec == "$" {
			e, ok, err := ec.Store.GetStream(keys[j], false)
			if err != nil {
				return nil, err
			}
			if ok {
				last, _ := e.Stream.LastID()
				ids[j] = last
			} else {
				ids[j] = stream.MinID
			}
			continue
		}
		id, err := stream.ParseExplicitID(idSpec)
		if err != nil {
			return nil, err
		}
		ids[j] = id
	}

	read := func() *resp.Message {
		var perKey []*resp.Message
		for j, k := range keys {
			e, ok, err := ec.Store.GetStream(k, false)
			if err != nil || !ok {
				continue
			}
			entries := e.Stream.After(ids[j], count)
			if len(entries) == 0 {
				continue
			}
			perKey = append(perKey, resp.Array(resp.BulkString(k), entriesToMessage(entries)))
		}
		if len(perKey) == 0 {
			return nil
		}
		return resp.ArrayOf(perKey)
	}

	if msg := read(); msg != nil {
		return msg, nil
	}
	if blockMs < 0 {
		return resp.NilArray(), nil
	}

	var deadline time.Time
	if blockMs > 0 {
		deadline = time.Now().Add(time.Duration(blockMs) * time.Millisecond)
	}
	for {
		w := ec.Blocking.Register(keys, deadline)
		select {
		case <-w.Ready:
			if msg := read(); msg != nil {
				return msg, nil
			}
			// spurious wakeup (e.g. a different stream's data): loop
		case <-w.TimedOut:
			return resp.NilArray(), nil
		case <-ctx.Done():
			ec.Blocking.Cancel(w)
			return nil, ctx.Err()
		}
	}
}

func RegisterStream(reg *Registry) {
	reg.Register(xaddHandler{})
	reg.Register(xrangeHandler{})
	reg.Register(xreadHandler{})
}
