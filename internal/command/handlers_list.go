package command

import (
	"context"
	"strconv"
	"time"

	"github.com/edirooss/vredis/internal/container/list"
	"github.com/edirooss/vredis/internal/errs"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/store"
)

type pushHandler struct{ tail bool }

func (h pushHandler) Name() string {
	if h.tail {
		return "RPUSH"
	}
	return "LPUSH"
}
func (pushHandler) Arity() int         { return -3 }
func (pushHandler) Category() Category { return CategoryWrite }
func (h pushHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	key := string(args[1])
	vals := args[2:]
	var n int
	_, _, err := ec.Store.Compute(key, func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
		var l *list.List
		exp := store.Never()
		if exists {
			if cur.Kind != store.KindList {
				return nil, false, errs.Wrong()
			}
			l = cur.List
			exp = cur.Expiry
		} else {
			l = list.New()
		}
		if h.tail {
			l.PushTail(vals...)
		} else {
			l.PushHead(vals...)
		}
		n = l.Len()
		return store.NewList(l, exp), true, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Integer(int64(n)), nil
}

type popHandler struct{ tail bool }

func (h popHandler) Name() string {
	if h.tail {
		return "RPOP"
	}
	return "LPOP"
}
func (popHandler) Arity() int         { return -2 }
func (popHandler) Category() Category { return CategoryWrite }
func (h popHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	count := -1
	if len(args) >= 3 {
		n, err := strconv.Atoi(string(args[2]))
		if err != nil || n < 0 {
			return nil, errs.ErrFor(errs.ErrNotInteger)
		}
		count = n
	}

	var popped [][]byte
	_, _, err := ec.Store.Compute(string(args[1]), func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
		if !exists {
			return nil, false, nil
		}
		if cur.Kind != store.KindList {
			return nil, false, errs.Wrong()
		}
		n := 1
		if count >= 0 {
			n = count
		}
		if h.tail {
			popped = cur.List.PopTailN(n)
		} else {
			popped = cur.List.PopHeadN(n)
		}
		if len(popped) == 0 {
			return cur, false, nil
		}
		return store.NewList(cur.List, cur.Expiry), true, nil
	})
	if err != nil {
		return nil, err
	}

	if count < 0 {
		if len(popped) == 0 {
			return resp.NilBulk(), nil
		}
		return resp.Bulk(popped[0]), nil
	}
	if popped == nil {
		return resp.NilArray(), nil
	}
	items := make([]*resp.Message, len(popped))
	for i, v := range popped {
		items[i] = resp.Bulk(v)
	}
	return resp.ArrayOf(items), nil
}

type lrangeHandler struct{}

func (lrangeHandler) Name() string       { return "LRANGE" }
func (lrangeHandler) Arity() int         { return 4 }
func (lrangeHandler) Category() Category { return CategoryRead }
func (lrangeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	start, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return nil, errs.ErrFor(errs.ErrNotInteger)
	}
	end, err := strconv.Atoi(string(args[3]))
	if err != nil {
		return nil, errs.ErrFor(errs.ErrNotInteger)
	}
	e, ok, err := ec.Store.GetList(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.ArrayOf(nil), nil
	}
	vals := e.List.Range(start, end)
	items := make([]*resp.Message, len(vals))
	for i, v := range vals {
		items[i] = resp.Bulk(v)
	}
	return resp.ArrayOf(items), nil
}

type llenHandler struct{}

func (llenHandler) Name() string       { return "LLEN" }
func (llenHandler) Arity() int         { return 2 }
func (llenHandler) Category() Category { return CategoryRead }
func (llenHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	e, ok, err := ec.Store.GetList(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.Integer(0), nil
	}
	return resp.Integer(int64(e.List.Len())), nil
}

type blpopHandler struct{}

func (blpopHandler) Name() string       { return "BLPOP" }
func (blpopHandler) Arity() int         { return -3 }
func (blpopHandler) Category() Category { return CategoryBlocking }
func (blpopHandler) Execute(ctx context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	keys := make([]string, len(args)-2)
	for i, k := range args[1 : len(args)-1] {
		keys[i] = string(k)
	}
	timeoutSec, err := strconv.ParseFloat(string(args[len(args)-1]), 64)
	if err != nil || timeoutSec < 0 {
		return nil, errs.Err("timeout is not a float or out of range")
	}

	for {
		for _, k := range keys {
			var popped []byte
			var didPop bool
			_, _, err := ec.Store.Compute(k, func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
				if !exists {
					return nil, false, nil
				}
				if cur.Kind != store.KindList {
					return nil, false, errs.Wrong()
				}
				v, ok := cur.List.PopHead()
				if !ok {
					return cur, false, nil
				}
				popped, didPop = v, true
				return store.NewList(cur.List, cur.Expiry), true, nil
			})
			if err != nil {
				return nil, err
			}
			if didPop {
				return resp.ArrayOf([]*resp.Message{resp.BulkString(k), resp.Bulk(popped)}), nil
			}
		}

		var deadline time.Time
		if timeoutSec > 0 {
			deadline = time.Now().Add(time.Duration(timeoutSec * float64(time.Second)))
		}
		w := ec.Blocking.Register(keys, deadline)
		select {
		case <-w.Ready:
		case <-w.TimedOut:
			return resp.NilArray(), nil
		case <-ctx.Done():
			ec.Blocking.Cancel(w)
			return nil, ctx.Err()
		}
	}
}

func RegisterList(reg *Registry) {
	reg.Register(pushHandler{tail: false})
	reg.Register(pushHandler{tail: true})
	reg.Register(popHandler{tail: false})
	reg.Register(popHandler{tail: true})
	reg.Register(lrangeHandler{})
	reg.Register(llenHandler{})
	reg.Register(blpopHandler{})
}
