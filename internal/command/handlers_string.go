package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/edirooss/vredis/internal/errs"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/store"
)

type getHandler struct{}

func (getHandler) Name() string       { return "GET" }
func (getHandler) Arity() int         { return 2 }
func (getHandler) Category() Category { return CategoryRead }
func (getHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	b, ok, err := ec.Store.GetString(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NilBulk(), nil
	}
	return resp.Bulk(b), nil
}

type setHandler struct{}

func (setHandler) Name() string       { return "SET" }
func (setHandler) Arity() int         { return -3 }
func (setHandler) Category() Category { return CategoryWrite }
func (setHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	key := string(args[1])
	val := args[2]
	exp := store.Never()

	rest := args[3:]
	for i := 0; i < len(rest); i++ {
		switch strings.ToUpper(string(rest[i])) {
		case "PX":
			if i+1 >= len(rest) {
				return nil, errs.Err("syntax error")
			}
			ms, err := strconv.ParseInt(string(rest[i+1]), 10, 64)
			if err != nil {
				return nil, errs.ErrFor(errs.ErrNotInteger)
			}
			exp = store.At(ec.Now() + ms)
			i++
		default:
			return nil, errs.Err("syntax error")
		}
	}

	ec.Store.Put(key, store.NewString(append([]byte(nil), val...), exp))
	return resp.OK, nil
}

type incrHandler struct{ delta int64 }

func (h incrHandler) Name() string {
	if h.delta < 0 {
		return "DECR"
	}
	return "INCR"
}
func (incrHandler) Arity() int         { return 2 }
func (incrHandler) Category() Category { return CategoryWrite }
func (h incrHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	key := string(args[1])
	var result int64
	_, _, err := ec.Store.Compute(key, func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
		var n int64
		if exists {
			if cur.Kind != store.KindString {
				return nil, false, errs.Wrong()
			}
			v, perr := strconv.ParseInt(string(cur.Str), 10, 64)
			if perr != nil {
				return nil, false, errs.ErrFor(errs.ErrNotInteger)
			}
			n = v
		}
		next := n + h.delta
		if h.delta > 0 && next < n {
			return nil, false, errs.ErrFor(errs.ErrOverflow)
		}
		if h.delta < 0 && next > n {
			return nil, false, errs.ErrFor(errs.ErrOverflow)
		}
		result = next
		exp := store.Never()
		if exists {
			exp = cur.Expiry
		}
		return store.NewString([]byte(strconv.FormatInt(next, 10)), exp), true, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Integer(result), nil
}

func RegisterString(reg *Registry) {
	reg.Register(getHandler{})
	reg.Register(setHandler{})
	reg.Register(incrHandler{delta: 1})
	reg.Register(incrHandler{delta: -1})
}
