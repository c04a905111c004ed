package command

import (
	"context"
	"strconv"

	"github.com/edirooss/vredis/internal/container/zset"
	"github.com/edirooss/vredis/internal/errs"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/store"
)

type zaddHandler struct{}

func (zaddHandler) Name() string       { return "ZADD" }
func (zaddHandler) Arity() int         { return -4 }
func (zaddHandler) Category() Category { return CategoryWrite }
func (zaddHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	key := string(args[1])
	rest := args[2:]
	if len(rest)%2 != 0 {
		return nil, errs.Err("syntax error")
	}
	type pair struct {
		score  float64
		member string
	}
	pairs := make([]pair, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		sc, err := strconv.ParseFloat(string(rest[i]), 64)
		if err != nil {
			return nil, errs.Err("value is not a valid float")
		}
		pairs = append(pairs, pair{score: sc, member: string(rest[i+1])})
	}

	var added int64
	_, _, err := ec.Store.Compute(key, func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
		var z *zset.ZSet
		exp := store.Never()
		if exists {
			if cur.Kind != store.KindZSet {
				return nil, false, errs.Wrong()
			}
			z = cur.ZSet
			exp = cur.Expiry
		} else {
			z = zset.New()
		}
		for _, p := range pairs {
			if z.Add(p.member, p.score) {
				added++
			}
		}
		return store.NewZSet(z, exp), true, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Integer(added), nil
}

type zremHandler struct{}

func (zremHandler) Name() string       { return "ZREM" }
func (zremHandler) Arity() int         { return -3 }
func (zremHandler) Category() Category { return CategoryWrite }
func (zremHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	key := string(args[1])
	members := args[2:]
	var removed int64
	_, _, err := ec.Store.Compute(key, func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
		if !exists {
			return nil, false, nil
		}
		if cur.Kind != store.KindZSet {
			return nil, false, errs.Wrong()
		}
		for _, m := range members {
			if cur.ZSet.Rem(string(m)) {
				removed++
			}
		}
		if removed == 0 {
			return cur, false, nil
		}
		return store.NewZSet(cur.ZSet, cur.Expiry), true, nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Integer(removed), nil
}

type zrangeHandler struct{}

func (zrangeHandler) Name() string       { return "ZRANGE" }
func (zrangeHandler) Arity() int         { return -4 }
func (zrangeHandler) Category() Category { return CategoryRead }
func (zrangeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	start, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return nil, errs.ErrFor(errs.ErrNotInteger)
	}
	end, err := strconv.Atoi(string(args[3]))
	if err != nil {
		return nil, errs.ErrFor(errs.ErrNotInteger)
	}
	withScores := len(args) >= 5 && string(args[4]) == "WITHSCORES"

	e, ok, err := ec.Store.GetZSet(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.ArrayOf(nil), nil
	}
	members := e.ZSet.RangeByRank(start, end)
	return membersToMessage(members, withScores), nil
}

func membersToMessage(members []zset.Member, withScores bool) *resp.Message {
	items := make([]*resp.Message, 0, len(members)*2)
	for _, m := range members {
		items = append(items, resp.BulkString(m.Name))
		if withScores {
			items = append(items, resp.BulkString(formatScore(m.Score)))
		}
	}
	return resp.ArrayOf(items)
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type zrangebyscoreHandler struct{}

func (zrangebyscoreHandler) Name() string       { return "ZRANGEBYSCORE" }
func (zrangebyscoreHandler) Arity() int         { return -4 }
func (zrangebyscoreHandler) Category() Category { return CategoryRead }
func (zrangebyscoreHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	min, err := strconv.ParseFloat(string(args[2]), 64)
	if err != nil {
		return nil, errs.Err("min or max is not a float")
	}
	max, err := strconv.ParseFloat(string(args[3]), 64)
	if err != nil {
		return nil, errs.Err("min or max is not a float")
	}
	withScores := len(args) >= 5 && string(args[4]) == "WITHSCORES"

	e, ok, err := ec.Store.GetZSet(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.ArrayOf(nil), nil
	}
	members := e.ZSet.RangeByScore(min, max)
	return membersToMessage(members, withScores), nil
}

type zrankHandler struct{}

func (zrankHandler) Name() string       { return "ZRANK" }
func (zrankHandler) Arity() int         { return 3 }
func (zrankHandler) Category() Category { return CategoryRead }
func (zrankHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	e, ok, err := ec.Store.GetZSet(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NilBulk(), nil
	}
	rank, found := e.ZSet.Rank(string(args[2]))
	if !found {
		return resp.NilBulk(), nil
	}
	return resp.Integer(int64(rank)), nil
}

type zscoreHandler struct{}

func (zscoreHandler) Name() string       { return "ZSCORE" }
func (zscoreHandler) Arity() int         { return 3 }
func (zscoreHandler) Category() Category { return CategoryRead }
func (zscoreHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	e, ok, err := ec.Store.GetZSet(string(args[1]), false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp.NilBulk(), nil
	}
	score, found := e.ZSet.Score(string(args[2]))
	if !found {
		return resp.NilBulk(), nil
	}
	return resp.BulkString(formatScore(score)), nil
}

type zpopHandler struct{ max bool }

func (h zpopHandler) Name() string {
	if h.max {
		return "ZPOPMAX"
	}
	return "ZPOPMIN"
}
func (zpopHandler) Arity() int         { return -2 }
func (zpopHandler) Category() Category { return CategoryWrite }
func (h zpopHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	count := 1
	if len(args) >= 3 {
		n, err := strconv.Atoi(string(args[2]))
		if err != nil {
			return nil, errs.ErrFor(errs.ErrNotInteger)
		}
		count = n
	}

	var popped []zset.Member
	_, _, err := ec.Store.Compute(string(args[1]), func(cur *store.Entry, exists bool) (*store.Entry, bool, error) {
		if !exists {
			return nil, false, nil
		}
		if cur.Kind != store.KindZSet {
			return nil, false, errs.Wrong()
		}
		for i := 0; i < count; i++ {
			var m zset.Member
			var ok bool
			if h.max {
				m, ok = cur.ZSet.PopMax()
			} else {
				m, ok = cur.ZSet.PopMin()
			}
			if !ok {
				break
			}
			popped = append(popped, m)
		}
		if len(popped) == 0 {
			return cur, false, nil
		}
		return store.NewZSet(cur.ZSet, cur.Expiry), true, nil
	})
	if err != nil {
		return nil, err
	}
	return membersToMessage(popped, true), nil
}

func RegisterZSet(reg *Registry) {
	reg.Register(zaddHandler{})
	reg.Register(zremHandler{})
	reg.Register(zrangeHandler{})
	reg.Register(zrangebyscoreHandler{})
	reg.Register(zrankHandler{})
	reg.Register(zscoreHandler{})
	reg.Register(zpopHandler{max: false})
	reg.Register(zpopHandler{max: true})
}
