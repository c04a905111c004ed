package command

import (
	"context"

	"github.com/edirooss/vredis/internal/errs"
	"github.com/edirooss/vredis/internal/resp"
	"github.com/edirooss/vredis/internal/txn"
)

type multiHandler struct{}

func (multiHandler) Name() string       { return "MULTI" }
func (multiHandler) Arity() int         { return 1 }
func (multiHandler) Category() Category { return CategoryTxnControl }
func (multiHandler) Execute(_ context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	if !ec.Client.Txn.Begin() {
		return nil, errs.ErrFor(errs.ErrNestedMulti)
	}
	return resp.OK, nil
}

type discardHandler struct{}

func (discardHandler) Name() string       { return "DISCARD" }
func (discardHandler) Arity() int         { return 1 }
func (discardHandler) Category() Category { return CategoryTxnControl }
func (discardHandler) Execute(_ context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	if !ec.Client.Txn.Discard() {
		return nil, errs.ErrFor(errs.ErrDiscardWithoutMulti)
	}
	return resp.OK, nil
}

type watchHandler struct{}

func (watchHandler) Name() string       { return "WATCH" }
func (watchHandler) Arity() int         { return -2 }
func (watchHandler) Category() Category { return CategoryTxnControl }
func (watchHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	if ec.Client.Txn.InMulti() {
		return nil, errs.ErrFor(errs.ErrWatchInsideMulti)
	}
	for _, k := range args[1:] {
		ec.Client.Txn.Watch(string(k))
	}
	return resp.OK, nil
}

type unwatchHandler struct{}

func (unwatchHandler) Name() string       { return "UNWATCH" }
func (unwatchHandler) Arity() int         { return 1 }
func (unwatchHandler) Category() Category { return CategoryTxnControl }
func (unwatchHandler) Execute(_ context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	ec.Client.Txn.Unwatch()
	return resp.OK, nil
}

type execHandler struct{}

func (execHandler) Name() string       { return "EXEC" }
func (execHandler) Arity() int         { return 1 }
func (execHandler) Category() Category { return CategoryTxnControl }
func (execHandler) Execute(ctx context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	cmds, status, hadTxn := ec.Client.Txn.Exec()
	if !hadTxn {
		return nil, errs.ErrFor(errs.ErrExecWithoutMulti)
	}
	if status == txn.ExecAborted {
		return nil, errs.ExecAbort()
	}
	if status == txn.ExecDirty {
		return resp.NilArray(), nil
	}

	replies := make([]*resp.Message, 0, len(cmds))
	for _, cmd := range cmds {
		out := ec.Dispatcher.Dispatch(ctx, ec, cmd.Name, cmd.Args)
		if out.Mutated && ec.Repl != nil {
			ec.Repl.Propagate(cmd.Args)
		}
		replies = append(replies, out.Reply)
	}
	return resp.ArrayOf(replies), nil
}

func RegisterTxn(reg *Registry) {
	reg.Register(multiHandler{})
	reg.Register(discardHandler{})
	reg.Register(watchHandler{})
	reg.Register(unwatchHandler{})
	reg.Register(execHandler{})
}
