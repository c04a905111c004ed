package command

import (
	"context"
	"strings"

	"github.com/edirooss/vredis/internal/resp"
)

type replconfHandler struct{}

func (replconfHandler) Name() string       { return "REPLCONF" }
func (replconfHandler) Arity() int         { return -2 }
func (replconfHandler) Category() Category { return CategoryAdmin }
func (replconfHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	if len(args) >= 3 {
		ec.Repl.SetReplConf(ec.Client.Writer, strings.ToUpper(string(args[1])), string(args[2]))
	}
	if len(args) >= 2 && strings.EqualFold(string(args[1]), "GETACK") {
		return nil, nil
	}
	return resp.OK, nil
}

type psyncHandler struct{}

func (psyncHandler) Name() string       { return "PSYNC" }
func (psyncHandler) Arity() int         { return 3 }
func (psyncHandler) Category() Category { return CategoryAdmin }
func (psyncHandler) Execute(_ context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	rdb := ec.Repl.RegisterReplica(ec.Client.Writer)
	ec.Client.IsReplica = true
	_ = ec.Client.Writer.Deliver(resp.Simple("FULLRESYNC " + ec.Repl.Info()["master_replid"] + " " + ec.Repl.Info()["master_repl_offset"]))
	_ = ec.Client.Writer.Deliver(resp.RawBulk(rdb))
	return nil, nil
}

func RegisterAdmin(reg *Registry) {
	reg.Register(replconfHandler{})
	reg.Register(psyncHandler{})
}
