package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/edirooss/vredis/internal/resp"
)

type pingHandler struct{}

func (pingHandler) Name() string       { return "PING" }
func (pingHandler) Arity() int         { return -1 }
func (pingHandler) Category() Category { return CategoryConnection }
func (pingHandler) Execute(_ context.Context, _ *ExecContext, args [][]byte) (*resp.Message, error) {
	if len(args) == 2 {
		return resp.Bulk(args[1]), nil
	}
	return resp.Simple("PONG"), nil
}

type echoHandler struct{}

func (echoHandler) Name() string       { return "ECHO" }
func (echoHandler) Arity() int         { return 2 }
func (echoHandler) Category() Category { return CategoryConnection }
func (echoHandler) Execute(_ context.Context, _ *ExecContext, args [][]byte) (*resp.Message, error) {
	return resp.Bulk(args[1]), nil
}

type quitHandler struct{}

func (quitHandler) Name() string       { return "QUIT" }
func (quitHandler) Arity() int         { return 1 }
func (quitHandler) Category() Category { return CategoryConnection }
func (quitHandler) Execute(_ context.Context, _ *ExecContext, _ [][]byte) (*resp.Message, error) {
	return resp.OK, nil
}

type existsHandler struct{}

func (existsHandler) Name() string       { return "EXISTS" }
func (existsHandler) Arity() int         { return -2 }
func (existsHandler) Category() Category { return CategoryRead }
func (existsHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	n := int64(0)
	for _, k := range args[1:] {
		if ec.Store.Exists(string(k)) {
			n++
		}
	}
	return resp.Integer(n), nil
}

type delHandler struct{}

func (delHandler) Name() string       { return "DEL" }
func (delHandler) Arity() int         { return -2 }
func (delHandler) Category() Category { return CategoryWrite }
func (delHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	n := int64(0)
	for _, k := range args[1:] {
		if ec.Store.Delete(string(k)) {
			n++
		}
	}
	return resp.Integer(n), nil
}

type typeHandler struct{}

func (typeHandler) Name() string       { return "TYPE" }
func (typeHandler) Arity() int         { return 2 }
func (typeHandler) Category() Category { return CategoryRead }
func (typeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	t := ec.Store.Type(string(args[1]))
	if t == "" {
		return resp.Simple("none"), nil
	}
	return resp.Simple(t), nil
}

type keysHandler struct{}

func (keysHandler) Name() string       { return "KEYS" }
func (keysHandler) Arity() int         { return 2 }
func (keysHandler) Category() Category { return CategoryRead }
func (keysHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	keys := ec.Store.Keys(string(args[1]))
	items := make([]*resp.Message, 0, len(keys))
	for _, k := range keys {
		items = append(items, resp.BulkString(k))
	}
	return resp.ArrayOf(items), nil
}

type flushallHandler struct{}

func (flushallHandler) Name() string       { return "FLUSHALL" }
func (flushallHandler) Arity() int         { return -1 }
func (flushallHandler) Category() Category { return CategoryWrite }
func (flushallHandler) Execute(_ context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	ec.Store.Flush()
	return resp.OK, nil
}

type infoHandler struct{}

func (infoHandler) Name() string       { return "INFO" }
func (infoHandler) Arity() int         { return -1 }
func (infoHandler) Category() Category { return CategoryAdmin }
func (infoHandler) Execute(_ context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	var b strings.Builder
	b.WriteString("# Replication\r\n")
	for k, v := range ec.Repl.Info() {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	return resp.BulkString(b.String()), nil
}

type configHandler struct{}

func (configHandler) Name() string       { return "CONFIG" }
func (configHandler) Arity() int         { return -2 }
func (configHandler) Category() Category { return CategoryAdmin }
func (configHandler) Execute(_ context.Context, _ *ExecContext, args [][]byte) (*resp.Message, error) {
	if strings.ToUpper(string(args[1])) == "GET" && len(args) >= 3 {
		return resp.ArrayOf([]*resp.Message{resp.BulkString(string(args[2])), resp.BulkString("")}), nil
	}
	return resp.ArrayOf(nil), nil
}

type metricsHandler struct{}

func (metricsHandler) Name() string       { return "METRICS" }
func (metricsHandler) Arity() int         { return 1 }
func (metricsHandler) Category() Category { return CategoryAdmin }
func (metricsHandler) Execute(_ context.Context, ec *ExecContext, _ [][]byte) (*resp.Message, error) {
	keys := ec.Store.Keys("*")
	return resp.ArrayOf([]*resp.Message{
		resp.BulkString("keys"),
		resp.BulkString(strconv.Itoa(len(keys))),
	}), nil
}

func RegisterGeneric(reg *Registry) {
	reg.Register(pingHandler{})
	reg.Register(echoHandler{})
	reg.Register(quitHandler{})
	reg.Register(existsHandler{})
	reg.Register(delHandler{})
	reg.Register(typeHandler{})
	reg.Register(keysHandler{})
	reg.Register(flushallHandler{})
	reg.Register(infoHandler{})
	reg.Register(configHandler{})
	reg.Register(metricsHandler{})
}
