package command

import (
	"context"

	"github.com/edirooss/vredis/internal/resp"
)

func subscribeAck(kind, name string, count int) *resp.Message {
	return resp.Array(resp.BulkString(kind), resp.BulkString(name), resp.Integer(int64(count)))
}

type subscribeHandler struct{}

func (subscribeHandler) Name() string       { return "SUBSCRIBE" }
func (subscribeHandler) Arity() int         { return -2 }
func (subscribeHandler) Category() Category { return CategoryPubSub }
func (subscribeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	for _, ch := range args[1:] {
		name := string(ch)
		ec.Client.AddChannel(name)
		ec.PubSub.Subscribe(name, ec.Client)
		_ = ec.Client.Writer.Deliver(subscribeAck("subscribe", name, ec.Client.SubscriptionCount()))
	}
	return nil, nil
}

type unsubscribeHandler struct{}

func (unsubscribeHandler) Name() string       { return "UNSUBSCRIBE" }
func (unsubscribeHandler) Arity() int         { return -1 }
func (unsubscribeHandler) Category() Category { return CategoryPubSub }
func (unsubscribeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	channels := args[1:]
	if len(channels) == 0 {
		channels = toByteSlices(ec.Client.Channels())
	}
	for _, ch := range channels {
		name := string(ch)
		ec.Client.RemoveChannel(name)
		ec.PubSub.Unsubscribe(name, ec.Client)
		_ = ec.Client.Writer.Deliver(subscribeAck("unsubscribe", name, ec.Client.SubscriptionCount()))
	}
	return nil, nil
}

type psubscribeHandler struct{}

func (psubscribeHandler) Name() string       { return "PSUBSCRIBE" }
func (psubscribeHandler) Arity() int         { return -2 }
func (psubscribeHandler) Category() Category { return CategoryPubSub }
func (psubscribeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	for _, p := range args[1:] {
		name := string(p)
		ec.Client.AddPattern(name)
		ec.PubSub.PSubscribe(name, ec.Client)
		_ = ec.Client.Writer.Deliver(subscribeAck("psubscribe", name, ec.Client.SubscriptionCount()))
	}
	return nil, nil
}

type punsubscribeHandler struct{}

func (punsubscribeHandler) Name() string       { return "PUNSUBSCRIBE" }
func (punsubscribeHandler) Arity() int         { return -1 }
func (punsubscribeHandler) Category() Category { return CategoryPubSub }
func (punsubscribeHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	patterns := args[1:]
	if len(patterns) == 0 {
		patterns = toByteSlices(ec.Client.Patterns())
	}
	for _, p := range patterns {
		name := string(p)
		ec.Client.RemovePattern(name)
		ec.PubSub.PUnsubscribe(name, ec.Client)
		_ = ec.Client.Writer.Deliver(subscribeAck("punsubscribe", name, ec.Client.SubscriptionCount()))
	}
	return nil, nil
}

type publishHandler struct{}

func (publishHandler) Name() string       { return "PUBLISH" }
func (publishHandler) Arity() int         { return 3 }
func (publishHandler) Category() Category { return CategoryPubSub }
func (publishHandler) Execute(_ context.Context, ec *ExecContext, args [][]byte) (*resp.Message, error) {
	n := ec.PubSub.Publish(string(args[1]), args[2])
	return resp.Integer(int64(n)), nil
}

func toByteSlices(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func RegisterPubSub(reg *Registry) {
	reg.Register(subscribeHandler{})
	reg.Register(unsubscribeHandler{})
	reg.Register(psubscribeHandler{})
	reg.Register(punsubscribeHandler{})
	reg.Register(publishHandler{})
}
