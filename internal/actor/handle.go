package actor

import (
	"context"

	"github.com/google/uuid"

	"dmxmixer/internal/graph"
)

// Handle is a cheaply cloneable client of an Actor: every method submits a
// command and waits for its one-shot reply, translating a cancelled
// context into a plain error rather than a panic on a closed channel
// (spec.md §6).
type Handle struct {
	actor *Actor
}

// NewHandle wraps actor for use by callers (the admin transport, the DMX
// broker glue, tests) that only need to talk to the graph, not run it.
func NewHandle(a *Actor) Handle { return Handle{actor: a} }

func (h Handle) Insert(ctx context.Context, id uuid.UUID, node graph.Node) error {
	reply := make(chan error, 1)
	if err := h.actor.Submit(ctx, InsertCommand{ID: id, Node: node, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h Handle) Remove(ctx context.Context, id uuid.UUID) error {
	reply := make(chan error, 1)
	if err := h.actor.Submit(ctx, RemoveCommand{ID: id, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h Handle) Get(ctx context.Context, id uuid.UUID) (graph.Node, error) {
	reply := make(chan GetResult, 1)
	if err := h.actor.Submit(ctx, GetCommand{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Node, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h Handle) List(ctx context.Context) ([]graph.NodeEntry, error) {
	reply := make(chan []graph.NodeEntry, 1)
	if err := h.actor.Submit(ctx, ListCommand{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h Handle) Subscribe(ctx context.Context, input uuid.UUID, channel chan<- graph.Update) (uuid.UUID, error) {
	reply := make(chan SubscribeResult, 1)
	if err := h.actor.Submit(ctx, SubscribeCommand{Input: input, Channel: channel, Reply: reply}); err != nil {
		return uuid.Nil, err
	}
	select {
	case res := <-reply:
		return res.ID, res.Err
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (h Handle) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	reply := make(chan error, 1)
	if err := h.actor.Submit(ctx, UnsubscribeCommand{ID: id, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
