package actor

import (
	"github.com/google/uuid"

	"dmxmixer/internal/graph"
)

// Command is one request sent to the Actor's event loop. Each variant
// carries a one-shot reply channel so the caller can await its own result
// without blocking any other in-flight command (spec.md §4.5).
type Command interface {
	sealedCommand()
}

// InsertCommand asks the actor to create or replace a node.
type InsertCommand struct {
	ID    uuid.UUID
	Node  graph.Node
	Reply chan<- error
}

func (InsertCommand) sealedCommand() {}

// RemoveCommand asks the actor to delete a node.
type RemoveCommand struct {
	ID    uuid.UUID
	Reply chan<- error
}

func (RemoveCommand) sealedCommand() {}

// GetResult is the payload of a GetCommand's reply.
type GetResult struct {
	Node graph.Node
	Err  error
}

// GetCommand asks the actor for a single node.
type GetCommand struct {
	ID    uuid.UUID
	Reply chan<- GetResult
}

func (GetCommand) sealedCommand() {}

// ListCommand asks the actor for every node currently stored.
type ListCommand struct {
	Reply chan<- []graph.NodeEntry
}

func (ListCommand) sealedCommand() {}

// SubscribeResult is the payload of a SubscribeCommand's reply.
type SubscribeResult struct {
	ID  uuid.UUID
	Err error
}

// SubscribeCommand asks the actor to register a subscription on Input,
// delivering updates on Channel.
type SubscribeCommand struct {
	Input   uuid.UUID
	Channel chan<- graph.Update
	Reply   chan<- SubscribeResult
}

func (SubscribeCommand) sealedCommand() {}

// UnsubscribeCommand asks the actor to drop a subscription.
type UnsubscribeCommand struct {
	ID    uuid.UUID
	Reply chan<- error
}

func (UnsubscribeCommand) sealedCommand() {}
