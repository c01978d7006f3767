package actor

import (
	"context"

	"go.uber.org/zap"

	"dmxmixer/internal/graph"
)

// Actor is the single owner of a graph.SceneGraph: every mutation and read
// passes through its event loop over commands, serializing access. The
// bottleneck is deliberate, since SceneGraph itself isn't safe for
// concurrent use (spec.md §4.5).
type Actor struct {
	graph    *graph.SceneGraph
	commands chan Command
	log      *zap.Logger
	metrics  Metrics
}

// Metrics is the subset of internal/metrics.Registry the actor reports
// into. Defined here (rather than importing internal/metrics directly) so
// the graph/actor packages stay independent of the metrics wiring.
type Metrics interface {
	SetQueueDepth(n int)
	IncCommand(kind string)
}

// NewActor constructs an actor over graph, with a bounded command queue of
// the given capacity (spec.md recommends ~30: enough to absorb a burst of
// admin requests without unbounded buffering).
func NewActor(g *graph.SceneGraph, queueCapacity int, log *zap.Logger, m Metrics) *Actor {
	if queueCapacity <= 0 {
		queueCapacity = 30
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Actor{
		graph:    g,
		commands: make(chan Command, queueCapacity),
		log:      log.Named("actor"),
		metrics:  m,
	}
}

// Run is the actor's event loop. It processes commands one at a time until
// ctx is cancelled or the command channel is closed, then returns.
func (a *Actor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.log.Info("actor loop stopping", zap.Error(ctx.Err()))
			a.graph.CloseAll()
			return
		case cmd, ok := <-a.commands:
			if !ok {
				return
			}
			a.dispatch(cmd)
			if a.metrics != nil {
				a.metrics.SetQueueDepth(len(a.commands))
			}
		}
	}
}

// Submit enqueues cmd, blocking if the queue is full, or returning early if
// ctx is done first.
func (a *Actor) Submit(ctx context.Context, cmd Command) error {
	select {
	case a.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case InsertCommand:
		err := a.graph.Insert(c.ID, c.Node)
		if a.metrics != nil {
			a.metrics.IncCommand("insert")
		}
		c.Reply <- err
	case RemoveCommand:
		err := a.graph.Remove(c.ID)
		if a.metrics != nil {
			a.metrics.IncCommand("remove")
		}
		c.Reply <- err
	case GetCommand:
		node, err := a.graph.Get(c.ID)
		if a.metrics != nil {
			a.metrics.IncCommand("get")
		}
		c.Reply <- GetResult{Node: node, Err: err}
	case ListCommand:
		entries := a.graph.List()
		if a.metrics != nil {
			a.metrics.IncCommand("list")
		}
		c.Reply <- entries
	case SubscribeCommand:
		id, err := a.graph.Subscribe(c.Input, c.Channel)
		if a.metrics != nil {
			a.metrics.IncCommand("subscribe")
		}
		c.Reply <- SubscribeResult{ID: id, Err: err}
	case UnsubscribeCommand:
		err := a.graph.Unsubscribe(c.ID)
		if a.metrics != nil {
			a.metrics.IncCommand("unsubscribe")
		}
		c.Reply <- err
	default:
		a.log.Warn("unknown command type")
	}
}
