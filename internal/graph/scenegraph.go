package graph

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dependent is one entry in a node's reverse (downstream) list: either
// another node bound to one of its slots, or a subscription watching it.
type dependent struct {
	isSubscription bool

	// valid when !isSubscription
	nodeID uuid.UUID
	slot   int

	// valid when isSubscription
	subID uuid.UUID
}

// forwardEdge records, for one of a node's input slots, which upstream node
// it is bound to and the handle held in that upstream's reverse arena.
type forwardEdge struct {
	bound    bool
	upstream uuid.UUID
	handle   Index
}

// dependencyRecord is the edge bookkeeping kept per node: its own forward
// bindings, and the arena of things depending on it. Stored by value; the
// Arena field is cloned explicitly wherever copy-on-write isolation matters
// (see cloneDependencyRecord).
type dependencyRecord struct {
	forward []forwardEdge
	reverse Arena[dependent]
}

func cloneDependencyRecord(r dependencyRecord) dependencyRecord {
	return dependencyRecord{
		forward: append([]forwardEdge(nil), r.forward...),
		reverse: *r.reverse.Clone(),
	}
}

func cloneNode(n Node) Node { return n.Clone() }

func cloneFrame(f Frame) Frame { return f }

// NodeEntry is a (id, node) pair as returned by List.
type NodeEntry struct {
	ID   uuid.UUID
	Node Node
}

// SceneGraph is the reactive DAG of spec.md §4: nodes, their cached
// evaluated state, forward/reverse dependency edges, and subscriptions, all
// kept consistent by Insert/Remove/Subscribe/Unsubscribe. Not safe for
// concurrent use directly — internal/actor.Actor is the single owner that
// serializes access to it.
type SceneGraph struct {
	nodes         map[uuid.UUID]Node
	state         map[uuid.UUID]Frame
	dependencies  map[uuid.UUID]dependencyRecord
	subscriptions map[uuid.UUID]*Subscription
	log           *zap.Logger
}

// New returns an empty scene graph.
func New(log *zap.Logger) *SceneGraph {
	if log == nil {
		log = zap.NewNop()
	}
	return &SceneGraph{
		nodes:         make(map[uuid.UUID]Node),
		state:         make(map[uuid.UUID]Frame),
		dependencies:  make(map[uuid.UUID]dependencyRecord),
		subscriptions: make(map[uuid.UUID]*Subscription),
		log:           log.Named("scenegraph"),
	}
}

// Get returns the node stored at id.
func (g *SceneGraph) Get(id uuid.UUID) (Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, ErrUnknownNode
	}
	return n, nil
}

// List returns every (id, node) pair. Order is unspecified, matching
// spec.md §4.4's note that List's order mirrors an unordered map iteration.
func (g *SceneGraph) List() []NodeEntry {
	out := make([]NodeEntry, 0, len(g.nodes))
	for id, n := range g.nodes {
		out = append(out, NodeEntry{ID: id, Node: n})
	}
	return out
}

// Insert creates or replaces the node at id, per spec.md §4.4:
//  1. Stage nodes/state/dependencies transactions.
//  2. If id already exists, disconnect its old forward edges (keep its
//     reverse list — existing dependents stay bound).
//  3. Bind the new node's dependencies, failing with MissingInputError if
//     any named upstream doesn't exist. The graph is untouched on failure.
//  4. Run the incremental update starting at id.
//  5. Commit all three transactions, or propagate the update's error
//     (Cycle) and leave the graph untouched.
func (g *SceneGraph) Insert(id uuid.UUID, node Node) error {
	nodesTxn := NewTransaction(g.nodes, cloneNode)
	stateTxn := NewTransaction(g.state, cloneFrame)
	depsTxn := NewTransaction(g.dependencies, cloneDependencyRecord)

	var reverse Arena[dependent]
	if existing, ok := depsTxn.Get(id); ok {
		reverse = *existing.reverse.Clone()
		for _, fe := range existing.forward {
			if !fe.bound {
				continue
			}
			fe := fe
			depsTxn.Mutate(fe.upstream, func(r *dependencyRecord) {
				r.reverse.Remove(fe.handle)
			})
		}
	} else {
		reverse = *NewArena[dependent]()
	}

	deps := node.Dependencies()
	forward := make([]forwardEdge, len(deps))
	for i, depPtr := range deps {
		if depPtr == nil {
			continue
		}
		depID := *depPtr
		if _, ok := depsTxn.Get(depID); !ok {
			return &MissingInputError{Slot: i}
		}
		var handle Index
		depsTxn.Mutate(depID, func(r *dependencyRecord) {
			handle = r.reverse.Insert(dependent{nodeID: id, slot: i})
		})
		forward[i] = forwardEdge{bound: true, upstream: depID, handle: handle}
	}

	nodesTxn.Insert(id, node)
	depsTxn.Insert(id, dependencyRecord{forward: forward, reverse: reverse})

	if err := g.update(id, nodesTxn, stateTxn, depsTxn); err != nil {
		return err
	}

	nodesTxn.Commit()
	stateTxn.Commit()
	depsTxn.Commit()
	return nil
}

// Remove deletes id, disconnecting it from every neighbor:
//   - its own forward edges are removed from each upstream's reverse list;
//   - each of its dependents is disconnected too — a dependent node has the
//     slot unlinked and is re-evaluated (propagating NoInput downstream); a
//     dependent subscription is closed and dropped.
//
// Dependents are processed in reverse-arena (insertion) order, handling
// each inline as it's encountered — node re-evaluation and subscription
// closure are interleaved rather than batched by kind. Re-evaluation errors
// for a single dependent (e.g. a cycle that removal exposes, which cannot
// actually happen since removal only deletes edges) are logged and skipped
// rather than failing the whole Remove.
func (g *SceneGraph) Remove(id uuid.UUID) error {
	if _, ok := g.nodes[id]; !ok {
		return ErrUnknownNode
	}
	delete(g.nodes, id)

	rec, ok := g.dependencies[id]
	if !ok {
		g.log.Warn("removing node with no dependency record", zap.String("node", id.String()))
		delete(g.state, id)
		return nil
	}
	delete(g.dependencies, id)

	for _, fe := range rec.forward {
		if !fe.bound {
			continue
		}
		if upRec, ok := g.dependencies[fe.upstream]; ok {
			upRec.reverse.Remove(fe.handle)
			g.dependencies[fe.upstream] = upRec
		}
	}

	rec.reverse.Each(func(_ Index, d dependent) bool {
		if d.isSubscription {
			if sub, ok := g.subscriptions[d.subID]; ok {
				delete(g.subscriptions, d.subID)
				sub.Close()
			}
			return true
		}

		n, ok := g.nodes[d.nodeID]
		if !ok {
			return true
		}
		n.Unlink(d.slot)
		if depRec, ok := g.dependencies[d.nodeID]; ok {
			if d.slot >= 0 && d.slot < len(depRec.forward) {
				depRec.forward[d.slot] = forwardEdge{}
				g.dependencies[d.nodeID] = depRec
			}
		}

		nodesTxn := NewTransaction(g.nodes, cloneNode)
		stateTxn := NewTransaction(g.state, cloneFrame)
		depsTxn := NewTransaction(g.dependencies, cloneDependencyRecord)
		if err := g.update(d.nodeID, nodesTxn, stateTxn, depsTxn); err != nil {
			g.log.Warn("re-evaluation after remove failed",
				zap.String("node", d.nodeID.String()), zap.Error(err))
		} else {
			nodesTxn.Commit()
			stateTxn.Commit()
			depsTxn.Commit()
		}
		return true
	})

	delete(g.state, id)
	return nil
}

// Subscribe registers channel to receive Update messages for input,
// delivering the current frame immediately. Per spec.md §4.4, the
// subscription's reverse-arena handle is wired into input's dependency
// record so future updates to input reach it.
func (g *SceneGraph) Subscribe(input uuid.UUID, channel chan<- Update) (uuid.UUID, error) {
	rec, ok := g.dependencies[input]
	if !ok {
		return uuid.Nil, ErrUnknownNode
	}
	frame := g.state[input]

	subID := uuid.New()
	handle := rec.reverse.Insert(dependent{isSubscription: true, subID: subID})
	g.dependencies[input] = rec

	sub, err := NewSubscription(subID, input, handle, frame, channel, g.log)
	if err != nil {
		rec = g.dependencies[input]
		rec.reverse.Remove(handle)
		g.dependencies[input] = rec
		return uuid.Nil, err
	}

	g.subscriptions[subID] = sub
	return subID, nil
}

// Unsubscribe removes a subscription, disconnecting it from its input
// node's reverse list. Idempotent: unsubscribing an already-removed or
// unknown ID is a no-op, matching the Handle API's unsubscribe signature
// (no UnknownSubscription variant).
func (g *SceneGraph) Unsubscribe(subID uuid.UUID) error {
	sub, ok := g.subscriptions[subID]
	if !ok {
		return nil
	}
	delete(g.subscriptions, subID)
	if rec, ok := g.dependencies[sub.Input()]; ok {
		rec.reverse.Remove(sub.ReverseIndex())
		g.dependencies[sub.Input()] = rec
	}
	return nil
}

// CloseAll sends Closed to every live subscription and drops them, per
// spec.md §4.5/§5: on shutdown the graph is dropped and every subscriber
// must be told so rather than left to notice its channel silently stops
// filling. Dependency edges are left untouched since the graph itself is
// going away.
func (g *SceneGraph) CloseAll() {
	for _, sub := range g.subscriptions {
		sub.Close()
	}
	g.subscriptions = make(map[uuid.UUID]*Subscription)
}

// visitTarget is one entry in the incremental-update BFS frontier: either a
// node to re-evaluate or a subscription to (eventually) notify.
type visitTarget struct {
	isSubscription bool
	nodeID         uuid.UUID
	subID          uuid.UUID
}

// update is the incremental re-evaluation of spec.md §4.4.1. It walks the
// dependent graph breadth-first starting at origin, re-evaluating each
// node's frame into stateTxn. A node whose Evaluate reports NoInputError
// has that slot unlinked (in both nodesTxn and depsTxn) and is requeued at
// the front to retry — this always terminates because each node has
// finitely many slots to give up. Reaching origin again via another node's
// reverse list means the just-staged edges would close a cycle, which
// aborts the whole operation (the caller never commits). Subscriptions
// reached along the way are only queued, not notified, until the entire
// frontier resolves without error — so a rejected Insert/cycle never
// delivers a partial update to any subscriber.
func (g *SceneGraph) update(
	origin uuid.UUID,
	nodesTxn *Transaction[uuid.UUID, Node],
	stateTxn *Transaction[uuid.UUID, Frame],
	depsTxn *Transaction[uuid.UUID, dependencyRecord],
) error {
	queue := []visitTarget{{nodeID: origin}}
	var toNotify []uuid.UUID

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		if t.isSubscription {
			toNotify = append(toNotify, t.subID)
			continue
		}

		node, ok := nodesTxn.Get(t.nodeID)
		if !ok {
			return ErrUnknownNode
		}

		frame, noInput := node.Evaluate(stateTxn)
		if noInput != nil {
			slot := noInput.Slot
			nodesTxn.Mutate(t.nodeID, func(n *Node) { (*n).Unlink(slot) })
			depsTxn.Mutate(t.nodeID, func(r *dependencyRecord) {
				if slot >= 0 && slot < len(r.forward) {
					r.forward[slot] = forwardEdge{}
				}
			})
			queue = append([]visitTarget{t}, queue...)
			continue
		}

		stateTxn.Insert(t.nodeID, frame)

		rec, ok := depsTxn.Get(t.nodeID)
		if !ok {
			return ErrUnknownNode
		}

		var cycle bool
		rec.reverse.Each(func(_ Index, d dependent) bool {
			if d.isSubscription {
				queue = append(queue, visitTarget{isSubscription: true, subID: d.subID})
				return true
			}
			if d.nodeID == origin {
				cycle = true
				return false
			}
			queue = append(queue, visitTarget{nodeID: d.nodeID})
			return true
		})
		if cycle {
			return ErrCycle
		}
	}

	for _, subID := range toNotify {
		sub, ok := g.subscriptions[subID]
		if !ok {
			continue
		}
		if err := sub.Refresh(stateTxn); err != nil {
			delete(g.subscriptions, subID)
			depsTxn.Mutate(sub.Input(), func(r *dependencyRecord) {
				r.reverse.Remove(sub.ReverseIndex())
			})
		}
	}

	return nil
}
