package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// NoInputError reports that a node's Evaluate call found one of its bound
// upstream IDs absent from the Lookup passed in. The caller (SceneGraph's
// incremental update, §4.4.1) responds by unlinking that slot and retrying.
type NoInputError struct {
	Slot int
}

func (e *NoInputError) Error() string {
	return fmt.Sprintf("graph: input %d is missing", e.Slot)
}

// Lookup resolves a node ID to its most recently committed Frame. Nodes
// never see the full state map; they only see this narrow read view.
type Lookup interface {
	Get(id uuid.UUID) (Frame, bool)
}

// Node is a pure, immutable (except via Unlink) description of one
// computation in the scene graph. Each concrete variant is a new Go type
// implementing this interface plus the unexported sealed marker — within
// this package, adding a node kind means adding a variant and nothing else,
// per design note §9. The admin wire codec (internal/adminws) and the config
// seeding in cmd/dmxmixer switch on the concrete types and need a case each.
type Node interface {
	// Dependencies returns this node's upstream IDs in fixed slot order;
	// a nil entry means that slot is currently unbound.
	Dependencies() []*uuid.UUID

	// Evaluate computes this node's output frame from its upstream
	// frames, as resolved through lookup. Returns NoInputError if a
	// bound upstream ID isn't present in lookup.
	Evaluate(lookup Lookup) (Frame, *NoInputError)

	// Unlink clears the upstream bound to the given slot, if any slot
	// index is out of range it is a no-op.
	Unlink(slot int)

	// Clone returns a deep, independent copy (used by Transaction's
	// lazy-clone-on-write).
	Clone() Node

	sealedNode()
}

// StaticNode outputs a fixed, stored Frame. It has no inputs.
type StaticNode struct {
	Frame Frame
}

func NewStaticNode(f Frame) *StaticNode { return &StaticNode{Frame: f} }

func (n *StaticNode) Dependencies() []*uuid.UUID { return nil }

func (n *StaticNode) Evaluate(Lookup) (Frame, *NoInputError) { return n.Frame, nil }

func (n *StaticNode) Unlink(int) {}

func (n *StaticNode) Clone() Node { return &StaticNode{Frame: n.Frame} }

func (n *StaticNode) sealedNode() {}

// AddNode outputs the saturating per-channel sum of its two (each
// optional) inputs.
type AddNode struct {
	A, B *uuid.UUID
}

func NewAddNode(a, b *uuid.UUID) *AddNode { return &AddNode{A: a, B: b} }

func (n *AddNode) Dependencies() []*uuid.UUID { return []*uuid.UUID{n.A, n.B} }

func (n *AddNode) Evaluate(lookup Lookup) (Frame, *NoInputError) {
	a, aErr := resolve(lookup, n.A, 0)
	if aErr != nil {
		return Frame{}, aErr
	}
	b, bErr := resolve(lookup, n.B, 1)
	if bErr != nil {
		return Frame{}, bErr
	}

	switch {
	case a != nil && b != nil:
		var out Frame
		for c := 0; c < FrameSize; c++ {
			sum := int(a[c]) + int(b[c])
			if sum > 255 {
				sum = 255
			}
			out[c] = byte(sum)
		}
		return out, nil
	case a != nil:
		return *a, nil
	case b != nil:
		return *b, nil
	default:
		return ZeroFrame, nil
	}
}

func (n *AddNode) Unlink(slot int) {
	switch slot {
	case 0:
		n.A = nil
	case 1:
		n.B = nil
	}
}

func (n *AddNode) Clone() Node {
	return &AddNode{A: cloneUUIDPtr(n.A), B: cloneUUIDPtr(n.B)}
}

func (n *AddNode) sealedNode() {}

// MultiplyNode outputs the per-channel product of its two (each optional)
// inputs, scaled as if each byte were a normalized [0,1] intensity.
type MultiplyNode struct {
	A, B *uuid.UUID
}

func NewMultiplyNode(a, b *uuid.UUID) *MultiplyNode { return &MultiplyNode{A: a, B: b} }

func (n *MultiplyNode) Dependencies() []*uuid.UUID { return []*uuid.UUID{n.A, n.B} }

func (n *MultiplyNode) Evaluate(lookup Lookup) (Frame, *NoInputError) {
	a, aErr := resolve(lookup, n.A, 0)
	if aErr != nil {
		return Frame{}, aErr
	}
	b, bErr := resolve(lookup, n.B, 1)
	if bErr != nil {
		return Frame{}, bErr
	}

	if a == nil || b == nil {
		return ZeroFrame, nil
	}

	var out Frame
	for c := 0; c < FrameSize; c++ {
		out[c] = byte((uint16(a[c]) * uint16(b[c])) / 255)
	}
	return out, nil
}

func (n *MultiplyNode) Unlink(slot int) {
	switch slot {
	case 0:
		n.A = nil
	case 1:
		n.B = nil
	}
}

func (n *MultiplyNode) Clone() Node {
	return &MultiplyNode{A: cloneUUIDPtr(n.A), B: cloneUUIDPtr(n.B)}
}

func (n *MultiplyNode) sealedNode() {}

// RewireNode outputs a per-channel permutation/copy of a single (optional)
// input: out[c] = in[Map[c]].
type RewireNode struct {
	Input *uuid.UUID
	Map   [FrameSize]uint16
}

// NewRewireNode validates Map at construction: every entry must address a
// valid channel (< FrameSize), per spec.md §3.
func NewRewireNode(input *uuid.UUID, m [FrameSize]uint16) (*RewireNode, error) {
	for c, idx := range m {
		if idx >= FrameSize {
			return nil, fmt.Errorf("graph: rewire map[%d] = %d is out of range", c, idx)
		}
	}
	return &RewireNode{Input: input, Map: m}, nil
}

func (n *RewireNode) Dependencies() []*uuid.UUID { return []*uuid.UUID{n.Input} }

func (n *RewireNode) Evaluate(lookup Lookup) (Frame, *NoInputError) {
	in, err := resolve(lookup, n.Input, 0)
	if err != nil {
		return Frame{}, err
	}
	if in == nil {
		return ZeroFrame, nil
	}

	var out Frame
	for c := 0; c < FrameSize; c++ {
		out[c] = in[n.Map[c]]
	}
	return out, nil
}

func (n *RewireNode) Unlink(slot int) {
	if slot == 0 {
		n.Input = nil
	}
}

func (n *RewireNode) Clone() Node {
	return &RewireNode{Input: cloneUUIDPtr(n.Input), Map: n.Map}
}

func (n *RewireNode) sealedNode() {}

// resolve looks up an optional upstream ID, returning (nil, nil) when id is
// nil (the slot is unbound), a NoInputError when id is bound but absent
// from lookup, or the resolved frame.
func resolve(lookup Lookup, id *uuid.UUID, slot int) (*Frame, *NoInputError) {
	if id == nil {
		return nil, nil
	}
	f, ok := lookup.Get(*id)
	if !ok {
		return nil, &NoInputError{Slot: slot}
	}
	return &f, nil
}

func cloneUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
