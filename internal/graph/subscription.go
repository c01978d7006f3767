package graph

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateKind distinguishes the two messages a subscription channel can
// carry.
type UpdateKind int

const (
	// UpdateFrame carries a new frame for the subscribed node.
	UpdateFrame UpdateKind = iota
	// UpdateClosed signals that the subscribed node has been removed;
	// no further messages follow on this channel for this subscription.
	UpdateClosed
)

// Update is a single message delivered to a subscriber.
type Update struct {
	Kind  UpdateKind
	ID    uuid.UUID
	Frame Frame
}

// StateLookup resolves to the evaluated-frame cache; Subscription.Refresh
// only ever reads it, never node/dependency tables.
type StateLookup interface {
	Get(id uuid.UUID) (Frame, bool)
}

// Subscription is a live per-client view of one node, per spec.md §4.4.2:
// it remembers the last frame it delivered and sends Update only on
// change, Closed when its input node disappears.
type Subscription struct {
	id         uuid.UUID
	input      uuid.UUID
	reverseIdx Index
	lastFrame  Frame
	channel    chan<- Update
	log        *zap.Logger
}

// ErrChannelClosed reports that a subscription's delivery channel could not
// accept a send without blocking (its buffer is full); the drop-on-full
// policy treats that subscription as closed. A channel that has actually
// been closed is not detected: sending on it panics, as with any Go channel.
var ErrChannelClosed = &channelClosedError{}

type channelClosedError struct{}

func (*channelClosedError) Error() string { return "graph: subscription channel closed" }

// NewSubscription creates a subscription for input, sending the initial
// Update immediately (spec.md §4.4: subscribe step 3). Returns
// ErrChannelClosed if that initial send could not be delivered.
func NewSubscription(id, input uuid.UUID, reverseIdx Index, initial Frame, channel chan<- Update, log *zap.Logger) (*Subscription, error) {
	s := &Subscription{
		id:         id,
		input:      input,
		reverseIdx: reverseIdx,
		lastFrame:  initial,
		channel:    channel,
		log:        log,
	}
	if err := s.send(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the subscription's own identifier.
func (s *Subscription) ID() uuid.UUID { return s.id }

// Input returns the node this subscription is watching.
func (s *Subscription) Input() uuid.UUID { return s.input }

// ReverseIndex returns the arena handle held in the input node's reverse
// list.
func (s *Subscription) ReverseIndex() Index { return s.reverseIdx }

// Refresh checks state[input] against the last delivered frame and sends an
// Update if it changed, per spec.md §4.4.2. Returns ErrChannelClosed if
// delivery failed, in which case the caller (SceneGraph) drops the
// subscription.
func (s *Subscription) Refresh(state StateLookup) error {
	frame, ok := state.Get(s.input)
	if !ok {
		// The update algorithm guarantees state[input] exists whenever
		// a subscription is notified; this would only happen if the
		// caller notified us about the wrong node.
		return nil
	}
	if frame == s.lastFrame {
		return nil
	}
	if err := s.send(frame); err != nil {
		return err
	}
	s.lastFrame = frame
	return nil
}

// Close delivers a final Closed message without blocking. If the channel is
// full the message is dropped and logged, not returned: per spec.md §7 a
// failed delivery during teardown is not a caller-visible failure.
func (s *Subscription) Close() {
	select {
	case s.channel <- Update{Kind: UpdateClosed, ID: s.id}:
	default:
		if s.log != nil {
			s.log.Debug("subscription channel full, dropping Closed message", zap.String("subscription", s.id.String()))
		}
	}
}

func (s *Subscription) send(frame Frame) error {
	select {
	case s.channel <- Update{Kind: UpdateFrame, ID: s.id, Frame: frame}:
		return nil
	default:
		if s.log != nil {
			s.log.Warn("dropping subscription, channel full", zap.String("subscription", s.id.String()))
		}
		return ErrChannelClosed
	}
}
