package dmxbroker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dmxmixer/internal/actor"
	"dmxmixer/internal/config"
	"dmxmixer/internal/graph"
	"dmxmixer/internal/metrics"
)

// outgoingBufferSize is the subscription channel depth for broker output
// nodes; ported from cbmix_dmx's OUTGOING_BUFFER_SIZE.
const outgoingBufferSize = 15

// Service bridges a Broker connection to the scene graph: node state
// changes on configured output nodes are streamed out as frames, and
// frames arriving from the broker are written into configured input nodes
// as StaticNode replacements.
type Service struct {
	broker  Broker
	handle  actor.Handle
	log     *zap.Logger
	metrics *metrics.Registry

	outputs         map[uuid.UUID]uint32 // subscription ID -> universe
	inputByUniverse map[uint32]uuid.UUID

	updates chan graph.Update
}

// NewService constructs a Service. AddOutput/AddInput must be called for
// every mapping in config.BrokerConfig before Serve starts.
func NewService(broker Broker, handle actor.Handle, log *zap.Logger, m *metrics.Registry) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		broker:          broker,
		handle:          handle,
		log:             log.Named("dmxbroker"),
		metrics:         m,
		outputs:         make(map[uuid.UUID]uint32),
		inputByUniverse: make(map[uint32]uuid.UUID),
		updates:         make(chan graph.Update, outgoingBufferSize),
	}
}

// AddOutput subscribes to id and remembers that its frames should be
// streamed to universe. Mirrors Dmx::add_output: the first update that
// arrives from the subscribe call is drained immediately so the main loop
// doesn't start out behind.
func (s *Service) AddOutput(ctx context.Context, universe uint32, id uuid.UUID) error {
	subID, err := s.handle.Subscribe(ctx, id, s.updates)
	if err != nil {
		return err
	}
	s.outputs[subID] = universe

	select {
	case update := <-s.updates:
		s.handleUpdate(ctx, update)
	default:
	}
	return nil
}

// AddInput seeds node id as a zero frame, registers universe with the
// broker, and remembers that future frames for universe should be written
// to id.
func (s *Service) AddInput(ctx context.Context, universe uint32, id uuid.UUID) error {
	if err := s.handle.Insert(ctx, id, graph.NewStaticNode(graph.ZeroFrame)); err != nil {
		return err
	}
	if err := s.broker.RegisterUniverse(ctx, universe); err != nil {
		return err
	}
	s.inputByUniverse[universe] = id
	return nil
}

// Seed wires every mapping named in cfg via AddOutput/AddInput.
func (s *Service) Seed(ctx context.Context, cfg config.BrokerConfig, resolve func(name string) (uuid.UUID, bool)) error {
	for _, out := range cfg.Outputs {
		id, ok := resolve(out.Node)
		if !ok {
			s.log.Warn("broker output names unknown node", zap.String("node", out.Node))
			continue
		}
		if err := s.AddOutput(ctx, out.Universe, id); err != nil {
			return err
		}
	}
	for _, in := range cfg.Inputs {
		id, ok := resolve(in.Node)
		if !ok {
			s.log.Warn("broker input names unknown node", zap.String("node", in.Node))
			continue
		}
		if err := s.AddInput(ctx, in.Universe, id); err != nil {
			return err
		}
	}
	return nil
}

// Serve runs until ctx is cancelled, forwarding graph updates to the
// broker and broker frames to the graph. Mirrors Dmx::serve's select loop.
func (s *Service) Serve(ctx context.Context) {
	recvCh := make(chan struct {
		universe uint32
		frame    graph.Frame
		err      error
	})

	go func() {
		for {
			universe, frame, err := s.broker.RecvFrame(ctx)
			select {
			case recvCh <- struct {
				universe uint32
				frame    graph.Frame
				err      error
			}{universe, frame, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-s.updates:
			if !ok {
				s.log.Error("connection with graph unexpectedly closed")
				return
			}
			s.handleUpdate(ctx, update)
		case recv := <-recvCh:
			if recv.err != nil {
				s.log.Error("broker receive error", zap.Error(recv.err))
				if s.metrics != nil {
					s.metrics.BrokerErrors.Inc()
				}
				continue
			}
			s.updateInput(ctx, recv.universe, recv.frame)
		}
	}
}

func (s *Service) handleUpdate(ctx context.Context, update graph.Update) {
	switch update.Kind {
	case graph.UpdateFrame:
		universe, ok := s.outputs[update.ID]
		if !ok {
			s.log.Warn("received update from unknown output subscription", zap.String("subscription", update.ID.String()))
			return
		}
		if err := s.broker.SendFrame(ctx, universe, update.Frame); err != nil {
			s.log.Error("failed to send frame to broker", zap.Error(err))
			if s.metrics != nil {
				s.metrics.BrokerErrors.Inc()
			}
			return
		}
		if s.metrics != nil {
			s.metrics.BrokerFramesSent.Inc()
		}
	case graph.UpdateClosed:
		s.log.Error("broker output subscription closed", zap.String("subscription", update.ID.String()))
	}
}

func (s *Service) updateInput(ctx context.Context, universe uint32, frame graph.Frame) {
	id, ok := s.inputByUniverse[universe]
	if !ok {
		s.log.Warn("received frame for unknown universe", zap.Uint32("universe", universe))
		return
	}
	if err := s.handle.Insert(ctx, id, graph.NewStaticNode(frame)); err != nil {
		s.log.Error("failed to write dmx input to graph", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.BrokerFramesRecv.Inc()
	}
}
