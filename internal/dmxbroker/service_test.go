package dmxbroker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"dmxmixer/internal/actor"
	"dmxmixer/internal/config"
	"dmxmixer/internal/graph"
)

func brokerConfigFixture() config.BrokerConfig {
	return config.BrokerConfig{
		Outputs: []config.UniverseMapping{{Universe: 1, Node: "out1"}, {Universe: 2, Node: "missing"}},
	}
}

type fakeBroker struct {
	mu   sync.Mutex
	sent []struct {
		universe uint32
		frame    graph.Frame
	}
	registered []uint32
	closed     bool
}

func (f *fakeBroker) SendFrame(_ context.Context, universe uint32, frame graph.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, struct {
		universe uint32
		frame    graph.Frame
	}{universe, frame})
	return nil
}

func (f *fakeBroker) RecvFrame(ctx context.Context) (uint32, graph.Frame, error) {
	<-ctx.Done()
	return 0, graph.Frame{}, ctx.Err()
}

func (f *fakeBroker) RegisterUniverse(_ context.Context, universe uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, universe)
	return nil
}

func (f *fakeBroker) Close() error {
	f.closed = true
	return nil
}

func startActor(t *testing.T) (actor.Handle, context.CancelFunc) {
	t.Helper()
	g := graph.New(nil)
	a := actor.NewActor(g, 8, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go a.Run(ctx)
	return actor.NewHandle(a), cancel
}

func frameOfByte(b byte) graph.Frame {
	var f graph.Frame
	for i := range f {
		f[i] = b
	}
	return f
}

func TestServiceAddOutputStreamsFramesToBroker(t *testing.T) {
	handle, cancel := startActor(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	id := uuid.New()
	require.NoError(t, handle.Insert(ctx, id, graph.NewStaticNode(frameOfByte(9))))

	broker := &fakeBroker{}
	svc := NewService(broker, handle, nil, nil)
	require.NoError(t, svc.AddOutput(ctx, 1, id))

	require.Len(t, broker.sent, 1)
	require.Equal(t, uint32(1), broker.sent[0].universe)
	require.Equal(t, frameOfByte(9), broker.sent[0].frame)
}

func TestServiceAddInputRegistersAndSeedsZero(t *testing.T) {
	handle, cancel := startActor(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	id := uuid.New()
	broker := &fakeBroker{}
	svc := NewService(broker, handle, nil, nil)
	require.NoError(t, svc.AddInput(ctx, 2, id))

	require.Equal(t, []uint32{2}, broker.registered)

	node, err := handle.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, graph.ZeroFrame, node.(*graph.StaticNode).Frame)
}

func TestServiceUpdateInputRewritesGraphNode(t *testing.T) {
	handle, cancel := startActor(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	id := uuid.New()
	broker := &fakeBroker{}
	svc := NewService(broker, handle, nil, nil)
	require.NoError(t, svc.AddInput(ctx, 3, id))

	svc.updateInput(ctx, 3, frameOfByte(200))

	node, err := handle.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, frameOfByte(200), node.(*graph.StaticNode).Frame)
}

func TestServiceHandleUpdateWarnsOnUnknownSubscription(t *testing.T) {
	handle, cancel := startActor(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	broker := &fakeBroker{}
	svc := NewService(broker, handle, nil, nil)
	svc.handleUpdate(ctx, graph.Update{Kind: graph.UpdateFrame, ID: uuid.New()})

	require.Empty(t, broker.sent)
}

func TestSeedResolvesNamesAndSkipsUnknown(t *testing.T) {
	handle, cancel := startActor(t)
	defer cancel()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	outID := uuid.New()
	require.NoError(t, handle.Insert(ctx, outID, graph.NewStaticNode(frameOfByte(1))))

	broker := &fakeBroker{}
	svc := NewService(broker, handle, nil, nil)

	names := map[string]uuid.UUID{"out1": outID}
	err := svc.Seed(ctx, brokerConfigFixture(), func(name string) (uuid.UUID, bool) {
		id, ok := names[name]
		return id, ok
	})
	require.NoError(t, err)
	require.Len(t, broker.sent, 1)
}
