// Package dmxbroker is the client side of the DMX broker interface
// spec.md §2 treats as an external collaborator: send_frame, recv_frame,
// register_universe. SPEC_FULL.md §3.2 gives it a concrete TCP
// implementation and a Service that wires it to the scene graph, the way
// cbmix_dmx's Dmx actor wires OLA to cbmix_graph's GraphHandle.
package dmxbroker

import (
	"context"

	"dmxmixer/internal/graph"
)

// Broker is the interface the mixer consumes. A universe is the 32-bit
// channel-group address on the physical DMX line; a Frame is its current
// 512-byte payload.
type Broker interface {
	// SendFrame pushes frame to the broker for universe.
	SendFrame(ctx context.Context, universe uint32, frame graph.Frame) error
	// RecvFrame blocks until the broker has a new frame for any registered
	// universe, or ctx is done.
	RecvFrame(ctx context.Context) (universe uint32, frame graph.Frame, err error)
	// RegisterUniverse tells the broker this process wants frames for
	// universe delivered via RecvFrame.
	RegisterUniverse(ctx context.Context, universe uint32) error
	// Close releases the underlying connection.
	Close() error
}
