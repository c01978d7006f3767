package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeLookup map[uuid.UUID]Frame

func (f fakeLookup) Get(id uuid.UUID) (Frame, bool) {
	v, ok := f[id]
	return v, ok
}

func frameOf(b byte) Frame {
	var f Frame
	for i := range f {
		f[i] = b
	}
	return f
}

func TestStaticNodeEvaluate(t *testing.T) {
	frame := frameOf(42)
	n := NewStaticNode(frame)

	out, err := n.Evaluate(fakeLookup{})
	require.Nil(t, err)
	require.Equal(t, frame, out)
	require.Nil(t, n.Dependencies())
}

func TestAddNodeSaturates(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	lookup := fakeLookup{
		idA: frameOf(200),
		idB: frameOf(100),
	}
	n := NewAddNode(&idA, &idB)

	out, err := n.Evaluate(lookup)
	require.Nil(t, err)
	for _, b := range out {
		require.Equal(t, byte(255), b)
	}
}

func TestAddNodeUnboundSlotActsAsZero(t *testing.T) {
	idA := uuid.New()
	lookup := fakeLookup{idA: frameOf(10)}
	n := NewAddNode(&idA, nil)

	out, err := n.Evaluate(lookup)
	require.Nil(t, err)
	require.Equal(t, frameOf(10), out)
}

func TestAddNodeBothUnboundIsZero(t *testing.T) {
	n := NewAddNode(nil, nil)
	out, err := n.Evaluate(fakeLookup{})
	require.Nil(t, err)
	require.Equal(t, ZeroFrame, out)
}

func TestAddNodeMissingInput(t *testing.T) {
	idA := uuid.New()
	n := NewAddNode(&idA, nil)

	_, err := n.Evaluate(fakeLookup{})
	require.NotNil(t, err)
	require.Equal(t, 0, err.Slot)
}

func TestAddNodeUnlink(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	n := NewAddNode(&idA, &idB)
	n.Unlink(0)
	require.Nil(t, n.A)
	require.NotNil(t, n.B)
}

func TestMultiplyNodeScalesLikeNormalizedIntensity(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	lookup := fakeLookup{
		idA: frameOf(255),
		idB: frameOf(128),
	}
	n := NewMultiplyNode(&idA, &idB)

	out, err := n.Evaluate(lookup)
	require.Nil(t, err)
	require.Equal(t, byte(128), out[0])
}

func TestMultiplyNodeUnboundIsZero(t *testing.T) {
	idA := uuid.New()
	lookup := fakeLookup{idA: frameOf(255)}
	n := NewMultiplyNode(&idA, nil)

	out, err := n.Evaluate(lookup)
	require.Nil(t, err)
	require.Equal(t, ZeroFrame, out)
}

func TestNewRewireNodeRejectsOutOfRangeMap(t *testing.T) {
	var m [FrameSize]uint16
	m[0] = FrameSize

	_, err := NewRewireNode(nil, m)
	require.Error(t, err)
}

func TestRewireNodePermutes(t *testing.T) {
	idIn := uuid.New()
	var in Frame
	for i := range in {
		in[i] = byte(i % 256)
	}
	lookup := fakeLookup{idIn: in}

	var m [FrameSize]uint16
	for i := range m {
		m[i] = uint16(FrameSize - 1 - i)
	}
	n, err := NewRewireNode(&idIn, m)
	require.NoError(t, err)

	out, evalErr := n.Evaluate(lookup)
	require.Nil(t, evalErr)
	for c := 0; c < FrameSize; c++ {
		require.Equal(t, in[FrameSize-1-c], out[c])
	}
}

func TestRewireNodeUnboundIsZero(t *testing.T) {
	var m [FrameSize]uint16
	n, err := NewRewireNode(nil, m)
	require.NoError(t, err)

	out, evalErr := n.Evaluate(fakeLookup{})
	require.Nil(t, evalErr)
	require.Equal(t, ZeroFrame, out)
}

func TestNodeCloneIsIndependent(t *testing.T) {
	idA := uuid.New()
	n := NewAddNode(&idA, nil)
	clone := n.Clone().(*AddNode)

	clone.A = nil
	require.NotNil(t, n.A)
}
