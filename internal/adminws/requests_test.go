package adminws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"dmxmixer/internal/graph"
)

func TestNodeDTOStaticRoundTrip(t *testing.T) {
	var frame graph.Frame
	for i := range frame {
		frame[i] = byte(i % 256)
	}
	dto, err := encodeNode(graph.NewStaticNode(frame))
	require.NoError(t, err)
	require.Equal(t, "static", dto.Kind)

	n, err := decodeNode(dto)
	require.NoError(t, err)
	static, ok := n.(*graph.StaticNode)
	require.True(t, ok)
	require.Equal(t, frame, static.Frame)
}

func TestNodeDTOAddRoundTripWithUnboundSlot(t *testing.T) {
	a := uuid.New()
	dto, err := encodeNode(graph.NewAddNode(&a, nil))
	require.NoError(t, err)
	require.Equal(t, "add", dto.Kind)
	require.NotNil(t, dto.A)
	require.Nil(t, dto.B)

	n, err := decodeNode(dto)
	require.NoError(t, err)
	add, ok := n.(*graph.AddNode)
	require.True(t, ok)
	require.Equal(t, a, *add.A)
	require.Nil(t, add.B)
}

func TestNodeDTORewireRoundTrip(t *testing.T) {
	input := uuid.New()
	var m [graph.FrameSize]uint16
	for i := range m {
		m[i] = uint16(graph.FrameSize - 1 - i)
	}
	rewire, err := graph.NewRewireNode(&input, m)
	require.NoError(t, err)

	dto, err := encodeNode(rewire)
	require.NoError(t, err)
	require.Equal(t, "rewire", dto.Kind)
	require.Len(t, dto.Map, graph.FrameSize)

	n, err := decodeNode(dto)
	require.NoError(t, err)
	got, ok := n.(*graph.RewireNode)
	require.True(t, ok)
	require.Equal(t, m, got.Map)
	require.Equal(t, input, *got.Input)
}

func TestDecodeNodeRejectsUnknownKind(t *testing.T) {
	_, err := decodeNode(nodeDTO{Kind: "bogus"})
	require.Error(t, err)
}

func TestDecodeNodeRejectsShortRewireMap(t *testing.T) {
	input := uuid.New()
	s := input.String()
	_, err := decodeNode(nodeDTO{Kind: "rewire", Input: &s, Map: []int{1, 2, 3}})
	require.Error(t, err)
}
