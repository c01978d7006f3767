package adminws

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"dmxmixer/internal/graph"
)

// requestName values double as the envelope's Name field for REQUEST
// messages and select which payload type to decode the body into.
const (
	requestInsert      = "insert"
	requestRemove      = "remove"
	requestGet         = "get"
	requestList        = "list"
	requestSubscribe   = "subscribe"
	requestUnsubscribe = "unsubscribe"
)

// nodeDTO is the wire form of a graph.Node: fields mirror the handle API's
// node shapes, with optional upstream IDs as canonical UUID strings.
type nodeDTO struct {
	Kind     string  `json:"kind"`
	Channels string  `json:"channels,omitempty"` // hex, kind=="static"
	A        *string `json:"a,omitempty"`        // kind=="add"/"multiply"
	B        *string `json:"b,omitempty"`
	Input    *string `json:"input,omitempty"` // kind=="rewire"
	Map      []int   `json:"map,omitempty"`
}

func encodeNode(n graph.Node) (nodeDTO, error) {
	switch v := n.(type) {
	case *graph.StaticNode:
		return nodeDTO{Kind: "static", Channels: hex.EncodeToString(v.Frame[:])}, nil
	case *graph.AddNode:
		return nodeDTO{Kind: "add", A: uuidPtrString(v.A), B: uuidPtrString(v.B)}, nil
	case *graph.MultiplyNode:
		return nodeDTO{Kind: "multiply", A: uuidPtrString(v.A), B: uuidPtrString(v.B)}, nil
	case *graph.RewireNode:
		m := make([]int, graph.FrameSize)
		for i, c := range v.Map {
			m[i] = int(c)
		}
		return nodeDTO{Kind: "rewire", Input: uuidPtrString(v.Input), Map: m}, nil
	default:
		return nodeDTO{}, fmt.Errorf("adminws: unknown node type %T", n)
	}
}

func decodeNode(dto nodeDTO) (graph.Node, error) {
	switch dto.Kind {
	case "static":
		raw, err := hex.DecodeString(dto.Channels)
		if err != nil {
			return nil, fmt.Errorf("adminws: decode static channels: %w", err)
		}
		frame, err := graph.NewFrame(raw)
		if err != nil {
			return nil, err
		}
		return graph.NewStaticNode(frame), nil
	case "add":
		a, err := parseUUIDPtr(dto.A)
		if err != nil {
			return nil, err
		}
		b, err := parseUUIDPtr(dto.B)
		if err != nil {
			return nil, err
		}
		return graph.NewAddNode(a, b), nil
	case "multiply":
		a, err := parseUUIDPtr(dto.A)
		if err != nil {
			return nil, err
		}
		b, err := parseUUIDPtr(dto.B)
		if err != nil {
			return nil, err
		}
		return graph.NewMultiplyNode(a, b), nil
	case "rewire":
		input, err := parseUUIDPtr(dto.Input)
		if err != nil {
			return nil, err
		}
		if len(dto.Map) != graph.FrameSize {
			return nil, fmt.Errorf("adminws: rewire map must have %d entries, got %d", graph.FrameSize, len(dto.Map))
		}
		var m [graph.FrameSize]uint16
		for i, v := range dto.Map {
			m[i] = uint16(v)
		}
		return graph.NewRewireNode(input, m)
	default:
		return nil, fmt.Errorf("adminws: unknown node kind %q", dto.Kind)
	}
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("adminws: parse uuid %q: %w", *s, err)
	}
	return &id, nil
}

type insertRequest struct {
	ID   string  `json:"id"`
	Node nodeDTO `json:"node"`
}

type removeRequest struct {
	ID string `json:"id"`
}

type getRequest struct {
	ID string `json:"id"`
}

type getResponse struct {
	Node nodeDTO `json:"node"`
}

type listResponse struct {
	Nodes []listEntry `json:"nodes"`
}

type listEntry struct {
	ID   string  `json:"id"`
	Node nodeDTO `json:"node"`
}

type subscribeRequest struct {
	ID string `json:"id"`
}

type subscribeResponse struct {
	SubscriptionID string `json:"subscription_id"`
}

type unsubscribeRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

type updateEvent struct {
	SubscriptionID string `json:"subscription_id"`
	Closed         bool   `json:"closed"`
	Frame          string `json:"frame,omitempty"` // hex, absent when Closed
}

type errorResponse struct {
	Message string `json:"message"`
}
