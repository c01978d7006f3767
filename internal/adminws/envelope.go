// Package adminws is the WebSocket admin transport spec.md §6 names as an
// external collaborator: it marshals GraphServiceRequest traffic onto the
// handle API (insert/remove/get/list/subscribe/unsubscribe) and streams
// GraphUpdate events back out.
//
// Wire format (spec.md §6): an envelope carries
// {type: REQUEST|RESPONSE|EVENT|ERROR, seq: u32?, name: string?, body: bytes?}.
// The real system would generate this envelope from a .proto schema with
// protoc; without a Go toolchain available to run code generation safely,
// this package instead hand-writes the same four fields as a fixed binary
// layout over encoding/binary — a deliberate, narrow substitute for
// generated protobuf code, not a general stdlib fallback. Request/response
// bodies (the per-call payloads whose fields mirror the handle API) are
// encoded as JSON inside the envelope's body field, which needs no
// generated code at all.
package adminws

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EnvelopeType is the message's role, per spec.md §6.
type EnvelopeType uint8

const (
	TypeRequest EnvelopeType = iota + 1
	TypeResponse
	TypeEvent
	TypeError
)

const (
	flagSeq  = 1 << 0
	flagName = 1 << 1
	flagBody = 1 << 2
)

// Envelope is one admin-transport message.
type Envelope struct {
	Type EnvelopeType
	Seq  *uint32
	Name *string
	Body []byte
}

// Encode writes e's fixed binary layout to w.
func (e Envelope) Encode(w io.Writer) error {
	var flags uint8
	if e.Seq != nil {
		flags |= flagSeq
	}
	if e.Name != nil {
		flags |= flagName
	}
	if e.Body != nil {
		flags |= flagBody
	}

	if _, err := w.Write([]byte{byte(e.Type), flags}); err != nil {
		return fmt.Errorf("adminws: write envelope header: %w", err)
	}

	if e.Seq != nil {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], *e.Seq)
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("adminws: write envelope seq: %w", err)
		}
	}

	if e.Name != nil {
		if len(*e.Name) > 1<<16-1 {
			return fmt.Errorf("adminws: name too long (%d bytes)", len(*e.Name))
		}
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(*e.Name)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("adminws: write envelope name length: %w", err)
		}
		if _, err := io.WriteString(w, *e.Name); err != nil {
			return fmt.Errorf("adminws: write envelope name: %w", err)
		}
	}

	if e.Body != nil {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(e.Body)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("adminws: write envelope body length: %w", err)
		}
		if _, err := w.Write(e.Body); err != nil {
			return fmt.Errorf("adminws: write envelope body: %w", err)
		}
	}

	return nil
}

// DecodeEnvelope reads one envelope from r.
func DecodeEnvelope(r io.Reader) (Envelope, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Envelope{}, fmt.Errorf("adminws: read envelope header: %w", err)
	}
	e := Envelope{Type: EnvelopeType(header[0])}
	flags := header[1]

	if flags&flagSeq != 0 {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Envelope{}, fmt.Errorf("adminws: read envelope seq: %w", err)
		}
		seq := binary.BigEndian.Uint32(buf[:])
		e.Seq = &seq
	}

	if flags&flagName != 0 {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Envelope{}, fmt.Errorf("adminws: read envelope name length: %w", err)
		}
		n := binary.BigEndian.Uint16(lenBuf[:])
		nameBuf := make([]byte, n)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return Envelope{}, fmt.Errorf("adminws: read envelope name: %w", err)
		}
		name := string(nameBuf)
		e.Name = &name
	}

	if flags&flagBody != 0 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Envelope{}, fmt.Errorf("adminws: read envelope body length: %w", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			return Envelope{}, fmt.Errorf("adminws: read envelope body: %w", err)
		}
		e.Body = body
	}

	return e, nil
}
