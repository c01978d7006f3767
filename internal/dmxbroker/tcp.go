package dmxbroker

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"dmxmixer/internal/graph"
)

const (
	msgRegister uint8 = 1
	msgFrame    uint8 = 2
)

// TCPBroker is a minimal binary-framed client for a DMX broker listening
// on a plain TCP socket: no Go client exists in this project's dependency
// set for the OLA RPC protocol the original prototype spoke, so this
// speaks a much smaller wire format that satisfies exactly the three
// operations the Broker interface needs — one byte message type, one
// big-endian uint32 universe, and (for frame messages) 512 payload bytes.
type TCPBroker struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
}

// Dial connects to a DMX broker at addr.
func Dial(ctx context.Context, addr string) (*TCPBroker, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dmxbroker: dial %s: %w", addr, err)
	}
	return &TCPBroker{conn: conn, reader: bufio.NewReaderSize(conn, 1<<16)}, nil
}

func (b *TCPBroker) RegisterUniverse(ctx context.Context, universe uint32) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var hdr [5]byte
	hdr[0] = msgRegister
	binary.BigEndian.PutUint32(hdr[1:], universe)
	_, err := b.conn.Write(hdr[:])
	if err != nil {
		return fmt.Errorf("dmxbroker: register universe %d: %w", universe, err)
	}
	return nil
}

func (b *TCPBroker) SendFrame(ctx context.Context, universe uint32, frame graph.Frame) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var hdr [5]byte
	hdr[0] = msgFrame
	binary.BigEndian.PutUint32(hdr[1:], universe)
	if _, err := b.conn.Write(hdr[:]); err != nil {
		return fmt.Errorf("dmxbroker: send frame header universe %d: %w", universe, err)
	}
	if _, err := b.conn.Write(frame[:]); err != nil {
		return fmt.Errorf("dmxbroker: send frame payload universe %d: %w", universe, err)
	}
	return nil
}

func (b *TCPBroker) RecvFrame(ctx context.Context) (uint32, graph.Frame, error) {
	var frame graph.Frame

	_ = b.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { _ = b.conn.SetReadDeadline(time.Now()) })
	defer stop()

	var hdr [5]byte
	if _, err := readFull(b.reader, hdr[:]); err != nil {
		return 0, frame, fmt.Errorf("dmxbroker: read frame header: %w", err)
	}
	if hdr[0] != msgFrame {
		return 0, frame, fmt.Errorf("dmxbroker: unexpected message type %d", hdr[0])
	}
	universe := binary.BigEndian.Uint32(hdr[1:])

	if _, err := readFull(b.reader, frame[:]); err != nil {
		return 0, frame, fmt.Errorf("dmxbroker: read frame payload: %w", err)
	}
	return universe, frame, nil
}

func (b *TCPBroker) Close() error {
	return b.conn.Close()
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		k, err := r.Read(buf[n:])
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
