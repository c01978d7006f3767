package adminws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dmxmixer/internal/actor"
	"dmxmixer/internal/config"
	"dmxmixer/internal/graph"
)

// Server accepts admin WebSocket connections and serves GraphServiceRequest
// traffic over them, the way transport.Server serves the plain broadcast
// protocol in the teacher repo — upgrade, then a read loop and a write loop
// per connection.
type Server struct {
	cfg      config.ServerConfig
	log      *zap.Logger
	handle   actor.Handle
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer builds a Server over handle, the actor client used to satisfy
// every request.
func NewServer(cfg config.ServerConfig, log *zap.Logger, handle actor.Handle) *Server {
	return &Server{cfg: cfg, log: log.Named("adminws"), handle: handle}
}

func (s *Server) Start(ctx context.Context) error {
	if s.listener != nil {
		return errors.New("adminws: already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("adminws: listen: %w", err)
	}
	s.listener = ln
	s.log.Info("admin transport listening", zap.String("addr", addr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()
	return nil
}

func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("accept error", zap.Error(err))
			return
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConnection(ctx, c)
		}(conn)
	}
}

func (s *Server) handleConnection(parent context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		s.log.Debug("set deadline", zap.Error(err))
	}
	if _, err := ws.Upgrade(conn); err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	_ = conn.SetDeadline(time.Time{})

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sess := &session{
		server: s,
		conn:   conn,
		ctx:    ctx,
		out:    make(chan Envelope, 64),
		events: make(chan graph.Update, 64),
		subs:   make(map[string]struct{}),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.writeLoop()
	}()

	sess.readLoop()
	cancel()
	<-done
}

// session is one admin connection's state: its open subscriptions (by
// subscription-ID string, added on subscribe and deleted on unsubscribe;
// events are labelled from each Update's own ID) and the two
// channels feeding its single writer — request replies and subscription
// events share one wire in spec.md's envelope framing.
type session struct {
	server *Server
	conn   net.Conn
	ctx    context.Context

	out    chan Envelope
	events chan graph.Update

	mu   sync.Mutex
	subs map[string]struct{}
}

func (sess *session) readLoop() {
	log := sess.server.log
	for {
		select {
		case <-sess.ctx.Done():
			return
		default:
		}

		msg, op, err := wsutil.ReadClientData(sess.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("read frame error", zap.Error(err))
			}
			return
		}
		if op == ws.OpClose {
			return
		}
		if op != ws.OpBinary {
			continue
		}

		env, err := DecodeEnvelope(bytes.NewReader(msg))
		if err != nil {
			log.Debug("decode envelope", zap.Error(err))
			continue
		}
		sess.handleRequest(env)
	}
}

func (sess *session) handleRequest(env Envelope) {
	if env.Type != TypeRequest || env.Name == nil {
		return
	}

	var resp Envelope
	switch *env.Name {
	case requestInsert:
		resp = sess.handleInsert(env)
	case requestRemove:
		resp = sess.handleRemove(env)
	case requestGet:
		resp = sess.handleGet(env)
	case requestList:
		resp = sess.handleList(env)
	case requestSubscribe:
		resp = sess.handleSubscribe(env)
	case requestUnsubscribe:
		resp = sess.handleUnsubscribe(env)
	default:
		resp = errorEnvelope(env.Seq, fmt.Errorf("adminws: unknown request %q", *env.Name))
	}

	select {
	case sess.out <- resp:
	case <-sess.ctx.Done():
	}
}

func (sess *session) handleInsert(env Envelope) Envelope {
	var req insertRequest
	if err := json.Unmarshal(env.Body, &req); err != nil {
		return errorEnvelope(env.Seq, err)
	}
	id, err := parseUUID(req.ID)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	node, err := decodeNode(req.Node)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	if err := sess.server.handle.Insert(sess.ctx, id, node); err != nil {
		return errorEnvelope(env.Seq, err)
	}
	return responseEnvelope(requestInsert, env.Seq, nil)
}

func (sess *session) handleRemove(env Envelope) Envelope {
	var req removeRequest
	if err := json.Unmarshal(env.Body, &req); err != nil {
		return errorEnvelope(env.Seq, err)
	}
	id, err := parseUUID(req.ID)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	if err := sess.server.handle.Remove(sess.ctx, id); err != nil {
		return errorEnvelope(env.Seq, err)
	}
	return responseEnvelope(requestRemove, env.Seq, nil)
}

func (sess *session) handleGet(env Envelope) Envelope {
	var req getRequest
	if err := json.Unmarshal(env.Body, &req); err != nil {
		return errorEnvelope(env.Seq, err)
	}
	id, err := parseUUID(req.ID)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	node, err := sess.server.handle.Get(sess.ctx, id)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	dto, err := encodeNode(node)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	body, err := json.Marshal(getResponse{Node: dto})
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	return responseEnvelope(requestGet, env.Seq, body)
}

func (sess *session) handleList(env Envelope) Envelope {
	entries, err := sess.server.handle.List(sess.ctx)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	out := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		dto, err := encodeNode(e.Node)
		if err != nil {
			return errorEnvelope(env.Seq, err)
		}
		out = append(out, listEntry{ID: e.ID.String(), Node: dto})
	}
	body, err := json.Marshal(listResponse{Nodes: out})
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	return responseEnvelope(requestList, env.Seq, body)
}

func (sess *session) handleSubscribe(env Envelope) Envelope {
	var req subscribeRequest
	if err := json.Unmarshal(env.Body, &req); err != nil {
		return errorEnvelope(env.Seq, err)
	}
	id, err := parseUUID(req.ID)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	subID, err := sess.server.handle.Subscribe(sess.ctx, id, sess.events)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}

	sess.mu.Lock()
	sess.subs[subID.String()] = struct{}{}
	sess.mu.Unlock()

	body, err := json.Marshal(subscribeResponse{SubscriptionID: subID.String()})
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	return responseEnvelope(requestSubscribe, env.Seq, body)
}

func (sess *session) handleUnsubscribe(env Envelope) Envelope {
	var req unsubscribeRequest
	if err := json.Unmarshal(env.Body, &req); err != nil {
		return errorEnvelope(env.Seq, err)
	}
	subID, err := parseUUID(req.SubscriptionID)
	if err != nil {
		return errorEnvelope(env.Seq, err)
	}
	if err := sess.server.handle.Unsubscribe(sess.ctx, subID); err != nil {
		return errorEnvelope(env.Seq, err)
	}

	sess.mu.Lock()
	delete(sess.subs, req.SubscriptionID)
	sess.mu.Unlock()

	return responseEnvelope(requestUnsubscribe, env.Seq, nil)
}

func (sess *session) writeLoop() {
	log := sess.server.log
	for {
		select {
		case <-sess.ctx.Done():
			return
		case env, ok := <-sess.out:
			if !ok {
				return
			}
			if err := sess.writeEnvelope(env); err != nil {
				log.Debug("write response error", zap.Error(err))
				return
			}
		case update, ok := <-sess.events:
			if !ok {
				return
			}
			env, err := eventEnvelope(update)
			if err != nil {
				log.Error("encode event", zap.Error(err))
				continue
			}
			if err := sess.writeEnvelope(env); err != nil {
				log.Debug("write event error", zap.Error(err))
				return
			}
		}
	}
}

func (sess *session) writeEnvelope(env Envelope) error {
	var buf bytes.Buffer
	if err := env.Encode(&buf); err != nil {
		return err
	}
	return wsutil.WriteServerMessage(sess.conn, ws.OpBinary, buf.Bytes())
}

func responseEnvelope(name string, seq *uint32, body []byte) Envelope {
	n := name
	return Envelope{Type: TypeResponse, Seq: seq, Name: &n, Body: body}
}

func errorEnvelope(seq *uint32, err error) Envelope {
	body, marshalErr := json.Marshal(errorResponse{Message: err.Error()})
	if marshalErr != nil {
		body = []byte(`{"message":"internal error"}`)
	}
	return Envelope{Type: TypeError, Seq: seq, Body: body}
}

func eventEnvelope(update graph.Update) (Envelope, error) {
	evt := updateEvent{SubscriptionID: update.ID.String()}
	if update.Kind == graph.UpdateClosed {
		evt.Closed = true
	} else {
		evt.Frame = fmt.Sprintf("%x", update.Frame[:])
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeEvent, Body: body}, nil
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
