package ws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"github.com/DoyleJ11/tsuro-backend/internal/hub"
	"github.com/DoyleJ11/tsuro-backend/internal/protocol"
	"github.com/DoyleJ11/tsuro-backend/internal/room"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errOutboxClosed = errors.New("room closed the connection")

// detachTimeout bounds how long a session waits for a room to let go of it.
const detachTimeout = 2 * time.Second

// Session is one websocket connection. It is bound to at most one room at a
// time; room and player are only touched by the read loop.
type Session struct {
	id     string
	conn   *websocket.Conn
	hub    *hub.Hub
	opts   Options
	log    *zap.Logger
	outbox chan protocol.Message
	local  chan protocol.Message
	room   *room.Room
	player board.PlayerID
}

func newSession(conn *websocket.Conn, h *hub.Hub, opts Options) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		hub:    h,
		opts:   opts,
		log:    opts.Logger.With(zap.String("client_id", id)),
		outbox: make(chan protocol.Message, opts.OutboxSize),
		local:  make(chan protocol.Message, 8),
	}
}

func (s *Session) run(parent context.Context) {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	s.opts.Metrics.ConnOpened()
	defer s.opts.Metrics.ConnClosed()
	s.conn.SetReadLimit(s.opts.MaxMessageBytes)
	s.log.Info("connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel)
	}()

	cancel(s.readLoop(ctx))
	s.detach()
	<-writerDone

	cause := context.Cause(ctx)
	switch {
	case websocket.CloseStatus(cause) != -1:
		s.conn.CloseNow()
	case errors.Is(cause, errOutboxClosed):
		s.conn.Close(websocket.StatusGoingAway, "room closed")
	default:
		s.conn.Close(websocket.StatusNormalClosure, "bye")
	}
	s.log.Info("disconnected", zap.NamedError("cause", cause))
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		env, msg, err := protocol.DecodeClient(data)
		if err != nil {
			s.log.Debug("bad frame", zap.Error(err))
			s.fail(env.RequestID, err)
			continue
		}
		if ctx.Err() != nil {
			// the writer is gone, most likely because a room closed the outbox
			return context.Cause(ctx)
		}
		s.dispatch(ctx, env.RequestID, msg)
	}
}

func (s *Session) writeLoop(ctx context.Context, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		var m protocol.Message
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-s.outbox:
			if !ok {
				cancel(errOutboxClosed)
				return
			}
			m = msg

		case m = <-s.local:

		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := s.conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				cancel(fmt.Errorf("ping: %w", err))
				return
			}
			continue
		}

		if err := s.write(ctx, m); err != nil {
			cancel(err)
			return
		}
	}
}

func (s *Session) write(ctx context.Context, m protocol.Message) error {
	var reqID string
	if e, ok := m.(protocol.Error); ok {
		reqID = e.RequestID
	}
	payload, err := protocol.EncodeWithID(m, reqID)
	if err != nil {
		s.log.Error("encode", zap.String("type", m.MessageType()), zap.Error(err))
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	return s.conn.Write(writeCtx, websocket.MessageText, payload)
}

func (s *Session) dispatch(ctx context.Context, reqID string, m protocol.Message) {
	q := room.Request{ClientID: s.id, Outbox: s.outbox, RequestID: reqID}

	switch msg := m.(type) {
	case protocol.CreateRoom:
		rm, err := s.hub.Create(ctx, msg.RoomName)
		if err != nil {
			s.fail(reqID, err)
			return
		}
		s.join(ctx, rm, room.Join{Request: q, Name: msg.CreatorName, Creator: true})

	case protocol.JoinRoom:
		rm, err := s.hub.Get(ctx, msg.RoomID)
		if err != nil {
			s.fail(reqID, err)
			return
		}
		s.join(ctx, rm, room.Join{Request: q, Name: msg.PlayerName, PlayerID: msg.PlayerID})

	case protocol.LeaveRoom:
		rm, ok := s.current(reqID, msg.RoomID)
		if !ok {
			return
		}
		q.Reply = make(chan room.Result, 1)
		res, err := rm.Call(ctx, room.Leave{Request: q}, q.Reply)
		if err != nil {
			s.fail(reqID, err)
			return
		}
		if res.Err == nil {
			s.log.Info("left room", zap.String("room", rm.Code()), zap.Int("player_id", int(s.player)))
			s.room, s.player = nil, 0
		}

	case protocol.PlacePawn:
		if rm, ok := s.current(reqID, msg.RoomID); ok {
			s.forward(ctx, rm, reqID, room.PlacePawn{Request: q, PlayerID: msg.PlayerID, Position: msg.Position})
		}

	case protocol.PlaceTile:
		if rm, ok := s.current(reqID, msg.RoomID); ok {
			s.forward(ctx, rm, reqID, room.PlaceTile{
				Request:   q,
				PlayerID:  msg.PlayerID,
				TileIndex: msg.TileIndex,
				Cell:      msg.Cell,
				Rotation:  msg.Orientation,
			})
		}

	case protocol.StartGame:
		if rm, ok := s.current(reqID, msg.RoomID); ok {
			s.forward(ctx, rm, reqID, room.StartGame{Request: q})
		}

	case protocol.GetGameState:
		rm, err := s.hub.Get(ctx, msg.RoomID)
		if err != nil {
			s.fail(reqID, err)
			return
		}
		s.forward(ctx, rm, reqID, room.GetState{Request: q})
	}
}

// join leaves whatever room the session was in and binds it to rm. Joining
// the bound room again keeps the seat; the room answers with it.
func (s *Session) join(ctx context.Context, rm *room.Room, j room.Join) {
	if s.room != rm {
		s.detach()
	}
	j.Reply = make(chan room.Result, 1)
	res, err := rm.Call(ctx, j, j.Reply)
	if err != nil {
		s.fail(j.RequestID, err)
		return
	}
	if res.Err != nil {
		// the room already sent the Error frame
		return
	}
	s.room, s.player = rm, res.PlayerID
	s.log.Info("bound to room", zap.String("room", rm.Code()), zap.Int("player_id", int(res.PlayerID)))
}

// detach tells the bound room to forget this connection and waits until it
// has, so two rooms never share the outbox.
func (s *Session) detach() {
	if s.room == nil {
		return
	}
	rm := s.room
	s.room, s.player = nil, 0

	ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
	defer cancel()
	done := make(chan struct{})
	if err := rm.Send(ctx, room.Detach{ClientID: s.id, Done: done}); err != nil {
		return
	}
	select {
	case <-done:
	case <-rm.Done():
	case <-ctx.Done():
		s.log.Warn("room did not acknowledge detach", zap.String("room", rm.Code()))
	}
}

func (s *Session) current(reqID, code string) (*room.Room, bool) {
	norm, _ := protocol.NormalizeRoomCode(code)
	if s.room == nil || norm != s.room.Code() {
		s.fail(reqID, room.ErrNotInRoom)
		return nil, false
	}
	return s.room, true
}

func (s *Session) forward(ctx context.Context, rm *room.Room, reqID string, m room.Msg) {
	if err := rm.Send(ctx, m); err != nil {
		s.fail(reqID, err)
	}
}

// fail reports an error that never reached a room.
func (s *Session) fail(reqID string, err error) {
	e := protocol.Error{Message: err.Error(), Kind: room.ErrorKind(err), RequestID: reqID}
	s.opts.Metrics.Rejected(string(e.Kind))
	select {
	case s.local <- e:
	default:
		s.log.Warn("dropped error frame", zap.Error(err))
	}
}
