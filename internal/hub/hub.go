package hub

import (
	"context"
	"errors"
	"sort"

	"github.com/DoyleJ11/tsuro-backend/internal/protocol"
	"github.com/DoyleJ11/tsuro-backend/internal/room"
	"go.uber.org/zap"
)

var ErrNoFreeCode = errors.New("no free room code")

// maxCodeAttempts bounds the collision loop when picking a room code.
const maxCodeAttempts = 32

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Name  string
	Reply chan CreateResult
}

type CreateResult struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type ListRooms struct {
	Reply chan []*room.Room
}

// RemoveRoom forgets a room that has shut down. Room guards against
// removing a newer room that reused the code.
type RemoveRoom struct {
	Code string
	Room *room.Room
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	// Room is the template for every room the hub creates. OnIdle is
	// replaced by the hub.
	Room    room.Options
	NewCode func() (string, error)
	Logger  *zap.Logger
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.NewCode == nil {
		opts.NewCode = protocol.NewRoomCode
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Room.Logger == nil {
		opts.Room.Logger = opts.Logger
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub loop and all of its rooms have stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				rm, err := h.create(msg.Name)
				msg.Reply <- CreateResult{Room: rm, Err: err}

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case ListRooms:
				out := make([]*room.Room, 0, len(h.rooms))
				for _, rm := range h.rooms {
					out = append(out, rm)
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
				msg.Reply <- out

			case RemoveRoom:
				if h.rooms[msg.Code] == msg.Room {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(name string) (*room.Room, error) {
	var code string
	for i := 0; ; i++ {
		if i == maxCodeAttempts {
			return nil, ErrNoFreeCode
		}
		c, err := h.opts.NewCode()
		if err != nil {
			return nil, err
		}
		if h.rooms[c] == nil {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}

	opts := h.opts.Room
	opts.OnIdle = h.forget
	rm := room.New(h.ctx, code, name, opts)
	h.rooms[code] = rm
	h.log.Info("room created", zap.String("room", code), zap.String("name", name), zap.Int("rooms", len(h.rooms)))
	return rm, nil
}

// forget runs on an idle room's goroutine.
func (h *Hub) forget(rm *room.Room) {
	select {
	case h.inbox <- RemoveRoom{Code: rm.Code(), Room: rm}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) shutdown() {
	h.cancel()
	for code, rm := range h.rooms {
		rm.Close()
		<-rm.Done()
		delete(h.rooms, code)
	}
	h.log.Info("hub stopped")
}

// Create makes a room with a fresh code.
func (h *Hub) Create(ctx context.Context, name string) (*room.Room, error) {
	name, err := protocol.NormalizeRoomName(name)
	if err != nil {
		return nil, err
	}
	reply := make(chan CreateResult, 1)
	if err := h.send(ctx, CreateRoom{Name: name, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Room, res.Err
	case <-h.done:
		return nil, room.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get finds a room by code. Codes are normalised first.
func (h *Hub) Get(ctx context.Context, code string) (*room.Room, error) {
	code, ok := protocol.NormalizeRoomCode(code)
	if !ok {
		return nil, room.ErrNotFound
	}
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, GetRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case rm := <-reply:
		if rm == nil {
			return nil, room.ErrNotFound
		}
		return rm, nil
	case <-h.done:
		return nil, room.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) List(ctx context.Context) ([]*room.Room, error) {
	reply := make(chan []*room.Room, 1)
	if err := h.send(ctx, ListRooms{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case rooms := <-reply:
		return rooms, nil
	case <-h.done:
		return nil, room.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the hub and every room, then waits for the hub loop.
func (h *Hub) Shutdown(ctx context.Context) error {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return room.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
