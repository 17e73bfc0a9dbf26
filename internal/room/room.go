package room

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"github.com/DoyleJ11/tsuro-backend/internal/engine"
	"github.com/DoyleJ11/tsuro-backend/internal/lobby"
	"github.com/DoyleJ11/tsuro-backend/internal/metrics"
	"github.com/DoyleJ11/tsuro-backend/internal/protocol"
	"go.uber.org/zap"
)

type Msg interface{ isRoomMsg() }

// Request is embedded in every client command. Errors caused by the command
// go to Outbox; Reply, when set, gets the outcome and must be buffered.
type Request struct {
	ClientID  string
	Outbox    chan<- protocol.Message
	RequestID string
	Reply     chan Result
}

func (q Request) request() Request { return q }

type Result struct {
	PlayerID board.PlayerID
	Err      error
}

// Join seats a new player, or rebinds the connection to an existing seat
// when PlayerID is set.
type Join struct {
	Request
	Name     string
	PlayerID board.PlayerID
	Creator  bool
}

type Leave struct{ Request }

type PlacePawn struct {
	Request
	PlayerID board.PlayerID
	Position board.Position
}

type PlaceTile struct {
	Request
	PlayerID  board.PlayerID
	TileIndex int
	Cell      board.Cell
	Rotation  board.Rotation
}

type StartGame struct{ Request }

// GetState sends the full room state to the requester only.
type GetState struct{ Request }

// Detach unbinds a connection that went away or moved to another room. The
// player keeps the seat. Done, when set, is closed once the room has let go
// of the connection's outbox.
type Detach struct {
	ClientID string
	Done     chan struct{}
}

type Inspect struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isRoomMsg()      {}
func (Leave) isRoomMsg()     {}
func (PlacePawn) isRoomMsg() {}
func (PlaceTile) isRoomMsg() {}
func (StartGame) isRoomMsg() {}
func (GetState) isRoomMsg()  {}
func (Detach) isRoomMsg()    {}
func (Inspect) isRoomMsg()   {}
func (Shutdown) isRoomMsg()  {}

type View struct {
	Code       string
	Name       string
	Phase      protocol.RoomPhase
	Version    int
	NumClients int
	NumPlayers int
	State      protocol.RoomState
}

type Options struct {
	MaxPlayers  int
	IdleTimeout time.Duration
	InboxSize   int
	// Seed fixes the room's random source; zero picks one from the clock.
	Seed    int64
	NewDeck func(*rand.Rand) *engine.Deck
	// OnIdle runs on the room goroutine after an idle room has shut down.
	OnIdle  func(*Room)
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type client struct {
	outbox chan<- protocol.Message
	player board.PlayerID
}

type Room struct {
	code    string
	name    string
	opts    Options
	inbox   chan Msg
	lobby   *lobby.Lobby
	game    *engine.Game
	rng     *rand.Rand
	version int
	clients map[string]*client
	idle    *time.Timer
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(parent context.Context, code, name string, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 64
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := &Room{
		code:    code,
		name:    name,
		opts:    opts,
		inbox:   make(chan Msg, opts.InboxSize),
		lobby:   lobby.New(opts.MaxPlayers),
		rng:     rand.New(rand.NewSource(seed)),
		clients: make(map[string]*client),
		log:     opts.Logger.With(zap.String("room", code)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	opts.Metrics.RoomOpened()
	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

func (r *Room) Name() string { return r.name }

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Close() { r.cancel() }

// Send queues m unless the room is gone or ctx ends first.
func (r *Room) Send(ctx context.Context, m Msg) error {
	select {
	case r.inbox <- m:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call sends a command and waits on reply for its outcome.
func (r *Room) Call(ctx context.Context, m Msg, reply <-chan Result) (Result, error) {
	if err := r.Send(ctx, m); err != nil {
		return Result{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-r.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (r *Room) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.Send(ctx, Inspect{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (r *Room) loop() {
	defer close(r.done)
	r.updateIdle()
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-r.idleC():
			r.log.Info("closing idle room", zap.Duration("idle_timeout", r.opts.IdleTimeout))
			r.shutdown()
			if r.opts.OnIdle != nil {
				r.opts.OnIdle(r)
			}
			return

		case m := <-r.inbox:
			if _, ok := m.(Shutdown); ok {
				r.shutdown()
				return
			}
			r.handle(m)
			r.updateIdle()
		}
	}
}

func (r *Room) handle(m Msg) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("recovered panic",
				zap.String("msg", fmt.Sprintf("%T", m)),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			if c, ok := m.(interface{ request() Request }); ok {
				r.reject(c.request(), fmt.Errorf("%w: %v", ErrInternal, p))
			}
		}
	}()

	switch msg := m.(type) {
	case Join:
		r.opts.Metrics.Command(protocol.TypeJoinRoom)
		if msg.PlayerID != 0 {
			r.rejoin(msg)
		} else {
			r.join(msg)
		}

	case Leave:
		r.opts.Metrics.Command(protocol.TypeLeaveRoom)
		r.leave(msg)

	case PlacePawn:
		r.opts.Metrics.Command(protocol.TypePlacePawn)
		r.placePawn(msg)

	case PlaceTile:
		r.opts.Metrics.Command(protocol.TypePlaceTile)
		r.placeTile(msg)

	case StartGame:
		r.opts.Metrics.Command(protocol.TypeStartGame)
		r.startGame(msg)

	case GetState:
		r.opts.Metrics.Command(protocol.TypeGetGameState)
		r.sendTo(msg.Request, protocol.GameStateUpdate{FullState: r.state()})
		r.reply(msg.Request, Result{PlayerID: r.playerOf(msg.ClientID)})

	case Detach:
		r.detach(msg.ClientID)
		if msg.Done != nil {
			close(msg.Done)
		}

	case Inspect:
		msg.Reply <- r.view()
	}
}

func (r *Room) join(m Join) {
	if c, ok := r.clients[m.ClientID]; ok {
		// already seated through this connection
		r.send(m.ClientID, protocol.RoomJoined{RoomID: r.code, PlayerID: c.player})
		r.reply(m.Request, Result{PlayerID: c.player})
		return
	}
	if r.game != nil {
		r.reject(m.Request, lobby.ErrAlreadyStarted)
		return
	}
	p, err := r.lobby.Join(m.Name)
	if err != nil {
		r.reject(m.Request, err)
		return
	}
	r.clients[m.ClientID] = &client{outbox: m.Outbox, player: p.ID}
	r.log.Info("player joined",
		zap.Int("player_id", int(p.ID)),
		zap.String("name", p.Name),
		zap.String("client_id", m.ClientID),
	)

	var ack protocol.Message = protocol.RoomJoined{RoomID: r.code, PlayerID: p.ID}
	if m.Creator {
		ack = protocol.RoomCreated{RoomID: r.code, PlayerID: p.ID}
	}
	r.send(m.ClientID, ack)
	r.commit(protocol.PlayerJoined{RoomID: r.code, PlayerID: p.ID, Name: p.Name, Color: p.Color})
	r.reply(m.Request, Result{PlayerID: p.ID})
}

func (r *Room) rejoin(m Join) {
	if !r.hasPlayer(m.PlayerID) {
		r.reject(m.Request, fmt.Errorf("%w: %d", lobby.ErrPlayerNotFound, m.PlayerID))
		return
	}
	r.clients[m.ClientID] = &client{outbox: m.Outbox, player: m.PlayerID}
	r.log.Info("player reconnected",
		zap.Int("player_id", int(m.PlayerID)),
		zap.String("client_id", m.ClientID),
	)
	r.send(m.ClientID, protocol.RoomJoined{RoomID: r.code, PlayerID: m.PlayerID})
	r.commit()
	r.reply(m.Request, Result{PlayerID: m.PlayerID})
}

// leave removes the player from a lobby. Once the game is running the seat
// stays and only the connection is unbound.
func (r *Room) leave(m Leave) {
	c, ok := r.clients[m.ClientID]
	if !ok {
		r.reject(m.Request, ErrNotInRoom)
		return
	}
	delete(r.clients, m.ClientID)
	if r.game == nil {
		if err := r.lobby.Leave(c.player); err != nil {
			r.log.Warn("leave", zap.Int("player_id", int(c.player)), zap.Error(err))
		}
	}
	r.log.Info("player left", zap.Int("player_id", int(c.player)), zap.String("client_id", m.ClientID))

	left := protocol.PlayerLeft{RoomID: r.code, PlayerID: c.player}
	r.commit(left)
	select {
	case c.outbox <- left:
	default:
	}
	r.reply(m.Request, Result{PlayerID: c.player})
}

func (r *Room) detach(clientID string) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	delete(r.clients, clientID)
	r.log.Info("client detached", zap.String("client_id", clientID), zap.Int("player_id", int(c.player)))
	r.commit()
}

func (r *Room) placePawn(m PlacePawn) {
	if r.game != nil {
		r.reject(m.Request, lobby.ErrAlreadyStarted)
		return
	}
	if err := r.checkSeat(m.Request, m.PlayerID); err != nil {
		r.reject(m.Request, err)
		return
	}
	if err := r.lobby.ChooseSpawn(m.PlayerID, m.Position); err != nil {
		r.reject(m.Request, err)
		return
	}
	r.commit(protocol.PawnPlaced{PlayerID: m.PlayerID, Position: m.Position})
	r.reply(m.Request, Result{PlayerID: m.PlayerID})
}

func (r *Room) startGame(m StartGame) {
	if r.game != nil {
		r.reject(m.Request, lobby.ErrAlreadyStarted)
		return
	}
	if _, ok := r.clients[m.ClientID]; !ok {
		r.reject(m.Request, ErrNotInRoom)
		return
	}
	if !r.lobby.CanStart() {
		r.reject(m.Request, lobby.ErrNotReadyToStart)
		return
	}

	players := r.lobby.Players()
	seats := make([]engine.Seat, 0, len(players))
	for _, p := range players {
		seats = append(seats, engine.Seat{ID: p.ID, Name: p.Name, Color: p.Color, Position: *p.Spawn})
	}
	g, err := engine.NewGame(seats, r.newDeck(), engine.WithRand(r.rng))
	if err != nil {
		r.reject(m.Request, fmt.Errorf("%w: %v", ErrInternal, err))
		return
	}
	if err := r.lobby.Start(); err != nil {
		r.reject(m.Request, err)
		return
	}
	r.game = g
	r.opts.Metrics.GameStarted()
	r.log.Info("game started", zap.Int("players", len(seats)))

	r.commit(protocol.GameStarted{State: *r.gameState()})
	r.reply(m.Request, Result{PlayerID: r.playerOf(m.ClientID)})
}

func (r *Room) placeTile(m PlaceTile) {
	if r.game == nil {
		r.reject(m.Request, ErrWrongPhase)
		return
	}
	if err := r.checkSeat(m.Request, m.PlayerID); err != nil {
		r.reject(m.Request, err)
		return
	}
	events, err := r.game.SubmitMove(engine.Move{
		PlayerID:  m.PlayerID,
		TileIndex: m.TileIndex,
		Cell:      m.Cell,
		Rotation:  m.Rotation,
	})
	if err != nil {
		r.reject(m.Request, err)
		return
	}

	r.commit(r.translate(events)...)
	if r.game.Over() {
		r.opts.Metrics.GameFinished()
		r.log.Info("game over", zap.Int("turns", r.game.State().Turn))
	}
	r.reply(m.Request, Result{PlayerID: m.PlayerID})
}

// translate turns engine events into the broadcast sequence:
// TilePlaced, then PlayerEliminated for each loser, then GameOver.
func (r *Room) translate(events []engine.Event) []protocol.Message {
	var placed protocol.TilePlaced
	var rest []protocol.Message
	for _, e := range events {
		switch e.Type {
		case engine.EvtTilePlaced:
			placed.PlayerID = e.PlayerID
			placed.Tile = e.Tile
			placed.Cell = e.Cell
		case engine.EvtPawnMoved:
			alive := false
			if p, ok := r.game.Player(e.PlayerID); ok {
				alive = p.Alive
			}
			placed.ResultingPositions = append(placed.ResultingPositions, protocol.PlayerPosition{
				PlayerID: e.PlayerID,
				Position: e.Position,
				Alive:    alive,
			})
		case engine.EvtPlayerEliminated:
			rest = append(rest, protocol.PlayerEliminated{PlayerID: e.PlayerID})
		case engine.EvtGameOver:
			rest = append(rest, protocol.GameOver{WinnerID: e.Winner})
		}
	}
	return append([]protocol.Message{placed}, rest...)
}

func (r *Room) newDeck() *engine.Deck {
	if r.opts.NewDeck != nil {
		return r.opts.NewDeck(r.rng)
	}
	return engine.NewShuffledDeck(r.rng)
}

func (r *Room) checkSeat(q Request, id board.PlayerID) error {
	c, ok := r.clients[q.ClientID]
	if !ok {
		return ErrNotInRoom
	}
	if c.player != id {
		return fmt.Errorf("%w: connection holds player %d", ErrPlayerMismatch, c.player)
	}
	return nil
}

func (r *Room) hasPlayer(id board.PlayerID) bool {
	if r.game != nil {
		_, ok := r.game.Player(id)
		return ok
	}
	_, ok := r.lobby.Player(id)
	return ok
}

func (r *Room) playerOf(clientID string) board.PlayerID {
	if c, ok := r.clients[clientID]; ok {
		return c.player
	}
	return 0
}

func (r *Room) online(id board.PlayerID) bool {
	for _, c := range r.clients {
		if c.player == id {
			return true
		}
	}
	return false
}

// commit records an accepted change: the version goes up, the events go
// out in order and a full state update follows them.
func (r *Room) commit(events ...protocol.Message) {
	r.version++
	for _, e := range events {
		r.broadcast(e)
	}
	r.broadcast(protocol.GameStateUpdate{FullState: r.state()})
}

func (r *Room) broadcast(m protocol.Message) {
	for id, c := range r.clients {
		r.deliver(id, c, m)
	}
	r.opts.Metrics.Broadcast(len(r.clients))
}

func (r *Room) send(clientID string, m protocol.Message) {
	if c, ok := r.clients[clientID]; ok {
		r.deliver(clientID, c, m)
	}
}

// deliver hands m to a bound client. A full outbox means a slow client,
// which is closed and dropped. An outbox some other room already closed is
// only forgotten.
func (r *Room) deliver(id string, c *client, m protocol.Message) {
	switch offer(c.outbox, m) {
	case outboxFull:
		r.drop(id, c)
	case outboxClosed:
		delete(r.clients, id)
		r.log.Warn("client outbox already closed", zap.String("client_id", id), zap.Int("player_id", int(c.player)))
	}
}

// sendTo delivers to the requester whether or not it is bound here. An
// unbound outbox belongs to someone else, so it is never closed.
func (r *Room) sendTo(q Request, m protocol.Message) {
	if _, ok := r.clients[q.ClientID]; ok {
		r.send(q.ClientID, m)
		return
	}
	if q.Outbox == nil {
		return
	}
	if offer(q.Outbox, m) != outboxSent {
		r.log.Warn("dropped reply to unbound client", zap.String("client_id", q.ClientID))
	}
}

type outcome int

const (
	outboxSent outcome = iota
	outboxFull
	outboxClosed
)

// offer never blocks. The outbox of a session may already have been closed
// by a room it was bound to before, so a send on a closed channel is
// reported rather than raised.
func offer(ch chan<- protocol.Message, m protocol.Message) (res outcome) {
	defer func() {
		if recover() != nil {
			res = outboxClosed
		}
	}()
	select {
	case ch <- m:
		return outboxSent
	default:
		return outboxFull
	}
}

// closeOutbox is a no-op on a channel that is already closed.
func closeOutbox(ch chan<- protocol.Message) {
	defer func() { _ = recover() }()
	close(ch)
}

// drop disconnects a client whose outbox is full.
func (r *Room) drop(id string, c *client) {
	closeOutbox(c.outbox)
	delete(r.clients, id)
	r.opts.Metrics.SlowConsumer()
	r.log.Warn("dropped slow client", zap.String("client_id", id), zap.Int("player_id", int(c.player)))
}

func (r *Room) reject(q Request, err error) {
	kind := ErrorKind(err)
	r.opts.Metrics.Rejected(string(kind))
	r.log.Debug("rejected",
		zap.String("client_id", q.ClientID),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	r.sendTo(q, protocol.Error{Message: err.Error(), Kind: kind, RequestID: q.RequestID})
	r.reply(q, Result{Err: err})
}

func (r *Room) reply(q Request, res Result) {
	if q.Reply == nil {
		return
	}
	select {
	case q.Reply <- res:
	default:
	}
}

func (r *Room) state() protocol.RoomState {
	s := protocol.RoomState{RoomID: r.code, Name: r.name, Version: r.version}
	switch {
	case r.game == nil:
		s.Phase = protocol.PhaseLobby
		s.Lobby = protocol.NewLobbyState(r.lobby, r.online)
	case r.game.Over():
		s.Phase = protocol.PhaseFinished
		s.Game = r.gameState()
	default:
		s.Phase = protocol.PhasePlaying
		s.Game = r.gameState()
	}
	return s
}

func (r *Room) gameState() *protocol.GameState {
	return protocol.NewGameState(r.game.State(), r.online)
}

func (r *Room) view() View {
	s := r.state()
	n := r.lobby.Len()
	if s.Game != nil {
		n = len(s.Game.Players)
	}
	return View{
		Code:       r.code,
		Name:       r.name,
		Phase:      s.Phase,
		Version:    r.version,
		NumClients: len(r.clients),
		NumPlayers: n,
		State:      s,
	}
}

func (r *Room) idleC() <-chan time.Time {
	if r.idle == nil {
		return nil
	}
	return r.idle.C
}

// updateIdle arms the idle timer while nobody is connected.
func (r *Room) updateIdle() {
	if r.opts.IdleTimeout <= 0 {
		return
	}
	if len(r.clients) > 0 {
		if r.idle != nil {
			r.idle.Stop()
			r.idle = nil
		}
		return
	}
	if r.idle == nil {
		r.idle = time.NewTimer(r.opts.IdleTimeout)
	}
}

func (r *Room) shutdown() {
	for id, c := range r.clients {
		closeOutbox(c.outbox) // no more messages for this client
		delete(r.clients, id)
	}
	if r.idle != nil {
		r.idle.Stop()
		r.idle = nil
	}
	r.cancel()
	r.opts.Metrics.RoomClosed()
	r.log.Info("room closed", zap.Int("version", r.version))
}
