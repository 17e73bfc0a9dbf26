package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"github.com/DoyleJ11/tsuro-backend/internal/trail"
)

var ErrNotYourTurn = errors.New("not your turn")
var ErrTileNotInHand = errors.New("tile not in hand")
var ErrIllegalPlacement = errors.New("illegal placement")
var ErrGameOver = errors.New("game already over")
var ErrNotEnoughPlayers = errors.New("not enough players")
var ErrInvalidSeat = errors.New("invalid seat")

type Phase string

const (
	PhaseAwaitingMove Phase = "awaiting_move"
	PhaseResolving    Phase = "resolving"
	PhaseGameOver     Phase = "game_over"
)

// Seat is everything a game needs to know about a player at start.
type Seat struct {
	ID       board.PlayerID
	Name     string
	Color    string
	Position board.Position
}

type Stats struct {
	TilesPlaced       int
	PathLength        int
	TurnsSurvived     int
	PlayersEliminated int
	// EliminatedOnTurn is zero while the player is alive.
	EliminatedOnTurn int
}

type Player struct {
	ID       board.PlayerID
	Name     string
	Color    string
	Position board.Position
	Alive    bool
	Hand     []board.Tile
	Stats    Stats
}

type Move struct {
	PlayerID  board.PlayerID
	TileIndex int
	Cell      board.Cell
	Rotation  board.Rotation
}

// Placement is one entry of the move history. Tile is stored as placed.
type Placement struct {
	Turn     int            `json:"turn"`
	PlayerID board.PlayerID `json:"player_id"`
	Cell     board.Cell     `json:"cell"`
	Tile     board.Tile     `json:"tile"`
}

/*
	SubmitMove -> TilePlaced -> PawnMoved* -> PlayerEliminated* -> DeckRecycled? -> TurnAdvanced | GameOver
*/

type EventType string

const (
	EvtTilePlaced       EventType = "TilePlaced"
	EvtPawnMoved        EventType = "PawnMoved"
	EvtPlayerEliminated EventType = "PlayerEliminated"
	EvtDeckRecycled     EventType = "DeckRecycled"
	EvtTurnAdvanced     EventType = "TurnAdvanced"
	EvtGameOver         EventType = "GameOver"
)

type Event struct {
	Type     EventType
	PlayerID board.PlayerID
	Cell     board.Cell
	Tile     board.Tile
	Position board.Position
	Trail    *trail.Trail
	// Winner is set on GameOver; nil means nobody survived.
	Winner *board.PlayerID
}

type Game struct {
	board   *board.Board
	players []*Player
	deck    *Deck
	rng     *rand.Rand
	current int
	phase   Phase
	turn    int
	winner  *board.PlayerID
	history []Placement
}

type Option func(*Game)

// WithBoard starts the game on a board that already has tiles.
func WithBoard(b *board.Board) Option { return func(g *Game) { g.board = b } }

// WithRand sets the source used when the deck is reshuffled.
func WithRand(rng *rand.Rand) Option { return func(g *Game) { g.rng = rng } }

// NewGame seats players in the given order and deals each a hand from deck.
func NewGame(seats []Seat, deck *Deck, opts ...Option) (*Game, error) {
	if len(seats) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	g := &Game{
		board: board.New(),
		deck:  deck,
		phase: PhaseAwaitingMove,
	}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(1))
	}
	if g.deck == nil {
		g.deck = NewDeck(nil)
	}

	seen := make(map[board.PlayerID]bool, len(seats))
	for _, s := range seats {
		if seen[s.ID] || !s.Position.Valid() {
			return nil, fmt.Errorf("%w: player %d at %v", ErrInvalidSeat, s.ID, s.Position)
		}
		seen[s.ID] = true
		g.players = append(g.players, &Player{
			ID:       s.ID,
			Name:     s.Name,
			Color:    s.Color,
			Position: s.Position,
			Alive:    true,
		})
	}
	for _, p := range g.players {
		p.Hand = g.deck.DrawUpTo(HandSize)
	}
	return g, nil
}

func (g *Game) Phase() Phase { return g.phase }

func (g *Game) Over() bool { return g.phase == PhaseGameOver }

func (g *Game) CurrentPlayer() board.PlayerID { return g.players[g.current].ID }

func (g *Game) Player(id board.PlayerID) (*Player, bool) {
	for _, p := range g.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// SubmitMove validates m against the current state and, only if every
// check passes, applies it. A rejected move changes nothing.
func (g *Game) SubmitMove(m Move) ([]Event, error) {
	if g.phase == PhaseGameOver {
		return nil, ErrGameOver
	}
	mover := g.players[g.current]
	if mover.ID != m.PlayerID {
		return nil, fmt.Errorf("%w: waiting on player %d", ErrNotYourTurn, mover.ID)
	}
	if m.TileIndex < 0 || m.TileIndex >= len(mover.Hand) {
		return nil, fmt.Errorf("%w: index %d, hand has %d", ErrTileNotInHand, m.TileIndex, len(mover.Hand))
	}
	if !m.Cell.InBounds() {
		return nil, fmt.Errorf("%w: %v", board.ErrOutOfBounds, m.Cell)
	}
	if g.board.Occupied(m.Cell) {
		return nil, fmt.Errorf("%w: %v", board.ErrCellOccupied, m.Cell)
	}
	if m.Cell != mover.Position.Cell {
		return nil, fmt.Errorf("%w: pawn is in front of %v", ErrIllegalPlacement, mover.Position.Cell)
	}
	if !m.Rotation.Valid() {
		return nil, fmt.Errorf("%w: rotation %d", ErrIllegalPlacement, m.Rotation)
	}
	tile := mover.Hand[m.TileIndex]
	if _, ok := tile.Rotate(m.Rotation).Exit(mover.Position.Entry); !ok {
		return nil, fmt.Errorf("%w: entry %d has no exit", ErrIllegalPlacement, mover.Position.Entry)
	}

	if err := g.board.Place(m.Cell, tile, m.Rotation); err != nil {
		return nil, err
	}
	mover.Hand = slices.Delete(slices.Clone(mover.Hand), m.TileIndex, m.TileIndex+1)

	return g.resolve(mover, m.Cell, tile.Rotate(m.Rotation)), nil
}

// resolve runs after a tile has been placed at cell. It moves every pawn
// waiting on that cell, removes the losers and hands the turn on.
func (g *Game) resolve(mover *Player, cell board.Cell, placed board.Tile) []Event {
	g.phase = PhaseResolving
	g.turn++
	g.history = append(g.history, Placement{Turn: g.turn, PlayerID: mover.ID, Cell: cell, Tile: placed})
	mover.Stats.TilesPlaced++

	events := []Event{{Type: EvtTilePlaced, PlayerID: mover.ID, Cell: cell, Tile: placed}}

	var out []*Player
	var landed [board.NumCells][]*Player
	for _, p := range g.players {
		if !p.Alive || p.Position.Cell != cell {
			continue
		}
		tr := trail.Trace(g.board, p.Position)
		p.Stats.PathLength += tr.Len()
		if tr.Looped() {
			// closed loop: the pawn stays put and the turn is spent
			events = append(events, Event{Type: EvtPawnMoved, PlayerID: p.ID, Position: p.Position, Trail: &tr})
			continue
		}
		p.Position = tr.End
		events = append(events, Event{Type: EvtPawnMoved, PlayerID: p.ID, Position: p.Position, Trail: &tr})
		switch {
		case tr.Exited:
			out = append(out, p)
		case tr.Moved():
			landed[p.Position.Cell.Index()] = append(landed[p.Position.Cell.Index()], p)
		}
	}
	for _, group := range landed {
		if len(group) > 1 {
			out = append(out, group...)
		}
	}

	var recycled []board.Tile
	for _, p := range g.players {
		if !slices.Contains(out, p) {
			continue
		}
		p.Alive = false
		p.Stats.EliminatedOnTurn = g.turn
		if p != mover {
			mover.Stats.PlayersEliminated++
		}
		recycled = append(recycled, p.Hand...)
		p.Hand = nil
		events = append(events, Event{Type: EvtPlayerEliminated, PlayerID: p.ID, Position: p.Position})
	}
	if len(recycled) > 0 {
		g.deck.Return(recycled...)
		g.deck.Shuffle(g.rng)
		events = append(events, Event{Type: EvtDeckRecycled})
	}

	if mover.Alive {
		g.refill(mover)
	}
	for _, p := range g.players {
		if p.Alive {
			p.Stats.TurnsSurvived++
		}
	}

	if alive := g.alive(); len(alive) <= 1 {
		var winner *board.PlayerID
		if len(alive) == 1 {
			id := alive[0].ID
			winner = &id
		}
		return append(events, g.finish(winner))
	}

	next, ok := g.nextPlayer()
	if !ok {
		// Nobody left can place: out of tiles, or parked after a closed
		// loop in front of a filled cell. Survivors share a drawn game.
		return append(events, g.finish(nil))
	}
	g.current = next
	g.phase = PhaseAwaitingMove
	return append(events, Event{Type: EvtTurnAdvanced, PlayerID: g.players[next].ID})
}

func (g *Game) finish(winner *board.PlayerID) Event {
	g.phase = PhaseGameOver
	g.winner = winner
	return Event{Type: EvtGameOver, Winner: winner}
}

func (g *Game) refill(p *Player) {
	if n := HandSize - len(p.Hand); n > 0 {
		p.Hand = append(p.Hand, g.deck.DrawUpTo(n)...)
	}
}

func (g *Game) alive() []*Player {
	var out []*Player
	for _, p := range g.players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}
