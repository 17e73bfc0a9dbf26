package engine

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
)

// PlayerView is a detached copy of a Player.
type PlayerView struct {
	ID       board.PlayerID
	Name     string
	Color    string
	Position board.Position
	Alive    bool
	Hand     []board.Tile
	Stats    Stats
}

// Snapshot is a read-only copy of a game. Nothing in it aliases the game.
type Snapshot struct {
	Phase    Phase
	Turn     int
	Current  board.PlayerID
	Winner   *board.PlayerID
	Players  []PlayerView
	Board    []board.PlacedTile
	DeckSize int
	History  []Placement
}

func (g *Game) State() Snapshot {
	s := Snapshot{
		Phase:    g.phase,
		Turn:     g.turn,
		Current:  g.players[g.current].ID,
		Board:    g.board.Tiles(),
		DeckSize: g.deck.Len(),
		History:  slices.Clone(g.history),
	}
	if g.winner != nil {
		w := *g.winner
		s.Winner = &w
	}
	for _, p := range g.players {
		s.Players = append(s.Players, PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			Color:    p.Color,
			Position: p.Position,
			Alive:    p.Alive,
			Hand:     slices.Clone(p.Hand),
			Stats:    p.Stats,
		})
	}
	return s
}

// Replay rebuilds a game from its seats, the size of the deck it was dealt
// from and its placement history. The history never shows which tiles sat
// in a hand, only how many were spent, so the deck is dealt as blank tiles
// and every placement spends one. Hand sizes, and with them the players
// passed over for an empty hand, come out as they were live.
func Replay(seats []Seat, deckSize int, history []Placement) (*Game, error) {
	g, err := NewGame(seats, NewDeck(make([]board.Tile, deckSize)))
	if err != nil {
		return nil, err
	}
	for _, pl := range history {
		if g.Over() {
			return nil, fmt.Errorf("turn %d: %w", pl.Turn, ErrGameOver)
		}
		mover := g.players[g.current]
		if mover.ID != pl.PlayerID {
			return nil, fmt.Errorf("turn %d: %w: want player %d", pl.Turn, ErrNotYourTurn, mover.ID)
		}
		if len(mover.Hand) == 0 {
			return nil, fmt.Errorf("turn %d: %w", pl.Turn, ErrTileNotInHand)
		}
		if pl.Cell != mover.Position.Cell {
			return nil, fmt.Errorf("turn %d: %w", pl.Turn, ErrIllegalPlacement)
		}
		if err := g.board.Place(pl.Cell, pl.Tile, 0); err != nil {
			return nil, fmt.Errorf("turn %d: %w", pl.Turn, err)
		}
		mover.Hand = mover.Hand[:len(mover.Hand)-1]
		g.resolve(mover, pl.Cell, pl.Tile)
	}
	return g, nil
}
