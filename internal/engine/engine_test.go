package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	straight = board.MustTile(board.Seg(0, 5), board.Seg(1, 4), board.Seg(2, 7), board.Seg(3, 6))
	uturns   = board.MustTile(board.Seg(0, 1), board.Seg(2, 3), board.Seg(4, 5), board.Seg(6, 7))
	hook     = board.MustTile(board.Seg(0, 1), board.Seg(2, 5), board.Seg(3, 6), board.Seg(4, 7))
)

func at(r, c int, e board.Entry) board.Position {
	return board.Position{Cell: board.Cell{Row: r, Col: c}, Entry: e}
}

func repeat(t board.Tile, n int) []board.Tile {
	out := make([]board.Tile, n)
	for i := range out {
		out[i] = t
	}
	return out
}

func concat(parts ...[]board.Tile) []board.Tile {
	var out []board.Tile
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func aliceAndBob() []Seat {
	return []Seat{
		{ID: 1, Name: "Alice", Color: "#dc322f", Position: at(0, 2, 4)},
		{ID: 2, Name: "Bob", Color: "#859900", Position: at(5, 3, 0)},
	}
}

func newTestGame(t *testing.T, seats []Seat, deck []board.Tile, opts ...Option) *Game {
	t.Helper()
	g, err := NewGame(seats, NewDeck(deck), opts...)
	require.NoError(t, err)
	return g
}

func TestNewGameDealsHands(t *testing.T) {
	g, err := NewGame(aliceAndBob(), NewShuffledDeck(rand.New(rand.NewSource(7))))
	require.NoError(t, err)

	s := g.State()
	require.Len(t, s.Players, 2)
	for _, p := range s.Players {
		assert.True(t, p.Alive)
		assert.Len(t, p.Hand, HandSize)
	}
	assert.Equal(t, 35-2*HandSize, s.DeckSize)
	assert.Equal(t, board.PlayerID(1), s.Current)
	assert.Equal(t, PhaseAwaitingMove, s.Phase)
}

func TestNewGameRejectsBadSeats(t *testing.T) {
	_, err := NewGame(aliceAndBob()[:1], NewDeck(nil))
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	dup := aliceAndBob()
	dup[1].ID = 1
	_, err = NewGame(dup, NewDeck(nil))
	assert.ErrorIs(t, err, ErrInvalidSeat)
}

func TestRejectedMoveChangesNothing(t *testing.T) {
	pre := board.New()
	require.NoError(t, pre.Place(board.Cell{Row: 3, Col: 3}, straight, 0))

	cases := []struct {
		name    string
		move    Move
		wantErr error
	}{
		{"wrong player", Move{PlayerID: 2, TileIndex: 0, Cell: board.Cell{Row: 5, Col: 3}}, ErrNotYourTurn},
		{"unknown player", Move{PlayerID: 9, TileIndex: 0, Cell: board.Cell{Row: 0, Col: 2}}, ErrNotYourTurn},
		{"tile index too large", Move{PlayerID: 1, TileIndex: 3, Cell: board.Cell{Row: 0, Col: 2}}, ErrTileNotInHand},
		{"negative tile index", Move{PlayerID: 1, TileIndex: -1, Cell: board.Cell{Row: 0, Col: 2}}, ErrTileNotInHand},
		{"off the board", Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 6, Col: 2}}, board.ErrOutOfBounds},
		{"occupied cell", Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 3, Col: 3}}, board.ErrCellOccupied},
		{"not in front of the pawn", Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 2, Col: 2}}, ErrIllegalPlacement},
		{"bad rotation", Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 0, Col: 2}, Rotation: 4}, ErrIllegalPlacement},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGame(t, aliceAndBob(), repeat(straight, 10), WithBoard(pre.Clone()))
			before := g.State()

			events, err := g.SubmitMove(tc.move)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			assert.Nil(t, events)
			assert.Equal(t, before, g.State())
		})
	}
}

func TestMoveAdvancesPawnAndTurn(t *testing.T) {
	g := newTestGame(t, aliceAndBob(), repeat(straight, 10))

	events, err := g.SubmitMove(Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 0, Col: 2}})
	require.NoError(t, err)

	require.True(t, containsEvent(events, EvtTilePlaced))
	require.True(t, containsEvent(events, EvtPawnMoved))
	require.True(t, containsEvent(events, EvtTurnAdvanced))
	assert.False(t, containsEvent(events, EvtPlayerEliminated))

	s := g.State()
	alice := s.Players[0]
	assert.Equal(t, at(1, 2, 4), alice.Position)
	assert.Len(t, alice.Hand, HandSize, "mover refills to a full hand")
	assert.Equal(t, 1, alice.Stats.TilesPlaced)
	assert.Equal(t, 1, alice.Stats.PathLength)
	assert.Equal(t, board.PlayerID(2), s.Current)
	assert.Equal(t, 10-2*HandSize-1, s.DeckSize)
	require.Len(t, s.History, 1)
	assert.Equal(t, Placement{Turn: 1, PlayerID: 1, Cell: board.Cell{Row: 0, Col: 2}, Tile: straight}, s.History[0])
}

func TestRefillSkippedWhenDeckEmpty(t *testing.T) {
	g := newTestGame(t, aliceAndBob(), repeat(straight, 2*HandSize))

	_, err := g.SubmitMove(Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 0, Col: 2}})
	require.NoError(t, err)

	s := g.State()
	assert.Len(t, s.Players[0].Hand, HandSize-1)
	assert.Zero(t, s.DeckSize)
}

func TestExitingTheBoardEndsTwoPlayerGame(t *testing.T) {
	deck := concat(repeat(uturns, HandSize), repeat(straight, HandSize), repeat(straight, 4))
	g := newTestGame(t, aliceAndBob(), deck)

	events, err := g.SubmitMove(Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 0, Col: 2}})
	require.NoError(t, err)

	require.True(t, containsEvent(events, EvtPlayerEliminated))
	require.True(t, containsEvent(events, EvtDeckRecycled), "alice's hand goes back in the deck")
	last := events[len(events)-1]
	require.Equal(t, EvtGameOver, last.Type)
	require.NotNil(t, last.Winner)
	assert.Equal(t, board.PlayerID(2), *last.Winner)

	s := g.State()
	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.False(t, s.Players[0].Alive)
	assert.Equal(t, at(0, 2, 5), s.Players[0].Position)
	assert.Empty(t, s.Players[0].Hand)
	assert.Equal(t, 1, s.Players[0].Stats.EliminatedOnTurn)
	assert.Equal(t, 4+HandSize-1, s.DeckSize)

	_, err = g.SubmitMove(Move{PlayerID: 2, TileIndex: 0, Cell: board.Cell{Row: 5, Col: 3}})
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestTurnOrderSkipsEliminated(t *testing.T) {
	seats := []Seat{
		{ID: 1, Name: "A", Position: at(0, 2, 4)},
		{ID: 2, Name: "B", Position: at(0, 4, 4)},
		{ID: 3, Name: "C", Position: at(5, 3, 0)},
	}
	deck := concat(repeat(straight, HandSize), repeat(uturns, HandSize), repeat(straight, HandSize), repeat(straight, 6))
	g := newTestGame(t, seats, deck)

	play := func(id board.PlayerID, cell board.Cell) []Event {
		t.Helper()
		events, err := g.SubmitMove(Move{PlayerID: id, TileIndex: 0, Cell: cell})
		require.NoError(t, err)
		return events
	}

	play(1, board.Cell{Row: 0, Col: 2})
	require.Equal(t, board.PlayerID(2), g.CurrentPlayer())

	events := play(2, board.Cell{Row: 0, Col: 4})
	require.True(t, containsEvent(events, EvtPlayerEliminated))
	require.Equal(t, board.PlayerID(3), g.CurrentPlayer())

	play(3, board.Cell{Row: 5, Col: 3})
	require.Equal(t, board.PlayerID(1), g.CurrentPlayer(), "wraps past the end")

	play(1, board.Cell{Row: 1, Col: 2})
	require.Equal(t, board.PlayerID(3), g.CurrentPlayer(), "eliminated player is never picked again")

	s := g.State()
	assert.Equal(t, at(2, 2, 4), s.Players[0].Position)
	assert.Equal(t, at(4, 3, 0), s.Players[2].Position)
	assert.Equal(t, PhaseAwaitingMove, s.Phase)
}

func TestMutualCollisionEliminatesBoth(t *testing.T) {
	seats := []Seat{
		{ID: 1, Name: "A", Position: at(2, 2, 5)},
		{ID: 2, Name: "B", Position: at(2, 2, 4)},
		{ID: 3, Name: "C", Position: at(5, 3, 0)},
	}
	g := newTestGame(t, seats, repeat(uturns, 12))

	events, err := g.SubmitMove(Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 2, Col: 2}})
	require.NoError(t, err)

	var gone []board.PlayerID
	for _, e := range events {
		if e.Type == EvtPlayerEliminated {
			gone = append(gone, e.PlayerID)
		}
	}
	assert.Equal(t, []board.PlayerID{1, 2}, gone)

	s := g.State()
	assert.Equal(t, at(1, 2, 1), s.Players[0].Position)
	assert.Equal(t, at(1, 2, 0), s.Players[1].Position)
	require.NotNil(t, s.Winner)
	assert.Equal(t, board.PlayerID(3), *s.Winner)
	assert.Equal(t, 1, s.Players[0].Stats.PlayersEliminated)
}

func TestClosedLoopKeepsPlayerAlive(t *testing.T) {
	pre := board.New()
	require.NoError(t, pre.Place(board.Cell{Row: 2, Col: 3}, uturns, 0))

	seats := []Seat{
		{ID: 1, Name: "A", Position: at(2, 2, 5)},
		{ID: 2, Name: "B", Position: at(5, 3, 0)},
	}
	deck := concat(repeat(hook, HandSize), repeat(straight, 10))
	g := newTestGame(t, seats, deck, WithBoard(pre))

	events, err := g.SubmitMove(Move{PlayerID: 1, TileIndex: 0, Cell: board.Cell{Row: 2, Col: 2}})
	require.NoError(t, err)
	assert.False(t, containsEvent(events, EvtPlayerEliminated))

	var moved *Event
	for i := range events {
		if events[i].Type == EvtPawnMoved {
			moved = &events[i]
		}
	}
	require.NotNil(t, moved)
	require.True(t, moved.Trail.Looped())

	s := g.State()
	assert.True(t, s.Players[0].Alive)
	assert.Equal(t, at(2, 2, 5), s.Players[0].Position, "position unchanged")
	assert.Equal(t, board.PlayerID(2), s.Current, "turn consumed")

	// A now faces an occupied cell and is passed over
	_, err = g.SubmitMove(Move{PlayerID: 2, TileIndex: 0, Cell: board.Cell{Row: 5, Col: 3}})
	require.NoError(t, err)
	assert.Equal(t, board.PlayerID(2), g.CurrentPlayer())
}

func TestStatsSnapshotIsDetached(t *testing.T) {
	g := newTestGame(t, aliceAndBob(), repeat(straight, 10))
	s := g.State()
	s.Players[0].Hand[0] = uturns
	s.History = append(s.History, Placement{})

	again := g.State()
	assert.Equal(t, straight, again.Players[0].Hand[0])
	assert.Empty(t, again.History)
}

// playRandom plays legal moves for the current player until the game ends
// or limit moves have been made.
func playRandom(t *testing.T, g *Game, rng *rand.Rand, limit int, check func()) {
	t.Helper()
	for i := 0; i < limit && !g.Over(); i++ {
		p := g.players[g.current]
		m := Move{
			PlayerID:  p.ID,
			TileIndex: rng.Intn(len(p.Hand)),
			Cell:      p.Position.Cell,
			Rotation:  board.Rotation(rng.Intn(board.NumRotations)),
		}
		_, err := g.SubmitMove(m)
		require.NoError(t, err)
		check()
	}
}

func randomSeats(rng *rand.Rand) []Seat {
	n := 2 + rng.Intn(3)
	var seats []Seat
	used := map[board.Position]bool{}
	for len(seats) < n {
		c := board.Cell{Row: rng.Intn(board.Size), Col: rng.Intn(board.Size)}
		pos := board.Position{Cell: c, Entry: board.Entry(rng.Intn(board.NumEntries))}
		if !board.IsEdge(c) || used[pos] {
			continue
		}
		used[pos] = true
		seats = append(seats, Seat{ID: board.PlayerID(len(seats) + 1), Position: pos})
	}
	return seats
}

func TestRandomGamesKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g, err := NewGame(randomSeats(rng), NewShuffledDeck(rng), WithRand(rng))
		require.NoError(t, err)

		gone := map[board.PlayerID]bool{}
		playRandom(t, g, rng, 40, func() {
			alive := g.alive()
			if len(alive) <= 1 {
				require.True(t, g.Over(), "seed %d: game must end with %d alive", seed, len(alive))
				return
			}
			if g.Over() {
				// stalemate: nobody left can place a tile
				for _, p := range alive {
					require.False(t, g.canMove(p), "seed %d", seed)
				}
				return
			}
			cur := g.players[g.current]
			require.True(t, cur.Alive, "seed %d: current player must be alive", seed)
			require.False(t, gone[cur.ID], "seed %d", seed)
			for _, p := range g.players {
				if !p.Alive {
					gone[p.ID] = true
				}
			}
		})
	}
}

func TestReplayReproducesGame(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		seats := randomSeats(rng)
		g, err := NewGame(seats, NewShuffledDeck(rng), WithRand(rng))
		require.NoError(t, err)
		// long enough for hands to run dry
		playRandom(t, g, rng, 60, func() {})

		live := g.State()
		replayed, err := Replay(seats, len(StandardTiles()), live.History)
		require.NoError(t, err, "seed %d", seed)
		got := replayed.State()

		assert.Equal(t, live.Board, got.Board, "seed %d", seed)
		assert.Equal(t, live.Phase, got.Phase, "seed %d", seed)
		assert.Equal(t, live.Winner, got.Winner, "seed %d", seed)
		if live.Phase != PhaseGameOver {
			assert.Equal(t, live.Current, got.Current, "seed %d", seed)
		}
		for i := range live.Players {
			assert.Equal(t, live.Players[i].Position, got.Players[i].Position, "seed %d", seed)
			assert.Equal(t, live.Players[i].Alive, got.Players[i].Alive, "seed %d", seed)
			assert.Len(t, got.Players[i].Hand, len(live.Players[i].Hand), "seed %d", seed)
		}
		assert.Equal(t, live.DeckSize, got.DeckSize, "seed %d", seed)
	}
}

func TestReplaySkipsPlayersWithEmptyHands(t *testing.T) {
	seats := []Seat{
		{ID: 1, Name: "A", Position: at(0, 0, 4)},
		{ID: 2, Name: "B", Position: at(5, 3, 0)},
		{ID: 3, Name: "C", Position: at(0, 4, 4)},
	}
	// A and B are dealt three tiles, C gets the last one
	g := newTestGame(t, seats, repeat(straight, 7))
	play := func(ids ...board.PlayerID) {
		t.Helper()
		for _, id := range ids {
			p, ok := g.Player(id)
			require.True(t, ok)
			_, err := g.SubmitMove(Move{PlayerID: id, Cell: p.Position.Cell})
			require.NoError(t, err)
		}
	}

	play(1, 2, 3, 1, 2)
	live := g.State()
	require.Equal(t, board.PlayerID(1), live.Current, "C has nothing to place")

	replayed, err := Replay(seats, 7, live.History)
	require.NoError(t, err)
	assert.Equal(t, live.Current, replayed.CurrentPlayer())

	play(1, 2)
	require.True(t, g.Over(), "every hand is empty")
	replayed, err = Replay(seats, 7, g.State().History)
	require.NoError(t, err)
	assert.True(t, replayed.Over())
	assert.Nil(t, replayed.State().Winner)
}

func containsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
