package protocol

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"github.com/DoyleJ11/tsuro-backend/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGame() GameState {
	straight := board.MustTile(board.Seg(0, 5), board.Seg(1, 4), board.Seg(2, 7), board.Seg(3, 6))
	winner := board.PlayerID(2)
	return GameState{
		Phase:         engine.PhaseGameOver,
		Turn:          3,
		CurrentPlayer: 2,
		Winner:        &winner,
		Players: []PlayerState{
			{ID: 1, Name: "Alice", Color: "#dc322f", Position: board.Position{Cell: board.Cell{Row: 0, Col: 2}, Entry: 5}, Stats: PlayerStats{TilesPlaced: 2, EliminatedOnTurn: 3}},
			{ID: 2, Name: "Bob", Color: "#859900", Position: board.Position{Cell: board.Cell{Row: 4, Col: 3}, Entry: 0}, Alive: true, Connected: true},
		},
		Hands: []Hand{{PlayerID: 2, Tiles: []board.Tile{straight}}},
		Board: []board.PlacedTile{{Cell: board.Cell{Row: 0, Col: 2}, Tile: straight, Rotation: 1}},
		History: []engine.Placement{
			{Turn: 1, PlayerID: 1, Cell: board.Cell{Row: 0, Col: 2}, Tile: straight},
		},
		DeckSize: 20,
	}
}

func allMessages() []Message {
	game := sampleGame()
	spawn := board.Position{Cell: board.Cell{Row: 5, Col: 3}, Entry: 0}
	return []Message{
		CreateRoom{RoomName: "friday", CreatorName: "Alice"},
		JoinRoom{RoomID: "ABCD", PlayerName: "Bob"},
		JoinRoom{RoomID: "ABCD", PlayerName: "Bob", PlayerID: 2},
		LeaveRoom{RoomID: "ABCD"},
		PlacePawn{RoomID: "ABCD", PlayerID: 2, Position: spawn},
		PlaceTile{RoomID: "ABCD", PlayerID: 1, TileIndex: 2, Cell: board.Cell{Row: 0, Col: 2}, Orientation: 3},
		StartGame{RoomID: "ABCD"},
		GetGameState{RoomID: "ABCD"},

		RoomCreated{RoomID: "ABCD", PlayerID: 1},
		RoomJoined{RoomID: "ABCD", PlayerID: 2},
		PlayerJoined{RoomID: "ABCD", PlayerID: 2, Name: "Bob", Color: "#859900"},
		PlayerLeft{RoomID: "ABCD", PlayerID: 2},
		PawnPlaced{PlayerID: 2, Position: spawn},
		GameStarted{State: game},
		TilePlaced{
			PlayerID: 1,
			Tile:     game.Board[0].Tile,
			Cell:     board.Cell{Row: 0, Col: 2},
			ResultingPositions: []PlayerPosition{
				{PlayerID: 1, Position: board.Position{Cell: board.Cell{Row: 1, Col: 2}, Entry: 4}, Alive: true},
			},
		},
		PlayerEliminated{PlayerID: 1},
		GameOver{WinnerID: game.Winner},
		GameOver{},
		GameStateUpdate{FullState: RoomState{RoomID: "ABCD", Name: "friday", Phase: PhaseFinished, Version: 9, Game: &game}},
		GameStateUpdate{FullState: RoomState{
			RoomID:  "ABCD",
			Phase:   PhaseLobby,
			Version: 2,
			Lobby: &LobbyState{MaxPlayers: 8, CanStart: false, Players: []LobbyPlayer{
				{ID: 1, Name: "Alice", Color: "#dc322f", Spawn: &spawn, Connected: true},
				{ID: 2, Name: "Bob", Color: "#859900"},
			}},
		}},
		Error{Message: "not your turn", Kind: KindNotYourTurn, RequestID: "17"},
	}
}

func TestRoundTripEveryMessage(t *testing.T) {
	covered := map[string]bool{}
	for _, m := range allMessages() {
		t.Run(m.MessageType(), func(t *testing.T) {
			b, err := Encode(m)
			require.NoError(t, err)

			env, got, err := Decode(b)
			require.NoError(t, err)
			assert.Equal(t, m.MessageType(), env.Type)
			assert.Equal(t, m, got)
		})
		covered[m.MessageType()] = true
	}

	for typ := range clientDecoders {
		assert.True(t, covered[typ], "no round-trip case for %s", typ)
	}
	for typ := range serverDecoders {
		assert.True(t, covered[typ], "no round-trip case for %s", typ)
	}
}

func TestRequestIDTravelsInEnvelope(t *testing.T) {
	b, err := EncodeWithID(StartGame{RoomID: "ABCD"}, "req-1")
	require.NoError(t, err)

	env, m, err := DecodeClient(b)
	require.NoError(t, err)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, StartGame{RoomID: "ABCD"}, m)
}

func TestDecodeClientRejects(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"not json", `{"type":`, ErrMalformed},
		{"no type", `{"payload":{}}`, ErrMalformed},
		{"unknown type", `{"type":"Teleport","payload":{}}`, ErrUnknownType},
		{"server message from client", `{"type":"GameOver","payload":{"winner_id":1}}`, ErrUnknownType},
		{"wrong payload shape", `{"type":"PlaceTile","payload":{"tile_index":"two"}}`, ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, m, err := DecodeClient([]byte(tc.in))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			assert.Nil(t, m)
		})
	}
}

func TestMissingPayloadIsZeroValue(t *testing.T) {
	_, m, err := DecodeClient([]byte(`{"type":"CreateRoom","request_id":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, CreateRoom{}, m)
}

// Wire types must never contain maps with non-string keys.
func TestNoNonStringMapKeysOnTheWire(t *testing.T) {
	seen := map[reflect.Type]bool{}
	var walk func(path string, typ reflect.Type)
	walk = func(path string, typ reflect.Type) {
		if seen[typ] {
			return
		}
		seen[typ] = true
		switch typ.Kind() {
		case reflect.Map:
			if typ.Key().Kind() != reflect.String {
				t.Errorf("%s: map keyed by %s", path, typ.Key())
			}
			walk(path+"[]", typ.Elem())
		case reflect.Pointer, reflect.Slice, reflect.Array:
			walk(path+"[]", typ.Elem())
		case reflect.Struct:
			for i := 0; i < typ.NumField(); i++ {
				f := typ.Field(i)
				if f.IsExported() {
					walk(path+"."+f.Name, f.Type)
				}
			}
		}
	}
	for _, m := range allMessages() {
		walk(m.MessageType(), reflect.TypeOf(m))
	}
}

func TestRoomCodes(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewRoomCode()
		require.NoError(t, err)
		norm, ok := NormalizeRoomCode(code)
		require.True(t, ok, code)
		require.Equal(t, code, norm)
	}

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ABCD", "ABCD", true},
		{"  abcd \n", "ABCD", true},
		{"xy2z", "XY2Z", true},
		{"ABC", "ABC", false},
		{"ABCDE", "ABCDE", false},
		{"AB0D", "AB0D", false},
		{"ABID", "ABID", false},
		{"AB-D", "AB-D", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeRoomCode(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestRoomNames(t *testing.T) {
	name, err := NormalizeRoomName("  friday  ")
	require.NoError(t, err)
	assert.Equal(t, "friday", name)

	_, err = NormalizeRoomName(strings.Repeat("é", MaxRoomName))
	assert.NoError(t, err, "limit counts runes, not bytes")

	_, err = NormalizeRoomName(strings.Repeat("x", MaxRoomName+1))
	assert.ErrorIs(t, err, ErrRoomNameTooLong)
}
