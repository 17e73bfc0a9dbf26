package protocol

import (
	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"github.com/DoyleJ11/tsuro-backend/internal/engine"
	"github.com/DoyleJ11/tsuro-backend/internal/lobby"
)

type RoomPhase string

const (
	PhaseLobby    RoomPhase = "lobby"
	PhasePlaying  RoomPhase = "playing"
	PhaseFinished RoomPhase = "finished"
)

// RoomState is the full picture a client needs to redraw from scratch.
// Exactly one of Lobby and Game is set.
type RoomState struct {
	RoomID  string      `json:"room_id"`
	Name    string      `json:"name"`
	Phase   RoomPhase   `json:"phase"`
	Version int         `json:"version"`
	Lobby   *LobbyState `json:"lobby,omitempty"`
	Game    *GameState  `json:"game,omitempty"`
}

type LobbyState struct {
	MaxPlayers int           `json:"max_players"`
	CanStart   bool          `json:"can_start"`
	Players    []LobbyPlayer `json:"players"`
}

type LobbyPlayer struct {
	ID        board.PlayerID  `json:"id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Spawn     *board.Position `json:"spawn"`
	Connected bool            `json:"connected"`
}

type GameState struct {
	Phase         engine.Phase       `json:"phase"`
	Turn          int                `json:"turn"`
	CurrentPlayer board.PlayerID     `json:"current_player"`
	Winner        *board.PlayerID    `json:"winner"`
	Players       []PlayerState      `json:"players"`
	Hands         []Hand             `json:"hands"`
	Board         []board.PlacedTile `json:"board"`
	DeckSize      int                `json:"deck_size"`
	History       []engine.Placement `json:"history"`
}

type PlayerState struct {
	ID        board.PlayerID `json:"id"`
	Name      string         `json:"name"`
	Color     string         `json:"color"`
	Position  board.Position `json:"position"`
	Alive     bool           `json:"alive"`
	Connected bool           `json:"connected"`
	Stats     PlayerStats    `json:"stats"`
}

type PlayerStats struct {
	TilesPlaced       int `json:"tiles_placed"`
	PathLength        int `json:"path_length"`
	TurnsSurvived     int `json:"turns_survived"`
	PlayersEliminated int `json:"players_eliminated"`
	EliminatedOnTurn  int `json:"eliminated_on_turn"`
}

// Hand pairs a player with their tiles; a list instead of a map keyed by
// player id.
type Hand struct {
	PlayerID board.PlayerID `json:"player_id"`
	Tiles    []board.Tile   `json:"tiles"`
}

// Presence reports whether a player has a live connection.
type Presence func(board.PlayerID) bool

func NewLobbyState(l *lobby.Lobby, online Presence) *LobbyState {
	s := &LobbyState{MaxPlayers: l.MaxPlayers(), CanStart: l.CanStart()}
	for _, p := range l.Players() {
		s.Players = append(s.Players, LobbyPlayer{
			ID:        p.ID,
			Name:      p.Name,
			Color:     p.Color,
			Spawn:     p.Spawn,
			Connected: online(p.ID),
		})
	}
	return s
}

func NewGameState(snap engine.Snapshot, online Presence) *GameState {
	s := &GameState{
		Phase:         snap.Phase,
		Turn:          snap.Turn,
		CurrentPlayer: snap.Current,
		Winner:        snap.Winner,
		Board:         snap.Board,
		DeckSize:      snap.DeckSize,
		History:       snap.History,
	}
	for _, p := range snap.Players {
		s.Players = append(s.Players, PlayerState{
			ID:        p.ID,
			Name:      p.Name,
			Color:     p.Color,
			Position:  p.Position,
			Alive:     p.Alive,
			Connected: online(p.ID),
			Stats: PlayerStats{
				TilesPlaced:       p.Stats.TilesPlaced,
				PathLength:        p.Stats.PathLength,
				TurnsSurvived:     p.Stats.TurnsSurvived,
				PlayersEliminated: p.Stats.PlayersEliminated,
				EliminatedOnTurn:  p.Stats.EliminatedOnTurn,
			},
		})
		s.Hands = append(s.Hands, Hand{PlayerID: p.ID, Tiles: p.Hand})
	}
	return s
}

// Positions lists every player's pawn in seat order.
func (g *GameState) Positions() []PlayerPosition {
	out := make([]PlayerPosition, 0, len(g.Players))
	for _, p := range g.Players {
		out = append(out, PlayerPosition{PlayerID: p.ID, Position: p.Position, Alive: p.Alive})
	}
	return out
}
