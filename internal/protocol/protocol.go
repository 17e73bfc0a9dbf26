// Package protocol defines the JSON frames exchanged over the websocket.
//
// Every frame is an envelope:
//
//	{"type": "PlaceTile", "request_id": "7", "payload": {...}}
//
// request_id is optional and chosen by the client; an Error caused by that
// request carries it back. Successful changes are never acknowledged
// directly, they show up in the next broadcast.
//
// Nothing on the wire is a Go map: keyed data travels as lists of records
// (hands, positions) so every payload round-trips through encoding/json.
package protocol

import "github.com/DoyleJ11/tsuro-backend/internal/board"

// Client -> Server
const (
	TypeCreateRoom   = "CreateRoom"
	TypeJoinRoom     = "JoinRoom"
	TypeLeaveRoom    = "LeaveRoom"
	TypePlacePawn    = "PlacePawn"
	TypePlaceTile    = "PlaceTile"
	TypeStartGame    = "StartGame"
	TypeGetGameState = "GetGameState"
)

// Server -> Client
const (
	TypeRoomCreated      = "RoomCreated"
	TypeRoomJoined       = "RoomJoined"
	TypePlayerJoined     = "PlayerJoined"
	TypePlayerLeft       = "PlayerLeft"
	TypePawnPlaced       = "PawnPlaced"
	TypeGameStarted      = "GameStarted"
	TypeTilePlaced       = "TilePlaced"
	TypePlayerEliminated = "PlayerEliminated"
	TypeGameOver         = "GameOver"
	TypeGameStateUpdate  = "GameStateUpdate"
	TypeError            = "Error"
)

type Message interface {
	MessageType() string
}

type CreateRoom struct {
	RoomName    string `json:"room_name"`
	CreatorName string `json:"creator_name"`
}

// JoinRoom with a non-zero PlayerID reattaches to an existing seat.
type JoinRoom struct {
	RoomID     string         `json:"room_id"`
	PlayerName string         `json:"player_name"`
	PlayerID   board.PlayerID `json:"player_id,omitempty"`
}

type LeaveRoom struct {
	RoomID string `json:"room_id"`
}

type PlacePawn struct {
	RoomID   string         `json:"room_id"`
	PlayerID board.PlayerID `json:"player_id"`
	Position board.Position `json:"position"`
}

type PlaceTile struct {
	RoomID      string         `json:"room_id"`
	PlayerID    board.PlayerID `json:"player_id"`
	TileIndex   int            `json:"tile_index"`
	Cell        board.Cell     `json:"cell"`
	Orientation board.Rotation `json:"orientation"`
}

type StartGame struct {
	RoomID string `json:"room_id"`
}

type GetGameState struct {
	RoomID string `json:"room_id"`
}

type RoomCreated struct {
	RoomID   string         `json:"room_id"`
	PlayerID board.PlayerID `json:"player_id"`
}

type RoomJoined struct {
	RoomID   string         `json:"room_id"`
	PlayerID board.PlayerID `json:"player_id"`
}

type PlayerJoined struct {
	RoomID   string         `json:"room_id"`
	PlayerID board.PlayerID `json:"player_id"`
	Name     string         `json:"name"`
	Color    string         `json:"color"`
}

type PlayerLeft struct {
	RoomID   string         `json:"room_id"`
	PlayerID board.PlayerID `json:"player_id"`
}

type PawnPlaced struct {
	PlayerID board.PlayerID `json:"player_id"`
	Position board.Position `json:"position"`
}

type GameStarted struct {
	State GameState `json:"state"`
}

type PlayerPosition struct {
	PlayerID board.PlayerID `json:"player_id"`
	Position board.Position `json:"position"`
	Alive    bool           `json:"alive"`
}

type TilePlaced struct {
	PlayerID           board.PlayerID   `json:"player_id"`
	Tile               board.Tile       `json:"tile"`
	Cell               board.Cell       `json:"cell"`
	ResultingPositions []PlayerPosition `json:"resulting_positions"`
}

type PlayerEliminated struct {
	PlayerID board.PlayerID `json:"player_id"`
}

// GameOver has a nil WinnerID when nobody survived.
type GameOver struct {
	WinnerID *board.PlayerID `json:"winner_id"`
}

type GameStateUpdate struct {
	FullState RoomState `json:"full_state"`
}

type Error struct {
	Message   string    `json:"message"`
	Kind      ErrorKind `json:"kind"`
	RequestID string    `json:"request_id,omitempty"`
}

func (CreateRoom) MessageType() string   { return TypeCreateRoom }
func (JoinRoom) MessageType() string     { return TypeJoinRoom }
func (LeaveRoom) MessageType() string    { return TypeLeaveRoom }
func (PlacePawn) MessageType() string    { return TypePlacePawn }
func (PlaceTile) MessageType() string    { return TypePlaceTile }
func (StartGame) MessageType() string    { return TypeStartGame }
func (GetGameState) MessageType() string { return TypeGetGameState }

func (RoomCreated) MessageType() string      { return TypeRoomCreated }
func (RoomJoined) MessageType() string       { return TypeRoomJoined }
func (PlayerJoined) MessageType() string     { return TypePlayerJoined }
func (PlayerLeft) MessageType() string       { return TypePlayerLeft }
func (PawnPlaced) MessageType() string       { return TypePawnPlaced }
func (GameStarted) MessageType() string      { return TypeGameStarted }
func (TilePlaced) MessageType() string       { return TypeTilePlaced }
func (PlayerEliminated) MessageType() string { return TypePlayerEliminated }
func (GameOver) MessageType() string         { return TypeGameOver }
func (GameStateUpdate) MessageType() string  { return TypeGameStateUpdate }
func (Error) MessageType() string            { return TypeError }

type ErrorKind string

const (
	KindProtocol             ErrorKind = "Protocol"
	KindNotYourTurn          ErrorKind = "NotYourTurn"
	KindIllegalPlacement     ErrorKind = "IllegalPlacement"
	KindTileNotInHand        ErrorKind = "TileNotInHand"
	KindInvalidSpawnPosition ErrorKind = "InvalidSpawnPosition"
	KindPositionTaken        ErrorKind = "PositionTaken"
	KindCellOccupied         ErrorKind = "CellOccupied"
	KindOutOfBounds          ErrorKind = "OutOfBounds"
	KindLobbyFull            ErrorKind = "LobbyFull"
	KindNotReadyToStart      ErrorKind = "NotReadyToStart"
	KindGameInProgress       ErrorKind = "GameInProgress"
	KindWrongPhase           ErrorKind = "WrongPhase"
	KindGameOver             ErrorKind = "GameOver"
	KindPlayerMismatch       ErrorKind = "PlayerMismatch"
	KindNotInRoom            ErrorKind = "NotInRoom"
	KindRoomNotFound         ErrorKind = "RoomNotFound"
	KindPlayerNotFound       ErrorKind = "PlayerNotFound"
	KindInternal             ErrorKind = "Internal"
)
