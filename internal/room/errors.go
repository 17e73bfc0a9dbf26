package room

import (
	"errors"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"github.com/DoyleJ11/tsuro-backend/internal/engine"
	"github.com/DoyleJ11/tsuro-backend/internal/lobby"
	"github.com/DoyleJ11/tsuro-backend/internal/protocol"
)

var ErrNotFound = errors.New("room not found")
var ErrClosed = errors.New("room closed")
var ErrWrongPhase = errors.New("game has not started")
var ErrNotInRoom = errors.New("connection is not in this room")
var ErrPlayerMismatch = errors.New("player id does not match connection")
var ErrInternal = errors.New("internal error")

var errorKinds = []struct {
	err  error
	kind protocol.ErrorKind
}{
	{engine.ErrNotYourTurn, protocol.KindNotYourTurn},
	{engine.ErrTileNotInHand, protocol.KindTileNotInHand},
	{engine.ErrIllegalPlacement, protocol.KindIllegalPlacement},
	{engine.ErrGameOver, protocol.KindGameOver},
	{board.ErrCellOccupied, protocol.KindCellOccupied},
	{board.ErrOutOfBounds, protocol.KindOutOfBounds},
	{lobby.ErrLobbyFull, protocol.KindLobbyFull},
	{lobby.ErrNoAvailableColors, protocol.KindLobbyFull},
	{lobby.ErrAlreadyStarted, protocol.KindGameInProgress},
	{lobby.ErrInvalidSpawnPosition, protocol.KindInvalidSpawnPosition},
	{lobby.ErrPositionTaken, protocol.KindPositionTaken},
	{lobby.ErrNotReadyToStart, protocol.KindNotReadyToStart},
	{lobby.ErrPlayerNotFound, protocol.KindPlayerNotFound},
	{ErrWrongPhase, protocol.KindWrongPhase},
	{ErrNotInRoom, protocol.KindNotInRoom},
	{ErrPlayerMismatch, protocol.KindPlayerMismatch},
	{ErrNotFound, protocol.KindRoomNotFound},
	{ErrClosed, protocol.KindRoomNotFound},
	{protocol.ErrMalformed, protocol.KindProtocol},
	{protocol.ErrUnknownType, protocol.KindProtocol},
	{protocol.ErrRoomNameTooLong, protocol.KindProtocol},
}

// ErrorKind classifies err for the client. Anything unrecognised is Internal.
func ErrorKind(err error) protocol.ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return protocol.KindInternal
}
