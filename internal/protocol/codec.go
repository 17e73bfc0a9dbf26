package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnknownType = errors.New("unknown message type")

type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func Encode(m Message) ([]byte, error) {
	return EncodeWithID(m, "")
}

func EncodeWithID(m Message, requestID string) ([]byte, error) {
	p, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}
	return json.Marshal(Envelope{Type: m.MessageType(), RequestID: requestID, Payload: p})
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env, nil
}

// DecodePayload reads the envelope payload into T. A missing payload
// decodes to the zero value.
func DecodePayload[T any](env Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	return v, nil
}

type decoder func(Envelope) (Message, error)

func decodeAs[T Message](env Envelope) (Message, error) {
	v, err := DecodePayload[T](env)
	if err != nil {
		return nil, err
	}
	return v, nil
}

var clientDecoders = map[string]decoder{
	TypeCreateRoom:   decodeAs[CreateRoom],
	TypeJoinRoom:     decodeAs[JoinRoom],
	TypeLeaveRoom:    decodeAs[LeaveRoom],
	TypePlacePawn:    decodeAs[PlacePawn],
	TypePlaceTile:    decodeAs[PlaceTile],
	TypeStartGame:    decodeAs[StartGame],
	TypeGetGameState: decodeAs[GetGameState],
}

var serverDecoders = map[string]decoder{
	TypeRoomCreated:      decodeAs[RoomCreated],
	TypeRoomJoined:       decodeAs[RoomJoined],
	TypePlayerJoined:     decodeAs[PlayerJoined],
	TypePlayerLeft:       decodeAs[PlayerLeft],
	TypePawnPlaced:       decodeAs[PawnPlaced],
	TypeGameStarted:      decodeAs[GameStarted],
	TypeTilePlaced:       decodeAs[TilePlaced],
	TypePlayerEliminated: decodeAs[PlayerEliminated],
	TypeGameOver:         decodeAs[GameOver],
	TypeGameStateUpdate:  decodeAs[GameStateUpdate],
	TypeError:            decodeAs[Error],
}

// DecodeClient accepts only messages a client may send. The envelope is
// returned even on failure when it could be read, so callers can echo
// the request id.
func DecodeClient(b []byte) (Envelope, Message, error) {
	return decodeWith(b, clientDecoders)
}

// DecodeServer is the client-side counterpart, used by tests and tools.
func DecodeServer(b []byte) (Envelope, Message, error) {
	return decodeWith(b, serverDecoders)
}

// Decode accepts any known message.
func Decode(b []byte) (Envelope, Message, error) {
	if env, err := DecodeEnvelope(b); err == nil {
		if _, ok := clientDecoders[env.Type]; ok {
			return decodeWith(b, clientDecoders)
		}
	}
	return decodeWith(b, serverDecoders)
}

func decodeWith(b []byte, decoders map[string]decoder) (Envelope, Message, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return env, nil, err
	}
	d, ok := decoders[env.Type]
	if !ok {
		return env, nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	m, err := d(env)
	if err != nil {
		return env, nil, err
	}
	return env, m, nil
}
