package lobby

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
	"golang.org/x/text/unicode/norm"
)

var ErrLobbyFull = errors.New("lobby full")
var ErrAlreadyStarted = errors.New("game already started")
var ErrPlayerNotFound = errors.New("player not found")
var ErrInvalidSpawnPosition = errors.New("invalid spawn position")
var ErrPositionTaken = errors.New("position taken")
var ErrNotReadyToStart = errors.New("not ready to start")
var ErrNoAvailableColors = errors.New("no available colors")

const (
	MinPlayers    = 2
	MaxPlayers    = 8
	MaxNameLength = 24
)

type Player struct {
	ID    board.PlayerID
	Name  string
	Color string
	// Spawn is nil until the player picks an edge position.
	Spawn *board.Position
}

// Lobby collects players before a game starts. It is not safe for
// concurrent use; the owning room serializes access.
type Lobby struct {
	players []*Player
	lastID  board.PlayerID
	max     int
	started bool
}

// New makes an open lobby. maxPlayers outside [2,8] falls back to 8.
func New(maxPlayers int) *Lobby {
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		maxPlayers = MaxPlayers
	}
	return &Lobby{max: maxPlayers}
}

func (l *Lobby) MaxPlayers() int { return l.max }

func (l *Lobby) Started() bool { return l.started }

func (l *Lobby) Len() int { return len(l.players) }

// Join adds a player with the next free palette color. Ids count up from 1
// and are not reused after a player leaves.
func (l *Lobby) Join(name string) (Player, error) {
	if l.started {
		return Player{}, ErrAlreadyStarted
	}
	if len(l.players) >= l.max {
		return Player{}, fmt.Errorf("%w: %d/%d", ErrLobbyFull, len(l.players), l.max)
	}
	color, ok := l.nextColor()
	if !ok {
		return Player{}, ErrNoAvailableColors
	}
	l.lastID++
	p := &Player{
		ID:    l.lastID,
		Name:  CleanName(name, l.lastID),
		Color: color,
	}
	l.players = append(l.players, p)
	return *p, nil
}

func (l *Lobby) Leave(id board.PlayerID) error {
	if l.started {
		return ErrAlreadyStarted
	}
	for i, p := range l.players {
		if p.ID == id {
			l.players = append(l.players[:i], l.players[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
}

// ChooseSpawn sets where the player's pawn starts. Picking again replaces
// the earlier choice.
func (l *Lobby) ChooseSpawn(id board.PlayerID, pos board.Position) error {
	if l.started {
		return ErrAlreadyStarted
	}
	p := l.find(id)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrPlayerNotFound, id)
	}
	if !pos.Valid() || !board.IsEdge(pos.Cell) {
		return fmt.Errorf("%w: %v", ErrInvalidSpawnPosition, pos)
	}
	for _, other := range l.players {
		if other.ID != id && other.Spawn != nil && *other.Spawn == pos {
			return fmt.Errorf("%w: %v held by player %d", ErrPositionTaken, pos, other.ID)
		}
	}
	p.Spawn = &pos
	return nil
}

// CanStart is true once at least two players are in and all of them have
// picked a spawn.
func (l *Lobby) CanStart() bool {
	if l.started || len(l.players) < MinPlayers {
		return false
	}
	for _, p := range l.players {
		if p.Spawn == nil {
			return false
		}
	}
	return true
}

// Start closes the lobby. After it succeeds every other mutation fails
// with ErrAlreadyStarted.
func (l *Lobby) Start() error {
	if l.started {
		return ErrAlreadyStarted
	}
	if !l.CanStart() {
		return ErrNotReadyToStart
	}
	l.started = true
	return nil
}

func (l *Lobby) Player(id board.PlayerID) (Player, bool) {
	p := l.find(id)
	if p == nil {
		return Player{}, false
	}
	return clonePlayer(p), true
}

// Players returns copies in join order.
func (l *Lobby) Players() []Player {
	out := make([]Player, 0, len(l.players))
	for _, p := range l.players {
		out = append(out, clonePlayer(p))
	}
	return out
}

func (l *Lobby) find(id board.PlayerID) *Player {
	for _, p := range l.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (l *Lobby) nextColor() (string, bool) {
	for _, c := range Palette {
		taken := false
		for _, p := range l.players {
			if p.Color == c.Hex {
				taken = true
				break
			}
		}
		if !taken {
			return c.Hex, true
		}
	}
	return "", false
}

func clonePlayer(p *Player) Player {
	cp := *p
	if p.Spawn != nil {
		s := *p.Spawn
		cp.Spawn = &s
	}
	return cp
}

// CleanName normalises a display name. Control characters are dropped and
// the result is capped at MaxNameLength runes; an empty name becomes
// "Player N".
func CleanName(name string, id board.PlayerID) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxNameLength {
		name = strings.TrimSpace(string(r[:MaxNameLength]))
	}
	if name == "" {
		return fmt.Sprintf("Player %d", id)
	}
	return name
}
