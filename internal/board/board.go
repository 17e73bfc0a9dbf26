package board

import (
	"errors"
	"fmt"
)

const Size = 6

// NumCells is the number of cells on the board.
const NumCells = Size * Size

var (
	ErrOutOfBounds  = errors.New("cell out of bounds")
	ErrCellOccupied = errors.New("cell occupied")
)

// PlayerID identifies a player inside one room. Ids start at 1.
type PlayerID int

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// Index is the row-major slot of the cell. Only meaningful when InBounds.
func (c Cell) Index() int { return c.Row*Size + c.Col }

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// IsEdge reports whether the cell touches the border of the board.
func IsEdge(c Cell) bool {
	return c.InBounds() && (c.Row == 0 || c.Row == Size-1 || c.Col == 0 || c.Col == Size-1)
}

type Position struct {
	Cell  Cell  `json:"cell"`
	Entry Entry `json:"entry"`
}

func (p Position) Valid() bool { return p.Cell.InBounds() && p.Entry.Valid() }

// OnBoundary reports whether the entry faces off the board, i.e. a pawn
// leaving its cell through this entry would fall off.
func (p Position) OnBoundary() bool {
	switch p.Entry.Side() {
	case SideBottom:
		return p.Cell.Row == Size-1
	case SideRight:
		return p.Cell.Col == Size-1
	case SideTop:
		return p.Cell.Row == 0
	default:
		return p.Cell.Col == 0
	}
}

func (p Position) String() string { return fmt.Sprintf("%v/%d", p.Cell, p.Entry) }

// Step crosses the exit of cell and returns the position on the adjacent
// cell. ok is false when the exit faces off the board.
func Step(c Cell, exit Entry) (Position, bool) {
	if (Position{Cell: c, Entry: exit}).OnBoundary() {
		return Position{}, false
	}
	next := c
	switch exit.Side() {
	case SideBottom:
		next.Row++
	case SideRight:
		next.Col++
	case SideTop:
		next.Row--
	default:
		next.Col--
	}
	return Position{Cell: next, Entry: exit.Neighbor()}, true
}

type PlacedTile struct {
	Cell     Cell     `json:"cell"`
	Tile     Tile     `json:"tile"`
	Rotation Rotation `json:"rotation"`
}

type slot struct {
	tile     Tile
	rotation Rotation
	placed   bool
}

// Board is append-only: a placed tile is never moved or replaced.
type Board struct {
	cells [NumCells]slot
	count int
}

func New() *Board { return &Board{} }

// Place stores t turned by r at c. The stored tile is the rotated one.
func (b *Board) Place(c Cell, t Tile, r Rotation) error {
	if !c.InBounds() {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, c)
	}
	if b.cells[c.Index()].placed {
		return fmt.Errorf("%w: %v", ErrCellOccupied, c)
	}
	if !t.Valid() || !r.Valid() {
		return ErrInvalidTile
	}
	b.cells[c.Index()] = slot{tile: t.Rotate(r), rotation: r, placed: true}
	b.count++
	return nil
}

func (b *Board) TileAt(c Cell) (Tile, bool) {
	if !c.InBounds() {
		return Tile{}, false
	}
	s := b.cells[c.Index()]
	return s.tile, s.placed
}

func (b *Board) Occupied(c Cell) bool {
	_, ok := b.TileAt(c)
	return ok
}

// ConnectedExit follows the tile at c from entry e. It reports false when
// the cell is empty.
func (b *Board) ConnectedExit(c Cell, e Entry) (Entry, bool) {
	t, ok := b.TileAt(c)
	if !ok {
		return 0, false
	}
	return t.Exit(e)
}

func (b *Board) IsEdge(c Cell) bool { return IsEdge(c) }

func (b *Board) Len() int { return b.count }

// Tiles lists placed tiles in row-major order.
func (b *Board) Tiles() []PlacedTile {
	out := make([]PlacedTile, 0, b.count)
	for i, s := range b.cells {
		if !s.placed {
			continue
		}
		out = append(out, PlacedTile{
			Cell:     Cell{Row: i / Size, Col: i % Size},
			Tile:     s.tile,
			Rotation: s.rotation,
		})
	}
	return out
}

func (b *Board) Clone() *Board {
	cp := *b
	return &cp
}
