package board

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidTile = errors.New("invalid tile")

// Entry is one of the eight points on a tile's boundary, numbered
// counter-clockwise from the bottom-left corner:
//
//	┌5──4┐
//	6    3
//	7    2
//	└0──1┘
type Entry uint8

const NumEntries = 8

func (e Entry) Valid() bool { return e < NumEntries }

// Rotate turns the entry r quarter turns clockwise. Out of range input is
// reduced first, so the result is always a valid entry.
func (e Entry) Rotate(r Rotation) Entry {
	return Entry((int(e%NumEntries) + 6*int(r%NumRotations)) % NumEntries)
}

// Neighbor is the entry of the adjacent tile that touches e.
func (e Entry) Neighbor() Entry {
	e %= NumEntries
	if e%2 == 0 {
		return (e + 5) % NumEntries
	}
	return (e + 3) % NumEntries
}

type Side uint8

const (
	SideBottom Side = iota
	SideRight
	SideTop
	SideLeft
)

func (e Entry) Side() Side { return Side((e % NumEntries) / 2) }

// Rotation counts clockwise quarter turns.
type Rotation uint8

const NumRotations = 4

func (r Rotation) Valid() bool { return r < NumRotations }

type Segment struct {
	A Entry `json:"a"`
	B Entry `json:"b"`
}

func Seg(a, b Entry) Segment { return Segment{A: a, B: b} }

func (s Segment) normalized() Segment {
	if s.A > s.B {
		return Segment{A: s.B, B: s.A}
	}
	return s
}

// Tile joins the eight entries in four pairs. Tiles built through NewTile
// or Rotate are canonical, so two tiles with the same paths compare equal.
type Tile struct {
	Segments [4]Segment `json:"segments"`
}

func NewTile(segs ...Segment) (Tile, error) {
	if len(segs) != 4 {
		return Tile{}, fmt.Errorf("%w: want 4 segments, got %d", ErrInvalidTile, len(segs))
	}
	var t Tile
	copy(t.Segments[:], segs)
	t = t.canonical()
	if !t.Valid() {
		return Tile{}, fmt.Errorf("%w: %v", ErrInvalidTile, segs)
	}
	return t, nil
}

// MustTile is NewTile for static tables.
func MustTile(segs ...Segment) Tile {
	t, err := NewTile(segs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Valid reports whether every entry is used by exactly one segment.
func (t Tile) Valid() bool {
	var seen [NumEntries]bool
	for _, s := range t.Segments {
		if !s.A.Valid() || !s.B.Valid() || s.A == s.B || seen[s.A] || seen[s.B] {
			return false
		}
		seen[s.A], seen[s.B] = true, true
	}
	return true
}

// Exit returns the entry joined to e.
func (t Tile) Exit(e Entry) (Entry, bool) {
	for _, s := range t.Segments {
		switch e {
		case s.A:
			return s.B, true
		case s.B:
			return s.A, true
		}
	}
	return 0, false
}

func (t Tile) Rotate(r Rotation) Tile {
	var out Tile
	for i, s := range t.Segments {
		out.Segments[i] = Segment{A: s.A.Rotate(r), B: s.B.Rotate(r)}
	}
	return out.canonical()
}

func (t Tile) canonical() Tile {
	for i := range t.Segments {
		t.Segments[i] = t.Segments[i].normalized()
	}
	slices.SortFunc(t.Segments[:], func(a, b Segment) int {
		if a.A != b.A {
			return int(a.A) - int(b.A)
		}
		return int(a.B) - int(b.B)
	})
	return t
}
