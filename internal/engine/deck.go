package engine

import (
	"math/rand"
	"slices"

	"github.com/DoyleJ11/tsuro-backend/internal/board"
)

const HandSize = 3

func seg(a, b board.Entry) board.Segment { return board.Seg(a, b) }

// StandardTiles returns the 35 distinct tiles of a full set.
func StandardTiles() []board.Tile {
	segs := [][4]board.Segment{
		{seg(0, 1), seg(2, 3), seg(4, 5), seg(6, 7)},
		{seg(0, 1), seg(2, 3), seg(4, 6), seg(5, 7)},
		{seg(0, 1), seg(2, 3), seg(4, 7), seg(5, 6)},
		{seg(0, 1), seg(2, 4), seg(3, 6), seg(5, 7)},
		{seg(0, 1), seg(2, 4), seg(3, 7), seg(5, 6)},
		{seg(0, 1), seg(2, 5), seg(3, 6), seg(4, 7)},
		{seg(0, 1), seg(2, 5), seg(3, 7), seg(4, 6)},
		{seg(0, 1), seg(2, 6), seg(3, 4), seg(5, 7)},
		{seg(0, 1), seg(2, 6), seg(3, 5), seg(4, 7)},
		{seg(0, 1), seg(2, 6), seg(3, 7), seg(4, 5)},
		{seg(0, 1), seg(2, 7), seg(3, 4), seg(5, 6)},
		{seg(0, 1), seg(2, 7), seg(3, 5), seg(4, 6)},
		{seg(0, 1), seg(2, 7), seg(3, 6), seg(4, 5)},
		{seg(0, 2), seg(1, 3), seg(4, 6), seg(5, 7)},
		{seg(0, 2), seg(1, 3), seg(4, 7), seg(5, 6)},
		{seg(0, 2), seg(1, 4), seg(3, 6), seg(5, 7)},
		{seg(0, 2), seg(1, 4), seg(3, 7), seg(5, 6)},
		{seg(0, 2), seg(1, 5), seg(3, 6), seg(4, 7)},
		{seg(0, 2), seg(1, 5), seg(3, 7), seg(4, 6)},
		{seg(0, 2), seg(1, 6), seg(3, 4), seg(5, 7)},
		{seg(0, 2), seg(1, 6), seg(3, 5), seg(4, 7)},
		{seg(0, 2), seg(1, 7), seg(3, 4), seg(5, 6)},
		{seg(0, 2), seg(1, 7), seg(3, 5), seg(4, 6)},
		{seg(0, 3), seg(1, 2), seg(4, 7), seg(5, 6)},
		{seg(0, 3), seg(1, 4), seg(2, 6), seg(5, 7)},
		{seg(0, 3), seg(1, 4), seg(2, 7), seg(5, 6)},
		{seg(0, 3), seg(1, 5), seg(2, 6), seg(4, 7)},
		{seg(0, 3), seg(1, 6), seg(2, 5), seg(4, 7)},
		{seg(0, 4), seg(1, 2), seg(3, 6), seg(5, 7)},
		{seg(0, 4), seg(1, 2), seg(3, 7), seg(5, 6)},
		{seg(0, 4), seg(1, 3), seg(2, 6), seg(5, 7)},
		{seg(0, 4), seg(1, 5), seg(2, 6), seg(3, 7)},
		{seg(0, 4), seg(1, 5), seg(2, 7), seg(3, 6)},
		{seg(0, 5), seg(1, 4), seg(2, 7), seg(3, 6)},
		{seg(0, 7), seg(1, 2), seg(3, 4), seg(5, 6)},
	}
	out := make([]board.Tile, len(segs))
	for i, s := range segs {
		out[i] = board.MustTile(s[:]...)
	}
	return out
}

// Deck draws from the front. Returned tiles go to the back.
type Deck struct {
	tiles []board.Tile
}

func NewDeck(tiles []board.Tile) *Deck {
	return &Deck{tiles: slices.Clone(tiles)}
}

// NewShuffledDeck is a full set in an order fixed by rng.
func NewShuffledDeck(rng *rand.Rand) *Deck {
	d := NewDeck(StandardTiles())
	d.Shuffle(rng)
	return d
}

func (d *Deck) Len() int { return len(d.tiles) }

func (d *Deck) Draw() (board.Tile, bool) {
	if len(d.tiles) == 0 {
		return board.Tile{}, false
	}
	t := d.tiles[0]
	d.tiles = d.tiles[1:]
	return t, true
}

func (d *Deck) DrawUpTo(n int) []board.Tile {
	n = min(n, len(d.tiles))
	out := slices.Clone(d.tiles[:n])
	d.tiles = d.tiles[n:]
	return out
}

func (d *Deck) Return(tiles ...board.Tile) {
	d.tiles = append(d.tiles, tiles...)
}

func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.tiles), func(i, j int) { d.tiles[i], d.tiles[j] = d.tiles[j], d.tiles[i] })
}
