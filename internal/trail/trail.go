// Package trail follows a pawn's path through the tiles already on a board.
package trail

import "github.com/DoyleJ11/tsuro-backend/internal/board"

// MaxSegments bounds a trail: every step enters a cell that has not been
// visited yet.
const MaxSegments = board.NumCells

// Tiles is the part of the board a trace reads. *board.Board satisfies it.
type Tiles interface {
	ConnectedExit(c board.Cell, e board.Entry) (board.Entry, bool)
}

type Segment struct {
	Cell  board.Cell  `json:"cell"`
	Entry board.Entry `json:"entry"`
	Exit  board.Entry `json:"exit"`
}

type Trail struct {
	Start    board.Position `json:"start"`
	End      board.Position `json:"end"`
	Segments []Segment      `json:"segments"`
	// Completed is false only when the pawn stopped in front of an empty
	// cell and may still move on a later placement.
	Completed bool `json:"completed"`
	// Exited means the pawn left the board at End.
	Exited bool `json:"exited"`
	// Collision is the index of the segment that closed a loop, or -1.
	Collision int `json:"collision"`
}

func (t Trail) Looped() bool { return t.Collision >= 0 }

func (t Trail) Len() int { return len(t.Segments) }

// Moved reports whether the pawn ended somewhere other than where it began.
func (t Trail) Moved() bool { return !t.Looped() && len(t.Segments) > 0 }

// Trace follows tiles from start until the pawn reaches an empty cell,
// leaves the board, or would re-enter a cell it already crossed.
func Trace(tiles Tiles, start board.Position) Trail {
	tr := Trail{Start: start, End: start, Collision: -1}
	if !start.Valid() {
		tr.Completed = true
		return tr
	}

	var visited [board.NumCells]bool
	pos := start
	visited[pos.Cell.Index()] = true

	for len(tr.Segments) < MaxSegments {
		exit, ok := tiles.ConnectedExit(pos.Cell, pos.Entry)
		if !ok {
			tr.End = pos
			return tr
		}
		tr.Segments = append(tr.Segments, Segment{Cell: pos.Cell, Entry: pos.Entry, Exit: exit})

		next, ok := board.Step(pos.Cell, exit)
		if !ok {
			tr.End = board.Position{Cell: pos.Cell, Entry: exit}
			tr.Completed = true
			tr.Exited = true
			return tr
		}
		if visited[next.Cell.Index()] {
			tr.End = next
			tr.Collision = len(tr.Segments) - 1
			tr.Completed = true
			return tr
		}
		visited[next.Cell.Index()] = true
		pos = next
	}

	// Unreachable with a well-formed board: 36 distinct cells have been
	// entered, so the next step must leave the board or hit a visited cell.
	tr.End = pos
	tr.Completed = true
	return tr
}
