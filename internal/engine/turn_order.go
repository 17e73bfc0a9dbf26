package engine

// nextPlayer walks the seats in join order starting after the current
// one, wrapping around. Eliminated players are skipped for good. An alive
// player is passed over while they cannot place a tile: their hand is
// empty and the deck cannot refill it, or their pawn sits in front of an
// occupied cell after a loop.
func (g *Game) nextPlayer() (int, bool) {
	n := len(g.players)
	for step := 1; step <= n; step++ {
		i := (g.current + step) % n
		p := g.players[i]
		if !p.Alive {
			continue
		}
		if len(p.Hand) == 0 {
			g.refill(p)
		}
		if g.canMove(p) {
			return i, true
		}
	}
	return 0, false
}

func (g *Game) canMove(p *Player) bool {
	return p.Alive && len(p.Hand) > 0 && !g.board.Occupied(p.Position.Cell)
}
