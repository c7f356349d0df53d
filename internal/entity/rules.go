package entity

// IsLegalDestination reports whether a piece of the given rank may land on
// the cell: the cell is empty, or its top piece is strictly smaller.
// Equal rank never covers.
func IsLegalDestination(rank Rank, cell Cell) bool {
	top, ok := cell.Top()
	if !ok {
		return true
	}
	return rank > top.Rank
}

// line is one win-relevant sequence of coordinates: a row, a column or a
// main diagonal.
type line []Coord

// boardLines enumerates lines in row, column, diagonal order. Winning-line
// reporting depends on this scan order, so it must stay stable.
func boardLines(size int) []line {
	lines := make([]line, 0, 2*size+2)

	for row := 0; row < size; row++ {
		l := make(line, size)
		for col := 0; col < size; col++ {
			l[col] = Coord{Row: row, Col: col}
		}
		lines = append(lines, l)
	}

	for col := 0; col < size; col++ {
		l := make(line, size)
		for row := 0; row < size; row++ {
			l[row] = Coord{Row: row, Col: col}
		}
		lines = append(lines, l)
	}

	diag := make(line, size)
	antiDiag := make(line, size)
	for i := 0; i < size; i++ {
		diag[i] = Coord{Row: i, Col: i}
		antiDiag[i] = Coord{Row: i, Col: size - 1 - i}
	}

	return append(lines, diag, antiDiag)
}

// lineOwner returns the color covering every cell of the line, or "" if the
// line is incomplete or mixed. Only top pieces count.
func lineOwner(board Board, l line) Color {
	owner := board[l[0].Row][l[0].Col].TopColor()
	if owner == "" {
		return ""
	}
	for _, c := range l[1:] {
		if board[c.Row][c.Col].TopColor() != owner {
			return ""
		}
	}
	return owner
}

// DetectWinners scans all rows, columns and both diagonals and returns the
// set of colors that currently own a complete line. A single move can
// complete lines for both players at once, so the result may hold two
// colors.
func DetectWinners(board Board) map[Color]struct{} {
	winners := make(map[Color]struct{})
	for _, l := range boardLines(board.Size()) {
		if owner := lineOwner(board, l); owner != "" {
			winners[owner] = struct{}{}
		}
	}
	return winners
}

// WinningLine returns the coordinates of the first complete line owned by
// the winner, in row -> column -> diagonal scan order.
func WinningLine(board Board, winner Color) []Coord {
	for _, l := range boardLines(board.Size()) {
		if lineOwner(board, l) == winner {
			return l
		}
	}
	return nil
}

// resolveWinner applies the reveal-priority rule: when the move completed
// or uncovered lines for both colors, the player who did NOT move wins.
// Only a set containing exactly the mover yields a win for the mover.
func resolveWinner(winners map[Color]struct{}, mover Color) (Color, bool) {
	if len(winners) == 0 {
		return "", false
	}
	for color := range winners {
		if color != mover {
			return color, true
		}
	}
	return mover, true
}
