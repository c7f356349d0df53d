package entity

// Color identifies a player's piece set. Custom palette colors coming from
// the client are accepted as-is; the canonical pair is used as fallback.
type Color string

const (
	ColorGold   Color = "gold"
	ColorSilver Color = "silver"
)

// fallbackPalette is scanned in order when a preferred color is missing or
// already claimed by the other player.
var fallbackPalette = []Color{ColorGold, ColorSilver}

// Rank is the ordinal size of a piece, 1..N for an N-sized board.
// A piece covers another only if its rank is strictly greater.
type Rank int

// Piece is an immutable color/rank pair.
type Piece struct {
	Color Color `json:"color"`
	Rank  Rank  `json:"rank"`
}

// Cell is a LIFO stack of pieces; the last element is the visible top.
type Cell []Piece

func (that Cell) Top() (Piece, bool) {
	if len(that) == 0 {
		return Piece{}, false
	}
	return that[len(that)-1], true
}

// TopColor returns the color of the visible piece, or "" for an empty cell.
func (that Cell) TopColor() Color {
	top, ok := that.Top()
	if !ok {
		return ""
	}
	return top.Color
}

// Board is an N x N grid of cells, exclusively owned by its Match.
type Board [][]Cell

func NewBoard(size int) Board {
	board := make(Board, size)
	for row := range board {
		board[row] = make([]Cell, size)
	}
	return board
}

func (that Board) Size() int {
	return len(that)
}

func (that Board) InBounds(row, col int) bool {
	return row >= 0 && row < len(that) && col >= 0 && col < len(that)
}

// HandStack is one nested reserve stack, stored smallest-first so the last
// element is the only playable piece.
type HandStack []Rank

// Top returns the playable rank without removing it.
func (that HandStack) Top() (Rank, bool) {
	if len(that) == 0 {
		return 0, false
	}
	return that[len(that)-1], true
}

// Hand is a player's reserve: exactly three nested stacks of ranks 1..N.
// An emptied stack is never replenished.
type Hand []HandStack

const handStackCount = 3

func NewHand(boardSize int) Hand {
	hand := make(Hand, handStackCount)
	for i := range hand {
		stack := make(HandStack, boardSize)
		for rank := 1; rank <= boardSize; rank++ {
			stack[rank-1] = Rank(rank)
		}
		hand[i] = stack
	}
	return hand
}

// Coord addresses a board cell.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

const (
	MoveKindPlace = "place"
	MoveKindMove  = "move"
)

// MoveRecord describes the last successful command, kept for highlighting
// on the client.
type MoveRecord struct {
	Kind string `json:"kind"`
	From *Coord `json:"from,omitempty"`
	To   Coord  `json:"to"`
}
