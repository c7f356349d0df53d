package entity

import "time"

// Snapshot is the full serializable state of a match. It is what gets
// broadcast to participants and what the persistence port stores; the
// in-memory Match stays the authority.
type Snapshot struct {
	ID          string         `json:"id"`
	BoardSize   int            `json:"board_size"`
	Board       Board          `json:"board"`
	Hands       map[Color]Hand `json:"hands"`
	Players     []Player       `json:"players"`
	Turn        string         `json:"turn,omitempty"`
	Status      string         `json:"status"`
	Winner      Color          `json:"winner,omitempty"`
	WinningLine []Coord        `json:"winning_line,omitempty"`
	LastMove    *MoveRecord    `json:"last_move,omitempty"`
	Public      bool           `json:"public"`
	JoinCode    string         `json:"join_code,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Summary is the lobby-facing view of a match.
type Summary struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Public      bool      `json:"public"`
	JoinCode    string    `json:"join_code,omitempty"`
	BoardSize   int       `json:"board_size"`
	PlayerCount int       `json:"player_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Snapshot deep-copies the match state so callers can marshal and ship it
// without holding the match lock.
func (that *Match) Snapshot() *Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	snap := &Snapshot{
		ID:        that.ID,
		BoardSize: that.BoardSize,
		Board:     copyBoard(that.Board),
		Hands:     copyHands(that.Hands),
		Players:   make([]Player, len(that.Players)),
		Turn:      that.Turn,
		Status:    that.Status,
		Winner:    that.Winner,
		Public:    that.Public,
		JoinCode:  that.JoinCode,
		CreatedAt: that.CreatedAt,
		UpdatedAt: that.UpdatedAt,
	}

	for i, player := range that.Players {
		snap.Players[i] = *player
	}

	if that.WinningLine != nil {
		snap.WinningLine = append([]Coord(nil), that.WinningLine...)
	}

	if that.LastMove != nil {
		move := *that.LastMove
		if that.LastMove.From != nil {
			from := *that.LastMove.From
			move.From = &from
		}
		snap.LastMove = &move
	}

	return snap
}

// Summary builds the lobby view of the match.
func (that *Match) Summary() Summary {
	that.mu.Lock()
	defer that.mu.Unlock()

	return Summary{
		ID:          that.ID,
		Status:      that.Status,
		Public:      that.Public,
		JoinCode:    that.JoinCode,
		BoardSize:   that.BoardSize,
		PlayerCount: len(that.Players),
		CreatedAt:   that.CreatedAt,
	}
}

// RestoreMatch rebuilds an in-memory match from a persisted snapshot, used
// when a player rejoins after the registry dropped the live instance.
// Restored players start out disconnected until their owners re-attach.
func RestoreMatch(snap *Snapshot) *Match {
	match := NewMatch(snap.ID, snap.BoardSize, snap.Public)

	match.Board = copyBoard(snap.Board)
	match.Hands = copyHands(snap.Hands)
	match.Turn = snap.Turn
	match.Status = snap.Status
	match.Winner = snap.Winner
	match.JoinCode = snap.JoinCode
	match.CreatedAt = snap.CreatedAt
	match.UpdatedAt = snap.UpdatedAt

	if snap.WinningLine != nil {
		match.WinningLine = append([]Coord(nil), snap.WinningLine...)
	}

	if snap.LastMove != nil {
		move := *snap.LastMove
		if snap.LastMove.From != nil {
			from := *snap.LastMove.From
			move.From = &from
		}
		match.LastMove = &move
	}

	match.Players = make([]*Player, len(snap.Players))
	for i, player := range snap.Players {
		restored := player
		restored.Connected = false
		match.Players[i] = &restored
	}

	return match
}

func copyBoard(board Board) Board {
	copied := make(Board, len(board))
	for row := range board {
		copied[row] = make([]Cell, len(board[row]))
		for col := range board[row] {
			if board[row][col] != nil {
				copied[row][col] = append(Cell(nil), board[row][col]...)
			}
		}
	}
	return copied
}

func copyHands(hands map[Color]Hand) map[Color]Hand {
	copied := make(map[Color]Hand, len(hands))
	for color, hand := range hands {
		copiedHand := make(Hand, len(hand))
		for i, stack := range hand {
			copiedHand[i] = append(HandStack(nil), stack...)
		}
		copied[color] = copiedHand
	}
	return copied
}
