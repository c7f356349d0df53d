package entity

import (
	"math"
	"sync"
	"time"

	"github.com/rocketscienceinc/goblet-backend/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

const (
	maxPlayers       = 2
	DefaultBoardSize = 4
	MinBoardSize     = 3
)

// Match is the authoritative in-memory state of one game. All mutations go
// through its methods; the internal mutex linearizes commands so every
// participant observes the same order of state transitions.
type Match struct {
	ID          string
	BoardSize   int
	Board       Board
	Hands       map[Color]Hand
	Players     []*Player
	Turn        string // connection id of the player to move
	Status      string
	Winner      Color
	WinningLine []Coord
	LastMove    *MoveRecord
	Public      bool
	JoinCode    string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	mu sync.Mutex
}

func NewMatch(id string, boardSize int, public bool) *Match {
	if boardSize != MinBoardSize && boardSize != DefaultBoardSize {
		boardSize = DefaultBoardSize
	}

	now := time.Now()

	return &Match{
		ID:        id,
		BoardSize: boardSize,
		Board:     NewBoard(boardSize),
		Hands:     make(map[Color]Hand),
		Status:    StatusWaiting,
		Public:    public,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddPlayer joins a connection to the roster. Calling it again with a known
// connection is a no-op. The second join flips the match to playing and
// hands the first turn to the first-added player.
func (that *Match) AddPlayer(connectionID string, preferred Color, identity *Identity) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.playerByConnection(connectionID) != nil {
		return nil
	}

	if len(that.Players) >= maxPlayers {
		return apperror.ErrMatchIsFull
	}

	player := &Player{
		ConnectionID: connectionID,
		Color:        that.assignColor(preferred),
		Connected:    true,
		LastSeenAt:   time.Now(),
	}
	if identity != nil {
		player.UserID = identity.UserID
		player.DisplayName = identity.DisplayName
		player.AvatarURL = identity.AvatarURL
	}

	that.Players = append(that.Players, player)
	that.Hands[player.Color] = NewHand(that.BoardSize)

	if len(that.Players) == maxPlayers {
		that.Status = StatusPlaying
		that.Turn = that.Players[0].ConnectionID
	}

	that.UpdatedAt = time.Now()

	return nil
}

// assignColor honors the preferred color if unclaimed, otherwise picks the
// first unclaimed color in fixed palette order so two players can never end
// up sharing one.
func (that *Match) assignColor(preferred Color) Color {
	if preferred != "" && that.colorAvailable(preferred) {
		return preferred
	}

	for _, color := range fallbackPalette {
		if that.colorAvailable(color) {
			return color
		}
	}

	return fallbackPalette[0]
}

func (that *Match) colorAvailable(color Color) bool {
	for _, player := range that.Players {
		if player.Color == color {
			return false
		}
	}
	return true
}

// RemovePlayer drops a connection from the roster. An unfinished game
// cannot continue with an empty slot, so it is wiped back to waiting; a
// finished result is preserved for the remaining player to see.
func (that *Match) RemovePlayer(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	players := that.Players[:0]
	for _, player := range that.Players {
		if player.ConnectionID != connectionID {
			players = append(players, player)
		}
	}
	that.Players = players

	if that.Status != StatusFinished {
		that.reset()
	}

	that.UpdatedAt = time.Now()
}

// Reset returns the match to a fresh board while keeping the same players,
// colors and match id.
func (that *Match) Reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.reset()
	that.UpdatedAt = time.Now()
}

func (that *Match) reset() {
	that.Board = NewBoard(that.BoardSize)
	that.Hands = make(map[Color]Hand)
	for _, player := range that.Players {
		that.Hands[player.Color] = NewHand(that.BoardSize)
	}

	that.Winner = ""
	that.WinningLine = nil
	that.LastMove = nil

	if len(that.Players) > 0 {
		that.Turn = that.Players[0].ConnectionID
	} else {
		that.Turn = ""
	}

	if len(that.Players) == maxPlayers {
		that.Status = StatusPlaying
	} else {
		that.Status = StatusWaiting
	}
}

// Place pops the top piece of the indexed hand stack onto the destination
// cell.
func (that *Match) Place(connectionID string, stackIndex, row, col int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, err := that.confirmTurn(connectionID)
	if err != nil {
		return err
	}

	hand := that.Hands[player.Color]
	if stackIndex < 0 || stackIndex >= len(hand) {
		return apperror.ErrInvalidHandStack
	}

	rank, ok := hand[stackIndex].Top()
	if !ok {
		return apperror.ErrEmptyHandStack
	}

	if !that.Board.InBounds(row, col) {
		return apperror.ErrOutOfBounds
	}

	if !IsLegalDestination(rank, that.Board[row][col]) {
		return apperror.ErrIllegalDestination
	}

	hand[stackIndex] = hand[stackIndex][:len(hand[stackIndex])-1]
	that.Board[row][col] = append(that.Board[row][col], Piece{Color: player.Color, Rank: rank})
	that.LastMove = &MoveRecord{Kind: MoveKindPlace, To: Coord{Row: row, Col: col}}

	that.finishTurn(player)

	return nil
}

// Move lifts the top piece off the source cell and drops it on the
// destination. Lifting may reveal a covered piece underneath, which is
// exactly what the reveal-priority rule in finishTurn accounts for.
func (that *Match) Move(connectionID string, fromRow, fromCol, toRow, toCol int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	player, err := that.confirmTurn(connectionID)
	if err != nil {
		return err
	}

	if !that.Board.InBounds(fromRow, fromCol) || !that.Board.InBounds(toRow, toCol) {
		return apperror.ErrOutOfBounds
	}

	if fromRow == toRow && fromCol == toCol {
		return apperror.ErrSameCell
	}

	source := that.Board[fromRow][fromCol]
	piece, ok := source.Top()
	if !ok {
		return apperror.ErrEmptySourceCell
	}

	if piece.Color != player.Color {
		return apperror.ErrNotYourPiece
	}

	if !IsLegalDestination(piece.Rank, that.Board[toRow][toCol]) {
		return apperror.ErrIllegalDestination
	}

	that.Board[fromRow][fromCol] = source[:len(source)-1]
	that.Board[toRow][toCol] = append(that.Board[toRow][toCol], piece)
	that.LastMove = &MoveRecord{
		Kind: MoveKindMove,
		From: &Coord{Row: fromRow, Col: fromCol},
		To:   Coord{Row: toRow, Col: toCol},
	}

	that.finishTurn(player)

	return nil
}

// confirmTurn runs the shared command preconditions and returns the acting
// player.
func (that *Match) confirmTurn(connectionID string) (*Player, error) {
	switch that.Status {
	case StatusWaiting:
		return nil, apperror.ErrMatchIsNotStarted
	case StatusFinished:
		return nil, apperror.ErrMatchFinished
	}

	if that.Winner != "" {
		return nil, apperror.ErrMatchFinished
	}

	if that.Turn != connectionID {
		return nil, apperror.ErrNotYourTurn
	}

	player := that.playerByConnection(connectionID)
	if player == nil {
		return nil, apperror.ErrNotParticipant
	}

	return player, nil
}

// finishTurn resolves the board after a successful mutation: either the
// game ends with a winner, or the turn passes to the other player.
func (that *Match) finishTurn(mover *Player) {
	now := time.Now()
	mover.LastSeenAt = now
	that.UpdatedAt = now

	winners := DetectWinners(that.Board)

	winner, done := resolveWinner(winners, mover.Color)
	if !done {
		that.advanceTurn()
		return
	}

	that.Winner = winner
	that.WinningLine = WinningLine(that.Board, winner)
	that.Status = StatusFinished
	that.Turn = ""
}

func (that *Match) advanceTurn() {
	for i, player := range that.Players {
		if player.ConnectionID == that.Turn {
			that.Turn = that.Players[(i+1)%len(that.Players)].ConnectionID
			return
		}
	}
}

// SetConnected updates the liveness of the matching player; heartbeats and
// disconnect marking both go through here. Returns false when the
// connection is not part of the roster.
func (that *Match) SetConnected(connectionID string, connected bool) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	player := that.playerByConnection(connectionID)
	if player == nil {
		return false
	}

	player.Connected = connected
	player.LastSeenAt = time.Now()
	that.UpdatedAt = player.LastSeenAt

	return true
}

// ReassignConnection re-attaches a returning player under a new transport
// session. Identity match priority: stable user id first, stored color
// association second. If the old connection held the turn, the turn follows
// to the new connection id, otherwise the player could never move again.
func (that *Match) ReassignConnection(userID string, color Color, newConnectionID string) (*Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	var player *Player
	if userID != "" {
		player = that.playerByUserID(userID)
	}
	if player == nil && color != "" {
		player = that.playerByColor(color)
	}
	if player == nil {
		return nil, apperror.ErrNotParticipant
	}

	if that.Turn == player.ConnectionID {
		that.Turn = newConnectionID
	}

	player.ConnectionID = newConnectionID
	player.Connected = true
	player.LastSeenAt = time.Now()
	that.UpdatedAt = player.LastSeenAt

	return player, nil
}

// HasActivePlayers reports whether any participant is currently connected.
func (that *Match) HasActivePlayers() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, player := range that.Players {
		if player.Connected {
			return true
		}
	}

	return false
}

// IdleDuration is the time since the last sign of life from any player. An
// empty roster counts as maximally idle so the cleanup sweep reclaims the
// match immediately.
func (that *Match) IdleDuration() time.Duration {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.Players) == 0 {
		return time.Duration(math.MaxInt64)
	}

	var lastSeen time.Time
	for _, player := range that.Players {
		if player.LastSeenAt.After(lastSeen) {
			lastSeen = player.LastSeenAt
		}
	}

	return time.Since(lastSeen)
}

// LastActivityAt is used by capacity eviction to find the stalest finished
// match.
func (that *Match) LastActivityAt() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.UpdatedAt
}

// CurrentStatus reads the lifecycle state under the match lock.
func (that *Match) CurrentStatus() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.Status
}

// HasConnection reports whether the connection belongs to the roster.
func (that *Match) HasConnection(connectionID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.playerByConnection(connectionID) != nil
}

// PlayerCount returns the roster size.
func (that *Match) PlayerCount() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.Players)
}

func (that *Match) playerByConnection(connectionID string) *Player {
	for _, player := range that.Players {
		if player.ConnectionID == connectionID {
			return player
		}
	}
	return nil
}

func (that *Match) playerByUserID(userID string) *Player {
	for _, player := range that.Players {
		if player.UserID == userID {
			return player
		}
	}
	return nil
}

func (that *Match) playerByColor(color Color) *Player {
	for _, player := range that.Players {
		if player.Color == color {
			return player
		}
	}
	return nil
}
