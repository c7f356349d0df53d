package apperror

import "errors"

var (
	ErrMatchIsNotStarted = errors.New("match is not started")
	ErrMatchFinished     = errors.New("match is already finished")
	ErrMatchIsFull       = errors.New("match already has two players")
	ErrNotYourTurn       = errors.New("it's not your turn")

	ErrInvalidHandStack   = errors.New("invalid hand stack index")
	ErrEmptyHandStack     = errors.New("hand stack is empty")
	ErrEmptySourceCell    = errors.New("source cell is empty")
	ErrNotYourPiece       = errors.New("top piece belongs to the opponent")
	ErrOutOfBounds        = errors.New("cell is out of bounds")
	ErrSameCell           = errors.New("source and destination are the same cell")
	ErrIllegalDestination = errors.New("destination holds an equal or larger piece")

	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("player is not a participant of this match")

	ErrServerBusy        = errors.New("server is busy")
	ErrJoinCodeExhausted = errors.New("could not generate a unique join code")
)
