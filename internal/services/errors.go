package services

import (
	"errors"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/ledger"
)

// Errors returned by match operations. Callers compare with errors.Is.
var (
	ErrInsufficientFunds          = ledger.ErrInsufficientFunds
	ErrLedgerInvariant            = ledger.ErrInvariantViolation
	ErrDuplicateDeposit           = ledger.ErrDuplicateDeposit
	ErrMatchNotFound              = errors.New("match not found")
	ErrMatchFull                  = errors.New("match is full")
	ErrAlreadyJoined              = errors.New("user already joined this match")
	ErrNotParticipant             = errors.New("user is not a participant of this match")
	ErrDuplicateResultDeclaration = errors.New("side has already declared a result")
	ErrInvalidStateTransition     = errors.New("invalid state transition")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrInvalidInput               = errors.New("invalid input")
)
