package draft

import "errors"

var (
	ErrInvalidSettings = errors.New("invalid draft settings")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrAlreadyDrafted  = errors.New("player already drafted")
	ErrPlayerBlocked   = errors.New("player is blocked")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrDraftComplete   = errors.New("draft is complete")
	ErrRosterFull      = errors.New("roster is full")
	ErrWrongMode       = errors.New("operation not available in this draft mode")
)
