package tournament

import "errors"

// Sentinel kinds for session lifecycle errors.
var (
	ErrAlreadyStarted     = errors.New("session already started")
	ErrNotVoting          = errors.New("session not accepting votes")
	ErrDuplicateCandidate = errors.New("duplicate candidate id")
	ErrUnknownCandidate   = errors.New("unknown candidate id")
)
