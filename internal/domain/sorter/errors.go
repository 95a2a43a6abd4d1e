package sorter

import "errors"

// Sentinel kinds for sorter errors.
var (
	// ErrUnexpectedVote reports a vote that does not match the pending
	// comparison, typically a stale vote from a desynchronized caller.
	ErrUnexpectedVote = errors.New("vote does not match pending comparison")

	// ErrCorruptState reports an internal run index outside its arena.
	// It indicates a bug in the sorter itself, never bad caller input.
	ErrCorruptState = errors.New("sorter state corrupt")
)
