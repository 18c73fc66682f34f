package server

import (
	"errors"

	"github.com/8934528/Imposter-System/room"
)

// errorMessage maps rejection errors to the strings clients display.
// Anything unrecognized gets passed through as-is; rejections are
// ordinary outcomes, not faults.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrNameRequired):
		return "Please enter your name"
	case errors.Is(err, room.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, room.ErrRoomFull), errors.Is(err, room.ErrGameInProgress):
		return "Could not join room. Room may be full or game already in progress."
	case errors.Is(err, room.ErrNotHost), errors.Is(err, room.ErrNotEnough):
		return "Cannot start game. You must be the host and have at least 3 players."
	case errors.Is(err, room.ErrWrongPhase), errors.Is(err, room.ErrNotAlive),
		errors.Is(err, room.ErrCrewmateFirst):
		return "Cannot do that at this time"
	case errors.Is(err, room.ErrAlreadyVoted):
		return "You have already voted this round"
	case errors.Is(err, room.ErrInvalidWord):
		return "Words must be a single word of at most 20 characters"
	case errors.Is(err, room.ErrNothingToShow):
		return "No more words to reveal"
	default:
		return err.Error()
	}
}
