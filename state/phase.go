package state

import "errors"

// Phase is one step of a room's round state machine.
type Phase string

const (
	Waiting    Phase = "waiting"
	RoleReveal Phase = "role-reveal"
	WordInput  Phase = "word-input"
	Discussion Phase = "discussion"
	Voting     Phase = "voting"
	Results    Phase = "results"
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// transitions maps each phase to the phases reachable from it. Voting back
// to word-input is the round-advance path; results back to waiting lets a
// room replay without being torn down.
var transitions = map[Phase][]Phase{
	Waiting:    {RoleReveal},
	RoleReveal: {WordInput},
	WordInput:  {Discussion},
	Discussion: {Voting},
	Voting:     {Results, WordInput},
	Results:    {Waiting},
}

func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo reports whether moving from p to target is legal.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// InRound reports whether the phase is part of an active round, i.e. the
// game has started and not yet reached results.
func (p Phase) InRound() bool {
	switch p {
	case RoleReveal, WordInput, Discussion, Voting:
		return true
	}
	return false
}
