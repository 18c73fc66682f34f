// models/models.go
package models

// Settings are the per-room options fixed at creation time.
type Settings struct {
	MaxPlayers        int `json:"maxPlayers"`
	ImposterCount     int `json:"imposterCount"`
	DiscussionSeconds int `json:"discussionTime"`
	VotingSeconds     int `json:"votingTime"`
	MaxRounds         int `json:"maxRounds"`
}

// PlayerView is the client-safe projection of a player. Role and Word are
// only populated once the game has ended (or for the owning player).
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsAlive   bool   `json:"isAlive"`
	Submitted bool   `json:"hasSubmittedWord"`
	Votes     int    `json:"votes"`
	IsHost    bool   `json:"isHost"`
	Role      string `json:"role,omitempty"`
	Word      string `json:"word,omitempty"`
}

// RoomSnapshot is the full public state of a room.
type RoomSnapshot struct {
	Code         string       `json:"code"`
	Phase        string       `json:"state"`
	Players      []PlayerView `json:"players"`
	CurrentRound int          `json:"currentRound"`
	MaxRounds    int          `json:"maxRounds"`
	Fruit        string       `json:"fruit,omitempty"`
	Timer        int          `json:"timer"`
	Settings     Settings     `json:"settings"`
}

// --- Inbound requests ---

type CreateRoomRequest struct {
	PlayerName string    `json:"playerName"`
	Settings   *Settings `json:"settings,omitempty"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
}

type SubmitWordRequest struct {
	RoomCode string `json:"roomCode"`
	Word     string `json:"word"`
}

type VoteRequest struct {
	RoomCode       string `json:"roomCode"`
	TargetPlayerID string `json:"targetPlayerId"`
}

type RevealNextRequest struct {
	RoomCode string `json:"roomCode"`
}

// --- Outbound notifications ---

type ErrorPayload struct {
	Message string `json:"message"`
}

// RoomJoinedPayload answers both create-room and join-room.
type RoomJoinedPayload struct {
	RoomCode string       `json:"roomCode"`
	Player   PlayerView   `json:"player"`
	Room     RoomSnapshot `json:"room"`
}

type PlayerJoinedPayload struct {
	Player  PlayerView   `json:"player"`
	Players []PlayerView `json:"players"`
}

type PlayerLeftPayload struct {
	PlayerID string       `json:"playerId"`
	Players  []PlayerView `json:"players"`
}

// RoundStartedPayload is delivered per player at game start and on every
// round advance; crewmates get the fruit, imposters do not.
type RoundStartedPayload struct {
	Round      int          `json:"round"`
	IsImposter bool         `json:"isImposter"`
	Fruit      string       `json:"fruit,omitempty"`
	Players    []PlayerView `json:"players"`
}

type PhaseChangedPayload struct {
	Phase string `json:"state"`
	Round int    `json:"round"`
}

type TimerTickPayload struct {
	Phase     string `json:"state"`
	Remaining int    `json:"remaining"`
}

type PlayerSubmittedPayload struct {
	PlayerID  string `json:"playerId"`
	Submitted int    `json:"submittedCount"`
	Alive     int    `json:"aliveCount"`
}

type VoteReceivedPayload struct {
	VoterID        string `json:"voterId"`
	TargetPlayerID string `json:"targetPlayerId"`
	Votes          int    `json:"votes"`
}

type WordRevealedPayload struct {
	PlayerID   string `json:"playerId"`
	Word       string `json:"word"`
	IsImposter bool   `json:"isImposter"`
}

type PlayerEliminatedPayload struct {
	PlayerID   string `json:"playerId"`
	IsImposter bool   `json:"isImposter"`
}

// GameEndedPayload carries the final reveal: every player's role and word.
type GameEndedPayload struct {
	Winner  string       `json:"winner"`
	Players []PlayerView `json:"players"`
}
