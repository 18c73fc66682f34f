// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/8934528/Imposter-System/logger"
	"github.com/8934528/Imposter-System/models"
	"github.com/8934528/Imposter-System/network"
	"github.com/8934528/Imposter-System/state"
	"github.com/8934528/Imposter-System/timer"
)

var (
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game already in progress")
	ErrNotEnough      = errors.New("need at least 3 players")
	ErrWrongPhase     = errors.New("action not allowed in the current phase")
	ErrUnknownPlayer  = errors.New("player not in room")
	ErrNotAlive       = errors.New("player has been eliminated")
	ErrInvalidWord    = errors.New("word must be a single word of 1-20 characters")
	ErrCrewmateFirst  = errors.New("a crewmate must submit before the imposter")
	ErrAlreadyVoted   = errors.New("already voted this round")
	ErrNothingToShow  = errors.New("no more words to reveal")
)

// Room is one game instance. A single mutex serializes every mutation,
// whether it arrives from a player action or from a timer callback, so
// racing submissions, votes and timer expiries apply one at a time. Rooms
// never share locks with each other or with the manager's registry.
type Room struct {
	Code      string
	CreatedAt time.Time

	mu           sync.Mutex
	players      map[string]*Player
	phase        state.Phase
	currentRound int
	currentFruit string
	votedPlayers map[string]bool
	revealOrder  []string
	settings     models.Settings
	timer        *timer.RoundTimer
	broadcaster  Broadcaster
}

func NewRoom(code string, settings models.Settings, broadcaster Broadcaster) *Room {
	return &Room{
		Code:         code,
		CreatedAt:    time.Now(),
		players:      make(map[string]*Player),
		phase:        state.Waiting,
		currentRound: 1,
		votedPlayers: make(map[string]bool),
		settings:     settings,
		timer:        timer.New(),
		broadcaster:  broadcaster,
	}
}

// --- Roster management ---

// AddPlayer enrolls a player. Joining is only possible while the room is
// waiting and below its player cap.
func (r *Room) AddPlayer(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != state.Waiting {
		return ErrGameInProgress
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return ErrRoomFull
	}
	r.players[p.ID] = p
	return nil
}

// RemovePlayer drops a player from the roster, re-elects a host if the
// departing player held it, and re-checks whether the round was waiting
// only on them. Returns whether the player was present and how many
// players remain.
func (r *Room) RemovePlayer(playerID string) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.players[playerID]
	if !exists {
		return false, len(r.players)
	}
	delete(r.players, playerID)

	if p.IsHost {
		if next := r.earliestJoinedLocked(); next != nil {
			next.IsHost = true
		}
	}

	r.broadcastLocked(network.MsgTypePlayerLeft, models.PlayerLeftPayload{
		PlayerID: playerID,
		Players:  r.viewsLocked(r.phase == state.Results),
	})

	// A departure can leave the room waiting on nobody: if the last
	// straggler disconnects mid word-input or mid vote, advance as if
	// they had acted.
	alive := r.alivePlayersLocked()
	if len(alive) > 0 {
		switch r.phase {
		case state.WordInput:
			if r.allAliveSubmittedLocked() {
				r.startDiscussionLocked()
			}
		case state.Voting:
			if r.allAliveVotedLocked() {
				r.endVotingLocked()
			}
		}
	}

	return true, len(r.players)
}

func (r *Room) earliestJoinedLocked() *Player {
	var earliest *Player
	for _, p := range r.players {
		if earliest == nil || p.JoinedAt.Before(earliest.JoinedAt) {
			earliest = p
		}
	}
	return earliest
}

// --- Game lifecycle ---

// CanStartGame reports whether the game can begin, with a reason when it
// cannot.
func (r *Room) CanStartGame() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.canStartGameLocked(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (r *Room) canStartGameLocked() error {
	// A finished room can be restarted; anything mid-round cannot.
	if r.phase != state.Waiting && r.phase != state.Results {
		return ErrGameInProgress
	}
	if len(r.players) < 3 {
		return ErrNotEnough
	}
	return nil
}

// StartGame draws the round's fruit, assigns roles and opens word input.
// Role reveal is instantaneous on the server; clients animate it.
func (r *Room) StartGame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.canStartGameLocked(); err != nil {
		return err
	}
	if r.phase == state.Results {
		r.setPhaseLocked(state.Waiting)
	}

	r.currentRound = 1
	r.currentFruit = randomFruit()

	for _, p := range r.players {
		p.Role = RoleCrewmate
		p.IsAlive = true
		p.ResetForNewRound()
	}

	ids := r.shuffledIDsLocked()
	imposters := r.settings.ImposterCount
	if max := len(r.players) - 1; imposters > max {
		imposters = max
	}
	for i := 0; i < imposters; i++ {
		r.players[ids[i]].Role = RoleImposter
	}

	r.votedPlayers = make(map[string]bool)
	r.setRevealOrderLocked()

	r.setPhaseLocked(state.RoleReveal)
	r.setPhaseLocked(state.WordInput)
	r.deliverRoundStartLocked()

	logger.Log.Infow("game started",
		"room", r.Code, "players", len(r.players), "imposters", imposters)
	return nil
}

// SubmitWord records a player's one-word clue. The imposter may not
// submit until at least one crewmate has, so they always see a genuine
// description before guessing.
func (r *Room) SubmitWord(playerID, word string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != state.WordInput {
		return ErrWrongPhase
	}
	p, exists := r.players[playerID]
	if !exists {
		return ErrUnknownPlayer
	}
	if !p.IsAlive {
		return ErrNotAlive
	}

	trimmed := strings.TrimSpace(word)
	if !validWord(trimmed) {
		return ErrInvalidWord
	}

	if p.Role == RoleImposter && !r.crewmateSubmittedLocked() {
		return ErrCrewmateFirst
	}

	p.Word = trimmed
	p.Submitted = true

	alive := r.alivePlayersLocked()
	submitted := 0
	for _, a := range alive {
		if a.Submitted {
			submitted++
		}
	}
	r.broadcastLocked(network.MsgTypePlayerSubmitted, models.PlayerSubmittedPayload{
		PlayerID:  playerID,
		Submitted: submitted,
		Alive:     len(alive),
	})

	if submitted == len(alive) {
		r.startDiscussionLocked()
	}
	return nil
}

// validWord enforces the one-word rule centrally: trimmed, 1-20 runes and
// no interior whitespace.
func validWord(trimmed string) bool {
	if trimmed == "" || len([]rune(trimmed)) > 20 {
		return false
	}
	return !strings.ContainsFunc(trimmed, unicode.IsSpace)
}

// Vote casts the voter's single vote for this round. When the last alive
// player votes, the tally closes immediately and the timer is discarded.
func (r *Room) Vote(voterID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != state.Voting {
		return ErrWrongPhase
	}
	voter, exists := r.players[voterID]
	if !exists {
		return ErrUnknownPlayer
	}
	target, exists := r.players[targetID]
	if !exists {
		return ErrUnknownPlayer
	}
	if !voter.IsAlive || !target.IsAlive {
		return ErrNotAlive
	}
	if r.votedPlayers[voterID] {
		return ErrAlreadyVoted
	}

	target.Votes++
	r.votedPlayers[voterID] = true

	r.broadcastLocked(network.MsgTypeVoteReceived, models.VoteReceivedPayload{
		VoterID:        voterID,
		TargetPlayerID: targetID,
		Votes:          target.Votes,
	})

	if r.allAliveVotedLocked() {
		r.endVotingLocked()
	}
	return nil
}

// RevealNext pops the next player from the reveal order and broadcasts
// their word. Discussion-phase aid; drains the order but mutates nothing
// else.
func (r *Room) RevealNext() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != state.Discussion {
		return ErrWrongPhase
	}

	for len(r.revealOrder) > 0 {
		id := r.revealOrder[0]
		r.revealOrder = r.revealOrder[1:]

		p, exists := r.players[id]
		if !exists || p.Word == "" {
			// Player left mid-round, skip to the next entry.
			continue
		}
		r.broadcastLocked(network.MsgTypeWordRevealed, models.WordRevealedPayload{
			PlayerID:   id,
			Word:       p.Word,
			IsImposter: p.Role == RoleImposter,
		})
		return nil
	}
	return ErrNothingToShow
}

// --- Phase transitions (lock held) ---

func (r *Room) setPhaseLocked(next state.Phase) {
	if !r.phase.CanTransitionTo(next) {
		logger.Log.Warnw("illegal phase transition",
			"room", r.Code, "from", r.phase, "to", next)
		return
	}
	r.phase = next
	r.broadcastLocked(network.MsgTypePhaseChanged, models.PhaseChangedPayload{
		Phase: next.String(),
		Round: r.currentRound,
	})
}

func (r *Room) startDiscussionLocked() {
	r.setPhaseLocked(state.Discussion)
	round := r.currentRound
	r.timer.Start(r.settings.DiscussionSeconds,
		r.tickBroadcast(state.Discussion),
		func() { r.discussionElapsed(round) })
}

func (r *Room) startVotingLocked() {
	r.setPhaseLocked(state.Voting)
	round := r.currentRound
	r.timer.Start(r.settings.VotingSeconds,
		r.tickBroadcast(state.Voting),
		func() { r.votingElapsed(round) })
}

// discussionElapsed runs on the timer goroutine. It re-acquires the room
// lock and verifies that the discussion it was started for is still the
// current one; any other outcome means a player action already moved the
// room on and the expiry is absorbed as a no-op.
func (r *Room) discussionElapsed(round int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != state.Discussion || r.currentRound != round {
		return
	}
	r.startVotingLocked()
}

func (r *Room) votingElapsed(round int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != state.Voting || r.currentRound != round {
		return
	}
	r.endVotingLocked()
}

func (r *Room) tickBroadcast(phase state.Phase) func(int) {
	return func(remaining int) {
		data, _ := json.Marshal(models.TimerTickPayload{
			Phase:     phase.String(),
			Remaining: remaining,
		})
		r.broadcaster.BroadcastToRoom(r.Code, network.MsgTypeTimerTick, data)
	}
}

// endVotingLocked closes the tally. Only a strict maximum above zero
// eliminates; a tie or a silent round advances with no penalty.
func (r *Room) endVotingLocked() {
	r.timer.Stop()

	maxVotes := 0
	var top []*Player
	for _, p := range r.alivePlayersLocked() {
		switch {
		case p.Votes > maxVotes:
			maxVotes = p.Votes
			top = []*Player{p}
		case p.Votes == maxVotes && maxVotes > 0:
			top = append(top, p)
		}
	}

	if len(top) == 1 && maxVotes > 0 {
		eliminated := top[0]
		eliminated.Eliminate()
		r.broadcastLocked(network.MsgTypePlayerEliminated, models.PlayerEliminatedPayload{
			PlayerID:   eliminated.ID,
			IsImposter: eliminated.Role == RoleImposter,
		})
		if eliminated.Role == RoleImposter {
			r.finishGameLocked("crewmates")
			return
		}
	}
	r.nextRoundLocked()
}

func (r *Room) nextRoundLocked() {
	r.currentRound++
	if r.currentRound > r.settings.MaxRounds {
		// The imposter survived every round.
		r.finishGameLocked("imposter")
		return
	}

	r.currentFruit = randomFruit()
	for _, p := range r.alivePlayersLocked() {
		p.ResetForNewRound()
	}
	r.votedPlayers = make(map[string]bool)
	r.setRevealOrderLocked()

	r.setPhaseLocked(state.WordInput)
	r.deliverRoundStartLocked()
}

func (r *Room) finishGameLocked(winner string) {
	r.timer.Stop()
	r.setPhaseLocked(state.Results)
	r.broadcastLocked(network.MsgTypeGameEnded, models.GameEndedPayload{
		Winner:  winner,
		Players: r.viewsLocked(true),
	})
	logger.Log.Infow("game over", "room", r.Code, "winner", winner)
}

// deliverRoundStartLocked tells each player individually what the new
// round looks like from their seat: imposters learn they are the
// imposter, crewmates learn the fruit.
func (r *Room) deliverRoundStartLocked() {
	roster := r.viewsLocked(false)
	for _, p := range r.players {
		payload := models.RoundStartedPayload{
			Round:      r.currentRound,
			IsImposter: p.Role == RoleImposter,
			Players:    roster,
		}
		if p.Role == RoleCrewmate {
			payload.Fruit = r.currentFruit
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Log.Errorw("marshal round start", "room", r.Code, "err", err)
			continue
		}
		if err := r.broadcaster.SendToPlayer(p.ID, network.MsgTypeRoundStarted, data); err != nil {
			logger.Log.Warnw("deliver round start", "room", r.Code, "player", p.ID, "err", err)
		}
	}
}

// --- Helpers (lock held) ---

func (r *Room) shuffledIDsLocked() []string {
	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

func (r *Room) setRevealOrderLocked() {
	order := make([]string, 0)
	for _, p := range r.alivePlayersLocked() {
		order = append(order, p.ID)
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	r.revealOrder = order
}

func (r *Room) alivePlayersLocked() []*Player {
	alive := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.IsAlive {
			alive = append(alive, p)
		}
	}
	return alive
}

func (r *Room) allAliveSubmittedLocked() bool {
	for _, p := range r.alivePlayersLocked() {
		if !p.Submitted {
			return false
		}
	}
	return true
}

func (r *Room) allAliveVotedLocked() bool {
	for _, p := range r.alivePlayersLocked() {
		if !r.votedPlayers[p.ID] {
			return false
		}
	}
	return true
}

func (r *Room) crewmateSubmittedLocked() bool {
	for _, p := range r.alivePlayersLocked() {
		if p.Role == RoleCrewmate && p.Submitted {
			return true
		}
	}
	return false
}

func (r *Room) viewsLocked(reveal bool) []models.PlayerView {
	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	views := make([]models.PlayerView, 0, len(players))
	for _, p := range players {
		views = append(views, p.View(reveal))
	}
	return views
}

func (r *Room) broadcastLocked(msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorw("marshal broadcast", "room", r.Code, "msg", msgID, "err", err)
		return
	}
	if err := r.broadcaster.BroadcastToRoom(r.Code, msgID, data); err != nil {
		logger.Log.Warnw("broadcast failed", "room", r.Code, "msg", msgID, "err", err)
	}
}

// --- Read access ---

func (r *Room) Phase() state.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) GetPlayer(playerID string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.players[playerID]
	return p, exists
}

func (r *Room) CurrentRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentRound
}

func (r *Room) Settings() models.Settings {
	return r.settings
}

// Snapshot produces the full public room state. The fruit only appears
// once the game has ended; player roles and words likewise.
func (r *Room) Snapshot() models.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := models.RoomSnapshot{
		Code:         r.Code,
		Phase:        r.phase.String(),
		Players:      r.viewsLocked(r.phase == state.Results),
		CurrentRound: r.currentRound,
		MaxRounds:    r.settings.MaxRounds,
		Timer:        r.timer.Remaining(),
		Settings:     r.settings,
	}
	if r.phase == state.Results {
		snap.Fruit = r.currentFruit
	}
	return snap
}

// Close cancels the room's timer. Called on teardown; safe to call more
// than once.
func (r *Room) Close() {
	r.timer.Stop()
}
