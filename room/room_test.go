package room

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/8934528/Imposter-System/logger"
	"github.com/8934528/Imposter-System/models"
	"github.com/8934528/Imposter-System/network"
	"github.com/8934528/Imposter-System/state"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockBroadcaster is a test double for the Broadcaster interface. It
// records everything a room tries to deliver.
type MockBroadcaster struct {
	mu     sync.Mutex
	room   []mockMessage // BroadcastToRoom calls
	direct []mockMessage // SendToPlayer calls
}

type mockMessage struct {
	Target string
	MsgID  uint16
	Data   []byte
}

func (m *MockBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.room = append(m.room, mockMessage{Target: roomCode, MsgID: msgID, Data: data})
	return nil
}

func (m *MockBroadcaster) SendToPlayer(playerID string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct = append(m.direct, mockMessage{Target: playerID, MsgID: msgID, Data: data})
	return nil
}

// broadcastCount returns how many room broadcasts with the given id were
// recorded.
func (m *MockBroadcaster) broadcastCount(msgID uint16) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, msg := range m.room {
		if msg.MsgID == msgID {
			count++
		}
	}
	return count
}

// lastBroadcast returns the most recent room broadcast with the given id.
func (m *MockBroadcaster) lastBroadcast(msgID uint16) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.room) - 1; i >= 0; i-- {
		if m.room[i].MsgID == msgID {
			return m.room[i].Data, true
		}
	}
	return nil, false
}

func testSettings() models.Settings {
	return models.Settings{
		MaxPlayers:        10,
		ImposterCount:     1,
		DiscussionSeconds: 60,
		VotingSeconds:     30,
		MaxRounds:         3,
	}
}

// newTestRoom creates a waiting room with n players. Player ids are
// "p0".."pn-1", p0 is host, join order follows the index.
func newTestRoom(n int, settings models.Settings) (*Room, *MockBroadcaster) {
	mb := &MockBroadcaster{}
	r := NewRoom("TEST", settings, mb)
	base := time.Now()
	for i := 0; i < n; i++ {
		p := NewPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i), "TEST", i == 0)
		p.JoinedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := r.AddPlayer(p); err != nil {
			panic(err)
		}
	}
	return r, mb
}

// setupRound puts a room straight into word-input with deterministic
// roles: the player with the given id is the imposter, everyone else a
// crewmate.
func setupRound(r *Room, imposterID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.players {
		p.IsAlive = true
		p.ResetForNewRound()
		if id == imposterID {
			p.Role = RoleImposter
		} else {
			p.Role = RoleCrewmate
		}
	}
	r.currentRound = 1
	r.currentFruit = "Apple"
	r.votedPlayers = make(map[string]bool)
	r.setRevealOrderLocked()
	r.phase = state.WordInput
}

// setupVoting moves a word-input room into voting with every alive player
// marked submitted.
func setupVoting(r *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.IsAlive {
			p.Submitted = true
			p.Word = "juicy"
		}
	}
	r.votedPlayers = make(map[string]bool)
	r.phase = state.Voting
}

func TestRoom_AddPlayer_Full(t *testing.T) {
	settings := testSettings()
	settings.MaxPlayers = 2
	r, _ := newTestRoom(2, settings)

	extra := NewPlayer("extra", "Extra", "TEST", false)
	if err := r.AddPlayer(extra); err != ErrRoomFull {
		t.Fatalf("Expected ErrRoomFull, got %v", err)
	}
	if r.PlayerCount() != 2 {
		t.Errorf("Expected player count to stay 2, got %d", r.PlayerCount())
	}
}

func TestRoom_AddPlayer_InProgress(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())
	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	late := NewPlayer("late", "Late", "TEST", false)
	if err := r.AddPlayer(late); err != ErrGameInProgress {
		t.Fatalf("Expected ErrGameInProgress, got %v", err)
	}
}

func TestRoom_CanStartGame(t *testing.T) {
	r, _ := newTestRoom(2, testSettings())

	ok, reason := r.CanStartGame()
	if ok {
		t.Fatal("Should not be able to start with 2 players")
	}
	if reason != ErrNotEnough.Error() {
		t.Errorf("Unexpected reason: %q", reason)
	}

	third := NewPlayer("p2", "Player 2", "TEST", false)
	r.AddPlayer(third)

	if ok, _ := r.CanStartGame(); !ok {
		t.Fatal("Should be able to start with 3 players")
	}

	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	ok, reason = r.CanStartGame()
	if ok {
		t.Fatal("Should not be able to start twice")
	}
	if reason != ErrGameInProgress.Error() {
		t.Errorf("Unexpected reason: %q", reason)
	}
}

func TestRoom_StartGame_AssignsRoles(t *testing.T) {
	settings := testSettings()
	settings.ImposterCount = 2
	r, mb := newTestRoom(5, settings)

	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	if r.Phase() != state.WordInput {
		t.Errorf("Expected phase word-input, got %s", r.Phase())
	}

	imposters := 0
	r.mu.Lock()
	for _, p := range r.players {
		if p.Role == RoleImposter {
			imposters++
		}
		if !p.IsAlive {
			t.Errorf("Player %s should start alive", p.ID)
		}
		if p.Submitted || p.Word != "" || p.Votes != 0 {
			t.Errorf("Player %s round state not reset", p.ID)
		}
	}
	if len(r.revealOrder) != 5 {
		t.Errorf("Expected reveal order over 5 players, got %d", len(r.revealOrder))
	}
	if r.currentFruit == "" {
		t.Error("Expected a fruit to be drawn")
	}
	r.mu.Unlock()

	if imposters != 2 {
		t.Errorf("Expected 2 imposters, got %d", imposters)
	}

	// Every player gets a personal round-start message.
	mb.mu.Lock()
	direct := len(mb.direct)
	mb.mu.Unlock()
	if direct != 5 {
		t.Errorf("Expected 5 round-start deliveries, got %d", direct)
	}
}

func TestRoom_StartGame_ImposterCountCapped(t *testing.T) {
	settings := testSettings()
	settings.ImposterCount = 5
	r, _ := newTestRoom(3, settings)

	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	imposters := 0
	r.mu.Lock()
	for _, p := range r.players {
		if p.Role == RoleImposter {
			imposters++
		}
	}
	r.mu.Unlock()

	// min(imposterCount, playerCount-1)
	if imposters != 2 {
		t.Errorf("Expected imposters capped at 2, got %d", imposters)
	}
}

func TestSubmitWord_ImposterMustWaitForCrewmate(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())
	setupRound(r, "p1")

	if err := r.SubmitWord("p1", "sweet"); err != ErrCrewmateFirst {
		t.Fatalf("Imposter submission before any crewmate should be rejected, got %v", err)
	}

	if err := r.SubmitWord("p0", "juicy"); err != nil {
		t.Fatalf("Crewmate submission failed: %v", err)
	}

	if err := r.SubmitWord("p1", "sweet"); err != nil {
		t.Fatalf("Imposter submission after a crewmate should succeed, got %v", err)
	}
}

func TestSubmitWord_Validation(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())

	// Wrong phase: the room is still waiting.
	if err := r.SubmitWord("p0", "juicy"); err != ErrWrongPhase {
		t.Errorf("Expected ErrWrongPhase, got %v", err)
	}

	setupRound(r, "p2")

	cases := []struct {
		name string
		id   string
		word string
		want error
	}{
		{"unknown player", "ghost", "juicy", ErrUnknownPlayer},
		{"empty word", "p0", "   ", ErrInvalidWord},
		{"two words", "p0", "very juicy", ErrInvalidWord},
		{"too long", "p0", "abcdefghijklmnopqrstu", ErrInvalidWord},
	}
	for _, tc := range cases {
		if err := r.SubmitWord(tc.id, tc.word); err != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// Eliminated players cannot submit.
	r.mu.Lock()
	r.players["p0"].Eliminate()
	r.mu.Unlock()
	if err := r.SubmitWord("p0", "juicy"); err != ErrNotAlive {
		t.Errorf("Expected ErrNotAlive, got %v", err)
	}
}

func TestSubmitWord_TrimsAndStores(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())
	setupRound(r, "p2")

	if err := r.SubmitWord("p0", "  juicy  "); err != nil {
		t.Fatalf("SubmitWord failed: %v", err)
	}

	p, _ := r.GetPlayer("p0")
	if p.Word != "juicy" {
		t.Errorf("Expected stored word %q, got %q", "juicy", p.Word)
	}
	if !p.Submitted {
		t.Error("Expected submitted flag to be set")
	}
}

func TestSubmitWord_AllSubmittedStartsDiscussion(t *testing.T) {
	r, mb := newTestRoom(3, testSettings())
	setupRound(r, "p2")

	r.SubmitWord("p0", "juicy")
	r.SubmitWord("p1", "round")
	if r.Phase() != state.WordInput {
		t.Fatal("Discussion should not start before the imposter submits")
	}
	r.SubmitWord("p2", "sweet")

	if r.Phase() != state.Discussion {
		t.Fatalf("Expected discussion after all submitted, got %s", r.Phase())
	}
	if mb.broadcastCount(network.MsgTypePlayerSubmitted) != 3 {
		t.Errorf("Expected 3 player-submitted broadcasts, got %d",
			mb.broadcastCount(network.MsgTypePlayerSubmitted))
	}
}

func TestVote_Rules(t *testing.T) {
	r, _ := newTestRoom(4, testSettings())
	setupRound(r, "p3")

	if err := r.Vote("p0", "p1"); err != ErrWrongPhase {
		t.Errorf("Expected ErrWrongPhase before voting opens, got %v", err)
	}

	setupVoting(r)

	if err := r.Vote("ghost", "p1"); err != ErrUnknownPlayer {
		t.Errorf("Expected ErrUnknownPlayer for ghost voter, got %v", err)
	}
	if err := r.Vote("p0", "ghost"); err != ErrUnknownPlayer {
		t.Errorf("Expected ErrUnknownPlayer for ghost target, got %v", err)
	}

	if err := r.Vote("p0", "p1"); err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if err := r.Vote("p0", "p2"); err != ErrAlreadyVoted {
		t.Errorf("Expected ErrAlreadyVoted, got %v", err)
	}

	p1, _ := r.GetPlayer("p1")
	if p1.Votes != 1 {
		t.Errorf("Expected 1 vote on p1, got %d", p1.Votes)
	}
}

func TestVote_DeadPlayersExcluded(t *testing.T) {
	r, _ := newTestRoom(4, testSettings())
	setupRound(r, "p3")
	r.mu.Lock()
	r.players["p2"].Eliminate()
	r.mu.Unlock()
	setupVoting(r)

	if err := r.Vote("p2", "p0"); err != ErrNotAlive {
		t.Errorf("Dead voter should be rejected, got %v", err)
	}
	if err := r.Vote("p0", "p2"); err != ErrNotAlive {
		t.Errorf("Dead target should be rejected, got %v", err)
	}
}

func TestVote_TallyMatchesBallots(t *testing.T) {
	settings := testSettings()
	settings.MaxRounds = 5
	r, _ := newTestRoom(4, settings)
	setupRound(r, "p3")
	setupVoting(r)

	r.Vote("p0", "p1")
	r.Vote("p1", "p0")
	r.Vote("p2", "p1")

	total := 0
	r.mu.Lock()
	for _, p := range r.players {
		total += p.Votes
	}
	voted := len(r.votedPlayers)
	r.mu.Unlock()

	if total != voted {
		t.Errorf("Vote sum %d does not match ballots cast %d", total, voted)
	}
}

func TestEndVoting_UniqueMaxEliminates(t *testing.T) {
	r, mb := newTestRoom(4, testSettings())
	setupRound(r, "p3")
	setupVoting(r)

	// Everyone piles on the crewmate p1; the fourth ballot closes the
	// vote without waiting for the timer.
	r.Vote("p0", "p1")
	r.Vote("p2", "p1")
	r.Vote("p3", "p1")
	r.Vote("p1", "p0")

	p1, _ := r.GetPlayer("p1")
	if p1.IsAlive {
		t.Fatal("p1 should be eliminated")
	}
	if mb.broadcastCount(network.MsgTypePlayerEliminated) != 1 {
		t.Error("Expected a player-eliminated broadcast")
	}

	// A crewmate died, so the game moves to round 2.
	if r.CurrentRound() != 2 {
		t.Errorf("Expected round 2, got %d", r.CurrentRound())
	}
	if r.Phase() != state.WordInput {
		t.Errorf("Expected word-input for the next round, got %s", r.Phase())
	}
}

func TestEndVoting_TieAdvancesWithoutElimination(t *testing.T) {
	r, mb := newTestRoom(4, testSettings())
	setupRound(r, "p3")
	setupVoting(r)

	r.Vote("p0", "p1")
	r.Vote("p1", "p0")
	r.Vote("p2", "p1")
	r.Vote("p3", "p0")

	r.mu.Lock()
	alive := len(r.alivePlayersLocked())
	r.mu.Unlock()
	if alive != 4 {
		t.Errorf("Tie should eliminate nobody, %d alive", alive)
	}
	if mb.broadcastCount(network.MsgTypePlayerEliminated) != 0 {
		t.Error("No elimination broadcast expected on a tie")
	}
	if r.CurrentRound() != 2 {
		t.Errorf("Expected round to advance to 2, got %d", r.CurrentRound())
	}
	if r.Phase() != state.WordInput {
		t.Errorf("Expected word-input, got %s", r.Phase())
	}
}

func TestEndVoting_NoVotesAdvances(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())
	setupRound(r, "p2")
	setupVoting(r)

	// Voting timer expires with no ballots cast.
	r.votingElapsed(1)

	r.mu.Lock()
	alive := len(r.alivePlayersLocked())
	r.mu.Unlock()
	if alive != 3 {
		t.Errorf("Zero votes should eliminate nobody, %d alive", alive)
	}
	if r.CurrentRound() != 2 {
		t.Errorf("Expected round 2, got %d", r.CurrentRound())
	}
}

func TestEndVoting_ImposterCaughtCrewmatesWin(t *testing.T) {
	r, mb := newTestRoom(4, testSettings())
	setupRound(r, "p3")
	setupVoting(r)

	r.Vote("p0", "p3")
	r.Vote("p1", "p3")
	r.Vote("p2", "p3")
	r.Vote("p3", "p0")

	if r.Phase() != state.Results {
		t.Fatalf("Expected results after catching the imposter, got %s", r.Phase())
	}

	data, ok := mb.lastBroadcast(network.MsgTypeGameEnded)
	if !ok {
		t.Fatal("Expected a game-ended broadcast")
	}
	var payload models.GameEndedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("Bad game-ended payload: %v", err)
	}
	if payload.Winner != "crewmates" {
		t.Errorf("Expected crewmates to win, got %q", payload.Winner)
	}
	// The final roster reveals everyone's role and word.
	for _, v := range payload.Players {
		if v.Role == "" {
			t.Errorf("Player %s role not revealed at game end", v.ID)
		}
	}
}

func TestEndVoting_ImposterSurvivesAllRounds(t *testing.T) {
	settings := testSettings()
	settings.MaxRounds = 1
	r, mb := newTestRoom(3, settings)
	setupRound(r, "p2")
	setupVoting(r)

	// A crewmate is voted out in the final round; the imposter was
	// never caught and wins by survival.
	r.Vote("p0", "p1")
	r.Vote("p1", "p0")
	r.Vote("p2", "p1")

	if r.Phase() != state.Results {
		t.Fatalf("Expected results, got %s", r.Phase())
	}
	data, ok := mb.lastBroadcast(network.MsgTypeGameEnded)
	if !ok {
		t.Fatal("Expected a game-ended broadcast")
	}
	var payload models.GameEndedPayload
	json.Unmarshal(data, &payload)
	if payload.Winner != "imposter" {
		t.Errorf("Expected imposter to win by survival, got %q", payload.Winner)
	}
}

func TestStartGame_RestartsFinishedRoom(t *testing.T) {
	r, _ := newTestRoom(4, testSettings())
	setupRound(r, "p3")
	setupVoting(r)

	// Catch the imposter so the game ends.
	r.Vote("p0", "p3")
	r.Vote("p1", "p3")
	r.Vote("p2", "p3")
	r.Vote("p3", "p0")
	if r.Phase() != state.Results {
		t.Fatalf("Expected results, got %s", r.Phase())
	}

	if err := r.StartGame(); err != nil {
		t.Fatalf("Restarting a finished room should work, got %v", err)
	}
	if r.Phase() != state.WordInput {
		t.Errorf("Expected word-input after restart, got %s", r.Phase())
	}
	if r.CurrentRound() != 1 {
		t.Errorf("Expected round reset to 1, got %d", r.CurrentRound())
	}
	for _, v := range r.Snapshot().Players {
		if !v.IsAlive {
			t.Errorf("Player %s should be revived on restart", v.ID)
		}
	}
}

func TestStartGame_RejectedMidRound(t *testing.T) {
	r, _ := newTestRoom(4, testSettings())
	setupRound(r, "p3")

	if err := r.StartGame(); err != ErrGameInProgress {
		t.Errorf("Expected ErrGameInProgress mid-round, got %v", err)
	}
}

func TestTimerExpiry_LosesRaceGracefully(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())
	setupRound(r, "p2")
	setupVoting(r)

	// All ballots arrive, closing the vote.
	r.Vote("p0", "p1")
	r.Vote("p1", "p0")
	r.Vote("p2", "p1")
	round := r.CurrentRound()

	// A stale expiry for round 1 then fires; it must be absorbed.
	r.votingElapsed(1)
	if r.CurrentRound() != round {
		t.Errorf("Stale timer expiry advanced the round: %d", r.CurrentRound())
	}
}

func TestRevealNext_DrainsOrder(t *testing.T) {
	r, mb := newTestRoom(3, testSettings())
	setupRound(r, "p2")

	if err := r.RevealNext(); err != ErrWrongPhase {
		t.Fatalf("Reveal outside discussion should fail, got %v", err)
	}

	r.SubmitWord("p0", "juicy")
	r.SubmitWord("p1", "round")
	r.SubmitWord("p2", "sweet")
	if r.Phase() != state.Discussion {
		t.Fatal("Setup failed: not in discussion")
	}

	for i := 0; i < 3; i++ {
		if err := r.RevealNext(); err != nil {
			t.Fatalf("RevealNext %d failed: %v", i, err)
		}
	}
	if err := r.RevealNext(); err != ErrNothingToShow {
		t.Errorf("Expected ErrNothingToShow after draining, got %v", err)
	}
	if mb.broadcastCount(network.MsgTypeWordRevealed) != 3 {
		t.Errorf("Expected 3 word-revealed broadcasts, got %d",
			mb.broadcastCount(network.MsgTypeWordRevealed))
	}
}

func TestRemovePlayer_HostTransfersToEarliestJoined(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())

	removed, remaining := r.RemovePlayer("p0")
	if !removed || remaining != 2 {
		t.Fatalf("RemovePlayer = (%v, %d)", removed, remaining)
	}

	p1, _ := r.GetPlayer("p1")
	p2, _ := r.GetPlayer("p2")
	if !p1.IsHost {
		t.Error("Host should transfer to the earliest-joined remaining player")
	}
	if p2.IsHost {
		t.Error("Only one host allowed")
	}
}

func TestRemovePlayer_NonHostKeepsHost(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())

	r.RemovePlayer("p2")
	p0, _ := r.GetPlayer("p0")
	if !p0.IsHost {
		t.Error("Host should be unchanged when a non-host leaves")
	}
}

func TestRemovePlayer_LastStragglerAdvancesWordInput(t *testing.T) {
	r, _ := newTestRoom(4, testSettings())
	setupRound(r, "p3")

	r.SubmitWord("p0", "juicy")
	r.SubmitWord("p1", "round")
	r.SubmitWord("p3", "sweet")

	// p2 never submitted; their departure should unblock the round.
	r.RemovePlayer("p2")
	if r.Phase() != state.Discussion {
		t.Errorf("Expected discussion after straggler left, got %s", r.Phase())
	}
}

func TestRemovePlayer_LastVoterClosesBallot(t *testing.T) {
	r, _ := newTestRoom(4, testSettings())
	setupRound(r, "p3")
	setupVoting(r)

	r.Vote("p0", "p1")
	r.Vote("p1", "p0")
	r.Vote("p3", "p1")

	// p2 holds the last ballot and disconnects.
	r.RemovePlayer("p2")

	// p1 holds the unique maximum (2 votes) and is eliminated.
	p1, _ := r.GetPlayer("p1")
	if p1.IsAlive {
		t.Error("Expected ballot to close and p1 to be eliminated")
	}
	if r.CurrentRound() != 2 {
		t.Errorf("Expected round 2, got %d", r.CurrentRound())
	}
}

func TestSnapshot_HidesSecretsUntilResults(t *testing.T) {
	r, _ := newTestRoom(3, testSettings())
	setupRound(r, "p2")
	r.SubmitWord("p0", "juicy")

	snap := r.Snapshot()
	if snap.Fruit != "" {
		t.Error("Fruit must stay hidden before results")
	}
	for _, v := range snap.Players {
		if v.Role != "" || v.Word != "" {
			t.Errorf("Player %s secrets leaked before results", v.ID)
		}
	}

	r.mu.Lock()
	r.phase = state.Results
	r.mu.Unlock()

	snap = r.Snapshot()
	if snap.Fruit == "" {
		t.Error("Fruit should be revealed at results")
	}
	seenRole := false
	for _, v := range snap.Players {
		if v.Role != "" {
			seenRole = true
		}
	}
	if !seenRole {
		t.Error("Roles should be revealed at results")
	}
}

func TestSnapshot_RosterInJoinOrder(t *testing.T) {
	r, _ := newTestRoom(4, testSettings())
	snap := r.Snapshot()
	for i, v := range snap.Players {
		want := fmt.Sprintf("p%d", i)
		if v.ID != want {
			t.Errorf("Roster position %d: expected %s, got %s", i, want, v.ID)
		}
	}
}
