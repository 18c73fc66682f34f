package room

import (
	"time"

	"github.com/8934528/Imposter-System/models"
)

// Role is a player's secret assignment for the current game.
type Role string

const (
	RoleCrewmate Role = "crewmate"
	RoleImposter Role = "imposter"
)

// Player is one participant's state inside a room. All mutation happens
// under the owning room's lock; Player itself carries no synchronization.
type Player struct {
	ID        string
	Name      string
	RoomCode  string
	Role      Role
	Word      string
	Votes     int
	IsAlive   bool
	Submitted bool
	IsHost    bool
	JoinedAt  time.Time
}

func NewPlayer(id, name, roomCode string, host bool) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		RoomCode: roomCode,
		Role:     RoleCrewmate,
		IsAlive:  true,
		IsHost:   host,
		JoinedAt: time.Now(),
	}
}

// ResetForNewRound clears the per-round fields. Role and alive status
// carry across rounds.
func (p *Player) ResetForNewRound() {
	p.Submitted = false
	p.Word = ""
	p.Votes = 0
}

// Eliminate marks the player dead. Elimination is permanent for the rest
// of the game; calling it again is a no-op.
func (p *Player) Eliminate() {
	p.IsAlive = false
}

// View returns the client-safe projection. Role and word stay hidden
// unless reveal is set (the game has ended, or the view is for the
// player themselves).
func (p *Player) View(reveal bool) models.PlayerView {
	v := models.PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		IsAlive:   p.IsAlive,
		Submitted: p.Submitted,
		Votes:     p.Votes,
		IsHost:    p.IsHost,
	}
	if reveal {
		v.Role = string(p.Role)
		v.Word = p.Word
	}
	return v
}
