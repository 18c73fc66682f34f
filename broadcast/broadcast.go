// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/8934528/Imposter-System/session"
)

var ErrSessionNotFound = errors.New("session not found")

// Broadcaster delivers framed messages to players by room or one-to-one.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, data []byte) error
	SendToPlayer(playerID string, msgID uint16, data []byte) error
}

// RoomBroadcaster fans out over the session manager. It deliberately
// knows nothing about rooms beyond the code each session carries, so it
// can be called from inside a room's lock without re-entering it.
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByRoom(roomCode) {
		if err := s.Send(msgID, data); err != nil {
			// A dead connection is cleaned up by its own read loop;
			// keep delivering to the rest of the room.
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) SendToPlayer(playerID string, msgID uint16, data []byte) error {
	s, exists := b.sessionManager.Get(playerID)
	if !exists {
		return ErrSessionNotFound
	}
	return s.Send(msgID, data)
}
