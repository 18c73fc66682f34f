package broadcast

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/8934528/Imposter-System/network"
	"github.com/8934528/Imposter-System/session"
)

// recordingConn captures everything sent through it.
type recordingConn struct {
	mu    sync.Mutex
	sends []uint16
}

func (c *recordingConn) Send(msgID uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, msgID)
	return nil
}

func (c *recordingConn) Close() error                         { return nil }
func (c *recordingConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConn) SetHeartbeat(interval time.Duration)  {}
func (c *recordingConn) ReadPacket() (*network.Packet, error) { return nil, nil }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func TestRoomBroadcaster_BroadcastToRoom(t *testing.T) {
	sessions := session.NewManager()
	b := NewRoomBroadcaster(sessions)

	connA1, connA2, connB := &recordingConn{}, &recordingConn{}, &recordingConn{}

	a1 := session.NewSession("a1", connA1)
	a1.SetRoom("AAAA")
	a2 := session.NewSession("a2", connA2)
	a2.SetRoom("AAAA")
	b1 := session.NewSession("b1", connB)
	b1.SetRoom("BBBB")

	sessions.Add(a1)
	sessions.Add(a2)
	sessions.Add(b1)

	if err := b.BroadcastToRoom("AAAA", 42, []byte(`{}`)); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}

	if connA1.count() != 1 || connA2.count() != 1 {
		t.Error("Both sessions in room AAAA should receive the message")
	}
	if connB.count() != 0 {
		t.Error("Sessions in other rooms must not receive the message")
	}
}

func TestRoomBroadcaster_SendToPlayer(t *testing.T) {
	sessions := session.NewManager()
	b := NewRoomBroadcaster(sessions)

	conn := &recordingConn{}
	s := session.NewSession("p1", conn)
	sessions.Add(s)

	if err := b.SendToPlayer("p1", 7, []byte(`{}`)); err != nil {
		t.Fatalf("SendToPlayer failed: %v", err)
	}
	if conn.count() != 1 {
		t.Errorf("Expected 1 send, got %d", conn.count())
	}

	if err := b.SendToPlayer("ghost", 7, nil); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}
