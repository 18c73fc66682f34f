// room/manager.go
package room

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"github.com/8934528/Imposter-System/logger"
	"github.com/8934528/Imposter-System/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNameRequired = errors.New("please enter your name")
	ErrInvalidName  = errors.New("name must be 1-20 printable characters")
	ErrNotHost      = errors.New("only the host can start the game")
)

// Manager is the process-wide room directory: code to room and player to
// room code. Its own lock covers only the registries; per-room state is
// guarded by each room's lock.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	players  map[string]string // player id -> room code
	defaults models.Settings
}

func NewManager(defaults models.Settings) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		players:  make(map[string]string),
		defaults: defaults,
	}
}

// CreateRoom generates a unique code, creates the room and enrolls the
// creator as host.
func (m *Manager) CreateRoom(playerID, name string, settings *models.Settings, broadcaster Broadcaster) (*Room, *Player, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := m.uniqueCodeLocked()
	if err != nil {
		return nil, nil, err
	}

	room := NewRoom(code, m.normalize(settings), broadcaster)
	player := NewPlayer(playerID, name, code, true)
	if err := room.AddPlayer(player); err != nil {
		return nil, nil, err
	}

	m.rooms[code] = room
	m.players[playerID] = code

	logger.Log.Infow("room created", "room", code, "host", name)
	return room, player, nil
}

// JoinRoom enrolls a player into an existing waiting room.
func (m *Manager) JoinRoom(code, playerID, name string) (*Room, *Player, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	m.mu.Lock()
	defer m.mu.Unlock()

	room, exists := m.rooms[code]
	if !exists {
		return nil, nil, ErrRoomNotFound
	}

	player := NewPlayer(playerID, name, code, false)
	if err := room.AddPlayer(player); err != nil {
		return nil, nil, err
	}
	m.players[playerID] = code

	logger.Log.Infow("player joined", "room", code, "player", name)
	return room, player, nil
}

// RemovePlayer drops the player from their room, tearing the room down if
// it becomes empty. Returns the room code the player was in, if any.
func (m *Manager) RemovePlayer(playerID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, exists := m.players[playerID]
	if !exists {
		return "", false
	}
	delete(m.players, playerID)

	room, exists := m.rooms[code]
	if !exists {
		return code, true
	}

	_, remaining := room.RemovePlayer(playerID)
	if remaining == 0 {
		room.Close()
		delete(m.rooms, code)
		logger.Log.Infow("room torn down", "room", code)
	}
	return code, true
}

// StartGame begins the game in the caller's room; the caller must be the
// host.
func (m *Manager) StartGame(code, playerID string) error {
	room, exists := m.GetRoom(code)
	if !exists {
		return ErrRoomNotFound
	}
	player, exists := room.GetPlayer(playerID)
	if !exists {
		return ErrUnknownPlayer
	}
	if !player.IsHost {
		return ErrNotHost
	}
	return room.StartGame()
}

// SubmitWord routes a submission to the player's current room.
func (m *Manager) SubmitWord(playerID, word string) error {
	room, exists := m.RoomForPlayer(playerID)
	if !exists {
		return ErrRoomNotFound
	}
	return room.SubmitWord(playerID, word)
}

// Vote routes a vote to the voter's current room.
func (m *Manager) Vote(voterID, targetID string) error {
	room, exists := m.RoomForPlayer(voterID)
	if !exists {
		return ErrRoomNotFound
	}
	return room.Vote(voterID, targetID)
}

func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, exists := m.rooms[strings.ToUpper(strings.TrimSpace(code))]
	return room, exists
}

// RoomForPlayer resolves the room a player currently belongs to.
func (m *Manager) RoomForPlayer(playerID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code, exists := m.players[playerID]
	if !exists {
		return nil, false
	}
	room, exists := m.rooms[code]
	return room, exists
}

func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Codes lists the codes of every active room.
func (m *Manager) Codes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	return codes
}

// uniqueCodeLocked retries generation until the code is free. With 26^4
// codes and a handful of live rooms a retry is rare, but it is checked,
// not assumed.
func (m *Manager) uniqueCodeLocked() (string, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := m.rooms[code]; !taken {
			return code, nil
		}
	}
}

// normalize fills unset or out-of-range settings from the defaults. The
// configured MaxPlayers is a hard ceiling, not just a default, and the
// imposter count always stays below the room size.
func (m *Manager) normalize(s *models.Settings) models.Settings {
	out := m.defaults
	if s != nil {
		if s.MaxPlayers > 0 {
			out.MaxPlayers = s.MaxPlayers
		}
		if s.ImposterCount > 0 {
			out.ImposterCount = s.ImposterCount
		}
		if s.DiscussionSeconds > 0 {
			out.DiscussionSeconds = s.DiscussionSeconds
		}
		if s.VotingSeconds > 0 {
			out.VotingSeconds = s.VotingSeconds
		}
		if s.MaxRounds > 0 {
			out.MaxRounds = s.MaxRounds
		}
	}
	if out.MaxPlayers > m.defaults.MaxPlayers {
		out.MaxPlayers = m.defaults.MaxPlayers
	}
	if out.ImposterCount >= out.MaxPlayers {
		out.ImposterCount = out.MaxPlayers - 1
	}
	return out
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if len([]rune(name)) > 20 {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return "", ErrInvalidName
		}
	}
	return name, nil
}
