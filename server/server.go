package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/8934528/Imposter-System/broadcast"
	"github.com/8934528/Imposter-System/config"
	"github.com/8934528/Imposter-System/logger"
	"github.com/8934528/Imposter-System/models"
	"github.com/8934528/Imposter-System/monitor"
	"github.com/8934528/Imposter-System/network"
	"github.com/8934528/Imposter-System/room"
	adminrpc "github.com/8934528/Imposter-System/rpc"
	"github.com/8934528/Imposter-System/session"
)

type GameServer struct {
	addr           string
	monitorAddr    string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	rpcServer      *adminrpc.Server
	mon            *monitor.Monitor
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config) *GameServer {
	defaults := models.Settings{
		MaxPlayers:        cfg.Game.MaxPlayers,
		ImposterCount:     cfg.Game.ImposterCount,
		DiscussionSeconds: cfg.Game.DiscussionSeconds,
		VotingSeconds:     cfg.Game.VotingSeconds,
		MaxRounds:         cfg.Game.MaxRounds,
	}

	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		monitorAddr:    cfg.Monitor.Address,
		roomManager:    room.NewManager(defaults),
		sessionManager: session.NewManager(),
		mon:            monitor.NewMonitor("imposter"),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // party game, clients come from anywhere
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)

	rpcServer, err := adminrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(adminrpc.NewAdminService(s.roomManager))

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.mon.StartServer(s.monitorAddr)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "imposter-server",
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

// heartbeatInterval is how often clients are expected to send a frame;
// the connection drops after two silent intervals.
const heartbeatInterval = 30 * time.Second

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.mon.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	// A bad packet must cost at most one error reply to one player,
	// never the process or another room.
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Errorf("Panic handling message %d from %s: %v", packet.MsgID, sess.GetID(), rec)
			s.sendError(sess, "An error occurred")
		}
	}()

	start := time.Now()
	s.mon.IncMessagesReceived()
	defer func() { s.mon.ObserveMessageLatency(time.Since(start)) }()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess, packet)
	case network.MsgTypeSubmitWord:
		s.handleSubmitWord(sess, packet)
	case network.MsgTypeVote:
		s.handleVote(sess, packet)
	case network.MsgTypeRevealNext:
		s.handleRevealNext(sess)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req models.CreateRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "Malformed request")
		return
	}

	gameRoom, player, err := s.roomManager.CreateRoom(sess.GetID(), req.PlayerName, req.Settings, s.broadcaster)
	if err != nil {
		s.sendError(sess, errorMessage(err))
		return
	}

	sess.Name = player.Name
	sess.SetRoom(gameRoom.Code)
	s.mon.SetActiveRooms(s.roomManager.RoomCount())

	s.send(sess, network.MsgTypeRoomCreated, models.RoomJoinedPayload{
		RoomCode: gameRoom.Code,
		Player:   player.View(false),
		Room:     gameRoom.Snapshot(),
	})
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req models.JoinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "Malformed request")
		return
	}

	gameRoom, player, err := s.roomManager.JoinRoom(req.RoomCode, sess.GetID(), req.PlayerName)
	if err != nil {
		s.sendError(sess, errorMessage(err))
		return
	}

	// Announce to the players already in the room before this session
	// starts receiving room traffic itself.
	snapshot := gameRoom.Snapshot()
	data, _ := json.Marshal(models.PlayerJoinedPayload{
		Player:  player.View(false),
		Players: snapshot.Players,
	})
	s.broadcaster.BroadcastToRoom(gameRoom.Code, network.MsgTypePlayerJoined, data)

	sess.Name = player.Name
	sess.SetRoom(gameRoom.Code)

	s.send(sess, network.MsgTypeJoinedRoom, models.RoomJoinedPayload{
		RoomCode: gameRoom.Code,
		Player:   player.View(false),
		Room:     snapshot,
	})
}

func (s *GameServer) handleStartGame(sess *session.Session, packet *network.Packet) {
	var req models.StartGameRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "Malformed request")
		return
	}
	code := req.RoomCode
	if code == "" {
		code = sess.Room()
	}

	if err := s.roomManager.StartGame(code, sess.GetID()); err != nil {
		s.sendError(sess, errorMessage(err))
		return
	}
	// The room delivers per-player round starts and the phase change
	// itself; nothing more to send from here.
}

func (s *GameServer) handleSubmitWord(sess *session.Session, packet *network.Packet) {
	var req models.SubmitWordRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "Malformed request")
		return
	}

	if err := s.roomManager.SubmitWord(sess.GetID(), req.Word); err != nil {
		if errors.Is(err, room.ErrWrongPhase) || errors.Is(err, room.ErrNotAlive) ||
			errors.Is(err, room.ErrCrewmateFirst) {
			s.sendError(sess, "Cannot submit word at this time")
			return
		}
		s.sendError(sess, errorMessage(err))
	}
}

func (s *GameServer) handleVote(sess *session.Session, packet *network.Packet) {
	var req models.VoteRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "Malformed request")
		return
	}

	// Self-votes are a client-boundary rule, not a room rule.
	if req.TargetPlayerID == sess.GetID() {
		s.sendError(sess, "You cannot vote for yourself")
		return
	}

	if err := s.roomManager.Vote(sess.GetID(), req.TargetPlayerID); err != nil {
		if errors.Is(err, room.ErrWrongPhase) || errors.Is(err, room.ErrNotAlive) {
			s.sendError(sess, "Cannot vote at this time")
			return
		}
		s.sendError(sess, errorMessage(err))
	}
}

func (s *GameServer) handleRevealNext(sess *session.Session) {
	gameRoom, exists := s.roomManager.RoomForPlayer(sess.GetID())
	if !exists {
		s.sendError(sess, errorMessage(room.ErrRoomNotFound))
		return
	}
	if err := gameRoom.RevealNext(); err != nil {
		if errors.Is(err, room.ErrWrongPhase) {
			s.sendError(sess, "Cannot reveal words at this time")
			return
		}
		s.sendError(sess, errorMessage(err))
	}
}

func (s *GameServer) handleDisconnect(sess *session.Session) {
	if code, removed := s.roomManager.RemovePlayer(sess.GetID()); removed {
		logger.Log.Infof("Session %s left room %s", sess.GetID(), code)
		s.mon.SetActiveRooms(s.roomManager.RoomCount())
	}
	s.sessionManager.Remove(sess.GetID())
	s.mon.DecOnlinePlayers()
}

func (s *GameServer) send(sess *session.Session, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Error marshalling message %d: %v", msgID, err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Warnf("Error sending message %d to %s: %v", msgID, sess.GetID(), err)
	}
}

func (s *GameServer) sendError(sess *session.Session, message string) {
	data, _ := json.Marshal(models.ErrorPayload{Message: message})
	if err := sess.Send(network.MsgTypeError, data); err != nil {
		logger.Log.Warnf("Error sending error to %s: %v", sess.GetID(), err)
	}
}
