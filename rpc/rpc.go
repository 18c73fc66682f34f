package rpc

import (
	"net"
	"net/rpc"

	"github.com/8934528/Imposter-System/logger"
	"github.com/8934528/Imposter-System/models"
	"github.com/8934528/Imposter-System/room"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the
// caller before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operational queries over the room directory.
// Methods follow the net/rpc signature rules: exported method, exported
// argument types, pointer reply, error return.
type AdminService struct {
	rooms *room.Manager
}

func NewAdminService(rooms *room.Manager) *AdminService {
	return &AdminService{rooms: rooms}
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Codes []string
}

func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Codes = a.rooms.Codes()
	return nil
}

type RoomStateArgs struct {
	Code string
}

type RoomStateReply struct {
	Snapshot models.RoomSnapshot
}

func (a *AdminService) RoomState(args *RoomStateArgs, reply *RoomStateReply) error {
	r, exists := a.rooms.GetRoom(args.Code)
	if !exists {
		return room.ErrRoomNotFound
	}
	reply.Snapshot = r.Snapshot()
	return nil
}
