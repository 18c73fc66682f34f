package network

// Message ids. 1xx are client actions, 3xx are server notifications.
const (
	MsgTypeHeartbeat = 1
	MsgTypeError     = 2

	MsgTypeCreateRoom = 101
	MsgTypeJoinRoom   = 102
	MsgTypeStartGame  = 103
	MsgTypeSubmitWord = 104
	MsgTypeVote       = 105
	MsgTypeRevealNext = 106

	MsgTypeRoomCreated      = 301
	MsgTypeJoinedRoom       = 302
	MsgTypePlayerJoined     = 303
	MsgTypePlayerLeft       = 304
	MsgTypeRoundStarted     = 305
	MsgTypePhaseChanged     = 306
	MsgTypeTimerTick        = 307
	MsgTypePlayerSubmitted  = 308
	MsgTypeVoteReceived     = 309
	MsgTypeWordRevealed     = 310
	MsgTypePlayerEliminated = 311
	MsgTypeGameEnded        = 312
)
