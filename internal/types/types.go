package types

// ClientMessage is the single inbound envelope. One Type per operation;
// which fields are required depends on the Type and is enforced at the
// transport boundary before any state is touched.
type ClientMessage struct {
	Type        string  `json:"type"`
	RoomCode    string  `json:"roomCode,omitempty"`
	Identity    string  `json:"identity,omitempty"`
	MapID       string  `json:"mapId,omitempty"`
	CharacterID string  `json:"characterId,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	Visibility  string  `json:"visibility,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
}

// Client -> server message types.
const (
	MsgCreateRoom     = "create-room"
	MsgJoinRoom       = "join-room"
	MsgPlayerReady    = "player-ready"
	MsgStartGame      = "start-game"
	MsgGetPublicRooms = "get-public-rooms"
	MsgPlayerPosition = "player-position"
	MsgLeaveRoom      = "leave-room"
)

// Server -> client message types.
const (
	EvtRoomCreated        = "room-created"
	EvtRoomJoined         = "room-joined"
	EvtPlayerJoined       = "player-joined"
	EvtPlayerReadyUpdate  = "player-ready-update"
	EvtGameStarting       = "game-starting"
	EvtGameStarted        = "game-started"
	EvtGameEnded          = "game-ended"
	EvtPublicRoomsList    = "public-rooms-list"
	EvtPlayerMoved        = "player-moved"
	EvtPlayerLeft         = "player-left"
	EvtPlayerDisconnected = "player-disconnected"
	EvtError              = "error"
)

// ServerMessage is the single outbound envelope. Fields not meaningful for a
// given Type are omitted from the JSON.
type ServerMessage struct {
	Type           string           `json:"type"`
	RoomCode       string           `json:"roomCode,omitempty"`
	Room           *RoomView        `json:"room,omitempty"`
	Players        []PlayerView     `json:"players,omitempty"`
	Roster         []RosterEntry    `json:"roster,omitempty"`
	CurrentPlayers int              `json:"currentPlayers,omitempty"`
	Countdown      int              `json:"countdown,omitempty"`
	ServerTime     int64            `json:"serverTime,omitempty"`
	GameDuration   int64            `json:"gameDuration,omitempty"`
	Rooms          []PublicRoomView `json:"rooms,omitempty"`
	Identity       string           `json:"identity,omitempty"`
	X              float64          `json:"x,omitempty"`
	Y              float64          `json:"y,omitempty"`
	Error          *ErrorInfo       `json:"error,omitempty"`
}

// RoomView is the full room state broadcast after any membership or
// readiness change. It is a copy; mutating it does not touch the room.
type RoomView struct {
	Code       string       `json:"code"`
	Host       string       `json:"host"`
	MapID      string       `json:"mapId"`
	Visibility string       `json:"visibility"`
	Status     string       `json:"status"`
	Players    []PlayerView `json:"players"`
	MaxPlayers int          `json:"maxPlayers"`
	MinPlayers int          `json:"minPlayers"`
	CreatedAt  int64        `json:"createdAt"`
	StartTime  int64        `json:"startTime,omitempty"`
}

type PlayerView struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	CharacterID string `json:"characterId"`
	Ready       bool   `json:"ready"`
	Host        bool   `json:"host"`
	Connected   bool   `json:"connected"`
	JoinedAt    int64  `json:"joinedAt"`
}

// RosterEntry is one row of the immutable match roster captured when a game
// starts. Clients bootstrap their local simulation from this, never from the
// live player list.
type RosterEntry struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	CharacterID string `json:"characterId"`
	SpawnSeed   int64  `json:"spawnSeed"`
}

type PublicRoomView struct {
	RoomCode       string `json:"roomCode"`
	CurrentPlayers int    `json:"currentPlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
	MapID          string `json:"mapId"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
