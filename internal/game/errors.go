package game

import "errors"

var ErrRoomNotFound = errors.New("room not found")
var ErrRoomNotJoinable = errors.New("room is no longer joinable")
var ErrRoomFull = errors.New("room is full")
var ErrPlayerNotInRoom = errors.New("player is not in the room")
var ErrNotHost = errors.New("only the host can start the game")
var ErrNotAllReady = errors.New("not all players are ready")
var ErrInsufficientPlayers = errors.New("not enough players to start")
var ErrCapacityConfig = errors.New("invalid capacity configuration")

// ErrorCode maps a session error to its wire-level code. Unknown errors map
// to "internal" so handler bugs never leak raw messages as codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room-not-found"
	case errors.Is(err, ErrRoomNotJoinable):
		return "room-not-joinable"
	case errors.Is(err, ErrRoomFull):
		return "room-full"
	case errors.Is(err, ErrPlayerNotInRoom):
		return "player-not-in-room"
	case errors.Is(err, ErrNotHost):
		return "not-host"
	case errors.Is(err, ErrNotAllReady):
		return "not-all-ready"
	case errors.Is(err, ErrInsufficientPlayers):
		return "insufficient-players"
	case errors.Is(err, ErrCapacityConfig):
		return "capacity-config-invalid"
	default:
		return "internal"
	}
}
