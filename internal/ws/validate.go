package ws

import (
	"errors"
	"regexp"

	"github.com/chaseparty/chase-backend/internal/types"
)

// Identity is either a hex account address or a locally-generated guest id.
// Both shapes pass one pattern so the server never has to care which.
var identityRe = regexp.MustCompile(`^(0x[0-9a-fA-F]{40}|guest-[0-9a-fA-F-]{36})$`)

var roomCodeRe = regexp.MustCompile(`^[A-Z0-9]{6}$`)

const (
	maxDisplayName = 24
	maxFieldLen    = 32
)

var errBadPayload = errors.New("malformed payload")

// validate checks the field shape for a message type before any session
// state is touched. It returns a human-readable reason on failure.
func validate(cm types.ClientMessage) error {
	switch cm.Type {
	case types.MsgCreateRoom:
		if !identityRe.MatchString(cm.Identity) {
			return errors.New("invalid identity")
		}
		if cm.MapID == "" || len(cm.MapID) > maxFieldLen {
			return errors.New("invalid mapId")
		}
		if cm.CharacterID == "" || len(cm.CharacterID) > maxFieldLen {
			return errors.New("invalid characterId")
		}
		if cm.DisplayName == "" || len(cm.DisplayName) > maxDisplayName {
			return errors.New("invalid displayName")
		}
		if cm.Visibility != "public" && cm.Visibility != "private" {
			return errors.New("visibility must be public or private")
		}
		return nil

	case types.MsgJoinRoom:
		if !roomCodeRe.MatchString(cm.RoomCode) {
			return errors.New("invalid roomCode")
		}
		if !identityRe.MatchString(cm.Identity) {
			return errors.New("invalid identity")
		}
		if cm.CharacterID == "" || len(cm.CharacterID) > maxFieldLen {
			return errors.New("invalid characterId")
		}
		if cm.DisplayName == "" || len(cm.DisplayName) > maxDisplayName {
			return errors.New("invalid displayName")
		}
		return nil

	case types.MsgPlayerReady, types.MsgLeaveRoom:
		if !roomCodeRe.MatchString(cm.RoomCode) {
			return errors.New("invalid roomCode")
		}
		if !identityRe.MatchString(cm.Identity) {
			return errors.New("invalid identity")
		}
		return nil

	case types.MsgStartGame:
		if !roomCodeRe.MatchString(cm.RoomCode) {
			return errors.New("invalid roomCode")
		}
		return nil

	case types.MsgGetPublicRooms:
		return nil

	case types.MsgPlayerPosition:
		if !roomCodeRe.MatchString(cm.RoomCode) {
			return errors.New("invalid roomCode")
		}
		if !identityRe.MatchString(cm.Identity) {
			return errors.New("invalid identity")
		}
		return nil

	default:
		return errBadPayload
	}
}
