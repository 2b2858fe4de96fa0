package ws

import (
	"strings"
	"testing"

	"github.com/chaseparty/chase-backend/internal/types"
)

const (
	walletID = "0xabcdefABCDEF0123456789abcdefABCDEF012345"
	guestID  = "guest-123e4567-e89b-12d3-a456-426614174000"
)

func TestValidate(t *testing.T) {
	createBase := types.ClientMessage{
		Type:        types.MsgCreateRoom,
		Identity:    walletID,
		MapID:       "map-1",
		CharacterID: "char-1",
		DisplayName: "Alice",
		Visibility:  "public",
	}

	cases := []struct {
		name    string
		msg     types.ClientMessage
		wantErr bool
	}{
		{"create with wallet identity", createBase, false},
		{
			"create with guest identity",
			func() types.ClientMessage { m := createBase; m.Identity = guestID; return m }(),
			false,
		},
		{
			"create rejects malformed identity",
			func() types.ClientMessage { m := createBase; m.Identity = "0x1234"; return m }(),
			true,
		},
		{
			"create rejects missing map",
			func() types.ClientMessage { m := createBase; m.MapID = ""; return m }(),
			true,
		},
		{
			"create rejects oversized display name",
			func() types.ClientMessage { m := createBase; m.DisplayName = strings.Repeat("x", 25); return m }(),
			true,
		},
		{
			"create rejects unknown visibility",
			func() types.ClientMessage { m := createBase; m.Visibility = "hidden"; return m }(),
			true,
		},
		{
			"join requires well-formed code",
			types.ClientMessage{Type: types.MsgJoinRoom, RoomCode: "abc123", Identity: walletID, CharacterID: "c", DisplayName: "Bob"},
			true,
		},
		{
			"join accepts uppercase code",
			types.ClientMessage{Type: types.MsgJoinRoom, RoomCode: "ABC123", Identity: walletID, CharacterID: "c", DisplayName: "Bob"},
			false,
		},
		{
			"ready needs code and identity",
			types.ClientMessage{Type: types.MsgPlayerReady, RoomCode: "ABC123", Identity: guestID},
			false,
		},
		{
			"ready rejects missing identity",
			types.ClientMessage{Type: types.MsgPlayerReady, RoomCode: "ABC123"},
			true,
		},
		{
			"start-game needs only a code",
			types.ClientMessage{Type: types.MsgStartGame, RoomCode: "ABC123"},
			false,
		},
		{
			"get-public-rooms has no required fields",
			types.ClientMessage{Type: types.MsgGetPublicRooms},
			false,
		},
		{
			"position needs membership fields",
			types.ClientMessage{Type: types.MsgPlayerPosition, RoomCode: "ABC123", Identity: walletID, X: 1.5, Y: -2},
			false,
		},
		{
			"unknown type rejected",
			types.ClientMessage{Type: "uninvented-op"},
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate(tc.msg)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}
