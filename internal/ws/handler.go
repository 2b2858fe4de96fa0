package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaseparty/chase-backend/internal/game"
	"github.com/chaseparty/chase-backend/internal/ratelimit"
	"github.com/chaseparty/chase-backend/internal/types"
)

const writeTimeout = 3 * time.Second

// rateRule is a per-action sliding-window budget. Silent rules drop the
// excess without an error event: position spam is throttled, not scolded.
type rateRule struct {
	max    int
	window time.Duration
	silent bool
}

var rateRules = map[string]rateRule{
	types.MsgCreateRoom:     {max: 3, window: 10 * time.Second},
	types.MsgJoinRoom:       {max: 5, window: 10 * time.Second},
	types.MsgPlayerReady:    {max: 10, window: 10 * time.Second},
	types.MsgStartGame:      {max: 5, window: 10 * time.Second},
	types.MsgLeaveRoom:      {max: 5, window: 10 * time.Second},
	types.MsgGetPublicRooms: {max: 10, window: 10 * time.Second},
	types.MsgPlayerPosition: {max: 40, window: time.Second, silent: true},
}

// Handler upgrades the connection and runs its read loop. Every inbound
// message is validated and rate-limited before it can reach the session
// layer, and every failure is answered with an error event rather than a
// closed socket.
func Handler(h *Hub, mgr *game.Manager, limiter *ratelimit.Limiter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := h.Attach(connID)
		defer func() {
			h.Detach(connID)
			mgr.HandleDisconnect(connID)
		}()

		log.Debug("connection opened", zap.String("conn", connID))

		// Writer goroutine: drains the hub's send buffer onto the socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for payload := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("connection read ended", zap.String("conn", connID), zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				h.Send(connID, errorMessage("invalid-payload", "bad json"))
				continue
			}
			dispatch(h, mgr, limiter, log, connID, cm)
		}
	}
}

// dispatch routes one validated message. It recovers panics locally so a bug
// in one handler cannot take the process, or other rooms, down with it.
func dispatch(h *Hub, mgr *game.Manager, limiter *ratelimit.Limiter, log *zap.Logger, connID string, cm types.ClientMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in message handler",
				zap.String("conn", connID),
				zap.String("type", cm.Type),
				zap.Any("panic", rec))
			h.Send(connID, errorMessage("internal", "internal error"))
		}
	}()

	if err := validate(cm); err != nil {
		h.Send(connID, errorMessage("invalid-payload", err.Error()))
		return
	}

	rule := rateRules[cm.Type]
	if !limiter.Allow(connID+":"+cm.Type, rule.max, rule.window) {
		if !rule.silent {
			h.Send(connID, errorMessage("rate-limited", "too many requests"))
		} else {
			log.Debug("throttled", zap.String("conn", connID), zap.String("type", cm.Type))
		}
		return
	}

	switch cm.Type {
	case types.MsgCreateRoom:
		view, err := mgr.CreateRoom(game.CreateParams{
			ConnID:      connID,
			Identity:    cm.Identity,
			MapID:       cm.MapID,
			CharacterID: cm.CharacterID,
			DisplayName: cm.DisplayName,
			Visibility:  game.Visibility(cm.Visibility),
		})
		if err != nil {
			h.Send(connID, gameError(err))
			return
		}
		h.Subscribe(connID, view.Code)
		h.Send(connID, types.ServerMessage{
			Type:     types.EvtRoomCreated,
			RoomCode: view.Code,
			Room:     view,
			Players:  view.Players,
		})

	case types.MsgJoinRoom:
		view, _, err := mgr.JoinRoom(game.JoinParams{
			ConnID:      connID,
			RoomCode:    cm.RoomCode,
			Identity:    cm.Identity,
			CharacterID: cm.CharacterID,
			DisplayName: cm.DisplayName,
		})
		if err != nil {
			h.Send(connID, gameError(err))
			return
		}
		h.Subscribe(connID, view.Code)
		h.Send(connID, types.ServerMessage{
			Type:           types.EvtRoomJoined,
			RoomCode:       view.Code,
			Room:           view,
			Players:        view.Players,
			CurrentPlayers: len(view.Players),
		})

	case types.MsgPlayerReady:
		if _, err := mgr.MarkReady(cm.RoomCode, cm.Identity); err != nil {
			h.Send(connID, gameError(err))
		}

	case types.MsgStartGame:
		// The payload carries no identity; the sender is whoever this
		// connection is bound to.
		identity, ok := mgr.IdentityFor(connID)
		if !ok {
			h.Send(connID, gameError(game.ErrPlayerNotInRoom))
			return
		}
		if err := mgr.StartGame(cm.RoomCode, identity); err != nil {
			h.Send(connID, gameError(err))
		}

	case types.MsgGetPublicRooms:
		h.Send(connID, types.ServerMessage{
			Type:  types.EvtPublicRoomsList,
			Rooms: mgr.PublicRooms(),
		})

	case types.MsgPlayerPosition:
		// Relayed, never persisted. Failures are silent by design.
		if !mgr.InRoom(cm.RoomCode, cm.Identity) {
			log.Debug("position from non-member dropped",
				zap.String("conn", connID),
				zap.String("room", cm.RoomCode))
			return
		}
		h.ToRoomExcept(cm.RoomCode, connID, types.ServerMessage{
			Type:     types.EvtPlayerMoved,
			RoomCode: cm.RoomCode,
			Identity: cm.Identity,
			X:        cm.X,
			Y:        cm.Y,
		})

	case types.MsgLeaveRoom:
		// Unsubscribe only once the manager accepts the leave; a rejected
		// leave must not cut the sender off from room traffic.
		if err := mgr.LeaveRoom(cm.RoomCode, cm.Identity); err != nil {
			h.Send(connID, gameError(err))
			return
		}
		h.Unsubscribe(connID, cm.RoomCode)
	}
}

func errorMessage(code, message string) types.ServerMessage {
	return types.ServerMessage{
		Type:  types.EvtError,
		Error: &types.ErrorInfo{Code: code, Message: message},
	}
}

func gameError(err error) types.ServerMessage {
	return errorMessage(game.ErrorCode(err), err.Error())
}
