package game

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// SnapshotRecord is what the write-behind store persists per room. Payload is
// an opaque JSON document; the store never interprets it.
type SnapshotRecord struct {
	Code    string
	Status  string
	Payload []byte
}

type persistedRoom struct {
	Code       string            `json:"code"`
	Host       string            `json:"host"`
	MapID      string            `json:"mapId"`
	Visibility string            `json:"visibility"`
	Status     string            `json:"status"`
	MaxPlayers int               `json:"maxPlayers"`
	MinPlayers int               `json:"minPlayers"`
	CreatedAt  int64             `json:"createdAt"`
	Players    []persistedPlayer `json:"players"`
}

type persistedPlayer struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	CharacterID string `json:"characterId"`
	Ready       bool   `json:"ready"`
	Host        bool   `json:"host"`
	JoinedAt    int64  `json:"joinedAt"`
}

// SnapshotAll captures every live room for the write-behind worker. It holds
// the mutex only long enough to copy; persistence never gates a transition.
func (m *Manager) SnapshotAll() []SnapshotRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := make([]SnapshotRecord, 0, len(m.rooms))
	for _, room := range m.rooms {
		pr := persistedRoom{
			Code:       room.Code,
			Host:       room.Host,
			MapID:      room.MapID,
			Visibility: string(room.Visibility),
			Status:     string(room.Status),
			MaxPlayers: room.MaxPlayers,
			MinPlayers: room.MinPlayers,
			CreatedAt:  room.CreatedAt.UnixMilli(),
		}
		for _, id := range room.order {
			p := room.players[id]
			pr.Players = append(pr.Players, persistedPlayer{
				Identity:    p.Identity,
				DisplayName: p.DisplayName,
				CharacterID: p.CharacterID,
				Ready:       p.Ready,
				Host:        p.Host,
				JoinedAt:    p.JoinedAt.UnixMilli(),
			})
		}
		payload, err := json.Marshal(pr)
		if err != nil {
			m.log.Warn("snapshot marshal failed", zap.String("code", room.Code), zap.Error(err))
			continue
		}
		recs = append(recs, SnapshotRecord{Code: room.Code, Status: string(room.Status), Payload: payload})
	}
	return recs
}

// Restore rebuilds waiting rooms from persisted snapshots after a restart.
// Best effort only: in-flight matches are not resumed, and every restored
// player starts disconnected with a removal timer already running, so rooms
// whose players never come back clean themselves up.
func (m *Manager) Restore(recs []SnapshotRecord) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for _, rec := range recs {
		if rec.Status != string(StatusWaiting) {
			continue
		}
		var pr persistedRoom
		if err := json.Unmarshal(rec.Payload, &pr); err != nil {
			m.log.Warn("snapshot unmarshal failed", zap.String("code", rec.Code), zap.Error(err))
			continue
		}
		if len(pr.Players) == 0 {
			continue
		}
		if _, exists := m.rooms[pr.Code]; exists {
			continue
		}

		room := &Room{
			Code:       pr.Code,
			Host:       pr.Host,
			MapID:      pr.MapID,
			Visibility: Visibility(pr.Visibility),
			Status:     StatusWaiting,
			MaxPlayers: pr.MaxPlayers,
			MinPlayers: pr.MinPlayers,
			CreatedAt:  time.UnixMilli(pr.CreatedAt),
			players:    make(map[string]*Player),
		}
		for _, pp := range pr.Players {
			player := &Player{
				Identity:    pp.Identity,
				DisplayName: pp.DisplayName,
				CharacterID: pp.CharacterID,
				Ready:       pp.Ready,
				Host:        pp.Host,
				JoinedAt:    time.UnixMilli(pp.JoinedAt),
			}
			room.addPlayer(player)
			code, identity := room.Code, player.Identity
			player.removeTimer = time.AfterFunc(m.cfg.WaitingRemoval, func() {
				m.expireDisconnected(code, identity)
			})
		}
		m.rooms[room.Code] = room
		restored++
		m.log.Info("room restored from snapshot",
			zap.String("code", room.Code),
			zap.Int("players", room.size()))
	}
	return restored
}
