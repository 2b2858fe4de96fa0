package game

import (
	"time"

	"github.com/chaseparty/chase-backend/internal/types"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Player is one roster slot. The entry survives disconnects during the grace
// window; only an explicit leave or grace expiry deletes it.
type Player struct {
	Identity    string
	DisplayName string
	CharacterID string
	Ready       bool
	Host        bool
	Connected   bool
	JoinedAt    time.Time

	connID      string
	removeTimer *time.Timer
}

// Room is the authoritative session state. Only the Manager mutates it, under
// the Manager's mutex.
type Room struct {
	Code       string
	Host       string
	MapID      string
	Visibility Visibility
	Status     Status
	MaxPlayers int
	MinPlayers int
	CreatedAt  time.Time
	StartTime  time.Time

	players map[string]*Player
	order   []string // identities in join order

	// Roster is frozen at game start and never changes afterwards, even if
	// players drop mid-match.
	Roster []types.RosterEntry

	countdownTimer *time.Timer
	endTimer       *time.Timer
}

func (r *Room) player(identity string) *Player {
	return r.players[identity]
}

func (r *Room) size() int { return len(r.order) }

func (r *Room) allReady() bool {
	for _, id := range r.order {
		if !r.players[id].Ready {
			return false
		}
	}
	return true
}

// canAutoStart reports whether the readiness gate is satisfied. Only called
// while the room is still waiting.
func (r *Room) canAutoStart() bool {
	return r.Status == StatusWaiting && r.size() >= r.MinPlayers && r.allReady()
}

func (r *Room) addPlayer(p *Player) {
	r.players[p.Identity] = p
	r.order = append(r.order, p.Identity)
}

func (r *Room) removePlayer(identity string) {
	delete(r.players, identity)
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// earliestJoined returns the identity first in join order, or "".
func (r *Room) earliestJoined() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

func (r *Room) playerViews() []types.PlayerView {
	views := make([]types.PlayerView, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		views = append(views, types.PlayerView{
			Identity:    p.Identity,
			DisplayName: p.DisplayName,
			CharacterID: p.CharacterID,
			Ready:       p.Ready,
			Host:        p.Host,
			Connected:   p.Connected,
			JoinedAt:    p.JoinedAt.UnixMilli(),
		})
	}
	return views
}

func (r *Room) view() *types.RoomView {
	v := &types.RoomView{
		Code:       r.Code,
		Host:       r.Host,
		MapID:      r.MapID,
		Visibility: string(r.Visibility),
		Status:     string(r.Status),
		Players:    r.playerViews(),
		MaxPlayers: r.MaxPlayers,
		MinPlayers: r.MinPlayers,
		CreatedAt:  r.CreatedAt.UnixMilli(),
	}
	if !r.StartTime.IsZero() {
		v.StartTime = r.StartTime.UnixMilli()
	}
	return v
}

func (r *Room) publicView() types.PublicRoomView {
	return types.PublicRoomView{
		RoomCode:       r.Code,
		CurrentPlayers: r.size(),
		MaxPlayers:     r.MaxPlayers,
		MapID:          r.MapID,
	}
}

// listable reports whether the room belongs in the public listing: public
// visibility, still accepting players.
func (r *Room) listable() bool {
	return r.Visibility == VisibilityPublic && r.Status == StatusWaiting && r.size() < r.MaxPlayers
}

func (r *Room) stopTimers() {
	if r.countdownTimer != nil {
		r.countdownTimer.Stop()
	}
	if r.endTimer != nil {
		r.endTimer.Stop()
	}
	for _, p := range r.players {
		if p.removeTimer != nil {
			p.removeTimer.Stop()
		}
	}
}
