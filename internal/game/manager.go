package game

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chaseparty/chase-backend/internal/types"
)

// Broadcaster is the Manager's one-way view of the transport. The Manager
// never reads from connections; it only fans state out after mutations.
type Broadcaster interface {
	ToRoom(code string, msg types.ServerMessage)
	ToRoomExcept(code, connID string, msg types.ServerMessage)
	ToAll(msg types.ServerMessage)
	Unsubscribe(connID, code string)
	DropRoom(code string)
}

// Config holds the session-layer tunables. Capacity bounds are deployment
// configuration, not protocol constants.
type Config struct {
	MinPlayers     int
	MaxPlayers     int
	Countdown      time.Duration
	GameDuration   time.Duration
	WaitingRemoval time.Duration // disconnect -> removal while waiting
	PlayingGrace   time.Duration // disconnect -> removal while playing
}

func (c Config) validate() error {
	if c.MinPlayers < 2 || c.MaxPlayers < c.MinPlayers {
		return ErrCapacityConfig
	}
	if c.Countdown <= 0 || c.GameDuration <= 0 {
		return ErrCapacityConfig
	}
	return nil
}

type binding struct {
	roomCode string
	identity string
}

// Manager owns every room and player and is the single writer of session
// state. All mutation happens under one mutex; timer callbacks re-acquire it
// and re-check state before acting, so a reconnect processed before a pending
// removal fires always wins.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	log      *zap.Logger
	bc       Broadcaster
	rooms    map[string]*Room
	bindings map[string]binding // connID -> player
}

func NewManager(cfg Config, bc Broadcaster, log *zap.Logger) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:      cfg,
		log:      log,
		bc:       bc,
		rooms:    make(map[string]*Room),
		bindings: make(map[string]binding),
	}, nil
}

type CreateParams struct {
	ConnID      string
	Identity    string
	MapID       string
	CharacterID string
	DisplayName string
	Visibility  Visibility
}

// CreateRoom inserts a new room with the creator as its sole, auto-ready
// host and returns the room snapshot.
func (m *Manager) CreateRoom(p CreateParams) (*types.RoomView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := m.uniqueCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	room := &Room{
		Code:       code,
		Host:       p.Identity,
		MapID:      p.MapID,
		Visibility: p.Visibility,
		Status:     StatusWaiting,
		MaxPlayers: m.cfg.MaxPlayers,
		MinPlayers: m.cfg.MinPlayers,
		CreatedAt:  now,
		players:    make(map[string]*Player),
	}
	room.addPlayer(&Player{
		Identity:    p.Identity,
		DisplayName: p.DisplayName,
		CharacterID: p.CharacterID,
		Ready:       true, // host is auto-ready
		Host:        true,
		Connected:   true,
		JoinedAt:    now,
		connID:      p.ConnID,
	})
	m.rooms[code] = room
	m.bindings[p.ConnID] = binding{roomCode: code, identity: p.Identity}

	m.log.Info("room created",
		zap.String("code", code),
		zap.String("host", p.Identity),
		zap.String("map", p.MapID),
		zap.String("visibility", string(p.Visibility)))

	if room.Visibility == VisibilityPublic {
		m.broadcastPublicRoomsLocked()
	}
	return room.view(), nil
}

func (m *Manager) uniqueCode() (string, error) {
	for {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if _, taken := m.rooms[code]; !taken {
			return code, nil
		}
		m.log.Debug("room code collision, regenerating", zap.String("code", code))
	}
}

type JoinParams struct {
	ConnID      string
	RoomCode    string
	Identity    string
	CharacterID string
	DisplayName string
}

// JoinRoom adds a player to a waiting room, or — when the identity is already
// on the roster — rebinds the connection and cancels any pending removal.
// The reconnect path is idempotent and works in any non-finished status.
// The second return reports whether this was a reconnect.
func (m *Manager) JoinRoom(p JoinParams) (*types.RoomView, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[p.RoomCode]
	if !ok {
		return nil, false, ErrRoomNotFound
	}

	if existing := room.player(p.Identity); existing != nil {
		// Reconnect: the arrival beats any removal timer that has not yet
		// run. Roster order and character selection stay untouched.
		if existing.removeTimer != nil {
			existing.removeTimer.Stop()
			existing.removeTimer = nil
		}
		if existing.connID != "" && existing.connID != p.ConnID {
			// The superseded socket may still be open (second tab); make
			// sure it stops receiving room traffic.
			m.bc.Unsubscribe(existing.connID, room.Code)
		}
		delete(m.bindings, existing.connID)
		existing.connID = p.ConnID
		existing.Connected = true
		m.bindings[p.ConnID] = binding{roomCode: room.Code, identity: p.Identity}

		m.log.Info("player reconnected",
			zap.String("code", room.Code),
			zap.String("identity", p.Identity),
			zap.String("status", string(room.Status)))

		m.bc.ToRoomExcept(room.Code, p.ConnID, types.ServerMessage{
			Type:           types.EvtPlayerJoined,
			RoomCode:       room.Code,
			Players:        room.playerViews(),
			CurrentPlayers: room.size(),
		})
		return room.view(), true, nil
	}

	if room.Status != StatusWaiting {
		return nil, false, ErrRoomNotJoinable
	}
	if room.size() >= room.MaxPlayers {
		return nil, false, ErrRoomFull
	}

	room.addPlayer(&Player{
		Identity:    p.Identity,
		DisplayName: p.DisplayName,
		CharacterID: p.CharacterID,
		Connected:   true,
		JoinedAt:    time.Now(),
		connID:      p.ConnID,
	})
	m.bindings[p.ConnID] = binding{roomCode: room.Code, identity: p.Identity}

	m.log.Info("player joined",
		zap.String("code", room.Code),
		zap.String("identity", p.Identity),
		zap.Int("players", room.size()))

	m.bc.ToRoomExcept(room.Code, p.ConnID, types.ServerMessage{
		Type:           types.EvtPlayerJoined,
		RoomCode:       room.Code,
		Players:        room.playerViews(),
		CurrentPlayers: room.size(),
	})
	if room.Visibility == VisibilityPublic {
		// The room may just have filled up and left the listing.
		m.broadcastPublicRoomsLocked()
	}
	return room.view(), false, nil
}

// MarkReady flags a player ready and evaluates the auto-start gate. Safe to
// call twice; only the first transition broadcasts.
func (m *Manager) MarkReady(code, identity string) (*types.RoomView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	player := room.player(identity)
	if player == nil {
		return nil, ErrPlayerNotInRoom
	}
	if !player.Ready {
		player.Ready = true
		m.bc.ToRoom(room.Code, types.ServerMessage{
			Type:     types.EvtPlayerReadyUpdate,
			RoomCode: room.Code,
			Players:  room.playerViews(),
		})
	}
	if room.canAutoStart() {
		m.startCountdownLocked(room)
	}
	return room.view(), nil
}

// StartGame is the host-only manual start. It applies the same readiness
// gate the auto-start path does.
func (m *Manager) StartGame(code, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	player := room.player(identity)
	if player == nil {
		return ErrPlayerNotInRoom
	}
	if !player.Host {
		return ErrNotHost
	}
	if room.Status != StatusWaiting {
		// Already counting down or further along; double-start is
		// structurally impossible.
		return nil
	}
	if room.size() < room.MinPlayers {
		return ErrInsufficientPlayers
	}
	if !room.allReady() {
		return ErrNotAllReady
	}
	m.startCountdownLocked(room)
	return nil
}

// startCountdownLocked moves the room to countdown and schedules the start
// commit. Idempotent: a room already counting down keeps its single timer.
func (m *Manager) startCountdownLocked(room *Room) {
	if room.Status != StatusWaiting {
		return
	}
	room.Status = StatusCountdown
	code := room.Code

	m.log.Info("countdown started",
		zap.String("code", code),
		zap.Duration("countdown", m.cfg.Countdown))

	m.bc.ToRoom(code, types.ServerMessage{
		Type:      types.EvtGameStarting,
		RoomCode:  code,
		Countdown: int(m.cfg.Countdown / time.Second),
	})
	if room.Visibility == VisibilityPublic {
		m.broadcastPublicRoomsLocked()
	}
	room.countdownTimer = time.AfterFunc(m.cfg.Countdown, func() {
		m.commitStart(code)
	})
}

// commitStart stamps the authoritative start time, freezes the match roster
// and schedules the match end. Every client derives elapsed time from the
// serverTime in this broadcast, not its own clock.
func (m *Manager) commitStart(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[code]
	if !ok || room.Status != StatusCountdown {
		return
	}
	room.Status = StatusPlaying
	room.StartTime = time.Now()

	room.Roster = make([]types.RosterEntry, 0, room.size())
	for _, id := range room.order {
		p := room.players[id]
		room.Roster = append(room.Roster, types.RosterEntry{
			Identity:    p.Identity,
			DisplayName: p.DisplayName,
			CharacterID: p.CharacterID,
			SpawnSeed:   rand.Int63(),
		})
	}

	m.log.Info("game started",
		zap.String("code", code),
		zap.Int("players", room.size()),
		zap.Time("startTime", room.StartTime))

	m.bc.ToRoom(code, types.ServerMessage{
		Type:         types.EvtGameStarted,
		RoomCode:     code,
		ServerTime:   room.StartTime.UnixMilli(),
		Roster:       room.Roster,
		GameDuration: m.cfg.GameDuration.Milliseconds(),
	})

	// Match end is a server-side timer off startTime; it never depends on
	// any particular client still being alive.
	room.endTimer = time.AfterFunc(m.cfg.GameDuration, func() {
		m.finishGame(code)
	})
}

// finishGame broadcasts the authoritative end of the match and reclaims the
// room.
func (m *Manager) finishGame(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[code]
	if !ok || room.Status != StatusPlaying {
		return
	}
	room.Status = StatusFinished

	m.log.Info("game ended", zap.String("code", code))

	m.bc.ToRoom(code, types.ServerMessage{
		Type:       types.EvtGameEnded,
		RoomCode:   code,
		ServerTime: time.Now().UnixMilli(),
	})
	m.deleteRoomLocked(room)
}

// LeaveRoom removes a player immediately, with no grace period.
func (m *Manager) LeaveRoom(code, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	player := room.player(identity)
	if player == nil {
		return ErrPlayerNotInRoom
	}
	m.removePlayerLocked(room, player)
	return nil
}

// HandleDisconnect marks the bound player disconnected and arms the phase-
// appropriate removal timer. Unknown connections are ignored; not every
// socket ever joined a room.
func (m *Manager) HandleDisconnect(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bindings[connID]
	if !ok {
		return
	}
	delete(m.bindings, connID)

	room, ok := m.rooms[b.roomCode]
	if !ok {
		return
	}
	player := room.player(b.identity)
	if player == nil || player.connID != connID {
		// The identity already rebound to a newer connection.
		return
	}
	player.Connected = false

	grace := m.cfg.WaitingRemoval
	if room.Status == StatusPlaying {
		grace = m.cfg.PlayingGrace
		m.bc.ToRoom(room.Code, types.ServerMessage{
			Type:     types.EvtPlayerDisconnected,
			RoomCode: room.Code,
			Identity: player.Identity,
		})
	}

	m.log.Info("player disconnected",
		zap.String("code", room.Code),
		zap.String("identity", player.Identity),
		zap.Duration("grace", grace))

	code, identity := room.Code, player.Identity
	player.removeTimer = time.AfterFunc(grace, func() {
		m.expireDisconnected(code, identity)
	})
}

// expireDisconnected runs when a grace timer fires. A reconnect processed
// first already flipped Connected back on, which makes this a no-op.
func (m *Manager) expireDisconnected(code, identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return
	}
	player := room.player(identity)
	if player == nil || player.Connected {
		return
	}
	m.log.Info("grace period expired",
		zap.String("code", code),
		zap.String("identity", identity))
	m.removePlayerLocked(room, player)
}

// removePlayerLocked deletes the roster entry, promotes a new host if
// needed, and reclaims the room when it empties.
func (m *Manager) removePlayerLocked(room *Room, player *Player) {
	if player.removeTimer != nil {
		player.removeTimer.Stop()
		player.removeTimer = nil
	}
	delete(m.bindings, player.connID)
	room.removePlayer(player.Identity)

	m.log.Info("player removed",
		zap.String("code", room.Code),
		zap.String("identity", player.Identity),
		zap.Int("remaining", room.size()))

	if room.size() == 0 {
		m.deleteRoomLocked(room)
		if room.Visibility == VisibilityPublic {
			m.broadcastPublicRoomsLocked()
		}
		return
	}

	if player.Host {
		// Host migration policy: promote the earliest-joined remaining
		// player. Their ready state carries over unchanged.
		next := room.player(room.earliestJoined())
		next.Host = true
		room.Host = next.Identity
		m.log.Info("host promoted",
			zap.String("code", room.Code),
			zap.String("identity", next.Identity))
	}

	m.bc.ToRoom(room.Code, types.ServerMessage{
		Type:           types.EvtPlayerLeft,
		RoomCode:       room.Code,
		Identity:       player.Identity,
		Players:        room.playerViews(),
		CurrentPlayers: room.size(),
	})
	if room.Visibility == VisibilityPublic {
		// A slot may just have opened up.
		m.broadcastPublicRoomsLocked()
	}
}

func (m *Manager) deleteRoomLocked(room *Room) {
	room.stopTimers()
	for _, id := range room.order {
		delete(m.bindings, room.players[id].connID)
	}
	delete(m.rooms, room.Code)
	m.bc.DropRoom(room.Code)
	m.log.Info("room deleted", zap.String("code", room.Code))
}

// PublicRooms recomputes the discoverable-room listing from the authoritative
// room map. The listing is derived state, never stored.
func (m *Manager) PublicRooms() []types.PublicRoomView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publicRoomsLocked()
}

func (m *Manager) publicRoomsLocked() []types.PublicRoomView {
	listed := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		if room.listable() {
			listed = append(listed, room)
		}
	}
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].CreatedAt.Before(listed[j].CreatedAt)
	})
	views := make([]types.PublicRoomView, 0, len(listed))
	for _, room := range listed {
		views = append(views, room.publicView())
	}
	return views
}

func (m *Manager) broadcastPublicRoomsLocked() {
	m.bc.ToAll(types.ServerMessage{
		Type:  types.EvtPublicRoomsList,
		Rooms: m.publicRoomsLocked(),
	})
}

// InRoom reports whether identity is currently on the given room's roster.
// The transport uses it to gate position relays.
// IdentityFor resolves the player identity bound to a connection. Operations
// whose payload carries no identity field authenticate the sender this way.
func (m *Manager) IdentityFor(connID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[connID]
	return b.identity, ok
}

func (m *Manager) InRoom(code, identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	return ok && room.player(identity) != nil
}

// RoomView returns a snapshot of one room, or nil.
func (m *Manager) RoomView(code string) *types.RoomView {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[code]
	if !ok {
		return nil
	}
	return room.view()
}

// Close stops every outstanding timer. For shutdown and tests.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		room.stopTimers()
	}
}
