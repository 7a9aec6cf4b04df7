package game

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns every live session. All state-changing operations on one
// session are serialized through that session's lock (single-writer
// discipline); operations on different sessions run concurrently.
// Persistence and transport are injected collaborators; the manager
// works fully in-memory when neither is configured.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionHandle

	sessionStore SessionStore
	actionStore  ActionStore
	notifier     Notifier
	eventBuf     int
	disp         *dispatcher

	ttl          time.Duration
	cleanupEvery time.Duration
	seedFn       func() int64

	stop     chan struct{}
	stopOnce sync.Once
}

// sessionHandle pairs a session with its writer lock and log.
type sessionHandle struct {
	mu         sync.Mutex
	session    *Session
	log        *Log
	archivedAt time.Time // zero while the session is live
}

// Option configures a Manager.
type Option func(*Manager)

// WithSessionStore injects the session persistence collaborator.
func WithSessionStore(s SessionStore) Option {
	return func(m *Manager) { m.sessionStore = s }
}

// WithActionStore injects the action-log persistence collaborator.
func WithActionStore(s ActionStore) Option {
	return func(m *Manager) { m.actionStore = s }
}

// WithNotifier injects the transport collaborator for outbound events.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithEventBuffer sets the outbound event queue depth.
func WithEventBuffer(n int) Option {
	return func(m *Manager) { m.eventBuf = n }
}

// WithTTL sets how long finished sessions stay readable before the sweep
// drops them.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithCleanupInterval sets how often the archive sweep runs.
func WithCleanupInterval(d time.Duration) Option {
	return func(m *Manager) { m.cleanupEvery = d }
}

// WithSeedSource overrides the seed generator used when session settings
// carry no explicit seed. Tests inject a fixed source.
func WithSeedSource(fn func() int64) Option {
	return func(m *Manager) { m.seedFn = fn }
}

// NewManager creates a Manager and starts its archive sweep.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:     make(map[string]*sessionHandle),
		ttl:          time.Hour,
		cleanupEvery: 5 * time.Minute,
		seedFn:       func() int64 { return time.Now().UnixNano() },
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = LogNotifier{}
	}
	m.disp = newDispatcher(m.notifier, m.eventBuf)
	go m.sweepLoop()
	return m
}

// Close stops the sweep and flushes queued events.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.disp.close()
}

// CreateParams describes a new session.
type CreateParams struct {
	Type       GameType
	Players    []*Player
	Settings   Settings
	Challenges []*Challenge // CHALLENGE_HUNT only
}

// CreateSession registers a new WAITING session and returns its id.
// Initial players are optional; more may join until the session starts.
func (m *Manager) CreateSession(ctx context.Context, p CreateParams) (string, error) {
	if !p.Type.IsValid() {
		return "", fmt.Errorf("%w: game type %q", ErrUnknownActionType, p.Type)
	}
	p.Settings.Normalize()

	s := &Session{
		ID:        uuid.NewString(),
		Type:      p.Type,
		Status:    StatusWaiting,
		Phase:     PhaseSetup,
		Settings:  p.Settings,
		CreatedAt: time.Now().UTC(),
	}
	for _, pl := range p.Players {
		if err := addPlayer(s, pl); err != nil {
			return "", err
		}
	}
	if p.Type == GameChallengeHunt {
		s.State.ChallengeHunt = &ChallengeHuntState{Challenges: p.Challenges}
		for _, c := range p.Challenges {
			if c.Level > s.State.ChallengeHunt.MaxLevel {
				s.State.ChallengeHunt.MaxLevel = c.Level
			}
		}
	}

	h := &sessionHandle{session: s, log: NewLog()}
	m.mu.Lock()
	m.sessions[s.ID] = h
	m.mu.Unlock()

	m.persistSession(ctx, s)
	m.emit(s.ID, EventSessionCreated, map[string]any{"game_type": string(p.Type)})
	return s.ID, nil
}

// JoinSession adds a player to a WAITING session.
func (m *Manager) JoinSession(ctx context.Context, sessionID string, p *Player) error {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session
	if s.Status != StatusWaiting {
		return ErrSessionNotWaiting
	}
	if err := addPlayer(s, p); err != nil {
		return err
	}
	m.persistSession(ctx, s)
	m.emit(s.ID, EventPlayerJoined, map[string]any{"player_id": p.ID, "name": p.Name})
	return nil
}

// LeaveSession removes a player from a WAITING session. After start,
// players are only ever soft-eliminated, never removed.
func (m *Manager) LeaveSession(ctx context.Context, sessionID, playerID string) error {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session
	if s.Status != StatusWaiting {
		return ErrSessionNotWaiting
	}
	for i, p := range s.Players {
		if p.ID == playerID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			m.persistSession(ctx, s)
			m.emit(s.ID, EventPlayerLeft, map[string]any{"player_id": playerID})
			return nil
		}
	}
	return ErrUnknownPlayer
}

// StartSession assigns roles and activates the session. Role assignment
// is deterministic for a given settings seed.
func (m *Manager) StartSession(ctx context.Context, sessionID string) error {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session
	if s.Status != StatusWaiting {
		return ErrSessionNotWaiting
	}

	seed := s.Settings.Seed
	if seed == 0 {
		seed = m.seedFn()
		s.Settings.Seed = seed
	}

	if err := m.initState(s); err != nil {
		return err
	}
	if err := AssignRoles(s, rand.New(rand.NewSource(seed))); err != nil {
		return err
	}

	s.Status = StatusActive
	s.Phase = StartingPhase(s.Type)
	s.Round = 1

	m.persistSession(ctx, s)
	m.emit(s.ID, EventSessionStarted, map[string]any{"phase": string(s.Phase)})
	return nil
}

func (m *Manager) initState(s *Session) error {
	switch s.Type {
	case GameSocialDeduction:
		s.State.SocialDeduction = &SocialDeductionState{
			Votes:          make(map[string]string),
			NightActions:   make(map[string]NightAction),
			Investigations: make(map[string][]InvestigationResult),
		}
	case GameTaskImpostor:
		impostors := len(s.Players) / 5
		if impostors < 1 {
			impostors = 1
		}
		s.State.TaskImpostor = &TaskImpostorState{
			Votes:     make(map[string]string),
			TasksDone: make(map[string]int),
			// Only crew tasks are real; impostor submissions are faked,
			// so the winning total counts crew members only.
			TasksTotal: s.Settings.TaskQuota * (len(s.Players) - impostors),
		}
	case GameChallengeHunt:
		hunt := s.State.ChallengeHunt
		if hunt == nil || len(hunt.Challenges) == 0 {
			return fmt.Errorf("%w: hunt has no challenges configured", ErrChallengeNotFound)
		}
	}
	return nil
}

// ApplyAction runs one action through the processor under the session
// lock, persists the result, evaluates the win condition, and emits
// events for every accepted state change.
func (m *Manager) ApplyAction(ctx context.Context, sessionID, actorID string, t ActionType, p Payload) (*ActionResult, error) {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session
	a := Action{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Type:      t,
		Payload:   p,
		Timestamp: time.Now().UTC(),
	}

	res, err := Apply(s, h.log, a)
	if err != nil {
		return nil, err
	}

	m.persistAction(ctx, s.ID, res.Action)
	m.emit(s.ID, EventActionAccepted, map[string]any{
		"actor_id":    actorID,
		"action_type": string(t),
		"round":       res.Action.Round,
	})
	if res.Resolved {
		m.emit(s.ID, EventPhaseAdvanced, map[string]any{"phase": string(s.Phase), "round": s.Round})
	}
	if res.Eliminated != "" {
		m.emit(s.ID, EventPlayerEliminated, map[string]any{"player_id": res.Eliminated})
	}

	m.settleWin(ctx, h, res)
	m.persistSession(ctx, s)
	return res, nil
}

// AdvancePhase is the external timeout signal: it force-resolves the
// current phase with whatever partial action set exists.
func (m *Manager) AdvancePhase(ctx context.Context, sessionID string) (*StepResult, error) {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session
	if s.Status == StatusFinished {
		return nil, ErrSessionClosed
	}
	if s.Status != StatusActive {
		return nil, ErrGameNotActive
	}

	step := ForceAdvance(s)
	m.emit(s.ID, EventPhaseAdvanced, map[string]any{"phase": string(s.Phase), "round": s.Round, "forced": true})
	if step.Eliminated != "" {
		m.emit(s.ID, EventPlayerEliminated, map[string]any{"player_id": step.Eliminated})
	}

	res := &ActionResult{Phase: s.Phase, Round: s.Round, Resolved: step.Advanced, Eliminated: step.Eliminated}
	m.settleWin(ctx, h, res)
	m.persistSession(ctx, s)
	step.To = s.Phase
	return &step, nil
}

// settleWin consults the evaluator after every state change and marks the
// session FINISHED on a terminal result. The evaluator itself never
// mutates anything; this is the only place that flips the status.
func (m *Manager) settleWin(ctx context.Context, h *sessionHandle, res *ActionResult) {
	s := h.session
	win := EvaluateWin(s)
	if s.Phase == PhaseFinished && !win.GameOver {
		// Forced hunt end without a finisher: closed, no winner.
		win = WinResult{GameOver: true, Reason: "time expired"}
	}
	if !win.GameOver {
		return
	}

	s.Status = StatusFinished
	s.Phase = PhaseFinished
	h.archivedAt = time.Now()
	res.GameOver = true
	res.Winner = win.Winner
	res.Reason = win.Reason

	m.emit(s.ID, EventSessionFinished, map[string]any{"winner": win.Winner, "reason": win.Reason})
	m.archiveSession(ctx, s.ID)
}

// CancelSession aborts a WAITING or ACTIVE session.
func (m *Manager) CancelSession(ctx context.Context, sessionID string) error {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.session
	if s.Status == StatusFinished || s.Status == StatusCancelled {
		return ErrSessionClosed
	}
	s.Status = StatusCancelled
	s.Phase = PhaseFinished
	h.archivedAt = time.Now()

	m.emit(s.ID, EventSessionCancelled, nil)
	m.archiveSession(ctx, s.ID)
	return nil
}

// GetSession returns a deep copy of the session for lock-free reads.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Clone(), nil
}

// SnapshotLog returns an immutable copy of the session's action log.
// Detection reads go through here and never hold the session lock while
// analyzing.
func (m *Manager) SnapshotLog(ctx context.Context, sessionID string) ([]Action, error) {
	h, err := m.handle(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return h.log.Snapshot(), nil
}

// DroppedEvents reports events discarded due to transport backpressure.
func (m *Manager) DroppedEvents() int64 {
	return m.disp.Dropped()
}

// handle finds the live session, falling back to the store for sessions
// not in memory (e.g. after a restart).
func (m *Manager) handle(ctx context.Context, sessionID string) (*sessionHandle, error) {
	m.mu.RLock()
	h, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	if m.sessionStore == nil {
		return nil, ErrNotFound
	}
	s, err := m.sessionStore.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	l := NewLog()
	if m.actionStore != nil {
		actions, err := m.actionStore.ListActions(ctx, sessionID)
		if err != nil {
			log.Printf("[WARN] restore action log session_id=%s: %v", sessionID, err)
		} else {
			l = Restore(actions)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sessionID]; ok {
		return existing, nil
	}
	h = &sessionHandle{session: s, log: l}
	m.sessions[sessionID] = h
	return h, nil
}

func addPlayer(s *Session, p *Player) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("%w: player name required", ErrUnknownPlayer)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if s.PlayerByID(p.ID) != nil {
		return ErrDuplicatePlayer
	}
	p.Status = PlayerAlive
	p.Role = RoleNone
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	s.Players = append(s.Players, p)
	return nil
}

// Persistence failures are logged, not surfaced: the in-memory session
// stays authoritative and the caller's action already succeeded.
func (m *Manager) persistSession(ctx context.Context, s *Session) {
	if m.sessionStore == nil {
		return
	}
	if err := m.sessionStore.SaveSession(ctx, s); err != nil {
		log.Printf("[WARN] save session session_id=%s: %v", s.ID, err)
	}
}

func (m *Manager) persistAction(ctx context.Context, sessionID string, a Action) {
	if m.actionStore == nil {
		return
	}
	if err := m.actionStore.AppendAction(ctx, sessionID, a); err != nil {
		log.Printf("[WARN] append action session_id=%s: %v", sessionID, err)
	}
}

func (m *Manager) archiveSession(ctx context.Context, sessionID string) {
	if m.sessionStore == nil {
		return
	}
	if err := m.sessionStore.ArchiveSession(ctx, sessionID); err != nil {
		log.Printf("[WARN] archive session session_id=%s: %v", sessionID, err)
	}
}

func (m *Manager) emit(sessionID string, t EventType, payload map[string]any) {
	m.disp.publish(Event{
		SessionID: sessionID,
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// sweepLoop drops terminated sessions from memory once their TTL lapses.
func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, h := range m.sessions {
		if !h.archivedAt.IsZero() && now.Sub(h.archivedAt) > m.ttl {
			delete(m.sessions, id)
		}
	}
}
