// Package api exposes the engine and the detection system over HTTP. It
// is a thin boundary: request decoding, error-to-status mapping, and role
// redaction live here; all rules live in pkg/game and pkg/anticheat.
package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/tryfairplay/arbiter/pkg/anticheat"
	"github.com/tryfairplay/arbiter/pkg/game"
)

// Version is stamped at build time.
var Version = "dev"

// Server wires the HTTP routes to the manager and analyzer.
type Server struct {
	app      *fiber.App
	manager  *game.Manager
	analyzer *anticheat.Analyzer
}

// NewServer builds the fiber app with all routes registered.
func NewServer(manager *game.Manager, analyzer *anticheat.Analyzer) *Server {
	s := &Server{
		app:      fiber.New(fiber.Config{AppName: "Arbiter"}),
		manager:  manager,
		analyzer: analyzer,
	}
	s.routes()
	return s
}

// App exposes the underlying fiber app for Listen and tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) routes() {
	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	v1 := s.app.Group("/v1")
	v1.Post("/sessions", s.createSession)
	v1.Get("/sessions/:id", s.getSession)
	v1.Post("/sessions/:id/join", s.joinSession)
	v1.Post("/sessions/:id/leave", s.leaveSession)
	v1.Post("/sessions/:id/start", s.startSession)
	v1.Post("/sessions/:id/actions", s.applyAction)
	v1.Post("/sessions/:id/advance", s.advancePhase)
	v1.Post("/sessions/:id/cancel", s.cancelSession)
	v1.Get("/sessions/:id/players/:pid/analysis", s.analyzePlayer)
}

type createSessionRequest struct {
	GameType   game.GameType     `json:"game_type"`
	Players    []*game.Player    `json:"players"`
	Settings   game.Settings     `json:"settings"`
	Challenges []*game.Challenge `json:"challenges,omitempty"`
}

func (s *Server) createSession(c fiber.Ctx) error {
	var req createSessionRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	id, err := s.manager.CreateSession(c.Context(), game.CreateParams{
		Type:       req.GameType,
		Players:    req.Players,
		Settings:   req.Settings,
		Challenges: req.Challenges,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session_id": id})
}

func (s *Server) getSession(c fiber.Ctx) error {
	sess, err := s.manager.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	redactRoles(sess, c.Query("player_id"))
	return c.JSON(sess)
}

func (s *Server) joinSession(c fiber.Ctx) error {
	var p game.Player
	if err := c.Bind().Body(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := s.manager.JoinSession(c.Context(), c.Params("id"), &p); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"player_id": p.ID})
}

func (s *Server) leaveSession(c fiber.Ctx) error {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if err := s.manager.LeaveSession(c.Context(), c.Params("id"), req.PlayerID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "left"})
}

func (s *Server) startSession(c fiber.Ctx) error {
	if err := s.manager.StartSession(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "started"})
}

type actionRequest struct {
	ActorID string          `json:"actor_id"`
	Type    game.ActionType `json:"action_type"`
	Payload game.Payload    `json:"payload"`
}

func (s *Server) applyAction(c fiber.Ctx) error {
	var req actionRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.ActorID == "" || req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "actor_id and action_type are required"})
	}
	res, err := s.manager.ApplyAction(c.Context(), c.Params("id"), req.ActorID, req.Type, req.Payload)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) advancePhase(c fiber.Ctx) error {
	step, err := s.manager.AdvancePhase(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(step)
}

func (s *Server) cancelSession(c fiber.Ctx) error {
	if err := s.manager.CancelSession(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

func (s *Server) analyzePlayer(c fiber.Ctx) error {
	res, err := s.analyzer.AnalyzePlayer(c.Context(), c.Params("id"), c.Params("pid"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

// redactRoles blanks roles the viewer has no right to see. Roles are
// visible to their holder and to everyone once the session ends.
func redactRoles(s *game.Session, viewerID string) {
	if s.Status == game.StatusFinished || s.Status == game.StatusCancelled {
		return
	}
	for _, p := range s.Players {
		if p.ID != viewerID {
			p.Role = game.RoleNone
		}
	}
}

// fail maps engine errors onto HTTP statuses.
func fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotFound), errors.Is(err, game.ErrUnknownPlayer):
		status = fiber.StatusNotFound
	case errors.Is(err, game.ErrSessionClosed),
		errors.Is(err, game.ErrSessionNotWaiting),
		errors.Is(err, game.ErrDuplicatePlayer),
		errors.Is(err, game.ErrGameNotActive):
		status = fiber.StatusConflict
	case errors.Is(err, game.ErrInsufficientPlayers),
		errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrRoleMismatch),
		errors.Is(err, game.ErrEliminatedPlayer),
		errors.Is(err, game.ErrInvalidTarget),
		errors.Is(err, game.ErrUnknownActionType),
		errors.Is(err, game.ErrChallengeNotFound),
		errors.Is(err, game.ErrHintLimitReached):
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
