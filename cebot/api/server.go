package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/cebot/database/models"
	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/reconcile"
	"github.com/ce-community/cebot/internal/domain/rolls"
)

type ReportSource interface {
	LastReport() *reconcile.Report
}

type PassHistory interface {
	Recent(ctx context.Context, limit int) ([]models.PassRecord, error)
}

// Server exposes read-only status of the reconciliation engine.
type Server struct {
	Store   catalog.Store
	Reports ReportSource
	// History is optional; /api/passes answers 404 without it.
	History PassHistory
	// Ping reports store health on /healthz when set.
	Ping    func(ctx context.Context) error
	Version string
	Now     func() time.Time
}

func (s *Server) App() *fiber.App {
	if s.Now == nil {
		s.Now = time.Now
	}
	app := fiber.New(fiber.Config{
		AppName:               "CEBot Status API",
		ServerHeader:          "CEBot",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(loggingMiddleware())

	app.Get("/healthz", s.health)

	api := app.Group("/api")
	api.Get("/passes/last", s.lastPass)
	api.Get("/passes", s.passes)
	api.Get("/users/:id", s.user)
	api.Get("/games/:id", s.game)
	return app
}

func (s *Server) health(c *fiber.Ctx) error {
	if s.Ping != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), config.DefaultQueryTimeout)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			return sendError(c, fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE", err.Error())
		}
	}
	return sendSuccess(c, fiber.Map{
		"status":  "ok",
		"version": s.Version,
	})
}

func (s *Server) lastPass(c *fiber.Ctx) error {
	report := s.Reports.LastReport()
	if report == nil {
		return sendNotFound(c, "no pass has completed yet")
	}
	return sendSuccess(c, report)
}

func (s *Server) passes(c *fiber.Ctx) error {
	if s.History == nil {
		return sendNotFound(c, "pass history is not recorded")
	}
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		return sendError(c, fiber.StatusBadRequest, "BAD_REQUEST", "limit must be between 1 and 100")
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), config.DefaultQueryTimeout)
	defer cancel()
	records, err := s.History.Recent(ctx, limit)
	if err != nil {
		return err
	}
	return sendSuccess(c, records)
}

type userView struct {
	ID            string          `json:"id"`
	DisplayName   string          `json:"display_name"`
	DiscordHandle string          `json:"discord_handle,omitempty"`
	Rank          catalog.Rank    `json:"rank"`
	Points        int             `json:"points"`
	OwnedGames    int             `json:"owned_games"`
	Rolls         []rolls.Summary `json:"rolls"`
	LastUpdated   time.Time       `json:"last_updated"`
}

func (s *Server) user(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), config.DefaultQueryTimeout)
	defer cancel()

	u, err := s.Store.GetUser(ctx, c.Params("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return sendNotFound(c, "user not found")
	}
	if err != nil {
		return err
	}

	games := make(catalog.Games)
	for _, r := range u.Rolls {
		if len(r.Games) == 0 || games[r.Games[0]] != nil {
			continue
		}
		if g, err := s.Store.GetGame(ctx, r.Games[0]); err == nil {
			games[g.ID] = g
		}
	}

	return sendSuccess(c, userView{
		ID:            u.ID,
		DisplayName:   u.DisplayName,
		DiscordHandle: u.DiscordHandle,
		Rank:          u.Rank,
		Points:        u.TotalPoints(),
		OwnedGames:    len(u.OwnedGames),
		Rolls:         rolls.Summarize(u, games, s.Now()),
		LastUpdated:   u.LastUpdated,
	})
}

type gameView struct {
	*catalog.Game
	Tier          int `json:"tier"`
	TotalPoints   int `json:"total_points"`
	PrimaryPoints int `json:"primary_points"`
}

func (s *Server) game(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), config.DefaultQueryTimeout)
	defer cancel()

	g, err := s.Store.GetGame(ctx, c.Params("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return sendNotFound(c, "game not found")
	}
	if err != nil {
		return err
	}
	return sendSuccess(c, gameView{
		Game:          g,
		Tier:          g.Tier(),
		TotalPoints:   g.TotalPoints(),
		PrimaryPoints: g.PrimaryPoints(),
	})
}
