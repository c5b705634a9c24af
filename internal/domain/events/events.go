package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

type Kind string

const (
	GameNew     Kind = "game.new"
	GameUpdated Kind = "game.updated"
	GameRemoved Kind = "game.removed"

	UserRankUp            Kind = "user.rank_up"
	UserCategoryMilestone Kind = "user.category_milestone"
	UserTierMilestone     Kind = "user.tier_milestone"
	UserNewCompletion     Kind = "user.new_completion"

	RollStageReady Kind = "roll.stage_ready"
	RollWon        Kind = "roll.won"
	RollFailed     Kind = "roll.failed"
)

// Event is one notification produced by a reconciliation pass.
type Event interface {
	Kind() Kind
	// Key identifies the change the event reports; two events with the same key are duplicates.
	Key() string
}

// Sink receives the ordered events of a completed pass.
type Sink interface {
	Deliver(ctx context.Context, evs []Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, evs []Event) error

func (f SinkFunc) Deliver(ctx context.Context, evs []Event) error {
	return f(ctx, evs)
}

type GameSummary struct {
	Name            string                        `json:"name"`
	Platform        catalog.Platform              `json:"platform"`
	Category        catalog.Category              `json:"category"`
	TotalPoints     int                           `json:"total_points"`
	Tier            int                           `json:"tier"`
	ObjectiveCounts map[catalog.ObjectiveType]int `json:"objective_counts"`
}

// Summarize builds the creation summary of a game.
func Summarize(g *catalog.Game) *GameSummary {
	return &GameSummary{
		Name:            g.Name,
		Platform:        g.Platform,
		Category:        g.Category,
		TotalPoints:     g.TotalPoints(),
		Tier:            g.Tier(),
		ObjectiveCounts: g.CountObjectives(),
	}
}

type GameEvent struct {
	EventKind Kind         `json:"kind"`
	GameID    string       `json:"game_id"`
	Name      string       `json:"name"`
	Summary   *GameSummary `json:"summary,omitempty"`
	Changes   *GameChanges `json:"changes,omitempty"`
}

func (e *GameEvent) Kind() Kind { return e.EventKind }

func (e *GameEvent) Key() string {
	return string(e.EventKind) + "/" + e.GameID
}

type UserEvent struct {
	EventKind     Kind             `json:"kind"`
	UserID        string           `json:"user_id"`
	DisplayName   string           `json:"display_name"`
	DiscordHandle string           `json:"discord_handle,omitempty"`
	RankBefore    catalog.Rank     `json:"rank_before,omitempty"`
	RankAfter     catalog.Rank     `json:"rank_after,omitempty"`
	Category      catalog.Category `json:"category,omitempty"`
	Tier          int              `json:"tier,omitempty"`
	Threshold     int              `json:"threshold,omitempty"`
	Points        int              `json:"points,omitempty"`
	GameID        string           `json:"game_id,omitempty"`
	GameName      string           `json:"game_name,omitempty"`
}

func (e *UserEvent) Kind() Kind { return e.EventKind }

func (e *UserEvent) Key() string {
	switch e.EventKind {
	case UserRankUp:
		return fmt.Sprintf("%s/%s/%s", e.EventKind, e.UserID, e.RankAfter)
	case UserCategoryMilestone:
		return fmt.Sprintf("%s/%s/%s/%d", e.EventKind, e.UserID, e.Category, e.Threshold)
	case UserTierMilestone:
		return fmt.Sprintf("%s/%s/%d/%d", e.EventKind, e.UserID, e.Tier, e.Threshold)
	default:
		return fmt.Sprintf("%s/%s/%s", e.EventKind, e.UserID, e.GameID)
	}
}

type RollEvent struct {
	EventKind   Kind       `json:"kind"`
	EventName   string     `json:"event_name"`
	UserID      string     `json:"user_id"`
	PartnerID   string     `json:"partner_id,omitempty"`
	Games       []string   `json:"games"`
	Stage       int        `json:"stage,omitempty"`
	InitTime    time.Time  `json:"init_time"`
	DueTime     *time.Time `json:"due_time,omitempty"`
	CooldownEnd *time.Time `json:"cooldown_end,omitempty"`
	Winner      *bool      `json:"winner,omitempty"`
}

func (e *RollEvent) Kind() Kind { return e.EventKind }

func (e *RollEvent) Key() string {
	return fmt.Sprintf("%s/%s/%s/%d/%s", e.EventKind, e.UserID, e.EventName, e.InitTime.Unix(), strings.Join(e.Games, ","))
}
