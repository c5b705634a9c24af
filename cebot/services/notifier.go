package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ce-community/cebot/cebot/config"
	"github.com/ce-community/cebot/internal/domain/events"
	"github.com/ce-community/cebot/internal/domain/rolls"
)

// MessageCreator is the part of the rest client the notifier needs.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

type Channels struct {
	Games snowflake.ID
	Users snowflake.ID
	Rolls snowflake.ID
}

// Notifier posts pass events to the configured channels as embeds.
type Notifier struct {
	rest     MessageCreator
	channels Channels
	printer  *message.Printer
}

var _ events.Sink = (*Notifier)(nil)

func NewNotifier(rest MessageCreator, channels Channels) *Notifier {
	return &Notifier{
		rest:     rest,
		channels: channels,
		printer:  message.NewPrinter(language.English),
	}
}

func (n *Notifier) Deliver(ctx context.Context, evs []events.Event) error {
	order := make([]snowflake.ID, 0, 3)
	grouped := make(map[snowflake.ID][]discord.Embed)
	for _, ev := range evs {
		channel := n.channelFor(ev.Kind())
		if channel == 0 {
			continue
		}
		embed, ok := n.Render(ev)
		if !ok {
			continue
		}
		if _, seen := grouped[channel]; !seen {
			order = append(order, channel)
		}
		grouped[channel] = append(grouped[channel], embed)
	}

	var errs []error
	sent := 0
	for _, channel := range order {
		embeds := grouped[channel]
		for start := 0; start < len(embeds); start += config.MaxEmbedsPerMessage {
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			end := min(start+config.MaxEmbedsPerMessage, len(embeds))
			_, err := n.rest.CreateMessage(channel, discord.MessageCreate{
				Embeds: embeds[start:end],
			}, rest.WithCtx(ctx))
			if err != nil {
				slog.Error("Failed to deliver events",
					slog.String("type", "sys"),
					slog.String("channel_id", channel.String()),
					slog.Int("embeds", end-start),
					slog.Any("error", err))
				errs = append(errs, fmt.Errorf("channel %s: %w", channel, err))
				continue
			}
			sent += end - start
		}
	}

	slog.Info("Events delivered",
		slog.String("type", "sys"),
		slog.Int("events", len(evs)),
		slog.Int("sent", sent))
	return errors.Join(errs...)
}

func (n *Notifier) channelFor(kind events.Kind) snowflake.ID {
	switch {
	case strings.HasPrefix(string(kind), "game."):
		return n.channels.Games
	case strings.HasPrefix(string(kind), "user."):
		return n.channels.Users
	case strings.HasPrefix(string(kind), "roll."):
		return n.channels.Rolls
	}
	return 0
}

// Render builds the embed for one event.
func (n *Notifier) Render(ev events.Event) (discord.Embed, bool) {
	switch e := ev.(type) {
	case *events.GameEvent:
		return n.renderGame(e), true
	case *events.UserEvent:
		return n.renderUser(e), true
	case *events.RollEvent:
		return n.renderRoll(e), true
	}
	return discord.Embed{}, false
}

func (n *Notifier) renderGame(e *events.GameEvent) discord.Embed {
	b := discord.NewEmbedBuilder().SetTimestamp(time.Now())
	switch e.EventKind {
	case events.GameNew:
		b.SetTitle("🆕 " + e.Name).SetColor(config.SuccessColor)
		if s := e.Summary; s != nil {
			b.SetDescription(n.printer.Sprintf("**%s** · %s · T%d · %d points", s.Category, s.Platform, s.Tier, s.TotalPoints))
		}
	case events.GameRemoved:
		b.SetTitle("🗑️ " + e.Name).SetColor(config.RemovedColor).
			SetDescription("This game has been removed from the catalog.")
	default:
		b.SetTitle("📝 " + e.Name).SetColor(config.InfoColor)
		if c := e.Changes; c != nil {
			b.SetDescription(n.describeChanges(c))
		}
	}
	return b.Build()
}

func (n *Notifier) describeChanges(c *events.GameChanges) string {
	var lines []string
	if c.NameChanged() {
		lines = append(lines, fmt.Sprintf("Renamed from **%s**", c.NameBefore))
	}
	if c.PointsChanged() {
		lines = append(lines, n.printer.Sprintf("Points %d ➜ %d (T%d ➜ T%d)", c.PointsBefore, c.PointsAfter, c.TierBefore, c.TierAfter))
	}
	if c.CategoryChanged() {
		lines = append(lines, fmt.Sprintf("Category %s ➜ %s", c.CategoryBefore, c.CategoryAfter))
	}
	for _, o := range c.NewObjectives {
		lines = append(lines, n.printer.Sprintf("➕ %s objective **%s** (%d)", o.Type, o.Name, o.PointValue))
	}
	for _, o := range c.RemovedObjectives {
		lines = append(lines, fmt.Sprintf("➖ %s objective **%s**", o.Type, o.Name))
	}
	for _, o := range c.Objectives {
		switch o.Points {
		case events.PointsRevealed:
			lines = append(lines, n.printer.Sprintf("🔓 **%s** revealed at %d", o.Name, o.NewPoints))
		case events.PointsIncreased:
			lines = append(lines, n.printer.Sprintf("⬆️ **%s** %d ➜ %d", o.Name, o.OldPoints, o.NewPoints))
		case events.PointsDecreased:
			lines = append(lines, n.printer.Sprintf("⬇️ **%s** %d ➜ %d", o.Name, o.OldPoints, o.NewPoints))
		default:
			lines = append(lines, fmt.Sprintf("✏️ **%s** updated", o.Name))
		}
	}
	if len(lines) > config.MaxChangeLines {
		more := len(lines) - config.MaxChangeLines
		lines = append(lines[:config.MaxChangeLines], fmt.Sprintf("…and %d more", more))
	}
	return strings.Join(lines, "\n")
}

func (n *Notifier) renderUser(e *events.UserEvent) discord.Embed {
	name := e.DisplayName
	if name == "" {
		name = e.UserID
	}
	b := discord.NewEmbedBuilder().SetTimestamp(time.Now()).SetColor(config.EmbedDefaultColor)
	switch e.EventKind {
	case events.UserRankUp:
		b.SetTitle("⭐ Rank up").SetColor(config.RankUpColor).
			SetDescription(n.printer.Sprintf("**%s** ranked up from %s to **%s** with %d points!", name, e.RankBefore, e.RankAfter, e.Points))
	case events.UserCategoryMilestone:
		b.SetTitle("🏅 Category milestone").
			SetDescription(n.printer.Sprintf("**%s** passed %d points in **%s**.", name, e.Threshold, e.Category))
	case events.UserTierMilestone:
		b.SetTitle("🎯 Tier milestone").
			SetDescription(n.printer.Sprintf("**%s** passed %d points from T%d games.", name, e.Threshold, e.Tier))
	default:
		b.SetTitle("🏆 New completion").SetColor(config.SuccessColor).
			SetDescription(fmt.Sprintf("**%s** completed **%s** (T%d)!", name, e.GameName, e.Tier))
	}
	return b.Build()
}

func (n *Notifier) renderRoll(e *events.RollEvent) discord.Embed {
	b := discord.NewEmbedBuilder().SetTimestamp(time.Now())
	rule, _ := rolls.Lookup(e.EventName)
	pvp := rule != nil && rule.Kind == rolls.PvP

	who := mention(e.UserID)
	if e.PartnerID != "" && !pvp {
		who = fmt.Sprintf("%s and %s", who, mention(e.PartnerID))
	}
	switch e.EventKind {
	case events.RollStageReady:
		b.SetTitle("➡️ " + e.EventName).SetColor(config.InfoColor).
			SetDescription(fmt.Sprintf("%s cleared stage %d. The next stage is ready.", who, e.Stage))
	case events.RollWon:
		b.SetTitle("✅ " + e.EventName).SetColor(config.SuccessColor).
			SetDescription(fmt.Sprintf("%s won %s!", who, e.EventName))
	case events.RollFailed:
		if pvp {
			b.SetTitle("❌ " + e.EventName).SetColor(config.ErrorColor).
				SetDescription(fmt.Sprintf("%s did not win %s.", who, e.EventName))
			break
		}
		b.SetTitle("❌ " + e.EventName).SetColor(config.ErrorColor).
			SetDescription(fmt.Sprintf("%s failed %s.", who, e.EventName))
	}

	if e.PartnerID != "" && len(e.Games) > 0 {
		if pvp {
			b.AddField("Result", pvpResult(e), false)
		} else {
			b.AddField("Games", coopGames(e, rule != nil && rule.Split), false)
		}
	}
	if e.CooldownEnd != nil {
		b.AddField("Cooldown ends", fmt.Sprintf("<t:%d:R>", e.CooldownEnd.Unix()), true)
	}
	return b.Build()
}

func mention(id string) string {
	return fmt.Sprintf("<@%s>", id)
}

// coopGames lists each participant with their games. Split events hold [own, partner].
func coopGames(e *events.RollEvent, split bool) string {
	if split && len(e.Games) >= 2 {
		return fmt.Sprintf("%s: `%s`\n%s: `%s`", mention(e.UserID), e.Games[0], mention(e.PartnerID), e.Games[1])
	}
	return fmt.Sprintf("%s and %s: `%s`", mention(e.UserID), mention(e.PartnerID), strings.Join(e.Games, "`, `"))
}

// pvpResult compares both sides. Split events give each side its own game.
func pvpResult(e *events.RollEvent) string {
	own, theirs := e.Games[0], e.Games[0]
	if len(e.Games) >= 2 {
		theirs = e.Games[1]
	}
	switch {
	case e.EventKind == events.RollWon:
		return fmt.Sprintf("%s completed `%s`\n%s did not complete `%s`", mention(e.UserID), own, mention(e.PartnerID), theirs)
	case e.Winner != nil && !*e.Winner:
		return fmt.Sprintf("%s did not complete `%s` in time", mention(e.UserID), own)
	default:
		return fmt.Sprintf("%s: `%s`\n%s: `%s`", mention(e.UserID), own, mention(e.PartnerID), theirs)
	}
}
