package cebot

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"

	"github.com/ce-community/cebot/cebot/services"
	"github.com/ce-community/cebot/internal/domain/catalog"
	domainevents "github.com/ce-community/cebot/internal/domain/events"
	"github.com/ce-community/cebot/internal/domain/reconcile"
	"github.com/ce-community/cebot/internal/gateways/catalogapi"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

type Bot struct {
	Cfg     Config
	Client  bot.Client
	Version string
	Commit  string
	Stores  *Stores
	Engine  *reconcile.Engine
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("CEBot is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the catalog"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.String("type", "error"), slog.Any("error", err))
	}
}

// Sink posts events through the bot client when it is set up, and drops them otherwise.
func (b *Bot) Sink() domainevents.Sink {
	if b.Client == nil {
		return domainevents.SinkFunc(func(_ context.Context, evs []domainevents.Event) error {
			slog.Info("No chat client, events discarded",
				slog.String("type", "sys"),
				slog.Int("events", len(evs)))
			return nil
		})
	}
	return services.NewNotifier(b.Client.Rest(), services.Channels{
		Games: b.Cfg.Bot.GameChannel,
		Users: b.Cfg.Bot.UserChannel,
		Rolls: b.Cfg.Bot.RollChannel,
	})
}

// Provider builds the catalog client from configuration.
func (b *Bot) Provider() catalog.Provider {
	return catalogapi.New(catalogapi.Config{
		BaseURL:       b.Cfg.Catalog.BaseURL,
		Timeout:       b.Cfg.Catalog.Timeout.Duration,
		MaxRetries:    b.Cfg.Catalog.MaxRetries,
		RetryInterval: b.Cfg.Catalog.RetryInterval.Duration,
	}, slog.Default())
}

// SetupEngine wires the reconciliation engine over the open stores.
func (b *Bot) SetupEngine(sink domainevents.Sink) {
	b.Engine = reconcile.NewEngine(b.Stores.Snapshots, b.Provider(), sink, reconcile.Options{
		GameWorkers:   b.Cfg.Reconcile.GameWorkers,
		UserWorkers:   b.Cfg.Reconcile.UserWorkers,
		QuietNewUsers: b.Cfg.Reconcile.QuietNewUsers,
		Logger:        slog.Default(),
	})
}
