package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
	"github.com/ce-community/cebot/internal/domain/rolls"
)

var errDuplicate = errors.New("duplicate record")

type Options struct {
	GameWorkers int
	// UserWorkers above 1 processes users concurrently under per-user locks.
	UserWorkers   int
	QuietNewUsers bool
	Now           func() time.Time
	Logger        *slog.Logger
}

func (o *Options) setDefaults() {
	if o.GameWorkers <= 0 {
		o.GameWorkers = 8
	}
	if o.UserWorkers <= 0 {
		o.UserWorkers = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Report summarizes one reconciliation pass.
type Report struct {
	ID             string              `json:"id"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
	GamesNew       int                 `json:"games_new"`
	GamesUpdated   int                 `json:"games_updated"`
	GamesRemoved   int                 `json:"games_removed"`
	GamesUnchanged int                 `json:"games_unchanged"`
	GhostUpdates   int                 `json:"ghost_updates"`
	UsersProcessed int                 `json:"users_processed"`
	Events         map[events.Kind]int `json:"events"`
	Errors         []error             `json:"-"`

	mu sync.Mutex
}

func (r *Report) addError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err)
}

func (r *Report) countGame(o Outcome) {
	switch o {
	case New:
		r.GamesNew++
	case Updated:
		r.GamesUpdated++
	case Ghost:
		r.GhostUpdates++
	case Removed:
		r.GamesRemoved++
	default:
		r.GamesUnchanged++
	}
}

func (r *Report) userDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UsersProcessed++
}

// TotalEvents is the number of events handed to the sink.
func (r *Report) TotalEvents() int {
	n := 0
	for _, c := range r.Events {
		n += c
	}
	return n
}

func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return json.Marshal(struct {
		*plain
		Errors []string `json:"errors"`
	}{(*plain)(r), msgs})
}

// Engine runs reconciliation passes against a snapshot store.
type Engine struct {
	store    catalog.Store
	provider catalog.Provider
	sink     events.Sink
	resolver *rolls.Resolver
	locks    *keyedLocker
	opts     Options
	logger   *slog.Logger

	passMu sync.Mutex
	lastMu sync.RWMutex
	last   *Report
}

func NewEngine(store catalog.Store, provider catalog.Provider, sink events.Sink, opts Options) *Engine {
	opts.setDefaults()
	return &Engine{
		store:    store,
		provider: provider,
		sink:     sink,
		resolver: rolls.NewResolver(opts.Now, opts.Logger),
		locks:    newKeyedLocker(),
		opts:     opts,
		logger:   opts.Logger,
	}
}

// LastReport returns the report of the most recent completed pass, or nil.
func (e *Engine) LastReport() *Report {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last
}

// RunPass fetches fresh catalog state, reconciles games then users, and delivers the collected
// events once the whole pass completed. A fetch failure aborts before any snapshot is written.
func (e *Engine) RunPass(ctx context.Context) (*Report, error) {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: e.opts.Now(),
	}
	e.logger.Info("Reconciliation pass started", slog.String("type", "pass"), slog.String("pass", report.ID))

	gameBatch, err := e.provider.FetchGames(ctx)
	if err != nil {
		return nil, e.abort(report, fmt.Errorf("fetch games: %w", err))
	}
	userBatch, err := e.provider.FetchUsers(ctx)
	if err != nil {
		return nil, e.abort(report, fmt.Errorf("fetch users: %w", err))
	}

	stored, err := e.store.ListGames(ctx)
	if err != nil {
		return nil, e.abort(report, fmt.Errorf("load game snapshots: %w", err))
	}
	pre := make(catalog.Games, len(stored))
	for _, g := range stored {
		pre[g.ID] = g
	}

	out := events.NewBatch()
	post, err := e.reconcileGames(ctx, gameBatch, pre, report, out)
	if err != nil {
		return nil, e.abort(report, err)
	}
	if err := e.reconcileUsers(ctx, userBatch, pre, post, report, out); err != nil {
		return nil, e.abort(report, err)
	}

	delivered := out.Events()
	report.Events = events.CountByKind(delivered)
	if len(delivered) > 0 && e.sink != nil {
		if err := e.sink.Deliver(ctx, delivered); err != nil {
			report.addError(fmt.Errorf("deliver events: %w", err))
		}
	}
	report.FinishedAt = e.opts.Now()

	for _, perr := range report.Errors {
		e.logger.Warn("Pass error",
			slog.String("type", "pass"),
			slog.String("pass", report.ID),
			slog.Any("error", perr))
	}
	e.logger.Info("Reconciliation pass finished",
		slog.String("type", "pass"),
		slog.String("pass", report.ID),
		slog.Int("users", report.UsersProcessed),
		slog.Int("events", len(delivered)),
		slog.Int("errors", len(report.Errors)),
		slog.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)

	e.lastMu.Lock()
	e.last = report
	e.lastMu.Unlock()
	return report, nil
}

func (e *Engine) abort(report *Report, err error) error {
	e.logger.Error("Reconciliation pass aborted",
		slog.String("type", "pass"),
		slog.String("pass", report.ID),
		slog.Any("error", err))
	return err
}
