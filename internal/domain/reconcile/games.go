package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
)

type gameResult struct {
	outcome Outcome
	event   *events.GameEvent
	game    *catalog.Game
	err     error
}

// reconcileGames diffs every fresh game against the pre-pass snapshots, writes the changes and
// returns the post-pass game set.
func (e *Engine) reconcileGames(ctx context.Context, batch catalog.GameBatch, pre catalog.Games, report *Report, out *events.Batch) (catalog.Games, error) {
	post := pre.Clone()

	// ids the provider returned but could not parse are neither updated nor removed
	keep := make(map[string]bool)
	for _, skipped := range batch.Skipped {
		report.addError(skipped)
		if skipped.ID != "" {
			keep[skipped.ID] = true
		}
	}

	fresh := make([]*catalog.Game, 0, len(batch.Games))
	seen := make(map[string]bool, len(batch.Games))
	for _, g := range batch.Games {
		if err := g.Validate(); err != nil {
			report.addError(err)
			if g.ID != "" {
				keep[g.ID] = true
			}
			continue
		}
		if seen[g.ID] {
			report.addError(&catalog.MalformedRecordError{Kind: "game", ID: g.ID, Err: errDuplicate})
			continue
		}
		seen[g.ID] = true
		g = g.Clone()
		g.Normalize()
		fresh = append(fresh, g)
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })

	results := make([]gameResult, len(fresh))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(e.opts.GameWorkers))

	for i, game := range fresh {
		i, game := i, game
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			results[i] = e.reconcileGame(gctx, pre.Lookup(game.ID), game)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.err != nil {
			report.addError(r.err)
			continue
		}
		report.countGame(r.outcome)
		if r.outcome != Unchanged {
			post[r.game.ID] = r.game
		}
		if r.event != nil {
			out.Add(r.event)
		}
	}

	var removed []string
	for id := range pre {
		if !seen[id] && !keep[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	for _, id := range removed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev := pre.Lookup(id)
		if err := e.store.DeleteGame(ctx, id); err != nil {
			report.addError(fmt.Errorf("delete game %s: %w", id, err))
			continue
		}
		delete(post, id)
		_, ev := ClassifyGame(prev, nil)
		report.countGame(Removed)
		out.Add(ev)
	}

	e.logger.Info("Games reconciled",
		slog.String("type", "pass"),
		slog.String("pass", report.ID),
		slog.Int("fresh", len(fresh)),
		slog.Int("new", report.GamesNew),
		slog.Int("updated", report.GamesUpdated),
		slog.Int("ghost", report.GhostUpdates),
		slog.Int("removed", report.GamesRemoved),
	)
	return post, nil
}

func (e *Engine) reconcileGame(ctx context.Context, prev, fresh *catalog.Game) gameResult {
	outcome, ev := ClassifyGame(prev, fresh)
	if outcome == Unchanged {
		return gameResult{outcome: outcome, game: fresh}
	}
	if err := e.store.PutGame(ctx, fresh); err != nil {
		return gameResult{err: fmt.Errorf("store game %s: %w", fresh.ID, err)}
	}
	res := gameResult{outcome: outcome, game: fresh}
	if ev != nil {
		res.event = ev
	}
	return res
}
