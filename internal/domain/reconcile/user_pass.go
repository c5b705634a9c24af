package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
	"github.com/ce-community/cebot/internal/domain/rolls"
)

// reconcileUsers applies every fresh user payload, resolves rolls and persists the results.
func (e *Engine) reconcileUsers(ctx context.Context, batch catalog.UserBatch, pre, post catalog.Games, report *Report, out *events.Batch) error {
	for _, skipped := range batch.Skipped {
		report.addError(skipped)
	}

	fresh := make([]*catalog.User, 0, len(batch.Users))
	for _, u := range batch.Users {
		if err := u.Validate(); err != nil {
			report.addError(err)
			continue
		}
		fresh = append(fresh, u)
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })

	// partner predicates read these instead of stored records that may not be reconciled yet
	done := make(map[string]rolls.Completions, len(fresh))
	for _, u := range fresh {
		done[u.ID] = rolls.Completions(catalog.CompletedGames(u.OwnedGames, post))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.UserWorkers)
	for _, u := range fresh {
		u := u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evs, err := e.reconcileUser(gctx, u, pre, post, done)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				report.addError(err)
			}
			out.Add(evs...)
			report.userDone()
			return nil
		})
	}
	return g.Wait()
}

// reconcileUser locks the user and every active partner, then applies progress and resolves rolls.
// It returns only the events whose records were written.
func (e *Engine) reconcileUser(ctx context.Context, fresh *catalog.User, pre, post catalog.Games, done map[string]rolls.Completions) ([]events.Event, error) {
	partners, err := e.partnersOf(ctx, fresh.ID)
	if err != nil {
		return nil, err
	}
	for {
		unlock := e.locks.LockAll(append([]string{fresh.ID}, partners...)...)
		evs, again, err := e.reconcileLocked(ctx, fresh, partners, pre, post, done)
		unlock()
		if again == nil {
			return evs, err
		}
		partners = again
	}
}

func (e *Engine) partnersOf(ctx context.Context, id string) ([]string, error) {
	stored, err := e.store.GetUser(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return stored.ActivePartners(), nil
}

// reconcileLocked runs with the locks of the user and the given partners held. When the stored
// record gained partners since they were read, it returns the new partner set to lock instead.
func (e *Engine) reconcileLocked(ctx context.Context, fresh *catalog.User, locked []string, pre, post catalog.Games, done map[string]rolls.Completions) ([]events.Event, []string, error) {
	prev, err := e.store.GetUser(ctx, fresh.ID)
	firstSeen := errors.Is(err, catalog.ErrNotFound)
	if err != nil && !firstSeen {
		return nil, nil, fmt.Errorf("load user %s: %w", fresh.ID, err)
	}

	if firstSeen && e.opts.QuietNewUsers {
		if err := e.store.PutUser(ctx, Baseline(fresh)); err != nil {
			return nil, nil, fmt.Errorf("store user %s: %w", fresh.ID, err)
		}
		return nil, nil, nil
	}
	if firstSeen {
		prev = catalog.NewUser(fresh.ID)
	}

	partners := prev.ActivePartners()
	for _, p := range partners {
		if !slices.Contains(locked, p) {
			return nil, partners, nil
		}
	}

	progress := ApplyUser(prev, fresh, pre, post)
	user := progress.User

	load := func(ctx context.Context, id string) (*catalog.User, error) {
		if !slices.Contains(locked, id) {
			return nil, fmt.Errorf("partner %s is not locked", id)
		}
		return e.store.GetUser(ctx, id)
	}
	res := e.resolver.Resolve(ctx, user, post, rolls.Partners{Load: load, Fresh: done})
	for _, rerr := range res.Errors {
		e.logger.Warn("Roll not resolved",
			slog.String("type", "pass"),
			slog.String("user", user.ID),
			slog.Any("error", rerr))
	}

	var kept []events.Event
	var errs []error
	errs = append(errs, res.Errors...)

	partnerIDs := make([]string, 0, len(res.Partners))
	for id := range res.Partners {
		partnerIDs = append(partnerIDs, id)
	}
	sort.Strings(partnerIDs)
	var partnerEvents []events.Event
	for _, id := range partnerIDs {
		if err := e.store.PutUser(ctx, res.Partners[id]); err != nil {
			errs = append(errs, fmt.Errorf("store partner %s of %s: %w", id, user.ID, err))
			continue
		}
		partnerEvents = append(partnerEvents, res.PartnerEvents[id]...)
	}

	if err := e.store.PutUser(ctx, user); err != nil {
		errs = append(errs, fmt.Errorf("store user %s: %w", user.ID, err))
		return partnerEvents, nil, errors.Join(errs...)
	}
	kept = append(kept, progress.Events...)
	kept = append(kept, res.OwnerEvents...)
	kept = append(kept, partnerEvents...)
	return kept, nil, errors.Join(errs...)
}
