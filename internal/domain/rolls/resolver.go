package rolls

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
)

// PartnerLoader returns the stored record of a co-op or pvp partner.
type PartnerLoader func(ctx context.Context, id string) (*catalog.User, error)

// Partners gives the resolver access to co-op and pvp partners. Fresh holds the post-pass
// completions of users present in the current payload and takes precedence over stored progress.
type Partners struct {
	Load  PartnerLoader
	Fresh map[string]Completions
}

func (p Partners) completions(partner *catalog.User, games catalog.Games) Completions {
	if done, ok := p.Fresh[partner.ID]; ok {
		return done
	}
	return Completions(catalog.CompletedGames(partner.OwnedGames, games))
}

// Resolution is the outcome of evaluating one user's roll log.
// Partners hold mutated partner records; they must be written before the owner.
type Resolution struct {
	OwnerChanged  bool
	OwnerEvents   []events.Event
	Partners      map[string]*catalog.User
	PartnerEvents map[string][]events.Event
	Dropped       int
	Errors        []error
}

// Changed reports whether anything must be persisted.
func (r *Resolution) Changed() bool {
	return r.OwnerChanged || len(r.Partners) > 0
}

func (r *Resolution) touch(partner *catalog.User, evs ...events.Event) {
	r.Partners[partner.ID] = partner
	r.PartnerEvents[partner.ID] = append(r.PartnerEvents[partner.ID], evs...)
}

type Resolver struct {
	now    func() time.Time
	logger *slog.Logger
}

func NewResolver(now func() time.Time, logger *slog.Logger) *Resolver {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{now: now, logger: logger}
}

// Resolve evaluates every current roll of the owner against the post-pass games.
// The owner must already carry its fresh owned games.
func (rs *Resolver) Resolve(ctx context.Context, owner *catalog.User, games catalog.Games, partners Partners) *Resolution {
	now := rs.now()
	res := &Resolution{
		Partners:      make(map[string]*catalog.User),
		PartnerEvents: make(map[string][]events.Event),
	}

	if res.Dropped = DropExpiredPending(owner, now); res.Dropped > 0 {
		res.OwnerChanged = true
	}

	ownerDone := Completions(catalog.CompletedGames(owner.OwnedGames, games))
	loaded := make(map[string]*catalog.User)

	for i := range owner.Rolls {
		roll := &owner.Rolls[i]
		if roll.Status != catalog.RollCurrent {
			continue
		}
		rule, err := Lookup(roll.EventName)
		if err != nil {
			res.Errors = append(res.Errors, &UnknownEventError{Event: roll.EventName, UserID: owner.ID})
			continue
		}

		var partner *catalog.User
		var partnerDone Completions
		if rule.Kind != Solo {
			partner, err = rs.partner(ctx, roll.PartnerID, loaded, partners.Load)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("roll %s of %s: load partner %s: %w", rule.Name, owner.ID, roll.PartnerID, err))
				// the owner's side still expires; the partner record is left alone
				if roll.DueTime != nil && now.After(*roll.DueTime) {
					rs.expire(rule, owner, roll, nil, games, now, res)
				}
				continue
			}
			partnerDone = partners.completions(partner, games)
		}

		verdict, err := Evaluate(rule, Input{Roll: roll, Owner: ownerDone, Partner: partnerDone, Games: games})
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}

		switch {
		case verdict.Won && !FinalStage(rule, roll):
			if roll.DueTime == nil {
				continue
			}
			roll.Status = catalog.RollWaiting
			roll.DueTime = nil
			res.OwnerChanged = true
			res.OwnerEvents = append(res.OwnerEvents, rollEvent(events.RollStageReady, roll, nil))
		case verdict.Won:
			rs.win(rule, owner, roll, partner, games, now, res)
		case roll.DueTime != nil && now.After(*roll.DueTime):
			rs.expire(rule, owner, roll, partner, games, now, res)
		}
	}
	return res
}

func (rs *Resolver) partner(ctx context.Context, id string, loaded map[string]*catalog.User, load PartnerLoader) (*catalog.User, error) {
	if p, ok := loaded[id]; ok {
		return p, nil
	}
	if load == nil {
		return nil, catalog.ErrNotFound
	}
	p, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	loaded[id] = p
	return p, nil
}

func (rs *Resolver) win(rule *Rule, owner *catalog.User, roll *catalog.Roll, partner *catalog.User, games catalog.Games, now time.Time, res *Resolution) {
	roll.Status = catalog.RollWon
	roll.CompletedTime = &now
	if rule.Kind == PvP {
		roll.Winner = boolPtr(true)
	}
	cooldown := CooldownEnd(rule, roll, RollTier(roll, games))
	res.OwnerChanged = true
	res.OwnerEvents = append(res.OwnerEvents, rollEvent(events.RollWon, roll, &cooldown))

	if partner == nil {
		return
	}
	mirror := findMirror(partner, owner.ID, roll)
	if mirror == nil {
		rs.logger.Debug("Partner roll already resolved",
			slog.String("type", "pass"),
			slog.String("event", rule.Name),
			slog.String("user", owner.ID),
			slog.String("partner", partner.ID))
		return
	}
	mirror.CompletedTime = &now
	kind := events.RollWon
	if rule.Kind == PvP {
		mirror.Status = catalog.RollFailed
		mirror.Winner = boolPtr(false)
		kind = events.RollFailed
	} else {
		mirror.Status = catalog.RollWon
	}
	mirrorCooldown := CooldownEnd(rule, mirror, RollTier(mirror, games))
	res.touch(partner, rollEvent(kind, mirror, &mirrorCooldown))
}

func (rs *Resolver) expire(rule *Rule, owner *catalog.User, roll *catalog.Roll, partner *catalog.User, games catalog.Games, now time.Time, res *Resolution) {
	roll.Status = catalog.RollFailed
	roll.CompletedTime = &now
	if rule.Kind == PvP {
		roll.Winner = boolPtr(false)
	}
	cooldown := CooldownEnd(rule, roll, RollTier(roll, games))
	res.OwnerChanged = true
	res.OwnerEvents = append(res.OwnerEvents, rollEvent(events.RollFailed, roll, &cooldown))

	if partner == nil || !rule.SymmetricFailure {
		return
	}
	mirror := findMirror(partner, owner.ID, roll)
	if mirror == nil {
		return
	}
	mirror.Status = catalog.RollFailed
	mirror.CompletedTime = &now
	if rule.Kind == PvP {
		mirror.Winner = boolPtr(false)
	}
	mirrorCooldown := CooldownEnd(rule, mirror, RollTier(mirror, games))
	res.touch(partner, rollEvent(events.RollFailed, mirror, &mirrorCooldown))
}

// findMirror returns the partner's still-current copy of the roll, or nil when it was already resolved.
func findMirror(partner *catalog.User, ownerID string, roll *catalog.Roll) *catalog.Roll {
	for i := range partner.Rolls {
		m := &partner.Rolls[i]
		if m.EventName == roll.EventName &&
			m.PartnerID == ownerID &&
			m.Status == catalog.RollCurrent &&
			catalog.SameSet(m.Games, roll.Games) {
			return m
		}
	}
	return nil
}

func rollEvent(kind events.Kind, r *catalog.Roll, cooldown *time.Time) *events.RollEvent {
	ev := &events.RollEvent{
		EventKind:   kind,
		EventName:   r.EventName,
		UserID:      r.UserID,
		PartnerID:   r.PartnerID,
		Games:       append([]string(nil), r.Games...),
		Stage:       Stage(r),
		InitTime:    r.InitTime,
		CooldownEnd: cooldown,
	}
	if r.DueTime != nil {
		t := *r.DueTime
		ev.DueTime = &t
	}
	if r.Winner != nil {
		w := *r.Winner
		ev.Winner = &w
	}
	return ev
}

func boolPtr(b bool) *bool {
	return &b
}
