package rolls

import (
	"fmt"
	"slices"
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

// PendingGrace is how long a pending roll blocks a new submission while games are being picked.
const PendingGrace = 10 * time.Minute

// Begin appends a pending roll of the event to the user's log and returns it.
// The returned pointer aliases u.Rolls and is only valid until the log is modified again.
func Begin(u *catalog.User, event, partnerID string, games catalog.Games, now time.Time) (*catalog.Roll, error) {
	rule, err := Lookup(event)
	if err != nil {
		return nil, err
	}
	switch {
	case rule.Kind == Solo && partnerID != "":
		return nil, ErrPartnerNotAllowed
	case rule.Kind != Solo && partnerID == "":
		return nil, ErrPartnerRequired
	case partnerID == u.ID:
		return nil, ErrSelfPartner
	}

	if active := countActive(u, rule, partnerID); active >= rule.MaxActive {
		return nil, ErrAlreadyActive
	}
	if last := lastTerminal(u, rule, partnerID); last != nil {
		if end := CooldownEnd(rule, last, RollTier(last, games)); now.Before(end) {
			return nil, &CooldownError{Event: event, Until: end}
		}
	}

	due := now.Add(PendingGrace)
	u.Rolls = append(u.Rolls, catalog.Roll{
		EventName: event,
		UserID:    u.ID,
		PartnerID: partnerID,
		InitTime:  now,
		DueTime:   &due,
		Status:    catalog.RollPending,
	})
	return &u.Rolls[len(u.Rolls)-1], nil
}

// countActive counts the active instances that share the rule's concurrency slot.
func countActive(u *catalog.User, rule *Rule, partnerID string) int {
	n := 0
	for i := range u.Rolls {
		r := &u.Rolls[i]
		if r.EventName != rule.Name || !r.Status.Active() {
			continue
		}
		if rule.Kind != Solo && !rule.PerUser && r.PartnerID != partnerID {
			continue
		}
		n++
	}
	return n
}

// lastTerminal returns the most recently started resolved roll of the event.
// Co-op and pvp cooldowns are tracked per partner.
func lastTerminal(u *catalog.User, rule *Rule, partnerID string) *catalog.Roll {
	var last *catalog.Roll
	for i := range u.Rolls {
		r := &u.Rolls[i]
		if r.EventName != rule.Name || !r.Status.Terminal() {
			continue
		}
		if rule.Kind != Solo && r.PartnerID != partnerID {
			continue
		}
		if last == nil || r.InitTime.After(last.InitTime) {
			last = r
		}
	}
	return last
}

// Confirm moves a pending roll to current with its assigned games and first-stage deadline.
func Confirm(r *catalog.Roll, games []string, now time.Time) error {
	rule, err := Lookup(r.EventName)
	if err != nil {
		return err
	}
	if r.Status != catalog.RollPending {
		return fmt.Errorf("%w: confirm %s roll", ErrInvalidTransition, r.Status)
	}
	if r.DueTime != nil && now.After(*r.DueTime) {
		return fmt.Errorf("%w: pending grace elapsed", ErrInvalidTransition)
	}
	if len(games) != rule.Games {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrWrongGameCount, rule.Name, rule.Games, len(games))
	}

	r.Games = slices.Clone(games)
	r.InitTime = now
	r.Rerolls = rule.MaxRerolls
	r.DueTime = dueAt(rule, 1, now)
	r.Status = catalog.RollCurrent
	return nil
}

func dueAt(rule *Rule, stage int, from time.Time) *time.Time {
	d, ok := rule.Due(stage)
	if !ok {
		return nil
	}
	t := from.Add(d)
	return &t
}

// Mirror builds the partner's copy of a co-op or pvp roll.
func Mirror(r *catalog.Roll) (catalog.Roll, error) {
	rule, err := Lookup(r.EventName)
	if err != nil {
		return catalog.Roll{}, err
	}
	if rule.Kind == Solo {
		return catalog.Roll{}, ErrPartnerNotAllowed
	}
	m := r.Clone()
	m.UserID, m.PartnerID = r.PartnerID, r.UserID
	if rule.Split && len(m.Games) == 2 {
		m.Games[0], m.Games[1] = m.Games[1], m.Games[0]
	}
	if m.Winner != nil {
		w := !*m.Winner
		m.Winner = &w
	}
	return m, nil
}

// Reroll swaps the current stage game for another one and consumes a reroll.
func Reroll(r *catalog.Roll, game string) error {
	rule, err := Lookup(r.EventName)
	if err != nil {
		return err
	}
	if !rule.Rerollable() {
		return ErrNotRerollable
	}
	if r.Status != catalog.RollCurrent || len(r.Games) == 0 {
		return fmt.Errorf("%w: reroll %s roll", ErrInvalidTransition, r.Status)
	}
	if r.Rerolls <= 0 {
		return ErrNoRerollsLeft
	}
	r.Games[len(r.Games)-1] = game
	r.Rerolls--
	return nil
}

// StartNextStage re-arms a waiting multi-stage roll with the next game.
func StartNextStage(r *catalog.Roll, game string, now time.Time) error {
	rule, err := Lookup(r.EventName)
	if err != nil {
		return err
	}
	if r.Status != catalog.RollWaiting {
		return fmt.Errorf("%w: next stage of %s roll", ErrInvalidTransition, r.Status)
	}
	if len(r.Games) >= rule.Stages {
		return ErrFinalStageReached
	}
	r.Games = append(r.Games, game)
	r.DueTime = dueAt(rule, len(r.Games), now)
	r.Status = catalog.RollCurrent
	return nil
}

// Stage is the 1-based stage the roll is on.
func Stage(r *catalog.Roll) int {
	if len(r.Games) == 0 {
		return 1
	}
	return len(r.Games)
}

// FinalStage reports whether the roll is on its last stage.
func FinalStage(rule *Rule, r *catalog.Roll) bool {
	return len(r.Games) >= rule.Stages
}

// DropExpiredPending removes pending rolls whose grace window has elapsed and reports how many went.
func DropExpiredPending(u *catalog.User, now time.Time) int {
	kept := u.Rolls[:0]
	dropped := 0
	for _, r := range u.Rolls {
		if r.Status == catalog.RollPending && r.DueTime != nil && now.After(*r.DueTime) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	u.Rolls = kept
	return dropped
}
