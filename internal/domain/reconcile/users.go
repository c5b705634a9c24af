package reconcile

import (
	"sort"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
)

var (
	// CategoryThresholds are the completed-points milestones announced per category.
	CategoryThresholds = []int{500, 1000, 2000}
	// MilestoneTiers get one milestone each at tier x TierMilestoneStep points.
	MilestoneTiers    = []int{1, 2, 3, 4, 5}
	TierMilestoneStep = 500
	// CompletionMinTier is the lowest tier whose completions are announced.
	CompletionMinTier = 4
)

// UserProgress is the outcome of applying a fresh user payload onto its stored record.
type UserProgress struct {
	User         *catalog.User
	PointsBefore int
	PointsAfter  int
	Events       []events.Event
}

// ApplyUser replaces the stored owned games with the fresh payload and reports the crossings.
// Completion before the pass is judged against pre-pass games, after against post-pass games.
// prev is modified in place and returned as the new record.
func ApplyUser(prev, fresh *catalog.User, pre, post catalog.Games) *UserProgress {
	pointsBefore := prev.TotalPoints()
	completedBefore := catalog.CompletedGames(prev.OwnedGames, pre)
	aggBefore := catalog.Aggregate(prev.OwnedGames, pre)

	next := prev
	next.DisplayName = fresh.DisplayName
	next.DiscordHandle = fresh.DiscordHandle
	next.LastUpdated = fresh.LastUpdated
	next.OwnedGames = make(map[string]catalog.UserGame, len(fresh.OwnedGames))
	for id, ug := range fresh.OwnedGames {
		ug.Objectives = append([]catalog.UserObjective(nil), ug.Objectives...)
		next.OwnedGames[id] = ug
	}

	pointsAfter := next.TotalPoints()
	completedAfter := catalog.CompletedGames(next.OwnedGames, post)
	aggAfter := catalog.Aggregate(next.OwnedGames, post)

	p := &UserProgress{User: next, PointsBefore: pointsBefore, PointsAfter: pointsAfter}
	p.Events = append(p.Events, milestoneEvents(next, aggBefore, aggAfter)...)
	if ev := rankEvent(next, pointsBefore, pointsAfter); ev != nil {
		p.Events = append(p.Events, ev)
	}
	p.Events = append(p.Events, completionEvents(next, completedBefore, completedAfter, post)...)
	return p
}

// Baseline stores a first-seen user without announcing anything.
func Baseline(fresh *catalog.User) *catalog.User {
	u := catalog.NewUser(fresh.ID)
	ApplyUser(u, fresh, nil, nil)
	u.Rank = catalog.RankFor(u.TotalPoints())
	return u
}

func milestoneEvents(u *catalog.User, before, after catalog.Aggregates) []events.Event {
	var evs []events.Event
	for _, c := range catalog.Categories {
		for _, threshold := range CategoryThresholds {
			if crossed(before.ByCategory[c], after.ByCategory[c], threshold) {
				evs = append(evs, &events.UserEvent{
					EventKind:     events.UserCategoryMilestone,
					UserID:        u.ID,
					DisplayName:   u.DisplayName,
					DiscordHandle: u.DiscordHandle,
					Category:      c,
					Threshold:     threshold,
					Points:        after.ByCategory[c],
				})
			}
		}
	}
	for _, tier := range MilestoneTiers {
		threshold := tier * TierMilestoneStep
		if crossed(before.ByTier[tier], after.ByTier[tier], threshold) {
			evs = append(evs, &events.UserEvent{
				EventKind:     events.UserTierMilestone,
				UserID:        u.ID,
				DisplayName:   u.DisplayName,
				DiscordHandle: u.DiscordHandle,
				Tier:          tier,
				Threshold:     threshold,
				Points:        after.ByTier[tier],
			})
		}
	}
	return evs
}

func crossed(before, after, threshold int) bool {
	return before < threshold && after >= threshold
}

// rankEvent advances the recorded rank only when the band went up and points strictly increased.
func rankEvent(u *catalog.User, pointsBefore, pointsAfter int) events.Event {
	after := catalog.RankFor(pointsAfter)
	if after.Index() <= u.Rank.Index() || pointsAfter <= pointsBefore {
		return nil
	}
	ev := &events.UserEvent{
		EventKind:     events.UserRankUp,
		UserID:        u.ID,
		DisplayName:   u.DisplayName,
		DiscordHandle: u.DiscordHandle,
		RankBefore:    u.Rank,
		RankAfter:     after,
		Points:        pointsAfter,
	}
	u.Rank = after
	return ev
}

func completionEvents(u *catalog.User, before, after map[string]bool, post catalog.Games) []events.Event {
	ids := make([]string, 0, len(after))
	for id := range after {
		if !before[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var evs []events.Event
	for _, id := range ids {
		g := post.Lookup(id)
		if g == nil || g.Tier() < CompletionMinTier || hasUncleared(g) {
			continue
		}
		evs = append(evs, &events.UserEvent{
			EventKind:     events.UserNewCompletion,
			UserID:        u.ID,
			DisplayName:   u.DisplayName,
			DiscordHandle: u.DiscordHandle,
			GameID:        g.ID,
			GameName:      g.Name,
			Tier:          g.Tier(),
			Points:        g.TotalPoints(),
		})
	}
	return evs
}

// hasUncleared reports a Primary objective still holding the placeholder value.
// Completing such a game does not reflect real progress yet.
func hasUncleared(g *catalog.Game) bool {
	for i := range g.Objectives {
		if g.Objectives[i].Type == catalog.ObjectivePrimary && g.Objectives[i].Uncleared() {
			return true
		}
	}
	return false
}
