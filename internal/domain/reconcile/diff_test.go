package reconcile

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
)

func TestClassifyGame(t *testing.T) {
	prev := normalized(newGame("g1", catalog.CategoryAction, 50, ts(100)))

	outcome, ev := ClassifyGame(nil, prev)
	assert.Equal(t, New, outcome)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 2, ev.Summary.Tier)
	assert.Equal(t, 1, ev.Summary.ObjectiveCounts[catalog.ObjectivePrimary])

	outcome, ev = ClassifyGame(prev, nil)
	assert.Equal(t, Removed, outcome)
	assert.Equal(t, events.GameRemoved, ev.EventKind)

	same := normalized(newGame("g1", catalog.CategoryBulletHell, 90, ts(100)))
	outcome, ev = ClassifyGame(prev, same)
	assert.Equal(t, Unchanged, outcome, "only a newer watermark is considered")
	assert.Nil(t, ev)

	older := normalized(newGame("g1", catalog.CategoryBulletHell, 90, ts(50)))
	outcome, _ = ClassifyGame(prev, older)
	assert.Equal(t, Unchanged, outcome)

	// stores keep milliseconds only, so sub-millisecond noise is not a newer watermark
	stored := prev.Clone()
	stored.LastUpdated = stored.LastUpdated.Truncate(time.Millisecond)
	noisy := normalized(newGame("g1", catalog.CategoryAction, 50, ts(100).Add(400*time.Microsecond)))
	outcome, _ = ClassifyGame(stored, noisy)
	assert.Equal(t, Unchanged, outcome)
}

func TestDiffGame_ObjectiveChanges(t *testing.T) {
	req := "Beat the final boss"
	prev := &catalog.Game{
		ID: "g1", Name: "Old", Category: catalog.CategoryAction,
		Objectives: []catalog.Objective{
			{ID: "reveal", Type: catalog.ObjectivePrimary, PointValue: 1},
			{ID: "up", Type: catalog.ObjectivePrimary, PointValue: 10},
			{ID: "down", Type: catalog.ObjectivePrimary, PointValue: 40},
			{ID: "text", Type: catalog.ObjectivePrimary, PointValue: 5, Description: "a"},
			{ID: "same", Type: catalog.ObjectiveBadge, Name: "Badge"},
			{ID: "dropped", Type: catalog.ObjectiveSecondary, PointValue: 5},
		},
	}
	fresh := &catalog.Game{
		ID: "g1", Name: "New", Category: catalog.CategoryArcade,
		Objectives: []catalog.Objective{
			{ID: "reveal", Type: catalog.ObjectivePrimary, PointValue: 20},
			{ID: "up", Type: catalog.ObjectivePrimary, PointValue: 15},
			{ID: "down", Type: catalog.ObjectivePrimary, PointValue: 30},
			{ID: "text", Type: catalog.ObjectivePrimary, PointValue: 5, Description: "b", Requirements: &req, AchievementIDs: []string{"a1"}},
			{ID: "same", Type: catalog.ObjectiveBadge, Name: "Badge"},
			{ID: "added", Type: catalog.ObjectiveCommunity, Name: "Speedrun"},
		},
	}

	c := DiffGame(prev, fresh)
	assert.True(t, c.NameChanged())
	assert.True(t, c.CategoryChanged())
	assert.Equal(t, 61, c.PointsBefore)
	assert.Equal(t, 70, c.PointsAfter)
	assert.Equal(t, []events.ObjectiveRef{{ID: "added", Name: "Speedrun", Type: catalog.ObjectiveCommunity}}, c.NewObjectives)
	require.Len(t, c.RemovedObjectives, 1)
	assert.Equal(t, "dropped", c.RemovedObjectives[0].ID)

	byID := make(map[string]events.ObjectiveChange)
	for _, oc := range c.Objectives {
		byID[oc.ID] = oc
	}
	assert.Len(t, byID, 4)
	assert.Equal(t, events.PointsRevealed, byID["reveal"].Points)
	assert.Equal(t, events.PointsIncreased, byID["up"].Points)
	assert.Equal(t, events.PointsDecreased, byID["down"].Points)

	text := byID["text"]
	assert.Equal(t, events.PointsUnchanged, text.Points)
	assert.True(t, text.DescriptionChanged)
	assert.True(t, text.RequirementsChanged)
	assert.True(t, text.AchievementsChanged)
	assert.False(t, text.NameChanged)
	assert.False(t, c.Empty())
}

func TestApplyUser_TierMilestone(t *testing.T) {
	games := catalog.Games{}
	owned := map[string]int{}
	for i := 0; i < 13; i++ {
		g := normalized(newGame(fmt.Sprintf("t1-%02d", i), catalog.CategoryStrategy, 39, ts(0)))
		games[g.ID] = g
		if i < 12 {
			owned[g.ID] = 39
		}
	}
	prev := withPoints("u1", owned)
	prev.Rank = catalog.RankC

	owned["t1-12"] = 39
	p := ApplyUser(prev, withPoints("u1", owned), games, games)

	var tiers []*events.UserEvent
	for _, ev := range p.Events {
		if ue, ok := ev.(*events.UserEvent); ok && ue.EventKind == events.UserTierMilestone {
			tiers = append(tiers, ue)
		}
	}
	require.Len(t, tiers, 1)
	assert.Equal(t, 1, tiers[0].Tier)
	assert.Equal(t, 500, tiers[0].Threshold)
	assert.Equal(t, 468, p.PointsBefore)
	assert.Equal(t, 507, p.PointsAfter)
}

func TestApplyUser_UnclearedGameNotAnnounced(t *testing.T) {
	g := &catalog.Game{
		ID: "g1", Name: "Pending", Category: catalog.CategoryAction,
		Objectives: []catalog.Objective{
			{ID: "g1-o1", Type: catalog.ObjectivePrimary, PointValue: 300},
			{ID: "g1-o2", Type: catalog.ObjectivePrimary, PointValue: catalog.UnclearedPoints},
		},
	}
	games := catalog.Games{g.ID: g}
	fresh := catalog.NewUser("u1")
	fresh.OwnedGames["g1"] = catalog.UserGame{GameID: "g1", Objectives: []catalog.UserObjective{
		{ObjectiveID: "g1-o1", GameID: "g1", Type: catalog.ObjectivePrimary, UserPoints: 300},
		{ObjectiveID: "g1-o2", GameID: "g1", Type: catalog.ObjectivePrimary, UserPoints: 1},
	}}

	p := ApplyUser(catalog.NewUser("u1"), fresh, games, games)
	for _, ev := range p.Events {
		assert.NotEqual(t, events.UserNewCompletion, ev.Kind())
	}
}

func TestKeyedLocker_ConsistentOrder(t *testing.T) {
	k := newKeyedLocker()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := k.LockAll("b", "a", "a")
			counter++
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := k.LockAll("a", "b")
			counter++
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock")
	}
	assert.Equal(t, 100, counter)
}
