package rolls

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func gameWithPoints(id string, category catalog.Category, primary int) *catalog.Game {
	return &catalog.Game{
		ID:       id,
		Name:     "Game " + id,
		Category: category,
		Objectives: []catalog.Objective{
			{ID: id + "-p", Type: catalog.ObjectivePrimary, PointValue: primary},
		},
	}
}

func completed(u *catalog.User, g *catalog.Game) {
	u.OwnedGames[g.ID] = catalog.UserGame{
		GameID: g.ID,
		Objectives: []catalog.UserObjective{
			{ObjectiveID: g.ID + "-p", GameID: g.ID, Type: catalog.ObjectivePrimary, UserPoints: g.PrimaryPoints()},
		},
	}
}

func current(event, user, partner string, games []string, init time.Time, due *time.Time) catalog.Roll {
	return catalog.Roll{
		EventName: event,
		UserID:    user,
		PartnerID: partner,
		Games:     games,
		InitTime:  init,
		DueTime:   due,
		Status:    catalog.RollCurrent,
	}
}

func at(t time.Time) *time.Time { return &t }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func loaderOf(users ...*catalog.User) Partners {
	byID := make(map[string]*catalog.User)
	for _, u := range users {
		byID[u.ID] = u
	}
	return Partners{Load: func(_ context.Context, id string) (*catalog.User, error) {
		u, ok := byID[id]
		if !ok {
			return nil, catalog.ErrNotFound
		}
		return u, nil
	}}
}

func TestLookup(t *testing.T) {
	for _, name := range Events() {
		rule, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, rule.Name)
		assert.NotNil(t, rule.Due, name)
		assert.NotNil(t, rule.Cooldown, name)
	}
	assert.Len(t, Events(), 15)

	_, err := Lookup("Two Hells")
	assert.True(t, IsUnknownEvent(err))
}

func TestCooldownEnd_IsInitTimeRelative(t *testing.T) {
	rule, err := Lookup(OneHellOfADay)
	require.NoError(t, err)

	g := gameWithPoints("g1", catalog.CategoryAction, 50)
	games := catalog.Games{g.ID: g}

	for _, offset := range []time.Duration{15 * day, 40 * day} {
		t.Run(offset.String(), func(t *testing.T) {
			u := catalog.NewUser("u1")
			u.Rolls = []catalog.Roll{current(OneHellOfADay, "u1", "", []string{"g1"}, t0, at(t0.Add(day)))}

			res := NewResolver(fixedClock(t0.Add(offset)), nil).Resolve(context.Background(), u, games, Partners{})
			require.Len(t, res.OwnerEvents, 1)

			ev := res.OwnerEvents[0].(*events.RollEvent)
			assert.Equal(t, events.RollFailed, ev.EventKind)
			require.NotNil(t, ev.CooldownEnd)
			assert.Equal(t, t0.Add(14*day), *ev.CooldownEnd)
			assert.Equal(t, t0.Add(14*day), CooldownEnd(rule, &u.Rolls[0], 2))
		})
	}
}

func TestCooldownPolicies(t *testing.T) {
	fate, _ := Lookup(LetFateDecide)
	tests := []struct {
		tier int
		want time.Duration
	}{
		{0, 28 * day},
		{1, 28 * day},
		{2, 21 * day},
		{3, 14 * day},
		{4, 10 * day},
		{5, 7 * day},
		{7, 7 * day},
	}
	r := &catalog.Roll{InitTime: t0}
	for _, tt := range tests {
		assert.Equal(t, t0.Add(tt.want), CooldownEnd(fate, r, tt.tier), "tier %d", tt.tier)
	}

	fourward, err := Lookup(FourwardThinking)
	require.NoError(t, err)
	assert.Equal(t, 3, fourward.MaxRerolls)
	failedThird := &catalog.Roll{InitTime: t0, Games: []string{"a", "b", "c"}, Rerolls: 1, Status: catalog.RollFailed}
	// two stages done, two rerolls used
	assert.Equal(t, t0.Add(14*day+30*day), CooldownEnd(fourward, failedThird, 3))

	wonAll := &catalog.Roll{InitTime: t0, Games: []string{"a", "b", "c", "d"}, Rerolls: 3, Status: catalog.RollWon}
	assert.Equal(t, t0.Add(28*day), CooldownEnd(fourward, wonAll, 3))
}

func TestResolve_SoloWin(t *testing.T) {
	g1 := gameWithPoints("g1", catalog.CategoryAction, 50)
	g2 := gameWithPoints("g2", catalog.CategoryArcade, 50)
	games := catalog.Games{g1.ID: g1, g2.ID: g2}

	u := catalog.NewUser("u1")
	completed(u, g1)
	u.Rolls = []catalog.Roll{current(TripleThreat, "u1", "", []string{"g1", "g2", "g3"}, t0, at(t0.Add(28*day)))}

	rs := NewResolver(fixedClock(t0.Add(day)), nil)
	res := rs.Resolve(context.Background(), u, games, Partners{})
	assert.False(t, res.Changed())
	assert.Empty(t, res.OwnerEvents)

	g3 := gameWithPoints("g3", catalog.CategoryStrategy, 50)
	games[g3.ID] = g3
	completed(u, g2)
	completed(u, g3)

	res = rs.Resolve(context.Background(), u, games, Partners{})
	require.Len(t, res.OwnerEvents, 1)
	assert.Equal(t, events.RollWon, res.OwnerEvents[0].Kind())
	assert.Equal(t, catalog.RollWon, u.Rolls[0].Status)
	require.NotNil(t, u.Rolls[0].CompletedTime)
	assert.Equal(t, t0.Add(day), *u.Rolls[0].CompletedTime)

	res = rs.Resolve(context.Background(), u, games, Partners{})
	assert.Empty(t, res.OwnerEvents, "terminal rolls stay quiet")
}

func TestResolve_MultiStageNonRetrigger(t *testing.T) {
	g1 := gameWithPoints("g1", catalog.CategoryAction, 50)
	games := catalog.Games{g1.ID: g1}

	u := catalog.NewUser("u1")
	completed(u, g1)
	u.Rolls = []catalog.Roll{current(TwoWeekT2Streak, "u1", "", []string{"g1"}, t0, at(t0.Add(7*day)))}

	rs := NewResolver(fixedClock(t0.Add(day)), nil)
	res := rs.Resolve(context.Background(), u, games, Partners{})
	require.Len(t, res.OwnerEvents, 1)
	assert.Equal(t, events.RollStageReady, res.OwnerEvents[0].Kind())
	assert.Equal(t, catalog.RollWaiting, u.Rolls[0].Status)
	assert.Nil(t, u.Rolls[0].DueTime)

	res = rs.Resolve(context.Background(), u, games, Partners{})
	assert.Empty(t, res.OwnerEvents)
	assert.False(t, res.Changed())

	// a current roll whose due time was already cleared is not re-fired either
	u.Rolls[0].Status = catalog.RollCurrent
	res = rs.Resolve(context.Background(), u, games, Partners{})
	assert.Empty(t, res.OwnerEvents)
	assert.Equal(t, catalog.RollCurrent, u.Rolls[0].Status)
}

func TestResolve_FinalStageWins(t *testing.T) {
	g1 := gameWithPoints("g1", catalog.CategoryAction, 50)
	g2 := gameWithPoints("g2", catalog.CategoryAction, 60)
	games := catalog.Games{g1.ID: g1, g2.ID: g2}

	u := catalog.NewUser("u1")
	completed(u, g1)
	u.Rolls = []catalog.Roll{{
		EventName: TwoWeekT2Streak, UserID: "u1", Games: []string{"g1"},
		InitTime: t0, Status: catalog.RollWaiting,
	}}
	require.NoError(t, StartNextStage(&u.Rolls[0], "g2", t0.Add(3*day)))
	require.NotNil(t, u.Rolls[0].DueTime)
	assert.Equal(t, t0.Add(10*day), *u.Rolls[0].DueTime)

	completed(u, g2)
	res := NewResolver(fixedClock(t0.Add(4*day)), nil).Resolve(context.Background(), u, games, Partners{})
	require.Len(t, res.OwnerEvents, 1)
	assert.Equal(t, events.RollWon, res.OwnerEvents[0].Kind())
	assert.Equal(t, 2, res.OwnerEvents[0].(*events.RollEvent).Stage)
}

func TestResolve_NoDeadlineNeverExpires(t *testing.T) {
	u := catalog.NewUser("u1")
	u.Rolls = []catalog.Roll{current(NeverLucky, "u1", "", []string{"g1"}, t0, nil)}

	res := NewResolver(fixedClock(t0.Add(365*day)), nil).Resolve(context.Background(), u, catalog.Games{}, Partners{})
	assert.Empty(t, res.OwnerEvents)
	assert.Equal(t, catalog.RollCurrent, u.Rolls[0].Status)
}

func TestResolve_UnknownEventLeavesRollUntouched(t *testing.T) {
	u := catalog.NewUser("u1")
	u.Rolls = []catalog.Roll{current("Mystery", "u1", "", []string{"g1"}, t0, at(t0.Add(day)))}

	res := NewResolver(fixedClock(t0.Add(10*day)), nil).Resolve(context.Background(), u, catalog.Games{}, Partners{})
	require.Len(t, res.Errors, 1)
	assert.True(t, IsUnknownEvent(res.Errors[0]))
	assert.Equal(t, catalog.RollCurrent, u.Rolls[0].Status)
	assert.False(t, res.Changed())
}

func TestResolve_CoOpWinResolvesBothSidesOnce(t *testing.T) {
	g := gameWithPoints("g1", catalog.CategoryAction, 100)
	games := catalog.Games{g.ID: g}

	a := catalog.NewUser("a")
	b := catalog.NewUser("b")
	a.Rolls = []catalog.Roll{current(SoulMates, "a", "b", []string{"g1"}, t0, at(t0.Add(28*day)))}
	mirror, err := Mirror(&a.Rolls[0])
	require.NoError(t, err)
	b.Rolls = []catalog.Roll{mirror}

	completed(a, g)
	completed(b, g)

	rs := NewResolver(fixedClock(t0.Add(day)), nil)
	res := rs.Resolve(context.Background(), a, games, loaderOf(b))
	require.Len(t, res.OwnerEvents, 1)
	require.Contains(t, res.Partners, "b")
	require.Len(t, res.PartnerEvents["b"], 1)
	assert.Equal(t, events.RollWon, res.PartnerEvents["b"][0].Kind())
	assert.Equal(t, catalog.RollWon, b.Rolls[0].Status)

	res = rs.Resolve(context.Background(), b, games, loaderOf(a))
	assert.Empty(t, res.OwnerEvents)
	assert.Empty(t, res.Partners)
}

func TestResolve_PvP(t *testing.T) {
	g := gameWithPoints("g1", catalog.CategoryAction, 100)
	games := catalog.Games{g.ID: g}

	setup := func() (*catalog.User, *catalog.User) {
		a := catalog.NewUser("a")
		b := catalog.NewUser("b")
		a.Rolls = []catalog.Roll{current(WinnerTakesAll, "a", "b", []string{"g1"}, t0, nil)}
		m, err := Mirror(&a.Rolls[0])
		require.NoError(t, err)
		b.Rolls = []catalog.Roll{m}
		return a, b
	}

	t.Run("winner and loser", func(t *testing.T) {
		a, b := setup()
		completed(a, g)
		res := NewResolver(fixedClock(t0.Add(day)), nil).Resolve(context.Background(), a, games, loaderOf(b))

		require.Len(t, res.OwnerEvents, 1)
		assert.Equal(t, events.RollWon, res.OwnerEvents[0].Kind())
		require.NotNil(t, a.Rolls[0].Winner)
		assert.True(t, *a.Rolls[0].Winner)

		assert.Equal(t, catalog.RollFailed, b.Rolls[0].Status)
		require.NotNil(t, b.Rolls[0].Winner)
		assert.False(t, *b.Rolls[0].Winner)
		require.Len(t, res.PartnerEvents["b"], 1)
		assert.Equal(t, events.RollFailed, res.PartnerEvents["b"][0].Kind())
	})

	t.Run("both sides completed", func(t *testing.T) {
		a, b := setup()
		completed(a, g)
		completed(b, g)
		res := NewResolver(fixedClock(t0.Add(day)), nil).Resolve(context.Background(), a, games, loaderOf(b))

		require.Len(t, res.Errors, 1)
		assert.True(t, IsAmbiguous(res.Errors[0]))
		assert.Equal(t, catalog.RollCurrent, a.Rolls[0].Status)
		assert.Equal(t, catalog.RollCurrent, b.Rolls[0].Status)
	})
}

func TestResolve_GameTheoryUsesEachSidesOwnGame(t *testing.T) {
	own := gameWithPoints("own", catalog.CategoryAction, 100)
	theirs := gameWithPoints("theirs", catalog.CategoryArcade, 100)
	games := catalog.Games{own.ID: own, theirs.ID: theirs}

	a := catalog.NewUser("a")
	b := catalog.NewUser("b")
	a.Rolls = []catalog.Roll{current(GameTheory, "a", "b", []string{"own", "theirs"}, t0, at(t0.Add(28*day)))}
	m, err := Mirror(&a.Rolls[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"theirs", "own"}, m.Games)
	b.Rolls = []catalog.Roll{m}

	// b finishing a's game does not count for b
	completed(b, own)
	res := NewResolver(fixedClock(t0.Add(day)), nil).Resolve(context.Background(), b, games, loaderOf(a))
	assert.Empty(t, res.OwnerEvents)
	assert.Empty(t, res.Errors)

	completed(b, theirs)
	res = NewResolver(fixedClock(t0.Add(day)), nil).Resolve(context.Background(), b, games, loaderOf(a))
	require.Len(t, res.OwnerEvents, 1)
	assert.Equal(t, events.RollWon, res.OwnerEvents[0].Kind())
	assert.Equal(t, catalog.RollFailed, a.Rolls[0].Status)
}

func TestResolve_SymmetricFailure(t *testing.T) {
	tests := []struct {
		event      string
		games      []string
		bothFailed bool
	}{
		{TeamworkDreamWork, []string{"g1", "g2", "g3", "g4"}, true},
		{GameTheory, []string{"g1", "g2"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			a := catalog.NewUser("a")
			b := catalog.NewUser("b")
			a.Rolls = []catalog.Roll{current(tt.event, "a", "b", tt.games, t0, at(t0.Add(28*day)))}
			m, err := Mirror(&a.Rolls[0])
			require.NoError(t, err)
			b.Rolls = []catalog.Roll{m}

			res := NewResolver(fixedClock(t0.Add(30*day)), nil).Resolve(context.Background(), a, catalog.Games{}, loaderOf(b))
			require.Len(t, res.OwnerEvents, 1)
			assert.Equal(t, events.RollFailed, res.OwnerEvents[0].Kind())
			assert.Equal(t, tt.bothFailed, b.Rolls[0].Status == catalog.RollFailed)
		})
	}
}

func TestResolve_AsymmetricFailureLeavesPartner(t *testing.T) {
	a := catalog.NewUser("a")
	b := catalog.NewUser("b")
	due := t0.Add(28 * day)
	a.Rolls = []catalog.Roll{current(DestinyAlignment, "a", "b", []string{"g1", "g2"}, t0, &due)}
	m, err := Mirror(&a.Rolls[0])
	require.NoError(t, err)
	b.Rolls = []catalog.Roll{m}

	res := NewResolver(fixedClock(t0.Add(30*day)), nil).Resolve(context.Background(), a, catalog.Games{}, loaderOf(b))
	require.Len(t, res.OwnerEvents, 1)
	assert.Empty(t, res.Partners)
	assert.Equal(t, catalog.RollCurrent, b.Rolls[0].Status)
}

func TestResolve_PartnerMissing(t *testing.T) {
	a := catalog.NewUser("a")
	a.Rolls = []catalog.Roll{current(SoulMates, "a", "ghost", []string{"g1"}, t0, at(t0.Add(28*day)))}

	res := NewResolver(fixedClock(t0.Add(day)), nil).Resolve(context.Background(), a, catalog.Games{}, loaderOf())
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], catalog.ErrNotFound)
	assert.Equal(t, catalog.RollCurrent, a.Rolls[0].Status)
	assert.False(t, res.Changed())

	// past the deadline the owner's side fails without touching the partner
	res = NewResolver(fixedClock(t0.Add(30*day)), nil).Resolve(context.Background(), a, catalog.Games{}, loaderOf())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, catalog.RollFailed, a.Rolls[0].Status)
	require.Len(t, res.OwnerEvents, 1)
	assert.Equal(t, events.RollFailed, res.OwnerEvents[0].Kind())
	assert.Empty(t, res.Partners)
}

func TestResolve_FreshPartnerCompletionsWin(t *testing.T) {
	g := gameWithPoints("g1", catalog.CategoryAction, 100)
	games := catalog.Games{g.ID: g}

	a := catalog.NewUser("a")
	b := catalog.NewUser("b")
	a.Rolls = []catalog.Roll{current(WinnerTakesAll, "a", "b", []string{"g1"}, t0, nil)}
	m, err := Mirror(&a.Rolls[0])
	require.NoError(t, err)
	b.Rolls = []catalog.Roll{m}
	completed(a, g)

	// b's stored record has no progress yet, but the current payload shows the game completed
	partners := loaderOf(b)
	partners.Fresh = map[string]Completions{"b": {"g1": true}}
	res := NewResolver(fixedClock(t0.Add(day)), nil).Resolve(context.Background(), a, games, partners)

	require.Len(t, res.Errors, 1)
	assert.True(t, IsAmbiguous(res.Errors[0]))
	assert.Equal(t, catalog.RollCurrent, a.Rolls[0].Status)
	assert.Equal(t, catalog.RollCurrent, b.Rolls[0].Status)
	assert.Empty(t, res.Partners)
}

func TestResolve_DropsStalePending(t *testing.T) {
	u := catalog.NewUser("u1")
	_, err := Begin(u, RussianRoulette, "", nil, t0)
	require.NoError(t, err)

	res := NewResolver(fixedClock(t0.Add(PendingGrace+time.Minute)), nil).Resolve(context.Background(), u, catalog.Games{}, Partners{})
	assert.Equal(t, 1, res.Dropped)
	assert.True(t, res.Changed())
	assert.Empty(t, res.OwnerEvents)
	assert.Empty(t, u.Rolls)
}

func TestMonthPredicate(t *testing.T) {
	games := catalog.Games{}
	var ids []string
	u := catalog.NewUser("u1")
	for ci, c := range catalog.Categories[:5] {
		for i := 0; i < 3; i++ {
			g := gameWithPoints(fmt.Sprintf("c%d-%d", ci, i), c, 40)
			games[g.ID] = g
			ids = append(ids, g.ID)
			if !(ci == 4 && i == 2) {
				completed(u, g)
			}
		}
	}
	rule, _ := Lookup(OneHellOfAMonth)
	roll := current(OneHellOfAMonth, "u1", "", ids, t0, nil)
	in := Input{Roll: &roll, Owner: Completions(catalog.CompletedGames(u.OwnedGames, games)), Games: games}

	v, err := Evaluate(rule, in)
	require.NoError(t, err)
	assert.False(t, v.Won, "only four full categories")

	completed(u, games["c4-2"])
	in.Owner = Completions(catalog.CompletedGames(u.OwnedGames, games))
	v, err = Evaluate(rule, in)
	require.NoError(t, err)
	assert.True(t, v.Won)
}
