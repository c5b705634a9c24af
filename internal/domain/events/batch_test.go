package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_DropsDuplicates(t *testing.T) {
	b := NewBatch()
	init := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	won := &RollEvent{EventKind: RollWon, EventName: "Soul Mates", UserID: "a", PartnerID: "b", Games: []string{"g1"}, InitTime: init}
	dup := &RollEvent{EventKind: RollWon, EventName: "Soul Mates", UserID: "a", PartnerID: "b", Games: []string{"g1"}, InitTime: init}
	other := &RollEvent{EventKind: RollWon, EventName: "Soul Mates", UserID: "b", PartnerID: "a", Games: []string{"g1"}, InitTime: init}

	assert.Equal(t, 2, b.Add(won, dup, other, nil))
	assert.Equal(t, 2, b.Len())

	evs := b.Events()
	require.Len(t, evs, 2)
	assert.Same(t, won, evs[0])
	assert.Same(t, other, evs[1])
}

func TestUserEvent_KeyDistinguishesThresholds(t *testing.T) {
	a := &UserEvent{EventKind: UserCategoryMilestone, UserID: "u", Category: "Action", Threshold: 500}
	b := &UserEvent{EventKind: UserCategoryMilestone, UserID: "u", Category: "Action", Threshold: 1000}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestGameChanges_Empty(t *testing.T) {
	c := &GameChanges{PointsBefore: 10, PointsAfter: 10, CategoryBefore: "Action", CategoryAfter: "Action"}
	assert.True(t, c.Empty())

	c.Objectives = []ObjectiveChange{{ID: "o1"}}
	assert.True(t, c.Empty(), "objective entries without flags are filler")

	c.Objectives[0].DescriptionChanged = true
	assert.False(t, c.Empty())
}

func TestCountByKindAndSinkFunc(t *testing.T) {
	evs := []Event{
		&GameEvent{EventKind: GameNew, GameID: "g1"},
		&GameEvent{EventKind: GameNew, GameID: "g2"},
		&UserEvent{EventKind: UserRankUp, UserID: "u"},
	}
	assert.Equal(t, map[Kind]int{GameNew: 2, UserRankUp: 1}, CountByKind(evs))

	var got []Event
	sink := SinkFunc(func(_ context.Context, evs []Event) error {
		got = evs
		return nil
	})
	require.NoError(t, sink.Deliver(context.Background(), evs))
	assert.Len(t, got, 3)
}
