package reconcile

import (
	"github.com/ce-community/cebot/internal/domain/catalog"
	"github.com/ce-community/cebot/internal/domain/events"
)

// Outcome classifies a game in a pass.
type Outcome int

const (
	Unchanged Outcome = iota
	New
	Updated
	// Ghost is a newer timestamp without any visible difference. The snapshot is still overwritten.
	Ghost
	Removed
)

func (o Outcome) String() string {
	switch o {
	case New:
		return "new"
	case Updated:
		return "updated"
	case Ghost:
		return "ghost"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// ClassifyGame compares a stored snapshot with a fresh record. Either may be nil but not both.
// Fresh records are expected to be normalized.
func ClassifyGame(prev, fresh *catalog.Game) (Outcome, *events.GameEvent) {
	switch {
	case prev == nil:
		return New, &events.GameEvent{
			EventKind: events.GameNew,
			GameID:    fresh.ID,
			Name:      fresh.Name,
			Summary:   events.Summarize(fresh),
		}
	case fresh == nil:
		return Removed, &events.GameEvent{
			EventKind: events.GameRemoved,
			GameID:    prev.ID,
			Name:      prev.Name,
			Summary:   events.Summarize(prev),
		}
	case !fresh.LastUpdated.After(prev.LastUpdated):
		return Unchanged, nil
	}

	changes := DiffGame(prev, fresh)
	if changes.Empty() {
		return Ghost, nil
	}
	return Updated, &events.GameEvent{
		EventKind: events.GameUpdated,
		GameID:    fresh.ID,
		Name:      fresh.Name,
		Changes:   changes,
	}
}

// DiffGame computes the field-level change set between two versions of a game.
func DiffGame(prev, fresh *catalog.Game) *events.GameChanges {
	c := &events.GameChanges{
		PointsBefore:   prev.TotalPoints(),
		PointsAfter:    fresh.TotalPoints(),
		TierBefore:     prev.Tier(),
		TierAfter:      fresh.Tier(),
		CategoryBefore: prev.Category,
		CategoryAfter:  fresh.Category,
		NameBefore:     prev.Name,
		NameAfter:      fresh.Name,
	}

	for i := range fresh.Objectives {
		o := &fresh.Objectives[i]
		old := prev.Objective(o.ID)
		if old == nil {
			c.NewObjectives = append(c.NewObjectives, refOf(o))
			continue
		}
		if old.Equal(o) {
			continue
		}
		c.Objectives = append(c.Objectives, diffObjective(old, o))
	}
	for i := range prev.Objectives {
		o := &prev.Objectives[i]
		if fresh.Objective(o.ID) == nil {
			c.RemovedObjectives = append(c.RemovedObjectives, refOf(o))
		}
	}
	return c
}

func diffObjective(old, fresh *catalog.Objective) events.ObjectiveChange {
	return events.ObjectiveChange{
		ID:                  fresh.ID,
		Name:                fresh.Name,
		Points:              pointChange(old, fresh),
		OldPoints:           old.PointValue,
		NewPoints:           fresh.PointValue,
		TypeChanged:         old.Type != fresh.Type,
		NameChanged:         old.Name != fresh.Name,
		DescriptionChanged:  old.Description != fresh.Description,
		RequirementsChanged: !sameRequirements(old.Requirements, fresh.Requirements),
		AchievementsChanged: !catalog.SameSet(old.AchievementIDs, fresh.AchievementIDs),
		PartialChanged:      old.PartialPointValue != fresh.PartialPointValue,
	}
}

// pointChange picks the most specific description of a value change.
func pointChange(old, fresh *catalog.Objective) events.PointChange {
	switch {
	case old.PointValue == fresh.PointValue:
		return events.PointsUnchanged
	case old.Uncleared():
		return events.PointsRevealed
	case fresh.PointValue > old.PointValue:
		return events.PointsIncreased
	default:
		return events.PointsDecreased
	}
}

func sameRequirements(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func refOf(o *catalog.Objective) events.ObjectiveRef {
	return events.ObjectiveRef{ID: o.ID, Name: o.Name, Type: o.Type, PointValue: o.PointValue}
}
