package events

import "github.com/ce-community/cebot/internal/domain/catalog"

// PointChange is the most specific description of an objective's value change.
type PointChange string

const (
	PointsUnchanged PointChange = ""
	PointsRevealed  PointChange = "revealed"
	PointsIncreased PointChange = "increased"
	PointsDecreased PointChange = "decreased"
)

type ObjectiveRef struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Type       catalog.ObjectiveType `json:"type"`
	PointValue int                   `json:"point_value"`
}

type ObjectiveChange struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Points              PointChange `json:"points,omitempty"`
	OldPoints           int         `json:"old_points"`
	NewPoints           int         `json:"new_points"`
	TypeChanged         bool        `json:"type_changed,omitempty"`
	NameChanged         bool        `json:"name_changed,omitempty"`
	DescriptionChanged  bool        `json:"description_changed,omitempty"`
	RequirementsChanged bool        `json:"requirements_changed,omitempty"`
	AchievementsChanged bool        `json:"achievements_changed,omitempty"`
	PartialChanged      bool        `json:"partial_changed,omitempty"`
}

// Empty reports whether nothing visible changed.
func (c *ObjectiveChange) Empty() bool {
	return c.Points == PointsUnchanged &&
		!c.TypeChanged &&
		!c.NameChanged &&
		!c.DescriptionChanged &&
		!c.RequirementsChanged &&
		!c.AchievementsChanged &&
		!c.PartialChanged
}

// GameChanges is the field-level change set of an updated game.
type GameChanges struct {
	PointsBefore      int               `json:"points_before"`
	PointsAfter       int               `json:"points_after"`
	TierBefore        int               `json:"tier_before"`
	TierAfter         int               `json:"tier_after"`
	CategoryBefore    catalog.Category  `json:"category_before,omitempty"`
	CategoryAfter     catalog.Category  `json:"category_after,omitempty"`
	NameBefore        string            `json:"name_before,omitempty"`
	NameAfter         string            `json:"name_after,omitempty"`
	NewObjectives     []ObjectiveRef    `json:"new_objectives,omitempty"`
	RemovedObjectives []ObjectiveRef    `json:"removed_objectives,omitempty"`
	Objectives        []ObjectiveChange `json:"objectives,omitempty"`
}

func (c *GameChanges) PointsChanged() bool {
	return c.PointsBefore != c.PointsAfter
}

func (c *GameChanges) CategoryChanged() bool {
	return c.CategoryBefore != c.CategoryAfter
}

func (c *GameChanges) NameChanged() bool {
	return c.NameBefore != c.NameAfter
}

// Empty is true for a ghost update: a newer timestamp with nothing to report.
func (c *GameChanges) Empty() bool {
	if c.PointsChanged() || c.CategoryChanged() || c.NameChanged() {
		return false
	}
	if len(c.NewObjectives) > 0 || len(c.RemovedObjectives) > 0 {
		return false
	}
	for i := range c.Objectives {
		if !c.Objectives[i].Empty() {
			return false
		}
	}
	return true
}
