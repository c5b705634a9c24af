package catalog

import (
	"slices"
	"time"
)

type Platform string

const (
	PlatformSteam             Platform = "steam"
	PlatformRetroAchievements Platform = "retroachievements"
)

type Category string

const (
	CategoryAction      Category = "Action"
	CategoryArcade      Category = "Arcade"
	CategoryBulletHell  Category = "Bullet Hell"
	CategoryFirstPerson Category = "First-Person"
	CategoryPlatformer  Category = "Platformer"
	CategoryStrategy    Category = "Strategy"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAction,
	CategoryArcade,
	CategoryBulletHell,
	CategoryFirstPerson,
	CategoryPlatformer,
	CategoryStrategy,
}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

type ObjectiveType string

const (
	ObjectivePrimary   ObjectiveType = "Primary"
	ObjectiveSecondary ObjectiveType = "Secondary"
	ObjectiveBadge     ObjectiveType = "Badge"
	ObjectiveCommunity ObjectiveType = "Community"
)

// Counts reports whether objectives of this type contribute to a game's point total.
func (t ObjectiveType) Counts() bool {
	return t == ObjectivePrimary || t == ObjectiveSecondary
}

// UnclearedPoints marks an objective whose real value has not been assigned yet.
const UnclearedPoints = 1

type Objective struct {
	ID                string        `json:"id"`
	GameID            string        `json:"game_id"`
	Type              ObjectiveType `json:"type"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	PointValue        int           `json:"point_value"`
	PartialPointValue int           `json:"partial_point_value"`
	Requirements      *string       `json:"requirements,omitempty"`
	AchievementIDs    []string      `json:"achievement_ids,omitempty"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Uncleared reports whether the objective still carries the placeholder value.
func (o *Objective) Uncleared() bool {
	return o.PointValue == UnclearedPoints
}

// Equal compares every field except identity, owning game and update time.
func (o *Objective) Equal(other *Objective) bool {
	if o.Type != other.Type ||
		o.Name != other.Name ||
		o.Description != other.Description ||
		o.PointValue != other.PointValue ||
		o.PartialPointValue != other.PartialPointValue {
		return false
	}
	if !equalOptional(o.Requirements, other.Requirements) {
		return false
	}
	return SameSet(o.AchievementIDs, other.AchievementIDs)
}

type Game struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Platform    Platform    `json:"platform"`
	PlatformID  string      `json:"platform_id"`
	Category    Category    `json:"category"`
	Objectives  []Objective `json:"objectives"`
	UpdatedAt   time.Time   `json:"updated_at"`
	LastUpdated time.Time   `json:"last_updated"`
}

// TotalPoints sums Primary and Secondary objective values.
func (g *Game) TotalPoints() int {
	total := 0
	for i := range g.Objectives {
		if g.Objectives[i].Type.Counts() {
			total += g.Objectives[i].PointValue
		}
	}
	return total
}

// PrimaryPoints sums Primary objective values, the target a user must match to complete the game.
func (g *Game) PrimaryPoints() int {
	total := 0
	for i := range g.Objectives {
		if g.Objectives[i].Type == ObjectivePrimary {
			total += g.Objectives[i].PointValue
		}
	}
	return total
}

func (g *Game) Tier() int {
	return TierFor(g.TotalPoints())
}

func (g *Game) Objective(id string) *Objective {
	for i := range g.Objectives {
		if g.Objectives[i].ID == id {
			return &g.Objectives[i]
		}
	}
	return nil
}

// CountObjectives returns the number of objectives per type.
func (g *Game) CountObjectives() map[ObjectiveType]int {
	counts := make(map[ObjectiveType]int, 4)
	for i := range g.Objectives {
		counts[g.Objectives[i].Type]++
	}
	return counts
}

// Watermark is the newest update time across the game and its objectives.
func (g *Game) Watermark() time.Time {
	mark := g.UpdatedAt
	for i := range g.Objectives {
		if g.Objectives[i].UpdatedAt.After(mark) {
			mark = g.Objectives[i].UpdatedAt
		}
	}
	return mark
}

// Normalize stamps LastUpdated and the owning game id on every objective.
// LastUpdated is kept at millisecond precision so it survives a round trip through BSON.
func (g *Game) Normalize() {
	for i := range g.Objectives {
		g.Objectives[i].GameID = g.ID
	}
	g.LastUpdated = g.Watermark().Truncate(time.Millisecond)
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Objectives = make([]Objective, len(g.Objectives))
	for i, o := range g.Objectives {
		if o.Requirements != nil {
			req := *o.Requirements
			o.Requirements = &req
		}
		o.AchievementIDs = slices.Clone(o.AchievementIDs)
		c.Objectives[i] = o
	}
	return &c
}

type UserObjective struct {
	ObjectiveID string        `json:"objective_id"`
	GameID      string        `json:"game_id"`
	Type        ObjectiveType `json:"type"`
	UserPoints  int           `json:"user_points"`
}

type UserGame struct {
	GameID     string          `json:"game_id"`
	Objectives []UserObjective `json:"objectives"`
}

// PrimaryPoints is the user's points in the game used for completion comparisons.
func (ug *UserGame) PrimaryPoints() int {
	total := 0
	for _, o := range ug.Objectives {
		if o.Type == ObjectivePrimary {
			total += o.UserPoints
		}
	}
	return total
}

// Points counts Primary and Secondary points toward the user's total.
func (ug *UserGame) Points() int {
	total := 0
	for _, o := range ug.Objectives {
		if o.Type.Counts() {
			total += o.UserPoints
		}
	}
	return total
}

type User struct {
	ID            string              `json:"id"`
	DisplayName   string              `json:"display_name"`
	DiscordHandle string              `json:"discord_handle"`
	Rank          Rank                `json:"rank"`
	OwnedGames    map[string]UserGame `json:"owned_games"`
	Rolls         []Roll              `json:"rolls"`
	LastUpdated   time.Time           `json:"last_updated"`
}

func NewUser(id string) *User {
	return &User{
		ID:         id,
		Rank:       RankE,
		OwnedGames: make(map[string]UserGame),
	}
}

func (u *User) TotalPoints() int {
	total := 0
	for _, ug := range u.OwnedGames {
		total += ug.Points()
	}
	return total
}

// ActivePartners lists partner ids of co-op and pvp rolls that are not terminal.
func (u *User) ActivePartners() []string {
	var ids []string
	for i := range u.Rolls {
		r := &u.Rolls[i]
		if r.PartnerID != "" && r.Status.Active() && !slices.Contains(ids, r.PartnerID) {
			ids = append(ids, r.PartnerID)
		}
	}
	return ids
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.OwnedGames = make(map[string]UserGame, len(u.OwnedGames))
	for id, ug := range u.OwnedGames {
		ug.Objectives = slices.Clone(ug.Objectives)
		c.OwnedGames[id] = ug
	}
	c.Rolls = make([]Roll, len(u.Rolls))
	for i := range u.Rolls {
		c.Rolls[i] = u.Rolls[i].Clone()
	}
	return &c
}

type RollStatus string

const (
	RollPending RollStatus = "pending"
	RollCurrent RollStatus = "current"
	RollWaiting RollStatus = "waiting"
	RollWon     RollStatus = "won"
	RollFailed  RollStatus = "failed"
)

// Active reports whether the roll still occupies an event slot.
func (s RollStatus) Active() bool {
	return s == RollPending || s == RollCurrent || s == RollWaiting
}

func (s RollStatus) Terminal() bool {
	return s == RollWon || s == RollFailed
}

type Roll struct {
	EventName     string     `json:"event_name"`
	UserID        string     `json:"user_id"`
	PartnerID     string     `json:"partner_id,omitempty"`
	Games         []string   `json:"games"`
	InitTime      time.Time  `json:"init_time"`
	DueTime       *time.Time `json:"due_time,omitempty"`
	CompletedTime *time.Time `json:"completed_time,omitempty"`
	Rerolls       int        `json:"rerolls"`
	Winner        *bool      `json:"winner,omitempty"`
	Status        RollStatus `json:"status"`
}

func (r *Roll) Clone() Roll {
	c := *r
	c.Games = slices.Clone(r.Games)
	if r.DueTime != nil {
		t := *r.DueTime
		c.DueTime = &t
	}
	if r.CompletedTime != nil {
		t := *r.CompletedTime
		c.CompletedTime = &t
	}
	if r.Winner != nil {
		w := *r.Winner
		c.Winner = &w
	}
	return c
}

// SameSet reports whether a and b hold the same distinct elements.
func SameSet(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			return false
		}
		other[v] = struct{}{}
	}
	return len(seen) == len(other)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
