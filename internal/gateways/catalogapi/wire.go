package catalogapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

type wireObjective struct {
	ID                string   `json:"id"`
	GameID            string   `json:"gameId"`
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	PointValue        int      `json:"pointValue"`
	PartialPointValue int      `json:"partialPointValue"`
	Requirements      *string  `json:"requirements"`
	AchievementIDs    []string `json:"achievementIds"`
	UpdatedAt         string   `json:"updatedAt"`
}

type wireGame struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Platform   string          `json:"platform"`
	PlatformID string          `json:"platformId"`
	Category   string          `json:"category"`
	UpdatedAt  string          `json:"updatedAt"`
	Objectives []wireObjective `json:"objectives"`
}

type wireUserObjective struct {
	ObjectiveID string `json:"objectiveId"`
	Type        string `json:"type"`
	UserPoints  int    `json:"userPoints"`
}

type wireOwnedGame struct {
	GameID     string              `json:"gameId"`
	Objectives []wireUserObjective `json:"objectives"`
}

type wireUser struct {
	ID            string          `json:"id"`
	DisplayName   string          `json:"displayName"`
	DiscordHandle string          `json:"discordHandle"`
	UpdatedAt     string          `json:"updatedAt"`
	OwnedGames    []wireOwnedGame `json:"ownedGames"`
}

type idOnly struct {
	ID string `json:"id"`
}

// recordID recovers the id of a record that failed to decode, if possible.
func recordID(raw json.RawMessage) string {
	var rec idOnly
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ""
	}
	return rec.ID
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func toGame(raw json.RawMessage) (*catalog.Game, error) {
	var w wireGame
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &catalog.MalformedRecordError{Kind: "game", ID: recordID(raw), Err: err}
	}
	malformed := func(err error) error {
		return &catalog.MalformedRecordError{Kind: "game", ID: w.ID, Err: err}
	}

	updated, err := parseTime(w.UpdatedAt)
	if err != nil {
		return nil, malformed(fmt.Errorf("updatedAt: %w", err))
	}
	g := &catalog.Game{
		ID:         w.ID,
		Name:       w.Name,
		Platform:   catalog.Platform(w.Platform),
		PlatformID: w.PlatformID,
		Category:   catalog.Category(w.Category),
		UpdatedAt:  updated,
		Objectives: make([]catalog.Objective, 0, len(w.Objectives)),
	}
	for _, wo := range w.Objectives {
		typ := catalog.ObjectiveType(wo.Type)
		switch typ {
		case catalog.ObjectivePrimary, catalog.ObjectiveSecondary, catalog.ObjectiveBadge, catalog.ObjectiveCommunity:
		default:
			return nil, malformed(fmt.Errorf("objective %s has unknown type %q", wo.ID, wo.Type))
		}
		ou, err := parseTime(wo.UpdatedAt)
		if err != nil {
			return nil, malformed(fmt.Errorf("objective %s updatedAt: %w", wo.ID, err))
		}
		gameID := wo.GameID
		if gameID == "" {
			gameID = w.ID
		}
		g.Objectives = append(g.Objectives, catalog.Objective{
			ID:                wo.ID,
			GameID:            gameID,
			Type:              typ,
			Name:              wo.Name,
			Description:       wo.Description,
			PointValue:        wo.PointValue,
			PartialPointValue: wo.PartialPointValue,
			Requirements:      wo.Requirements,
			AchievementIDs:    wo.AchievementIDs,
			UpdatedAt:         ou,
		})
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Normalize()
	return g, nil
}

func toUser(raw json.RawMessage) (*catalog.User, error) {
	var w wireUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &catalog.MalformedRecordError{Kind: "user", ID: recordID(raw), Err: err}
	}
	updated, err := parseTime(w.UpdatedAt)
	if err != nil {
		return nil, &catalog.MalformedRecordError{Kind: "user", ID: w.ID, Err: fmt.Errorf("updatedAt: %w", err)}
	}

	u := catalog.NewUser(w.ID)
	u.DisplayName = w.DisplayName
	u.DiscordHandle = w.DiscordHandle
	u.LastUpdated = updated
	for _, og := range w.OwnedGames {
		if og.GameID == "" {
			return nil, &catalog.MalformedRecordError{Kind: "user", ID: w.ID, Err: errors.New("owned game without id")}
		}
		ug := catalog.UserGame{GameID: og.GameID}
		for _, o := range og.Objectives {
			ug.Objectives = append(ug.Objectives, catalog.UserObjective{
				ObjectiveID: o.ObjectiveID,
				GameID:      og.GameID,
				Type:        catalog.ObjectiveType(o.Type),
				UserPoints:  o.UserPoints,
			})
		}
		u.OwnedGames[og.GameID] = ug
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}
