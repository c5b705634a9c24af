package rolls

import (
	"sort"
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

// Summary is one entry of a user's roll log with its derived timestamps.
type Summary struct {
	catalog.Roll
	Kind        string     `json:"kind"`
	Stage       int        `json:"stage"`
	CooldownEnd *time.Time `json:"cooldown_end,omitempty"`
	OnCooldown  bool       `json:"on_cooldown"`
}

// Summarize lists the user's rolls newest first. Terminal rolls carry their cooldown end.
// Rolls of unknown events are listed without derived fields.
func Summarize(u *catalog.User, games catalog.Games, now time.Time) []Summary {
	out := make([]Summary, 0, len(u.Rolls))
	for i := range u.Rolls {
		r := u.Rolls[i].Clone()
		s := Summary{Roll: r, Stage: Stage(&r)}
		if rule, err := Lookup(r.EventName); err == nil {
			s.Kind = rule.Kind.String()
			if r.Status.Terminal() {
				end := CooldownEnd(rule, &r, RollTier(&r, games))
				s.CooldownEnd = &end
				s.OnCooldown = now.Before(end)
			}
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InitTime.After(out[j].InitTime)
	})
	return out
}
