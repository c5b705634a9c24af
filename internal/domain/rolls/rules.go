package rolls

import (
	"time"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

const (
	OneHellOfADay     = "One Hell of a Day"
	OneHellOfAWeek    = "One Hell of a Week"
	OneHellOfAMonth   = "One Hell of a Month"
	TwoWeekT2Streak   = "Two Week T2 Streak"
	TwoTwoWeekStreak  = `Two "Two Week T2 Streak" Streak`
	NeverLucky        = "Never Lucky"
	TripleThreat      = "Triple Threat"
	LetFateDecide     = "Let Fate Decide"
	FourwardThinking  = "Fourward Thinking"
	RussianRoulette   = "Russian Roulette"
	DestinyAlignment  = "Destiny Alignment"
	SoulMates         = "Soul Mates"
	TeamworkDreamWork = "Teamwork Makes the Dream Work"
	WinnerTakesAll    = "Winner Takes All"
	GameTheory        = "Game Theory"
)

const (
	day = 24 * time.Hour
	// month is the nominal month used for fractional-month penalties.
	month = 30 * day
)

type Kind int

const (
	Solo Kind = iota
	CoOp
	PvP
)

func (k Kind) String() string {
	switch k {
	case CoOp:
		return "co-op"
	case PvP:
		return "pvp"
	default:
		return "solo"
	}
}

// DuePolicy returns the deadline length of a stage (1-based). ok is false when the stage has no deadline.
type DuePolicy func(stage int) (d time.Duration, ok bool)

// CooldownPolicy returns the cooldown offset measured from the roll's init time.
type CooldownPolicy func(r *catalog.Roll, tier int) time.Duration

// Rule is the fixed behaviour of one roll event.
type Rule struct {
	Name  string
	Kind  Kind
	Games int
	// Stages is 1 for single-stage events. Multi-stage rolls hold one game per stage.
	Stages     int
	MaxRerolls int
	// MaxActive bounds simultaneously active instances: per pair for co-op and pvp,
	// per user for solo events and when PerUser is set.
	MaxActive int
	PerUser   bool
	// Split events hold [own assignment, partner assignment] on each side.
	Split            bool
	SymmetricFailure bool
	Due              DuePolicy
	Cooldown         CooldownPolicy
}

func (r *Rule) MultiStage() bool {
	return r.Stages > 1
}

func (r *Rule) Rerollable() bool {
	return r.MaxRerolls > 0
}

func noDeadline(int) (time.Duration, bool) {
	return 0, false
}

func fixedDue(days int) DuePolicy {
	return func(int) (time.Duration, bool) {
		return time.Duration(days) * day, true
	}
}

// weeksPerStage gives stage k a deadline of k weeks.
func weeksPerStage(stage int) (time.Duration, bool) {
	return time.Duration(stage) * 7 * day, true
}

func fixedCooldown(days int) CooldownPolicy {
	return func(*catalog.Roll, int) time.Duration {
		return time.Duration(days) * day
	}
}

// tierCooldown shortens the cooldown as the rolled game's tier increases.
func tierCooldown(byTier ...int) CooldownPolicy {
	return func(_ *catalog.Roll, tier int) time.Duration {
		switch {
		case tier <= 1:
			return time.Duration(byTier[0]) * day
		case tier > len(byTier):
			return time.Duration(byTier[len(byTier)-1]) * day
		default:
			return time.Duration(byTier[tier-1]) * day
		}
	}
}

const fourwardMaxRerolls = 3

// fourwardCooldown combines a week per completed stage with half a month per reroll used.
func fourwardCooldown(r *catalog.Roll, _ int) time.Duration {
	stages := len(r.Games)
	if r.Status != catalog.RollWon && stages > 0 {
		stages--
	}
	used := fourwardMaxRerolls - r.Rerolls
	if used < 0 {
		used = 0
	}
	return time.Duration(stages)*7*day + time.Duration(used)*(month/2)
}

var rules = map[string]*Rule{
	OneHellOfADay: {
		Name: OneHellOfADay, Kind: Solo, Games: 1, Stages: 1, MaxActive: 1,
		Due: fixedDue(1), Cooldown: fixedCooldown(14),
	},
	OneHellOfAWeek: {
		Name: OneHellOfAWeek, Kind: Solo, Games: 5, Stages: 1, MaxActive: 1,
		Due: fixedDue(7), Cooldown: fixedCooldown(28),
	},
	OneHellOfAMonth: {
		Name: OneHellOfAMonth, Kind: Solo, Games: 15, Stages: 1, MaxActive: 1,
		Due: fixedDue(28), Cooldown: fixedCooldown(28),
	},
	TwoWeekT2Streak: {
		Name: TwoWeekT2Streak, Kind: Solo, Games: 1, Stages: 2, MaxActive: 1,
		Due: fixedDue(7), Cooldown: fixedCooldown(14),
	},
	TwoTwoWeekStreak: {
		Name: TwoTwoWeekStreak, Kind: Solo, Games: 1, Stages: 4, MaxActive: 1,
		Due: fixedDue(7), Cooldown: fixedCooldown(28),
	},
	NeverLucky: {
		Name: NeverLucky, Kind: Solo, Games: 1, Stages: 1, MaxActive: 1,
		Due: noDeadline, Cooldown: fixedCooldown(0),
	},
	TripleThreat: {
		Name: TripleThreat, Kind: Solo, Games: 3, Stages: 1, MaxActive: 1,
		Due: fixedDue(28), Cooldown: fixedCooldown(28),
	},
	LetFateDecide: {
		Name: LetFateDecide, Kind: Solo, Games: 1, Stages: 1, MaxActive: 1,
		Due: noDeadline, Cooldown: tierCooldown(28, 21, 14, 10, 7),
	},
	FourwardThinking: {
		Name: FourwardThinking, Kind: Solo, Games: 1, Stages: 4, MaxRerolls: fourwardMaxRerolls, MaxActive: 1,
		Due: weeksPerStage, Cooldown: fourwardCooldown,
	},
	RussianRoulette: {
		Name: RussianRoulette, Kind: Solo, Games: 1, Stages: 1, MaxActive: 1,
		Due: fixedDue(7), Cooldown: fixedCooldown(7),
	},
	DestinyAlignment: {
		Name: DestinyAlignment, Kind: CoOp, Games: 2, Stages: 1, MaxActive: 1, Split: true,
		Due: noDeadline, Cooldown: fixedCooldown(28),
	},
	SoulMates: {
		Name: SoulMates, Kind: CoOp, Games: 1, Stages: 1, MaxActive: 5, PerUser: true, SymmetricFailure: true,
		Due: fixedDue(28), Cooldown: tierCooldown(28, 21, 14, 10, 7),
	},
	TeamworkDreamWork: {
		Name: TeamworkDreamWork, Kind: CoOp, Games: 4, Stages: 1, MaxActive: 1, SymmetricFailure: true,
		Due: fixedDue(28), Cooldown: fixedCooldown(28),
	},
	WinnerTakesAll: {
		Name: WinnerTakesAll, Kind: PvP, Games: 1, Stages: 1, MaxActive: 1, SymmetricFailure: true,
		Due: noDeadline, Cooldown: fixedCooldown(28),
	},
	GameTheory: {
		Name: GameTheory, Kind: PvP, Games: 2, Stages: 1, MaxActive: 1, Split: true, SymmetricFailure: true,
		Due: fixedDue(28), Cooldown: fixedCooldown(28),
	},
}

// Lookup returns the rule of an event.
func Lookup(name string) (*Rule, error) {
	rule, ok := rules[name]
	if !ok {
		return nil, &UnknownEventError{Event: name}
	}
	return rule, nil
}

// Events lists every event name.
func Events() []string {
	return []string{
		OneHellOfADay, OneHellOfAWeek, OneHellOfAMonth, TwoWeekT2Streak, TwoTwoWeekStreak,
		NeverLucky, TripleThreat, LetFateDecide, FourwardThinking, RussianRoulette,
		DestinyAlignment, SoulMates, TeamworkDreamWork, WinnerTakesAll, GameTheory,
	}
}

// CooldownEnd is the absolute end of the cooldown that follows a roll, anchored to its init time.
func CooldownEnd(rule *Rule, r *catalog.Roll, tier int) time.Time {
	return r.InitTime.Add(rule.Cooldown(r, tier))
}

// RollTier is the tier of the roll's first assigned game in the given snapshot set.
func RollTier(r *catalog.Roll, games catalog.Games) int {
	if len(r.Games) == 0 {
		return 0
	}
	if g := games.Lookup(r.Games[0]); g != nil {
		return g.Tier()
	}
	return 0
}
