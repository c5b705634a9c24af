package rolls

import "github.com/ce-community/cebot/internal/domain/catalog"

// Completions is the set of game ids a user has completed.
type Completions map[string]bool

// Input is what a win predicate sees: the roll, both sides' completions and the post-pass games.
type Input struct {
	Roll    *catalog.Roll
	Owner   Completions
	Partner Completions
	Games   catalog.Games
}

// Verdict is the outcome of evaluating a roll. PartnerWon is only set for pvp events.
type Verdict struct {
	Won        bool
	PartnerWon bool
}

// Evaluate applies the event's win predicate.
func Evaluate(rule *Rule, in Input) (Verdict, error) {
	switch rule.Name {
	case OneHellOfADay, OneHellOfAWeek, TripleThreat:
		return Verdict{Won: allCompleted(in.Owner, in.Roll.Games)}, nil
	case OneHellOfAMonth:
		return Verdict{Won: monthSatisfied(in)}, nil
	case TwoWeekT2Streak, TwoTwoWeekStreak, FourwardThinking:
		return Verdict{Won: in.Owner[currentStageGame(in.Roll)]}, nil
	case NeverLucky, LetFateDecide, RussianRoulette:
		return Verdict{Won: in.Owner[assigned(in.Roll, 0)]}, nil
	case DestinyAlignment:
		return Verdict{Won: in.Owner[assigned(in.Roll, 0)] && in.Partner[assigned(in.Roll, 1)]}, nil
	case SoulMates:
		g := assigned(in.Roll, 0)
		return Verdict{Won: in.Owner[g] && in.Partner[g]}, nil
	case TeamworkDreamWork:
		return Verdict{Won: teamworkSatisfied(in)}, nil
	case WinnerTakesAll:
		g := assigned(in.Roll, 0)
		return pvp(rule, in, in.Owner[g], in.Partner[g])
	case GameTheory:
		return pvp(rule, in, in.Owner[assigned(in.Roll, 0)], in.Partner[assigned(in.Roll, 1)])
	default:
		return Verdict{}, &UnknownEventError{Event: rule.Name, UserID: in.Roll.UserID}
	}
}

func pvp(rule *Rule, in Input, own, partner bool) (Verdict, error) {
	if own && partner {
		return Verdict{}, &AmbiguousOutcomeError{Event: rule.Name, UserID: in.Roll.UserID, PartnerID: in.Roll.PartnerID}
	}
	return Verdict{Won: own, PartnerWon: partner}, nil
}

func assigned(r *catalog.Roll, i int) string {
	if i >= len(r.Games) {
		return ""
	}
	return r.Games[i]
}

// currentStageGame is the game of the stage being played, always the last one assigned.
func currentStageGame(r *catalog.Roll) string {
	return assigned(r, len(r.Games)-1)
}

func allCompleted(done Completions, games []string) bool {
	if len(games) == 0 {
		return false
	}
	for _, id := range games {
		if !done[id] {
			return false
		}
	}
	return true
}

const (
	monthCategories       = 5
	monthGamesPerCategory = 3
)

// monthSatisfied needs enough categories each holding enough completed assigned games.
func monthSatisfied(in Input) bool {
	perCategory := make(map[catalog.Category]int)
	for _, id := range in.Roll.Games {
		if !in.Owner[id] {
			continue
		}
		if g := in.Games.Lookup(id); g != nil {
			perCategory[g.Category]++
		}
	}
	full := 0
	for _, n := range perCategory {
		if n >= monthGamesPerCategory {
			full++
		}
	}
	return full >= monthCategories
}

func teamworkSatisfied(in Input) bool {
	if len(in.Roll.Games) == 0 {
		return false
	}
	for _, id := range in.Roll.Games {
		if !in.Owner[id] && !in.Partner[id] {
			return false
		}
	}
	return true
}
