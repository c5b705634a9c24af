package catalog

// Games is a snapshot set keyed by game id.
type Games map[string]*Game

// Lookup returns the game or nil.
func (gs Games) Lookup(id string) *Game {
	return gs[id]
}

// Clone copies the map, sharing the game values.
func (gs Games) Clone() Games {
	out := make(Games, len(gs))
	for id, g := range gs {
		out[id] = g
	}
	return out
}

// Completed reports whether the owned game is fully completed against the given definition.
func Completed(ug UserGame, g *Game) bool {
	if g == nil || g.Tier() == 0 {
		return false
	}
	return ug.PrimaryPoints() == g.PrimaryPoints()
}

// CompletedGames returns the ids of the owned games completed against the given snapshot set.
func CompletedGames(owned map[string]UserGame, games Games) map[string]bool {
	done := make(map[string]bool)
	for id, ug := range owned {
		if Completed(ug, games[id]) {
			done[id] = true
		}
	}
	return done
}

// Aggregates holds the user's points across completed games per bucket.
type Aggregates struct {
	ByCategory map[Category]int
	ByTier     map[int]int
}

// Aggregate sums the user's points-in-game across completed games by category and tier.
func Aggregate(owned map[string]UserGame, games Games) Aggregates {
	agg := Aggregates{
		ByCategory: make(map[Category]int),
		ByTier:     make(map[int]int),
	}
	for id, ug := range owned {
		g := games[id]
		if !Completed(ug, g) {
			continue
		}
		points := ug.PrimaryPoints()
		agg.ByCategory[g.Category] += points
		agg.ByTier[g.Tier()] += points
	}
	return agg
}
