package catalog

// tierFloors holds the minimum total points of tiers 1 through 7.
var tierFloors = [...]int{1, 40, 80, 160, 400, 1000, 2000}

// MaxTier is the highest tier band.
const MaxTier = len(tierFloors)

// TierFor maps a game's total points to its tier band.
func TierFor(points int) int {
	tier := 0
	for i, floor := range tierFloors {
		if points >= floor {
			tier = i + 1
		}
	}
	return tier
}

type Rank string

const (
	RankE   Rank = "E"
	RankD   Rank = "D"
	RankC   Rank = "C"
	RankB   Rank = "B"
	RankA   Rank = "A"
	RankS   Rank = "S"
	RankSS  Rank = "SS"
	RankSSS Rank = "SSS"
	RankEX  Rank = "EX"
)

var rankBands = []struct {
	rank  Rank
	floor int
}{
	{RankE, 0},
	{RankD, 50},
	{RankC, 250},
	{RankB, 500},
	{RankA, 1000},
	{RankS, 2500},
	{RankSS, 5000},
	{RankSSS, 7500},
	{RankEX, 10000},
}

// RankFor maps a user's total points to a rank band.
func RankFor(points int) Rank {
	rank := RankE
	for _, band := range rankBands {
		if points >= band.floor {
			rank = band.rank
		}
	}
	return rank
}

// Index orders ranks from E (0) to EX (8). Unknown ranks sort below E.
func (r Rank) Index() int {
	for i, band := range rankBands {
		if band.rank == r {
			return i
		}
	}
	return -1
}
