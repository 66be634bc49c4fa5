package user

import "math"

// MaxLevelRank is returned as the next rank once the top tier is reached.
const MaxLevelRank = "Max Level"

// Tier is one row of the XP level table.
type Tier struct {
	Level int    `json:"level"`
	MinXP int    `json:"minXP"`
	MaxXP int    `json:"maxXP"`
	Rank  string `json:"rank"`
	Color string `json:"color"`
}

// Tiers holds the XP thresholds, in strictly ascending MinXP order.
// The top tier is open-ended: any XP beyond its MaxXP stays on it.
var Tiers = []Tier{
	{Level: 1, MinXP: 0, MaxXP: 50, Rank: "🌱 Seedling", Color: "#90EE90"},
	{Level: 2, MinXP: 50, MaxXP: 100, Rank: "🌿 Sprout", Color: "#32CD32"},
	{Level: 3, MinXP: 100, MaxXP: 200, Rank: "🌳 Sapling", Color: "#228B22"},
	{Level: 4, MinXP: 200, MaxXP: 350, Rank: "🌲 Tree", Color: "#006400"},
	{Level: 5, MinXP: 350, MaxXP: 550, Rank: "🏞️ Forest Guardian", Color: "#8B4513"},
	{Level: 6, MinXP: 550, MaxXP: 800, Rank: "🌍 Eco Warrior", Color: "#4169E1"},
	{Level: 7, MinXP: 800, MaxXP: 1200, Rank: "🌟 Planet Protector", Color: "#FFD700"},
}

// Level describes a user's position on the XP ladder.
type Level struct {
	CurrentLevel      int    `json:"currentLevel"`
	CurrentRank       string `json:"currentRank"`
	CurrentLevelColor string `json:"currentLevelColor"`
	CurrentLevelXP    int    `json:"currentLevelXP"`
	NextLevelXP       int    `json:"nextLevelXP"`
	ProgressPercent   int    `json:"progressPercent"`
	XPToNextLevel     int    `json:"xpToNextLevel"`
	NextRank          string `json:"nextRank"`
	TotalXP           int    `json:"totalXP"`
}

// LevelInfo maps an XP value to its Level. Pure; negative XP counts as 0.
// A tier boundary is inclusive on MinXP: xp=50 is already level 2.
func LevelInfo(xp int) Level {
	if xp < 0 {
		xp = 0
	}

	// scan from the top down; first tier whose MinXP is reached wins
	tier := Tiers[0]
	for i := len(Tiers) - 1; i >= 0; i-- {
		if xp >= Tiers[i].MinXP {
			tier = Tiers[i]
			break
		}
	}

	currentLevelXP := xp - tier.MinXP
	nextLevelXP := tier.MaxXP - tier.MinXP
	progress := int(math.Round(float64(currentLevelXP) / float64(nextLevelXP) * 100))

	xpToNextLevel := 0
	nextRank := MaxLevelRank
	if tier.Level < len(Tiers) {
		next := Tiers[tier.Level] // tiers are 1-based; Tiers[tier.Level] is the next one
		xpToNextLevel = next.MinXP - xp
		nextRank = next.Rank
	} else if progress > 100 {
		// open-ended top tier: XP past MaxXP must not report >100%
		progress = 100
	}

	return Level{
		CurrentLevel:      tier.Level,
		CurrentRank:       tier.Rank,
		CurrentLevelColor: tier.Color,
		CurrentLevelXP:    currentLevelXP,
		NextLevelXP:       nextLevelXP,
		ProgressPercent:   progress,
		XPToNextLevel:     xpToNextLevel,
		NextRank:          nextRank,
		TotalXP:           xp,
	}
}

// LevelForXP returns only the level number; used to refresh User.Level
// whenever XP is persisted.
func LevelForXP(xp int) int {
	return LevelInfo(xp).CurrentLevel
}
