package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_LevelInfo(t *testing.T) {
	tests := []struct {
		name string
		xp   int
		want Level
	}{
		{
			name: "zero xp starts as Seedling",
			xp:   0,
			want: Level{
				CurrentLevel:      1,
				CurrentRank:       "🌱 Seedling",
				CurrentLevelColor: "#90EE90",
				CurrentLevelXP:    0,
				NextLevelXP:       50,
				ProgressPercent:   0,
				XPToNextLevel:     50,
				NextRank:          "🌿 Sprout",
				TotalXP:           0,
			},
		},
		{
			name: "negative xp counts as zero",
			xp:   -10,
			want: LevelInfo(0),
		},
		{
			name: "tier boundary is inclusive",
			xp:   50,
			want: Level{
				CurrentLevel:      2,
				CurrentRank:       "🌿 Sprout",
				CurrentLevelColor: "#32CD32",
				CurrentLevelXP:    0,
				NextLevelXP:       50,
				ProgressPercent:   0,
				XPToNextLevel:     50,
				NextRank:          "🌳 Sapling",
				TotalXP:           50,
			},
		},
		{
			name: "just below a boundary",
			xp:   49,
			want: Level{
				CurrentLevel:      1,
				CurrentRank:       "🌱 Seedling",
				CurrentLevelColor: "#90EE90",
				CurrentLevelXP:    49,
				NextLevelXP:       50,
				ProgressPercent:   98,
				XPToNextLevel:     1,
				NextRank:          "🌿 Sprout",
				TotalXP:           49,
			},
		},
		{
			name: "mid tier progress is rounded",
			xp:   125,
			want: Level{
				CurrentLevel:      3,
				CurrentRank:       "🌳 Sapling",
				CurrentLevelColor: "#228B22",
				CurrentLevelXP:    25,
				NextLevelXP:       100,
				ProgressPercent:   25,
				XPToNextLevel:     75,
				NextRank:          "🌲 Tree",
				TotalXP:           125,
			},
		},
		{
			name: "top tier ceiling",
			xp:   1200,
			want: Level{
				CurrentLevel:      7,
				CurrentRank:       "🌟 Planet Protector",
				CurrentLevelColor: "#FFD700",
				CurrentLevelXP:    400,
				NextLevelXP:       400,
				ProgressPercent:   100,
				XPToNextLevel:     0,
				NextRank:          MaxLevelRank,
				TotalXP:           1200,
			},
		},
		{
			name: "xp beyond the top tier clamps progress",
			xp:   5000,
			want: Level{
				CurrentLevel:      7,
				CurrentRank:       "🌟 Planet Protector",
				CurrentLevelColor: "#FFD700",
				CurrentLevelXP:    4200,
				NextLevelXP:       400,
				ProgressPercent:   100,
				XPToNextLevel:     0,
				NextRank:          MaxLevelRank,
				TotalXP:           5000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelInfo(tt.xp))
		})
	}
}

func Test_LevelForXP_monotonic(t *testing.T) {
	prev := LevelForXP(0)
	for xp := 1; xp <= 1500; xp++ {
		lvl := LevelForXP(xp)
		if lvl < prev {
			t.Fatalf("level dropped from %d to %d at xp=%d", prev, lvl, xp)
		}
		prev = lvl
	}
	assert.Equal(t, len(Tiers), prev)
}
