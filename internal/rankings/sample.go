package rankings

import (
	"fmt"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

type sampleBucket struct {
	tier  int
	pos   models.Position
	count int
}

// Representative board shape: skill players in tiers 1-15, kickers in 16, defenses in 17
var sampleBuckets = []sampleBucket{
	{1, models.RB, 6}, {1, models.WR, 6}, {1, models.QB, 2}, {1, models.TE, 2},
	{2, models.RB, 8}, {2, models.WR, 8}, {2, models.TE, 2}, {2, models.QB, 2},
	{3, models.WR, 10}, {3, models.RB, 8}, {3, models.TE, 2},
	{4, models.WR, 10}, {4, models.RB, 8}, {4, models.QB, 4},
	{5, models.RB, 10}, {5, models.WR, 10}, {5, models.TE, 4},
	{6, models.RB, 10}, {6, models.WR, 10}, {6, models.QB, 4},
	{7, models.WR, 10}, {7, models.RB, 10}, {7, models.TE, 4},
	{8, models.WR, 8}, {8, models.RB, 8},
	{9, models.WR, 8}, {9, models.RB, 8}, {9, models.QB, 4},
	{10, models.WR, 8}, {10, models.RB, 8}, {10, models.TE, 4},
	{11, models.WR, 6}, {11, models.RB, 6},
	{12, models.WR, 6}, {12, models.RB, 6},
	{13, models.WR, 4}, {13, models.RB, 4},
	{14, models.WR, 4}, {14, models.RB, 4},
	{15, models.WR, 4}, {15, models.RB, 4},
	{16, models.K, 14},
	{17, models.DST, 14},
}

// SampleBoard returns a generated board large enough for a 12 team, 16 round draft
func SampleBoard() []models.TieredPlayer {
	var players []models.TieredPlayer
	rank := 1
	for _, b := range sampleBuckets {
		for i := 0; i < b.count; i++ {
			name := fmt.Sprintf("%s%d-%d", b.pos, b.tier, i)
			team := fmt.Sprintf("T%02d", (rank-1)%32+1)
			players = append(players, models.TieredPlayer{
				Player: models.Player{ID: PlayerID(name, team), Name: name, Position: b.pos, Team: team},
				Tier:   b.tier,
				Rank:   rank,
			})
			rank++
		}
	}
	SortBoard(players)
	return players
}
