package rankings

import (
	"errors"
	"fmt"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// ErrInvalidPlayers is returned when a roster, pool or count map sent to the
// engine holds an unknown position, a missing name or a negative number.
var ErrInvalidPlayers = errors.New("invalid players")

// ValidateRoster normalizes roster positions ("qb" becomes QB) and rejects
// anything outside the six known positions.
func ValidateRoster(roster []models.Player) ([]models.Player, error) {
	out := make([]models.Player, 0, len(roster))
	for i, p := range roster {
		pos, err := models.ParsePosition(string(p.Position))
		if err != nil {
			return nil, fmt.Errorf("%w: roster[%d]: %v", ErrInvalidPlayers, i, err)
		}
		p.Position = pos
		out = append(out, p)
	}
	return out, nil
}

// ValidatePool checks an available pool. Every player needs a known position,
// a name and a tier of zero or more. Missing ids are filled from name and team.
func ValidatePool(pool []models.TieredPlayer) ([]models.TieredPlayer, error) {
	out := make([]models.TieredPlayer, 0, len(pool))
	for i, p := range pool {
		pos, err := models.ParsePosition(string(p.Position))
		if err != nil {
			return nil, fmt.Errorf("%w: available[%d]: %v", ErrInvalidPlayers, i, err)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("%w: available[%d]: name is required", ErrInvalidPlayers, i)
		}
		if p.Tier < 0 {
			return nil, fmt.Errorf("%w: available[%d]: tier cannot be negative", ErrInvalidPlayers, i)
		}
		p.Position = pos
		if p.ID == "" {
			p.ID = PlayerID(p.Name, p.Team)
		}
		out = append(out, p)
	}
	return out, nil
}

// ValidateCounts normalizes position keys and rejects negative counts. Keys
// differing only in case are summed.
func ValidateCounts(counts models.PositionCounts) (models.PositionCounts, error) {
	out := models.PositionCounts{models.QB: 0, models.RB: 0, models.WR: 0, models.TE: 0, models.K: 0, models.DST: 0}
	for key, n := range counts {
		pos, err := models.ParsePosition(string(key))
		if err != nil {
			return nil, fmt.Errorf("%w: counts: %v", ErrInvalidPlayers, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: counts[%s] cannot be negative", ErrInvalidPlayers, pos)
		}
		out[pos] += n
	}
	return out, nil
}
