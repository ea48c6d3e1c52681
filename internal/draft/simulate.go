package draft

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/advisor"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

const (
	DefaultSimulations = 10
	MaxSimulations     = 1000
)

// BatchOptions configures RunBatch
type BatchOptions struct {
	Simulations int
	// Concurrency caps simulations in flight; zero means one per CPU
	Concurrency int

	// Noise varies opponent picks; simulation i is seeded with Seed+i
	Noise bool
	Seed  int64

	Advisor          advisor.Advisor
	AdvisorBoardSize int

	// Board replaces the service's default board in Service.Simulate when set
	Board []models.TieredPlayer
}

// BatchResult holds every simulation in a batch and their aggregate summary
type BatchResult struct {
	ID          string                    `json:"id"`
	Settings    models.DraftSettings      `json:"settings"`
	Simulations []models.SimulationResult `json:"simulations"`
	Summary     Summary                   `json:"summary"`
	StartedAt   time.Time                 `json:"startedAt"`
	Duration    time.Duration             `json:"duration"`
}

// RunBatch plays opts.Simulations independent mock drafts and summarizes the user's rosters.
// Each simulation owns its session; they share nothing but the read-only input board.
func RunBatch(ctx context.Context, settings models.DraftSettings, players []models.TieredPlayer, opts BatchOptions) (*BatchResult, error) {
	settings, err := NormalizeSettings(settings)
	if err != nil {
		return nil, err
	}
	n := opts.Simulations
	if n <= 0 {
		n = DefaultSimulations
	}
	if n > MaxSimulations {
		return nil, fmt.Errorf("%w: %d simulations exceeds the limit of %d", ErrInvalidSettings, n, MaxSimulations)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	batch := &BatchResult{
		ID:        uuid.NewString(),
		Settings:  settings,
		StartedAt: time.Now(),
	}
	logger.Info("Starting simulation batch", "batch", batch.ID, "simulations", n, "concurrency", limit, "noise", opts.Noise)

	results := make([]models.SimulationResult, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := simulateOne(gctx, i+1, settings, players, opts)
			if err != nil {
				return fmt.Errorf("simulation %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch.Simulations = results
	batch.Summary = Summarize(results)
	batch.Duration = time.Since(batch.StartedAt)
	logger.Info("Simulation batch finished", "batch", batch.ID, "duration", batch.Duration,
		"early_k", batch.Summary.EarlyK, "early_dst", batch.Summary.EarlyDST)
	return batch, nil
}

func simulateOne(ctx context.Context, sim int, settings models.DraftSettings, players []models.TieredPlayer, opts BatchOptions) (models.SimulationResult, error) {
	sessOpts := Options{
		Advisor:          opts.Advisor,
		AdvisorBoardSize: opts.AdvisorBoardSize,
	}
	if opts.Noise {
		sessOpts.Noise = rand.New(rand.NewSource(opts.Seed + int64(sim)))
	}

	s, err := NewSession(models.ModeMock, settings, players, sessOpts)
	if err != nil {
		return models.SimulationResult{}, err
	}
	picks, err := s.RunToCompletion(ctx)
	if err != nil {
		return models.SimulationResult{}, err
	}
	return userResult(sim, s.UserTeam(), picks), nil
}

// userResult extracts the user's roster, picks and K/DST timing from a finished draft log
func userResult(sim, team int, picks []models.DraftLogEntry) models.SimulationResult {
	res := models.SimulationResult{Simulation: sim}
	for _, e := range picks {
		if e.Team != team {
			continue
		}
		res.Roster = append(res.Roster, e.Player)
		res.PickLog = append(res.PickLog, e)
		size := len(res.Roster)
		if e.Player.Position == models.K && res.RosterSizeWhenK == 0 {
			res.RosterSizeWhenK = size
		}
		if e.Player.Position == models.DST && res.RosterSizeWhenDST == 0 {
			res.RosterSizeWhenDST = size
		}
		if e.CapacityWarning != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("pick %d: %s", e.Pick, e.CapacityWarning))
		}
	}
	return res
}
