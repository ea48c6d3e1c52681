package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/config"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/mocks"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

type runOptions struct {
	leagueFile   string
	rankingsFile string

	leagueSize   int
	pickPosition int
	rounds       int
	format       string

	simulations int
	noise       bool
	seed        int64
	concurrency int
	asJSON      bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch of automated mock drafts and summarize your rosters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.leagueFile, "league", "", "league TOML file with [league] and [simulation] tables")
	f.StringVar(&opts.rankingsFile, "rankings", "", "JSON rankings board (default: built-in sample board)")
	f.IntVar(&opts.leagueSize, "league-size", 0, "teams in the league (overrides the league file)")
	f.IntVar(&opts.pickPosition, "pick", 0, "your draft slot (overrides the league file)")
	f.IntVar(&opts.rounds, "rounds", 0, "roster capacity (overrides the league file)")
	f.StringVar(&opts.format, "format", "", "Snake or Linear (overrides the league file)")
	f.IntVar(&opts.simulations, "simulations", 0, "number of mock drafts")
	f.BoolVar(&opts.noise, "noise", false, "vary opponent picks")
	f.Int64Var(&opts.seed, "seed", 0, "seed for opponent variety")
	f.IntVar(&opts.concurrency, "concurrency", 0, "simulations in flight (default: one per CPU)")
	f.BoolVar(&opts.asJSON, "json", false, "print the full batch as JSON")
	return cmd
}

func (o *runOptions) settings(league config.LeagueFile) models.DraftSettings {
	s := league.League
	if o.leagueSize > 0 {
		s.LeagueSize = o.leagueSize
		if o.pickPosition == 0 && s.PickPosition > s.LeagueSize {
			s.PickPosition = 1
		}
	}
	if o.pickPosition > 0 {
		s.PickPosition = o.pickPosition
	}
	if o.rounds > 0 {
		s.Rounds = o.rounds
	}
	if o.format != "" {
		s.DraftFormat = models.DraftFormat(o.format)
	}
	s.FastMode = true
	return s
}

func (o *runOptions) batchOptions(cmd *cobra.Command, league config.LeagueFile) draft.BatchOptions {
	b := draft.BatchOptions{
		Simulations: league.Simulation.Simulations,
		Noise:       league.Simulation.Noise,
		Seed:        league.Simulation.Seed,
		Concurrency: o.concurrency,
	}
	if o.simulations > 0 {
		b.Simulations = o.simulations
	}
	if cmd.Flags().Changed("noise") {
		b.Noise = o.noise
	}
	if cmd.Flags().Changed("seed") {
		b.Seed = o.seed
	}
	return b
}

func runBatch(cmd *cobra.Command, o *runOptions) error {
	league, err := config.LoadLeague(o.leagueFile)
	if err != nil {
		return err
	}

	var board []models.TieredPlayer
	if o.rankingsFile != "" {
		if board, err = rankings.LoadFile(o.rankingsFile); err != nil {
			return err
		}
	}

	analytics := mocks.NewMockClickHouseClient()
	events := mocks.NewMockNATSPubSub()
	defer events.Close()

	svc := draft.NewService(draft.ServiceOptions{
		Store:     dal.NewMemoryDAL(),
		Publisher: events,
		Analytics: analytics,
		Board:     board,
	})

	batch, err := svc.Simulate(cmd.Context(), o.settings(league), o.batchOptions(cmd, league))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}

	timing, err := svc.Timing(cmd.Context())
	if err != nil {
		return err
	}
	printSummary(out, batch, timing)
	return nil
}

func printSummary(w io.Writer, batch *draft.BatchResult, timing []models.TimingStat) {
	s := batch.Settings
	sum := batch.Summary
	fmt.Fprintf(w, "Batch %s: %d simulations, %d teams, pick %d, %d rounds, %s\n",
		batch.ID, sum.Simulations, s.LeagueSize, s.PickPosition, s.Rounds, s.DraftFormat)

	fmt.Fprintln(w, "\nAverage roster:")
	for _, pos := range models.Positions {
		fmt.Fprintf(w, "  %-4s %.2f\n", pos, sum.PositionAverages[pos])
	}

	fmt.Fprintln(w, "\nK/DST timing (roster size when taken):")
	fmt.Fprintf(w, "  K    mean %.2f  sd %.2f  early %d  missing %d\n",
		sum.KRosterSize.Mean, sum.KRosterSize.StdDev, sum.EarlyK, sum.MissingK)
	fmt.Fprintf(w, "  DST  mean %.2f  sd %.2f  early %d  missing %d\n",
		sum.DSTRosterSize.Mean, sum.DSTRosterSize.StdDev, sum.EarlyDST, sum.MissingDST)
	for _, t := range timing {
		fmt.Fprintf(w, "  league of %d: avg K at %.2f, avg DST at %.2f\n", t.LeagueSize, t.AvgKRosterSize, t.AvgDSTRosterSize)
	}

	if len(sum.MostFrequent) > 0 {
		fmt.Fprintln(w, "\nMost drafted:")
		for _, p := range sum.MostFrequent {
			fmt.Fprintf(w, "  %-24s %-4s %d\n", p.Name, p.Position, p.Count)
		}
	}

	if sum.Warnings > 0 {
		fmt.Fprintf(w, "\n%d capacity warnings\n", sum.Warnings)
	}
}
