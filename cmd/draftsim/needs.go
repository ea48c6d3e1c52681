package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/engine"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

func newNeedsCmd() *cobra.Command {
	var (
		capacity int
		pick     bool
	)
	cmd := &cobra.Command{
		Use:   "needs [POSITION...]",
		Short: "Show unmet essential slots for a roster, e.g. needs QB RB RB WR",
		RunE: func(cmd *cobra.Command, args []string) error {
			roster, err := parseRosterArgs(args)
			if err != nil {
				return err
			}
			counts := models.CountPositions(roster)
			needs := engine.ComputeEssentialNeeds(counts)
			resolved := engine.ResolveCapacity(capacity)

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(needs); err != nil {
				return err
			}
			fmt.Fprintf(out, "slots remaining: %d, picks remaining: %d of %d\n",
				engine.EssentialSlotsRemaining(needs), resolved-len(roster), resolved)
			if err := engine.CheckCapacity(len(roster), needs, resolved); err != nil {
				fmt.Fprintf(out, "warning: %v\n", err)
			} else if engine.MustForceEssentialPick(len(roster), needs, resolved) {
				fmt.Fprintln(out, "next pick must fill an essential slot")
			}

			if pick {
				p := engine.ScorePick(engine.ScoreRequest{
					Available:  rankings.SampleBoard(),
					Counts:     counts,
					RosterSize: len(roster),
					Capacity:   resolved,
				})
				fmt.Fprintf(out, "best pick: %s (%s)\n", p.Player.Name, p.Explanation())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&capacity, "capacity", 0, "roster capacity (default 16)")
	cmd.Flags().BoolVar(&pick, "pick", false, "also score the best pick from the sample board")
	return cmd
}

// parseRosterArgs accepts positions as separate args or comma lists
func parseRosterArgs(args []string) ([]models.Player, error) {
	var roster []models.Player
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			if field = strings.TrimSpace(field); field == "" {
				continue
			}
			pos, err := models.ParsePosition(field)
			if err != nil {
				return nil, err
			}
			roster = append(roster, models.Player{Position: pos})
		}
	}
	return roster, nil
}
