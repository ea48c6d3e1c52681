package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/engine"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

const defaultTop = 5

// RosterPlayer is a drafted player as tools receive it
type RosterPlayer struct {
	Name     string `json:"name,omitempty" jsonschema:"Player name"`
	Position string `json:"position" jsonschema:"QB, RB, WR, TE, K or DST"`
}

// PoolPlayer is an available player with its value tier
type PoolPlayer struct {
	Name     string `json:"name" jsonschema:"Player name (used for blocking)"`
	Position string `json:"position" jsonschema:"QB, RB, WR, TE, K or DST"`
	Tier     int    `json:"tier" jsonschema:"Value tier, lower is better"`
	Team     string `json:"team,omitempty" jsonschema:"NFL team abbreviation"`
}

// EssentialNeedsArgs is the input schema for essential_needs
type EssentialNeedsArgs struct {
	Roster   []RosterPlayer `json:"roster,omitempty" jsonschema:"Players already drafted, in pick order"`
	Capacity int            `json:"capacity,omitempty" jsonschema:"Total roster capacity (0 = 16)"`
}

// EssentialNeedsResult is the output of essential_needs
type EssentialNeedsResult struct {
	Needs          engine.EssentialNeeds `json:"needs"`
	SlotsRemaining int                   `json:"slots_remaining"`
	PicksRemaining int                   `json:"picks_remaining"`
	Capacity       int                   `json:"capacity"`
	MustForce      bool                  `json:"must_force"`
	Warning        string                `json:"warning,omitempty"`
}

// ScorePickArgs is the input schema for score_pick
type ScorePickArgs struct {
	Roster    []RosterPlayer `json:"roster,omitempty" jsonschema:"Players already drafted, in pick order"`
	Available []PoolPlayer   `json:"available,omitempty" jsonschema:"Available players (empty = default board)"`
	Blocked   []string       `json:"blocked,omitempty" jsonschema:"Player names never to pick"`
	Capacity  int            `json:"capacity,omitempty" jsonschema:"Total roster capacity (0 = 16)"`
	Top       int            `json:"top,omitempty" jsonschema:"Number of ranked alternatives to return (default 5)"`
}

// ScorePickResult is the output of score_pick
type ScorePickResult struct {
	Pick        engine.Pick        `json:"pick"`
	Explanation string             `json:"explanation"`
	Alternates  []models.Candidate `json:"alternates"`
}

// SimulateDraftsArgs is the input schema for simulate_drafts
type SimulateDraftsArgs struct {
	LeagueSize   int    `json:"league_size,omitempty" jsonschema:"Teams in the league (default 12)"`
	PickPosition int    `json:"pick_position,omitempty" jsonschema:"Your draft slot (default 1)"`
	Rounds       int    `json:"rounds,omitempty" jsonschema:"Total roster capacity (default 16)"`
	DraftFormat  string `json:"draft_format,omitempty" jsonschema:"Snake or Linear"`
	Simulations  int    `json:"simulations,omitempty" jsonschema:"Number of mock drafts (default 10)"`
	Noise        bool   `json:"noise,omitempty" jsonschema:"Vary opponent picks"`
	Seed         int64  `json:"seed,omitempty" jsonschema:"Seed for opponent variety"`

	Rankings []rankings.Entry `json:"rankings,omitempty" jsonschema:"Rankings rows (rank, name, team, position, tier) to draft from instead of the default board"`
}

// SimulateDraftsResult is the output of simulate_drafts
type SimulateDraftsResult struct {
	BatchID  string               `json:"batch_id"`
	Settings models.DraftSettings `json:"settings"`
	Summary  draft.Summary        `json:"summary"`
}

// RecommendPickArgs is the input schema for recommend_pick
type RecommendPickArgs struct {
	DraftID string `json:"draft_id" jsonschema:"Draft id (required)"`
}

// NewServer registers the draft tools on a new MCP server
func NewServer(svc *draft.Service, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fantasy-draft-assistant",
			Version: version,
		},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "essential_needs",
		Description: "Unmet essential roster slots and whether the next pick must fill one",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args EssentialNeedsArgs) (*mcp.CallToolResult, any, error) {
		res, err := buildEssentialNeeds(args)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolJSON(json.MarshalIndent(res, "", "  "))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_pick",
		Description: "Deterministic best pick for a roster with ranked alternatives",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ScorePickArgs) (*mcp.CallToolResult, any, error) {
		res, err := buildScorePick(args, svc.Board())
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolJSON(json.MarshalIndent(res, "", "  "))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "simulate_drafts",
		Description: "Run automated mock drafts and summarize the rosters you end up with",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SimulateDraftsArgs) (*mcp.CallToolResult, any, error) {
		var board []models.TieredPlayer
		if len(args.Rankings) > 0 {
			var err error
			if board, err = rankings.FromEntries(args.Rankings); err != nil {
				return toolError(err), nil, nil
			}
		}
		batch, err := svc.Simulate(ctx, args.settings(), draft.BatchOptions{
			Simulations: args.Simulations,
			Noise:       args.Noise,
			Seed:        args.Seed,
			Board:       board,
		})
		if err != nil {
			return toolError(err), nil, nil
		}
		res := SimulateDraftsResult{BatchID: batch.ID, Settings: batch.Settings, Summary: batch.Summary}
		return toolJSON(json.MarshalIndent(res, "", "  "))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recommend_pick",
		Description: "Recommended next pick for the user in a stored draft",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RecommendPickArgs) (*mcp.CallToolResult, any, error) {
		if args.DraftID == "" {
			return toolError(fmt.Errorf("draft_id is required")), nil, nil
		}
		rec, err := svc.Recommend(ctx, args.DraftID)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolJSON(json.MarshalIndent(rec, "", "  "))
	})

	return server
}

// Handler serves the MCP server over streamable HTTP
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
}

func (a SimulateDraftsArgs) settings() models.DraftSettings {
	return models.DraftSettings{
		LeagueSize:   a.LeagueSize,
		PickPosition: a.PickPosition,
		Rounds:       a.Rounds,
		DraftFormat:  models.DraftFormat(a.DraftFormat),
		FastMode:     true,
	}
}

func parseRoster(roster []RosterPlayer) ([]models.Player, error) {
	out := make([]models.Player, 0, len(roster))
	for _, p := range roster {
		out = append(out, models.Player{Name: p.Name, Position: models.Position(p.Position)})
	}
	return rankings.ValidateRoster(out)
}

func parsePool(pool []PoolPlayer) ([]models.TieredPlayer, error) {
	out := make([]models.TieredPlayer, 0, len(pool))
	for _, p := range pool {
		out = append(out, models.TieredPlayer{
			Player: models.Player{Name: p.Name, Position: models.Position(p.Position), Team: p.Team},
			Tier:   p.Tier,
		})
	}
	return rankings.ValidatePool(out)
}

func buildEssentialNeeds(args EssentialNeedsArgs) (EssentialNeedsResult, error) {
	roster, err := parseRoster(args.Roster)
	if err != nil {
		return EssentialNeedsResult{}, err
	}
	needs := engine.ComputeEssentialNeeds(models.CountPositions(roster))
	capacity := engine.ResolveCapacity(args.Capacity)
	res := EssentialNeedsResult{
		Needs:          needs,
		SlotsRemaining: engine.EssentialSlotsRemaining(needs),
		PicksRemaining: capacity - len(roster),
		Capacity:       capacity,
		MustForce:      engine.MustForceEssentialPick(len(roster), needs, capacity),
	}
	if err := engine.CheckCapacity(len(roster), needs, capacity); err != nil {
		logger.Warn("MCP: essential slots exceed capacity", "roster_size", len(roster), "capacity", capacity)
		res.Warning = err.Error()
	}
	return res, nil
}

func buildScorePick(args ScorePickArgs, board []models.TieredPlayer) (ScorePickResult, error) {
	roster, err := parseRoster(args.Roster)
	if err != nil {
		return ScorePickResult{}, err
	}
	available := board
	if len(args.Available) > 0 {
		if available, err = parsePool(args.Available); err != nil {
			return ScorePickResult{}, err
		}
	}

	req := engine.ScoreRequest{
		Available:  available,
		Counts:     models.CountPositions(roster),
		RosterSize: len(roster),
		Capacity:   args.Capacity,
		Blocked:    args.Blocked,
	}
	pick := engine.ScorePick(req)

	top := args.Top
	if top <= 0 {
		top = defaultTop
	}
	return ScorePickResult{Pick: pick, Explanation: pick.Explanation(), Alternates: engine.TopCandidates(req, top)}, nil
}

func toolJSON(res []byte, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(res)},
		},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
