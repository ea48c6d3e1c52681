package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/engine"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

// Server implements the gRPC DraftAssist service
type Server struct {
	svc    *draft.Service
	pubsub *pubsub.PubSub
}

// NewServer creates a new gRPC server
func NewServer(svc *draft.Service, ps *pubsub.PubSub) *Server {
	return &Server{
		svc:    svc,
		pubsub: ps,
	}
}

type draftRef struct {
	ID string `json:"id"`
}

type playerRef struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId"`
	Player   string `json:"player"`
}

type createRequest struct {
	Mode     models.DraftMode     `json:"mode"`
	Settings models.DraftSettings `json:"settings"`
	Rankings []rankings.Entry     `json:"rankings"`
}

type simulateRequest struct {
	Settings           models.DraftSettings `json:"settings"`
	Simulations        int                  `json:"simulations"`
	Noise              bool                 `json:"noise"`
	Seed               int64                `json:"seed"`
	IncludeSimulations bool                 `json:"includeSimulations"`
	Rankings           []rankings.Entry     `json:"rankings"`
}

type needsRequest struct {
	Counts     models.PositionCounts `json:"counts"`
	RosterSize *int                  `json:"rosterSize"`
	Capacity   int                   `json:"capacity"`
}

type scoreRequest struct {
	Roster    []models.Player       `json:"roster"`
	Available []models.TieredPlayer `json:"available"`
	Blocked   []string              `json:"blocked"`
	Capacity  int                   `json:"capacity"`
}

// CreateDraft starts a new assistant or mock draft
func (s *Server) CreateDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if in.Mode == "" {
		in.Mode = models.ModeAssistant
	}
	logger.Info("gRPC: Creating draft", "mode", in.Mode, "league_size", in.Settings.LeagueSize)

	var board []models.TieredPlayer
	if len(in.Rankings) > 0 {
		var err error
		if board, err = rankings.FromEntries(in.Rankings); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	state, err := s.svc.CreateDraft(ctx, in.Mode, in.Settings, board)
	if err != nil {
		logger.Error("gRPC: Failed to create draft", "error", err)
		return nil, toStatus(err)
	}
	return encode(state)
}

// GetDraft returns the current draft state
func (s *Server) GetDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in draftRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	logger.Debug("gRPC: Getting draft state", "draft", in.ID)
	state, err := s.svc.GetDraft(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(state)
}

// ListDrafts lists stored drafts
func (s *Server) ListDrafts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	drafts, err := s.svc.ListDrafts(ctx)
	if err != nil {
		logger.Error("gRPC: Failed to list drafts", "error", err)
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{"drafts": drafts})
}

// DeleteDraft removes a draft
func (s *Server) DeleteDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in draftRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	logger.Info("gRPC: Deleting draft", "draft", in.ID)
	if err := s.svc.DeleteDraft(ctx, in.ID); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

// Pick drafts a player onto the user's team
func (s *Server) Pick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in playerRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	logger.Info("gRPC: Drafting player", "draft", in.ID, "player_id", in.PlayerID)
	entry, err := s.svc.Pick(ctx, in.ID, in.PlayerID)
	if err != nil {
		logger.Error("gRPC: Failed to draft player", "error", err, "draft", in.ID, "player_id", in.PlayerID)
		return nil, toStatus(err)
	}
	return encode(entry)
}

// MarkTaken records a player drafted by another manager
func (s *Server) MarkTaken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in playerRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	entry, err := s.svc.MarkTaken(ctx, in.ID, in.PlayerID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(entry)
}

// Block excludes a player from automated picks
func (s *Server) Block(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in playerRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	target := in.Player
	if target == "" {
		target = in.PlayerID
	}
	name, err := s.svc.Block(ctx, in.ID, target)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]string{"player": name})
}

// Recommend suggests the user's next pick
func (s *Server) Recommend(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in draftRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	rec, err := s.svc.Recommend(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(rec)
}

// AutoPick picks for the team on the clock in a mock draft
func (s *Server) AutoPick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in draftRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	entry, err := s.svc.AutoPick(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(entry)
}

// Advance runs opponent picks until the user is on the clock
func (s *Server) Advance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in draftRef
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	picks, err := s.svc.Advance(ctx, in.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	if picks == nil {
		picks = []models.DraftLogEntry{}
	}
	return encode(map[string]interface{}{"picks": picks})
}

// Simulate runs a batch of automated mock drafts. Per-simulation pick logs are
// returned only when includeSimulations is set.
func (s *Server) Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in simulateRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	var board []models.TieredPlayer
	if len(in.Rankings) > 0 {
		var err error
		if board, err = rankings.FromEntries(in.Rankings); err != nil {
			return nil, toStatus(err)
		}
	}
	logger.Info("gRPC: Running simulations", "simulations", in.Simulations, "league_size", in.Settings.LeagueSize, "custom_board", board != nil)
	batch, err := s.svc.Simulate(ctx, in.Settings, draft.BatchOptions{
		Simulations: in.Simulations,
		Noise:       in.Noise,
		Seed:        in.Seed,
		Board:       board,
	})
	if err != nil {
		logger.Error("gRPC: Simulation batch failed", "error", err)
		return nil, toStatus(err)
	}
	if !in.IncludeSimulations {
		trimmed := *batch
		trimmed.Simulations = nil
		batch = &trimmed
	}
	return encode(batch)
}

// Timing reports K/DST timing across recorded batches
func (s *Server) Timing(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	stats, err := s.svc.Timing(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]interface{}{"timing": stats})
}

// Needs evaluates the essential needs of a roster snapshot
func (s *Server) Needs(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in needsRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	res, err := evaluateNeeds(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(res)
}

// ScorePick runs the pick scorer against a roster and an available pool
func (s *Server) ScorePick(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in scoreRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	roster, err := rankings.ValidateRoster(in.Roster)
	if err != nil {
		return nil, toStatus(err)
	}
	available := s.svc.Board()
	if in.Available != nil {
		if available, err = rankings.ValidatePool(in.Available); err != nil {
			return nil, toStatus(err)
		}
	}
	sr := engine.ScoreRequest{
		Available:  available,
		Counts:     models.CountPositions(roster),
		RosterSize: len(roster),
		Capacity:   in.Capacity,
		Blocked:    in.Blocked,
	}
	pick := engine.ScorePick(sr)
	return encode(map[string]interface{}{
		"pick":        pick,
		"explanation": pick.Explanation(),
		"candidates":  engine.TopCandidates(sr, engine.CandidateLimit),
	})
}

// StreamEvents streams draft events to a client. A non-empty id limits the
// stream to that draft.
func (s *Server) StreamEvents(req *structpb.Struct, stream EventStream) error {
	var in draftRef
	if err := decode(req, &in); err != nil {
		return err
	}
	logger.Debug("gRPC: New client connected to event stream", "draft", in.ID)
	eventChan := s.pubsub.SubscribeDraft(in.ID)
	defer s.pubsub.Unsubscribe(eventChan)

	for {
		select {
		case event := <-eventChan:
			msg, err := encode(event)
			if err != nil {
				logger.Warn("gRPC: Dropping unencodable event", "type", event.Type, "error", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

type needsResult struct {
	Needs          engine.EssentialNeeds `json:"needs"`
	SlotsRemaining int                   `json:"slotsRemaining"`
	Capacity       int                   `json:"capacity"`
	RosterSize     int                   `json:"rosterSize"`
	MustForce      bool                  `json:"mustForce"`
	Warning        string                `json:"warning,omitempty"`
}

// evaluateNeeds defaults rosterSize to the sum of counts
func evaluateNeeds(in needsRequest) (needsResult, error) {
	counts, err := rankings.ValidateCounts(in.Counts)
	if err != nil {
		return needsResult{}, err
	}
	size := 0
	for _, n := range counts {
		size += n
	}
	if in.RosterSize != nil {
		if *in.RosterSize < 0 {
			return needsResult{}, fmt.Errorf("%w: rosterSize cannot be negative", rankings.ErrInvalidPlayers)
		}
		size = *in.RosterSize
	}
	needs := engine.ComputeEssentialNeeds(counts)
	capacity := engine.ResolveCapacity(in.Capacity)
	res := needsResult{
		Needs:          needs,
		SlotsRemaining: engine.EssentialSlotsRemaining(needs),
		Capacity:       capacity,
		RosterSize:     size,
		MustForce:      engine.MustForceEssentialPick(size, needs, capacity),
	}
	if err := engine.CheckCapacity(size, needs, capacity); err != nil {
		res.Warning = err.Error()
	}
	return res, nil
}

// toStatus maps service errors onto gRPC codes
func toStatus(err error) error {
	switch {
	case errors.Is(err, dal.ErrDraftNotFound), errors.Is(err, draft.ErrPlayerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, draft.ErrInvalidSettings), errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, rankings.ErrInvalidRankings), errors.Is(err, rankings.ErrInvalidPlayers):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, draft.ErrAlreadyDrafted), errors.Is(err, draft.ErrPlayerBlocked),
		errors.Is(err, draft.ErrNotYourTurn), errors.Is(err, draft.ErrDraftComplete),
		errors.Is(err, draft.ErrRosterFull), errors.Is(err, draft.ErrWrongMode):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
