package draft

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/advisor"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

// Publisher receives draft events
type Publisher interface {
	Publish(pubsub.Event)
}

// Analytics stores finished simulation batches and reports K/DST timing across them
type Analytics interface {
	RecordBatch(ctx context.Context, batch *BatchResult) error
	Timing(ctx context.Context) ([]models.TimingStat, error)
}

// ServiceOptions wires the service's collaborators. Only Store is required.
type ServiceOptions struct {
	Store     dal.DraftDAL
	Publisher Publisher
	Analytics Analytics

	Advisor          advisor.Advisor
	AdvisorBoardSize int

	// Board is the default ranking board for new drafts and simulations
	Board []models.TieredPlayer

	// Noise randomizes opponents in interactive mock drafts
	Noise       bool
	NoiseWidth  int
	Concurrency int
}

// Service runs drafts on top of persistent storage. Each draft is guarded by its
// own lock so picks on different drafts proceed in parallel.
type Service struct {
	opts ServiceOptions

	mu     sync.Mutex
	drafts map[string]*liveDraft
}

type liveDraft struct {
	mu      sync.Mutex
	session *Session
}

// NewService creates a draft service
func NewService(opts ServiceOptions) *Service {
	if opts.Publisher == nil {
		opts.Publisher = pubsub.New()
	}
	if opts.Advisor == nil {
		opts.Advisor = advisor.Disabled{}
	}
	if len(opts.Board) == 0 {
		opts.Board = rankings.SampleBoard()
	}
	return &Service{opts: opts, drafts: make(map[string]*liveDraft)}
}

// Board returns the default ranking board
func (s *Service) Board() []models.TieredPlayer {
	return append([]models.TieredPlayer(nil), s.opts.Board...)
}

func (s *Service) sessionOptions(id string) Options {
	o := Options{
		ID:               id,
		Advisor:          s.opts.Advisor,
		AdvisorBoardSize: s.opts.AdvisorBoardSize,
		NoiseWidth:       s.opts.NoiseWidth,
	}
	if s.opts.Noise {
		o.Noise = rand.New(rand.NewSource(rand.Int63()))
	}
	return o
}

// CreateDraft starts and persists a new draft. A nil board uses the default rankings.
func (s *Service) CreateDraft(ctx context.Context, mode models.DraftMode, settings models.DraftSettings, board []models.TieredPlayer) (models.DraftState, error) {
	if len(board) == 0 {
		board = s.opts.Board
	}
	sess, err := NewSession(mode, settings, board, s.sessionOptions(""))
	if err != nil {
		return models.DraftState{}, err
	}
	state := sess.State()
	if err := s.opts.Store.CreateDraft(ctx, &state); err != nil {
		return models.DraftState{}, fmt.Errorf("persist draft: %w", err)
	}

	s.mu.Lock()
	s.drafts[sess.ID()] = &liveDraft{session: sess}
	s.mu.Unlock()

	logger.Info("Draft created", "draft", sess.ID(), "mode", sess.Mode(), "league_size", sess.Settings().LeagueSize,
		"pick_position", sess.UserTeam(), "rounds", sess.Capacity())
	s.publish(pubsub.EventDraftCreated, sess.ID(), map[string]interface{}{
		"mode":       string(sess.Mode()),
		"leagueSize": sess.Settings().LeagueSize,
		"rounds":     sess.Capacity(),
	})
	return state, nil
}

// load returns the live draft for id, restoring it from storage on first use
func (s *Service) load(ctx context.Context, id string) (*liveDraft, error) {
	s.mu.Lock()
	live, ok := s.drafts[id]
	s.mu.Unlock()
	if ok {
		return live, nil
	}

	state, err := s.opts.Store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, err := Restore(*state, s.sessionOptions(id))
	if err != nil {
		return nil, fmt.Errorf("restore draft %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.drafts[id]; ok {
		return live, nil
	}
	live = &liveDraft{session: sess}
	s.drafts[id] = live
	return live, nil
}

// evict drops a cached session so the next access reloads persisted state
func (s *Service) evict(id string) {
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
}

// withDraft runs fn while holding the draft's lock
func (s *Service) withDraft(ctx context.Context, id string, fn func(*Session) error) error {
	live, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	return fn(live.session)
}

// GetDraft returns the current state of a draft
func (s *Service) GetDraft(ctx context.Context, id string) (models.DraftState, error) {
	var state models.DraftState
	err := s.withDraft(ctx, id, func(sess *Session) error {
		state = sess.State()
		return nil
	})
	return state, err
}

// ListDrafts lists stored drafts, newest first
func (s *Service) ListDrafts(ctx context.Context) ([]models.DraftSummary, error) {
	return s.opts.Store.ListDrafts(ctx)
}

// DeleteDraft removes a draft from storage and memory
func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	if err := s.opts.Store.DeleteDraft(ctx, id); err != nil {
		return err
	}
	s.evict(id)
	s.publish(pubsub.EventDraftDeleted, id, nil)
	return nil
}

// persist stores new log entries and announces them. A storage failure evicts the
// session so memory never runs ahead of the store.
func (s *Service) persist(ctx context.Context, id string, entries []models.DraftLogEntry) error {
	for _, e := range entries {
		if err := s.opts.Store.RecordPick(ctx, id, e); err != nil {
			s.evict(id)
			return fmt.Errorf("persist pick %d: %w", e.Pick, err)
		}
		s.publish(pubsub.EventDraftPick, id, pickPayload(e))
	}
	return nil
}

// Pick drafts playerID onto the user's team
func (s *Service) Pick(ctx context.Context, id, playerID string) (models.DraftLogEntry, error) {
	var entry models.DraftLogEntry
	err := s.withDraft(ctx, id, func(sess *Session) error {
		var err error
		if entry, err = sess.UserPick(playerID); err != nil {
			return err
		}
		return s.persist(ctx, id, []models.DraftLogEntry{entry})
	})
	return entry, err
}

// MarkTaken records that another manager drafted playerID in an assistant draft
func (s *Service) MarkTaken(ctx context.Context, id, playerID string) (models.DraftLogEntry, error) {
	var entry models.DraftLogEntry
	err := s.withDraft(ctx, id, func(sess *Session) error {
		var err error
		if entry, err = sess.MarkTaken(playerID); err != nil {
			return err
		}
		return s.persist(ctx, id, []models.DraftLogEntry{entry})
	})
	return entry, err
}

// Block excludes a player from every automated pick for the rest of the draft
func (s *Service) Block(ctx context.Context, id, nameOrID string) (string, error) {
	var name string
	err := s.withDraft(ctx, id, func(sess *Session) error {
		var err error
		if name, err = sess.Block(nameOrID); err != nil {
			return err
		}
		if err := s.opts.Store.BlockPlayer(ctx, id, name); err != nil {
			s.evict(id)
			return fmt.Errorf("persist block: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	logger.Info("Player blocked", "draft", id, "player", name)
	s.publish(pubsub.EventDraftBlock, id, map[string]interface{}{"player": name})
	return name, nil
}

// Recommend suggests the user's next pick
func (s *Service) Recommend(ctx context.Context, id string) (models.Recommendation, error) {
	var rec models.Recommendation
	err := s.withDraft(ctx, id, func(sess *Session) error {
		var err error
		rec, err = sess.Recommend(ctx)
		return err
	})
	return rec, err
}

// AutoPick makes the pick for whichever team is on the clock in a mock draft
func (s *Service) AutoPick(ctx context.Context, id string) (models.DraftLogEntry, error) {
	var entry models.DraftLogEntry
	err := s.withDraft(ctx, id, func(sess *Session) error {
		var err error
		if entry, err = sess.AutoPick(ctx); err != nil {
			return err
		}
		return s.persist(ctx, id, []models.DraftLogEntry{entry})
	})
	return entry, err
}

// Advance auto-picks for opponents until the user is on the clock.
// Picks made before a failure are kept and returned with the error.
func (s *Service) Advance(ctx context.Context, id string) ([]models.DraftLogEntry, error) {
	var picks []models.DraftLogEntry
	err := s.withDraft(ctx, id, func(sess *Session) error {
		if sess.Mode() != models.ModeMock {
			return ErrWrongMode
		}
		var runErr error
		picks, runErr = sess.AdvanceToUser(ctx)
		if err := s.persist(ctx, id, picks); err != nil {
			return err
		}
		if errors.Is(runErr, ErrDraftComplete) {
			return nil
		}
		return runErr
	})
	return picks, err
}

// Simulate runs a batch of automated mock drafts over the default board, records it
// with the analytics sink when one is configured and announces the summary.
func (s *Service) Simulate(ctx context.Context, settings models.DraftSettings, opts BatchOptions) (*BatchResult, error) {
	if opts.Advisor == nil {
		opts.Advisor = s.opts.Advisor
		opts.AdvisorBoardSize = s.opts.AdvisorBoardSize
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = s.opts.Concurrency
	}
	board := s.opts.Board
	if len(opts.Board) > 0 {
		board = opts.Board
	}
	batch, err := RunBatch(ctx, settings, board, opts)
	if err != nil {
		return nil, err
	}

	if s.opts.Analytics != nil {
		if err := s.opts.Analytics.RecordBatch(ctx, batch); err != nil {
			logger.Warn("Failed to record simulation batch", "batch", batch.ID, "error", err)
		}
	}
	s.publish(pubsub.EventSimulationCompleted, "", map[string]interface{}{
		"batch":       batch.ID,
		"simulations": batch.Summary.Simulations,
		"earlyK":      batch.Summary.EarlyK,
		"earlyDst":    batch.Summary.EarlyDST,
		"missingK":    batch.Summary.MissingK,
		"missingDst":  batch.Summary.MissingDST,
	})
	return batch, nil
}

// Timing reports recorded K/DST timing; without an analytics sink it is empty
func (s *Service) Timing(ctx context.Context) ([]models.TimingStat, error) {
	if s.opts.Analytics == nil {
		return []models.TimingStat{}, nil
	}
	return s.opts.Analytics.Timing(ctx)
}

func (s *Service) publish(eventType, draftID string, payload map[string]interface{}) {
	s.opts.Publisher.Publish(pubsub.NewEvent(eventType, draftID, payload))
}

func pickPayload(e models.DraftLogEntry) map[string]interface{} {
	p := map[string]interface{}{
		"pick":        e.Pick,
		"round":       e.Round,
		"team":        e.Team,
		"player":      e.Player.Name,
		"playerId":    e.Player.ID,
		"position":    string(e.Player.Position),
		"tier":        e.Tier,
		"source":      string(e.Source),
		"explanation": e.Explanation,
	}
	if e.CapacityWarning != "" {
		p["capacityWarning"] = e.CapacityWarning
	}
	return p
}
