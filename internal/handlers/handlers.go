package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/engine"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

// maxBodyBytes bounds request bodies, rankings uploads included
const maxBodyBytes = 4 << 20

var sseKeepalive = 30 * time.Second

// APIHandlers contains all API handler methods
type APIHandlers struct {
	svc    *draft.Service
	pubsub *pubsub.PubSub
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(svc *draft.Service, ps *pubsub.PubSub) *APIHandlers {
	return &APIHandlers{
		svc:    svc,
		pubsub: ps,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

// writeError maps service errors onto HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dal.ErrDraftNotFound), errors.Is(err, draft.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, draft.ErrInvalidSettings), errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, rankings.ErrInvalidRankings), errors.Is(err, rankings.ErrInvalidPlayers),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, draft.ErrAlreadyDrafted), errors.Is(err, draft.ErrPlayerBlocked),
		errors.Is(err, draft.ErrNotYourTurn), errors.Is(err, draft.ErrDraftComplete),
		errors.Is(err, draft.ErrRosterFull), errors.Is(err, draft.ErrWrongMode):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type createDraftRequest struct {
	Mode     models.DraftMode     `json:"mode"`
	Settings models.DraftSettings `json:"settings"`
	Rankings []rankings.Entry     `json:"rankings"`
}

// CreateDraft starts a draft over the uploaded rankings, or the default board
func (h *APIHandlers) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Warn("Failed to decode create draft request", "error", err)
		writeError(w, err)
		return
	}
	if req.Mode == "" {
		req.Mode = models.ModeAssistant
	}

	var board []models.TieredPlayer
	if len(req.Rankings) > 0 {
		var err error
		if board, err = rankings.FromEntries(req.Rankings); err != nil {
			writeError(w, err)
			return
		}
	}

	state, err := h.svc.CreateDraft(r.Context(), req.Mode, req.Settings, board)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// ListDrafts returns stored drafts
func (h *APIHandlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.svc.ListDrafts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if drafts == nil {
		drafts = []models.DraftSummary{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

// GetDraft returns the current state of one draft
func (h *APIHandlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger.Debug("Getting draft state", "draft", id)
	state, err := h.svc.GetDraft(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteDraft removes a draft
func (h *APIHandlers) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger.Info("Deleting draft", "draft", id)
	if err := h.svc.DeleteDraft(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type playerRequest struct {
	PlayerID string `json:"playerId"`
	Player   string `json:"player"`
}

// Pick drafts a player onto the user's team
func (h *APIHandlers) Pick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req playerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	logger.Info("Drafting player", "draft", id, "player_id", req.PlayerID)
	entry, err := h.svc.Pick(r.Context(), id, req.PlayerID)
	if err != nil {
		logger.Warn("Failed to draft player", "error", err, "draft", id, "player_id", req.PlayerID)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// MarkTaken records a player drafted by another manager
func (h *APIHandlers) MarkTaken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req playerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.svc.MarkTaken(r.Context(), id, req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Block excludes a player, by name or id, from automated picks
func (h *APIHandlers) Block(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req playerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	target := req.Player
	if target == "" {
		target = req.PlayerID
	}
	if target == "" {
		writeError(w, fmt.Errorf("%w: player or playerId is required", errBadRequest))
		return
	}
	name, err := h.svc.Block(r.Context(), id, target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"player": name})
}

// Recommend suggests the user's next pick
func (h *APIHandlers) Recommend(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Recommend(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// AutoPick picks for whichever team is on the clock in a mock draft
func (h *APIHandlers) AutoPick(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.AutoPick(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Advance runs opponent picks until the user is on the clock
func (h *APIHandlers) Advance(w http.ResponseWriter, r *http.Request) {
	picks, err := h.svc.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if picks == nil {
		picks = []models.DraftLogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"picks": picks})
}

// Board returns the default board grouped by tier
func (h *APIHandlers) Board(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rankings.GroupByTier(h.svc.Board()))
}

// ValidateRankings checks an uploaded rankings file and returns it grouped by tier
func (h *APIHandlers) ValidateRankings(w http.ResponseWriter, r *http.Request) {
	board, err := rankings.Parse(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"players": len(board),
		"tiers":   rankings.GroupByTier(board),
	})
}

type needsRequest struct {
	Roster   []models.Player `json:"roster"`
	Capacity int             `json:"capacity"`
}

// Needs reports the essential needs of a roster
func (h *APIHandlers) Needs(w http.ResponseWriter, r *http.Request) {
	var req needsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	roster, err := rankings.ValidateRoster(req.Roster)
	if err != nil {
		writeError(w, err)
		return
	}
	needs := engine.ComputeEssentialNeeds(models.CountPositions(roster))
	capacity := engine.ResolveCapacity(req.Capacity)
	resp := map[string]interface{}{
		"needs":          needs,
		"slotsRemaining": engine.EssentialSlotsRemaining(needs),
		"capacity":       capacity,
		"mustForce":      engine.MustForceEssentialPick(len(roster), needs, capacity),
	}
	if err := engine.CheckCapacity(len(roster), needs, capacity); err != nil {
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type scoreRequest struct {
	Roster    []models.Player       `json:"roster"`
	Available []models.TieredPlayer `json:"available"`
	Blocked   []string              `json:"blocked"`
	Capacity  int                   `json:"capacity"`
}

// ScorePick runs the pick scorer. An omitted pool scores the default board.
func (h *APIHandlers) ScorePick(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	roster, err := rankings.ValidateRoster(req.Roster)
	if err != nil {
		writeError(w, err)
		return
	}
	available := h.svc.Board()
	if req.Available != nil {
		if available, err = rankings.ValidatePool(req.Available); err != nil {
			writeError(w, err)
			return
		}
	}
	sr := engine.ScoreRequest{
		Available:  available,
		Counts:     models.CountPositions(roster),
		RosterSize: len(roster),
		Capacity:   req.Capacity,
		Blocked:    req.Blocked,
	}
	pick := engine.ScorePick(sr)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pick":        pick,
		"explanation": pick.Explanation(),
		"candidates":  engine.TopCandidates(sr, engine.CandidateLimit),
	})
}

type simulateRequest struct {
	Settings           models.DraftSettings `json:"settings"`
	Simulations        int                  `json:"simulations"`
	Noise              bool                 `json:"noise"`
	Seed               int64                `json:"seed"`
	IncludeSimulations bool                 `json:"includeSimulations"`
	Rankings           []rankings.Entry     `json:"rankings"`
}

// Simulate runs a batch of automated mock drafts
func (h *APIHandlers) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var board []models.TieredPlayer
	if len(req.Rankings) > 0 {
		var err error
		if board, err = rankings.FromEntries(req.Rankings); err != nil {
			writeError(w, err)
			return
		}
	}

	logger.Info("Running simulations", "simulations", req.Simulations, "league_size", req.Settings.LeagueSize, "custom_board", board != nil)
	batch, err := h.svc.Simulate(r.Context(), req.Settings, draft.BatchOptions{
		Simulations: req.Simulations,
		Noise:       req.Noise,
		Seed:        req.Seed,
		Board:       board,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if !req.IncludeSimulations {
		trimmed := *batch
		trimmed.Simulations = nil
		batch = &trimmed
	}
	writeJSON(w, http.StatusOK, batch)
}

// Timing reports K/DST timing across recorded simulation batches
func (h *APIHandlers) Timing(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Timing(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// EventsSSE provides Server-Sent Events for realtime updates. The draft query
// parameter limits the stream to one draft.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan := h.pubsub.SubscribeDraft(r.URL.Query().Get("draft"))
	defer h.pubsub.Unsubscribe(eventChan)

	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flush()

	for {
		select {
		case event := <-eventChan:
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-time.After(sseKeepalive):
			fmt.Fprintf(w, ": keepalive\n\n")
			flush()
		}
	}
}

// Checker reports whether a dependency is reachable
type Checker func(ctx context.Context) error

// Health serves the health, liveness and readiness probes
type Health struct {
	// Checks run for /api/health; a failing check degrades the service
	Checks map[string]Checker
	// Ready is the check gating /readyz, usually the draft store
	Ready Checker
}

// Health reports every dependency check
func (h *Health) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks[name] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			continue
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Liveness handles Kubernetes liveness probes without checking dependencies
func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness handles Kubernetes readiness probes
func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":    "not_ready",
				"reason":    "database_unavailable",
				"timestamp": time.Now().Unix(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
