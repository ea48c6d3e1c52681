package dal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// MemoryDAL implements DraftDAL using in-memory storage
type MemoryDAL struct {
	mu     sync.RWMutex
	drafts map[string]*models.DraftState
}

// NewMemoryDAL creates a new in-memory data access layer
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{drafts: make(map[string]*models.DraftState)}
}

func (m *MemoryDAL) CreateDraft(_ context.Context, state *models.DraftState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drafts[state.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDraftExists, state.ID)
	}
	m.drafts[state.ID] = cloneState(state)
	return nil
}

func (m *MemoryDAL) GetDraft(_ context.Context, id string) (*models.DraftState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.drafts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	// Return a copy to avoid races with later writes
	return cloneState(state), nil
}

func (m *MemoryDAL) ListDrafts(_ context.Context) ([]models.DraftSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.DraftSummary, 0, len(m.drafts))
	for _, s := range m.drafts {
		out = append(out, models.DraftSummary{
			ID:        s.ID,
			Mode:      s.Mode,
			Settings:  s.Settings,
			Picks:     len(s.Picks),
			CreatedAt: s.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryDAL) RecordPick(_ context.Context, draftID string, entry models.DraftLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.drafts[draftID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}

	var player *models.BoardPlayer
	for i := range state.Players {
		if state.Players[i].ID == entry.Player.ID {
			player = &state.Players[i]
			break
		}
	}
	if player == nil {
		return fmt.Errorf("player %s not on draft %s", entry.Player.ID, draftID)
	}
	if player.Status == models.StatusDrafted {
		return fmt.Errorf("player %s already drafted", entry.Player.ID)
	}

	player.Status = models.StatusDrafted
	player.DraftedBy = entry.Team
	state.Picks = append(state.Picks, entry)
	return nil
}

func (m *MemoryDAL) BlockPlayer(_ context.Context, draftID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.drafts[draftID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}
	for i := range state.Players {
		if state.Players[i].Name == name && state.Players[i].Status == models.StatusAvailable {
			state.Players[i].Status = models.StatusBlocked
		}
	}
	return nil
}

func (m *MemoryDAL) DeleteDraft(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.drafts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	delete(m.drafts, id)
	return nil
}

func (m *MemoryDAL) Ping(context.Context) error { return nil }

func (m *MemoryDAL) Close() error { return nil }

// cloneState copies the stored parts of a draft: settings, board and pick log
func cloneState(s *models.DraftState) *models.DraftState {
	return &models.DraftState{
		ID:        s.ID,
		Mode:      s.Mode,
		Settings:  s.Settings,
		Players:   append([]models.BoardPlayer(nil), s.Players...),
		Picks:     append([]models.DraftLogEntry(nil), s.Picks...),
		CreatedAt: s.CreatedAt,
	}
}
