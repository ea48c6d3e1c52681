package dal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// sqlDAL holds the queries shared by the SQLite and PostgreSQL backends.
// Queries are written with ? placeholders and rebound for PostgreSQL.
type sqlDAL struct {
	db       *sql.DB
	postgres bool
}

func (s *sqlDAL) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlDAL) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, s.rebind(query), args...)
}

func (s *sqlDAL) draftExists(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id string) (bool, error) {
	var count int
	if err := q.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM drafts WHERE id = ?`), id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *sqlDAL) CreateDraft(ctx context.Context, state *models.DraftState) error {
	settings, err := json.Marshal(state.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exists, err := s.draftExists(ctx, tx, state.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDraftExists, state.ID)
	}

	now := time.Now().UnixMilli()
	if _, err := s.exec(ctx, tx, `
		INSERT INTO drafts (id, mode, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, state.ID, string(state.Mode), string(settings), state.CreatedAt, now); err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}

	for i, p := range state.Players {
		if _, err := s.exec(ctx, tx, `
			INSERT INTO draft_players (draft_id, player_id, name, position, team, tier, overall_rank, status, drafted_by, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, state.ID, p.ID, p.Name, string(p.Position), p.Team, p.Tier, p.Rank, string(p.Status), p.DraftedBy, i); err != nil {
			return fmt.Errorf("insert player %s: %w", p.ID, err)
		}
	}

	for _, e := range state.Picks {
		if err := s.insertPick(ctx, tx, state.ID, e); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqlDAL) insertPick(ctx context.Context, tx *sql.Tx, draftID string, e models.DraftLogEntry) error {
	playerJSON, err := json.Marshal(e.Player)
	if err != nil {
		return fmt.Errorf("encode player: %w", err)
	}
	_, err = s.exec(ctx, tx, `
		INSERT INTO draft_picks (draft_id, pick, round, pick_in_round, team, player_id, player_data, tier, explanation, source, capacity_warning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, draftID, e.Pick, e.Round, e.PickInRound, e.Team, e.Player.ID, string(playerJSON), e.Tier, e.Explanation, string(e.Source), e.CapacityWarning)
	if err != nil {
		return fmt.Errorf("insert pick %d: %w", e.Pick, err)
	}
	return nil
}

func (s *sqlDAL) GetDraft(ctx context.Context, id string) (*models.DraftState, error) {
	state := &models.DraftState{ID: id, Players: []models.BoardPlayer{}, Picks: []models.DraftLogEntry{}}

	var mode, settings string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT mode, settings, created_at FROM drafts WHERE id = ?
	`), id).Scan(&mode, &settings, &state.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	state.Mode = models.DraftMode(mode)
	if err := json.Unmarshal([]byte(settings), &state.Settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	// Get board
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT player_id, name, position, team, tier, overall_rank, status, drafted_by
		FROM draft_players WHERE draft_id = ? ORDER BY sort_order
	`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p models.BoardPlayer
		var position, status string
		if err := rows.Scan(&p.ID, &p.Name, &position, &p.Team, &p.Tier, &p.Rank, &status, &p.DraftedBy); err != nil {
			return nil, err
		}
		p.Position = models.Position(position)
		p.Status = models.PlayerStatus(status)
		state.Players = append(state.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Get pick log
	pickRows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT pick, round, pick_in_round, team, player_data, tier, explanation, source, capacity_warning
		FROM draft_picks WHERE draft_id = ? ORDER BY pick
	`), id)
	if err != nil {
		return nil, err
	}
	defer pickRows.Close()

	for pickRows.Next() {
		var e models.DraftLogEntry
		var playerJSON, source string
		if err := pickRows.Scan(&e.Pick, &e.Round, &e.PickInRound, &e.Team, &playerJSON, &e.Tier, &e.Explanation, &source, &e.CapacityWarning); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(playerJSON), &e.Player); err != nil {
			return nil, fmt.Errorf("decode pick %d: %w", e.Pick, err)
		}
		e.Source = models.PickSource(source)
		state.Picks = append(state.Picks, e)
	}
	return state, pickRows.Err()
}

func (s *sqlDAL) ListDrafts(ctx context.Context) ([]models.DraftSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.mode, d.settings, d.created_at,
			(SELECT COUNT(*) FROM draft_picks p WHERE p.draft_id = d.id)
		FROM drafts d
		ORDER BY d.created_at DESC, d.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.DraftSummary{}
	for rows.Next() {
		var d models.DraftSummary
		var mode, settings string
		if err := rows.Scan(&d.ID, &mode, &settings, &d.CreatedAt, &d.Picks); err != nil {
			return nil, err
		}
		d.Mode = models.DraftMode(mode)
		if err := json.Unmarshal([]byte(settings), &d.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for %s: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqlDAL) RecordPick(ctx context.Context, draftID string, entry models.DraftLogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exists, err := s.draftExists(ctx, tx, draftID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}

	res, err := s.exec(ctx, tx, `
		UPDATE draft_players SET status = ?, drafted_by = ?
		WHERE draft_id = ? AND player_id = ? AND status <> ?
	`, string(models.StatusDrafted), entry.Team, draftID, entry.Player.ID, string(models.StatusDrafted))
	if err != nil {
		return fmt.Errorf("mark drafted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s not draftable on draft %s", entry.Player.ID, draftID)
	}

	if err := s.insertPick(ctx, tx, draftID, entry); err != nil {
		return err
	}
	if _, err := s.exec(ctx, tx, `UPDATE drafts SET updated_at = ? WHERE id = ?`, time.Now().UnixMilli(), draftID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqlDAL) BlockPlayer(ctx context.Context, draftID, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	exists, err := s.draftExists(ctx, tx, draftID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}
	if _, err := s.exec(ctx, tx, `
		UPDATE draft_players SET status = ?
		WHERE draft_id = ? AND name = ? AND status = ?
	`, string(models.StatusBlocked), draftID, name, string(models.StatusAvailable)); err != nil {
		return fmt.Errorf("block player: %w", err)
	}
	return tx.Commit()
}

func (s *sqlDAL) DeleteDraft(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.exec(ctx, tx, `DELETE FROM draft_picks WHERE draft_id = ?`, id); err != nil {
		return err
	}
	if _, err := s.exec(ctx, tx, `DELETE FROM draft_players WHERE draft_id = ?`, id); err != nil {
		return err
	}
	res, err := s.exec(ctx, tx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return tx.Commit()
}

func (s *sqlDAL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlDAL) Close() error {
	return s.db.Close()
}
