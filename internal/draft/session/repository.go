package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sqlc-dev/pqtype"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
	"github.com/jmorrisey/pokedraft/internal/sqlutil"
)

// SQLRepository implements Repository against Postgres.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository returns a Postgres-backed session repository.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

var _ Repository = (*SQLRepository)(nil)

type sessionRow struct {
	SeasonID           int64                 `db:"season_id"`
	CommissionerID     int64                 `db:"commissioner_id"`
	Status             string                `db:"status"`
	DraftType          string                `db:"draft_type"`
	PickTimerSec       sql.NullInt32         `db:"pick_timer_sec"`
	Rounds             sql.NullInt32         `db:"rounds"`
	CustomOrder        pqtype.NullRawMessage `db:"custom_order"`
	StartsAt           sql.NullTime          `db:"starts_at"`
	CurrentRound       int                   `db:"current_round"`
	CurrentPickInRound int                   `db:"current_pick_in_round"`
	OverallPick        int                   `db:"overall_pick"`
	CurrentDeadlineAt  sql.NullTime          `db:"current_deadline_at"`
	PausedRemainingSec sql.NullInt32         `db:"paused_remaining_sec"`
	CreatedAt          time.Time             `db:"created_at"`
	UpdatedAt          time.Time             `db:"updated_at"`
}

func (r *SQLRepository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.DraftSession, error) {
	customOrder, err := customOrderValue(req.CustomOrder)
	if err != nil {
		return nil, err
	}

	var row sessionRow
	err = r.db.GetContext(ctx, &row, `
		INSERT INTO draft_sessions (
			season_id, commissioner_id, status, draft_type, pick_timer_sec,
			rounds, custom_order, starts_at,
			current_round, current_pick_in_round, overall_pick,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, now(), now())
		RETURNING *`,
		req.SeasonID, req.CommissionerID, models.DraftStatusNotStarted, req.DraftType,
		sqlutil.ToSqlInt32(req.PickTimerSec), sqlutil.ToSqlInt32(req.Rounds), customOrder, sqlutil.ToSqlTime(req.StartsAt))
	if err != nil {
		return nil, fmt.Errorf("inserting draft session: %w", err)
	}
	return rowToSession(row)
}

func (r *SQLRepository) GetSession(ctx context.Context, seasonID int64) (*models.DraftSession, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM draft_sessions WHERE season_id = $1`, seasonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drafterrs.NotFound("no draft session for season %d", seasonID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting draft session: %w", err)
	}
	return rowToSession(row)
}

func (r *SQLRepository) UpdateSession(ctx context.Context, sess *models.DraftSession) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE draft_sessions SET
			status = $2,
			current_round = $3,
			current_pick_in_round = $4,
			overall_pick = $5,
			current_deadline_at = $6,
			paused_remaining_sec = $7,
			starts_at = $8,
			updated_at = now()
		WHERE season_id = $1`,
		sess.SeasonID, sess.Status,
		sess.CurrentRound, sess.CurrentPickInRound, sess.OverallPick,
		sqlutil.ToSqlTime(sess.CurrentDeadlineAt), sqlutil.ToSqlInt32(sess.PausedRemainingSec),
		sqlutil.ToSqlTime(sess.StartsAt))
	if err != nil {
		return fmt.Errorf("updating draft session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return drafterrs.NotFound("no draft session for season %d", sess.SeasonID)
	}
	return nil
}

func (r *SQLRepository) AddParticipant(ctx context.Context, p models.Participant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO draft_participants (season_id, team_id, manager_user_id, draft_position, is_ready)
		VALUES ($1, $2, $3, $4, $5)`,
		p.SeasonID, p.TeamID, p.ManagerUserID, p.DraftPosition, p.IsReady)
	if err != nil {
		return fmt.Errorf("inserting participant: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListParticipants(ctx context.Context, seasonID int64) ([]models.Participant, error) {
	var parts []models.Participant
	err := r.db.SelectContext(ctx, &parts, `
		SELECT season_id, team_id, manager_user_id, draft_position, is_ready
		FROM draft_participants
		WHERE season_id = $1
		ORDER BY draft_position ASC`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	return parts, nil
}

func (r *SQLRepository) SetReady(ctx context.Context, seasonID, teamID int64, ready bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE draft_participants SET is_ready = $3
		WHERE season_id = $1 AND team_id = $2`, seasonID, teamID, ready)
	if err != nil {
		return fmt.Errorf("updating participant readiness: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return drafterrs.NotFound("team %d is not registered for season %d", teamID, seasonID)
	}
	return nil
}

func rowToSession(row sessionRow) (*models.DraftSession, error) {
	sess := &models.DraftSession{
		SeasonID:           row.SeasonID,
		CommissionerID:     row.CommissionerID,
		Status:             models.DraftStatus(row.Status),
		DraftType:          models.DraftType(row.DraftType),
		CurrentRound:       row.CurrentRound,
		CurrentPickInRound: row.CurrentPickInRound,
		OverallPick:        row.OverallPick,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}

	sess.PickTimerSec = sqlutil.FromSqlInt32(row.PickTimerSec)
	sess.Rounds = sqlutil.FromSqlInt32(row.Rounds)
	sess.StartsAt = sqlutil.FromSqlTime(row.StartsAt)
	sess.CurrentDeadlineAt = sqlutil.FromSqlTime(row.CurrentDeadlineAt)
	sess.PausedRemainingSec = sqlutil.FromSqlInt32(row.PausedRemainingSec)
	if row.CustomOrder.Valid {
		if err := json.Unmarshal(row.CustomOrder.RawMessage, &sess.CustomOrder); err != nil {
			return nil, fmt.Errorf("decoding custom order: %w", err)
		}
	}

	return sess, nil
}

func customOrderValue(order []int64) (pqtype.NullRawMessage, error) {
	if len(order) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("encoding custom order: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}
