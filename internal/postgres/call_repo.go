package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CallRepository struct {
	db *pgxpool.Pool
}

func NewCallRepository(db *pgxpool.Pool) *CallRepository {
	return &CallRepository{db: db}
}

// Join создаёт запись звонка при первом участнике, затем под блокировкой
// строки звонка добавляет либо реактивирует участника. Два параллельных
// Join в одну комнату не затирают друг друга.
func (r *CallRepository) Join(ctx context.Context, roomID string, userID int64, now time.Time) (*domain.CallParticipant, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO calls (room_id, status, created_at)
		VALUES ($1, 'ACTIVE', $2)
		ON CONFLICT (room_id) DO NOTHING
	`, roomID, now); err != nil {
		return nil, err
	}

	// Блокируем строку звонка: параллельные Join по той же комнате будут ждать.
	var status domain.CallStatus
	if err := tx.QueryRow(ctx,
		`SELECT status FROM calls WHERE room_id=$1 FOR UPDATE`, roomID,
	).Scan(&status); err != nil {
		return nil, err
	}

	// Join в закрытую комнату открывает её заново (владелец вернулся).
	if status == domain.CallEnded {
		if _, err := tx.Exec(ctx,
			`UPDATE calls SET status='ACTIVE', ended_at=NULL WHERE room_id=$1`, roomID); err != nil {
			return nil, err
		}
	}

	p := &domain.CallParticipant{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: now,
		LastSeen: now,
		IsActive: true,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO call_participants (room_id, user_id, joined_at, last_seen, is_active)
		VALUES ($1, $2, $3, $3, TRUE)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET last_seen=$3, is_active=TRUE
		RETURNING joined_at
	`, roomID, userID, now).Scan(&p.JoinedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// TouchHeartbeat: ноль затронутых строк — не ошибка, запоздавший heartbeat
// после зачистки просто игнорируется.
func (r *CallRepository) TouchHeartbeat(ctx context.Context, roomID string, userID int64, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE call_participants SET last_seen=$3
		WHERE room_id=$1 AND user_id=$2 AND is_active
	`, roomID, userID, now)
	return err
}

// Deactivate — явный leave; отсутствие участника — no-op.
func (r *CallRepository) Deactivate(ctx context.Context, roomID string, userID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE call_participants SET is_active=FALSE
		WHERE room_id=$1 AND user_id=$2
	`, roomID, userID)
	return err
}

func (r *CallRepository) ListActive(ctx context.Context, roomID string) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM call_participants
		WHERE room_id=$1 AND is_active
		ORDER BY joined_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *CallRepository) Get(ctx context.Context, roomID string) (*domain.VideoCall, error) {
	var c domain.VideoCall
	err := r.db.QueryRow(ctx,
		`SELECT room_id, status, created_at, ended_at FROM calls WHERE room_id=$1`, roomID,
	).Scan(&c.RoomID, &c.Status, &c.CreatedAt, &c.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCallNotFound
		}
		return nil, err
	}

	c.Participants, err = r.listParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListActiveCalls — батч для реконсайлера: все ACTIVE звонки с участниками.
func (r *CallRepository) ListActiveCalls(ctx context.Context) ([]domain.VideoCall, error) {
	rows, err := r.db.Query(ctx, `
		SELECT room_id, status, created_at, ended_at
		FROM calls WHERE status='ACTIVE'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []domain.VideoCall
	for rows.Next() {
		var c domain.VideoCall
		if err := rows.Scan(&c.RoomID, &c.Status, &c.CreatedAt, &c.EndedAt); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range calls {
		calls[i].Participants, err = r.listParticipants(ctx, calls[i].RoomID)
		if err != nil {
			return nil, err
		}
	}
	return calls, nil
}

func (r *CallRepository) DeactivateParticipants(ctx context.Context, roomID string, userIDs []int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE call_participants SET is_active=FALSE
		WHERE room_id=$1 AND user_id = ANY($2)
	`, roomID, userIDs)
	return err
}

// EndCall закрывает звонок, если он всё ещё ACTIVE; повторное закрытие — no-op.
func (r *CallRepository) EndCall(ctx context.Context, roomID string, endedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE calls SET status='ENDED', ended_at=$2
		WHERE room_id=$1 AND status='ACTIVE'
	`, roomID, endedAt)
	return err
}

func (r *CallRepository) listParticipants(ctx context.Context, roomID string) ([]domain.CallParticipant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT room_id, user_id, joined_at, last_seen, is_active
		FROM call_participants WHERE room_id=$1
		ORDER BY joined_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CallParticipant
	for rows.Next() {
		var p domain.CallParticipant
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.JoinedAt, &p.LastSeen, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
