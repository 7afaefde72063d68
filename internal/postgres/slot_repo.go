package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SlotRepository struct {
	db *pgxpool.Pool
}

func NewSlotRepository(db *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) Create(ctx context.Context, s *domain.Slot) error {
	query := `
		INSERT INTO slots (owner_id, title, start_at, end_at, status, capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		s.OwnerID, s.Title, s.StartAt, s.EndAt, s.Status, s.Capacity,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *SlotRepository) Get(ctx context.Context, id string) (*domain.Slot, error) {
	var s domain.Slot
	query := `
		SELECT id, owner_id, title, start_at, end_at, status, capacity, created_at
		FROM slots WHERE id=$1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.OwnerID, &s.Title, &s.StartAt, &s.EndAt, &s.Status, &s.Capacity, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SlotRepository) List(ctx context.Context, limit int, cursorStr string) ([]domain.SlotWithBookings, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT s.id, s.owner_id, s.title, s.start_at, s.end_at, s.status, s.capacity,
		       s.created_at, COUNT(b.user_id)
		FROM slots s
		LEFT JOIN slot_bookings b ON b.slot_id = s.id
		WHERE ($1::timestamptz IS NULL OR s.created_at < $1
		       OR (s.created_at = $1 AND s.id < $2))
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $3`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	slots, err := scanSlotsWithBookings(rows)
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(slots) == limit {
		last := slots[len(slots)-1]
		next, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return slots, next, nil
}

// ListDue — нетерминальные слоты, чьё окно уже началось; батч для планировщика.
func (r *SlotRepository) ListDue(ctx context.Context, now time.Time) ([]domain.SlotWithBookings, error) {
	query := `
		SELECT s.id, s.owner_id, s.title, s.start_at, s.end_at, s.status, s.capacity,
		       s.created_at, COUNT(b.user_id)
		FROM slots s
		LEFT JOIN slot_bookings b ON b.slot_id = s.id
		WHERE s.status IN ('UPCOMING', 'ONGOING') AND s.start_at <= $1
		GROUP BY s.id
		ORDER BY s.start_at ASC`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSlotsWithBookings(rows)
}

// ListOpen — кандидаты для фида: ещё не закончившиеся слоты.
func (r *SlotRepository) ListOpen(ctx context.Context, limit int) ([]domain.SlotWithBookings, error) {
	query := `
		SELECT s.id, s.owner_id, s.title, s.start_at, s.end_at, s.status, s.capacity,
		       s.created_at, COUNT(b.user_id)
		FROM slots s
		LEFT JOIN slot_bookings b ON b.slot_id = s.id
		WHERE s.status IN ('UPCOMING', 'ONGOING')
		GROUP BY s.id
		ORDER BY s.start_at ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSlotsWithBookings(rows)
}

// AdvanceStatus — compare-and-set по статусу; промах по from не ошибка:
// параллельный прогон планировщика уже перевёл слот.
func (r *SlotRepository) AdvanceStatus(ctx context.Context, id string, from, to domain.SlotStatus) error {
	_, err := r.db.Exec(ctx,
		`UPDATE slots SET status=$3 WHERE id=$1 AND status=$2`, id, from, to)
	return err
}

// Book — защищён от гонок по capacity: строка слота блокируется на время
// проверки лимита (как Join участника в комнату).
func (r *SlotRepository) Book(ctx context.Context, slotID string, userID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var capacity int64
	var status domain.SlotStatus
	err = tx.QueryRow(ctx,
		`SELECT capacity, status FROM slots WHERE id=$1 FOR UPDATE`, slotID,
	).Scan(&capacity, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSlotNotFound
		}
		return err
	}
	if status != domain.SlotUpcoming {
		return domain.ErrSlotNotOpen
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM slot_bookings WHERE slot_id=$1 AND user_id=$2)`,
		slotID, userID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyBooked
	}

	var count int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM slot_bookings WHERE slot_id=$1`, slotID).Scan(&count); err != nil {
		return err
	}
	if count >= capacity {
		return domain.ErrSlotFull
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO slot_bookings (slot_id, user_id) VALUES ($1, $2)`,
		slotID, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *SlotRepository) CancelBooking(ctx context.Context, slotID string, userID int64) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM slot_bookings WHERE slot_id=$1 AND user_id=$2`, slotID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotBooked
	}
	return nil
}

func scanSlotsWithBookings(rows pgx.Rows) ([]domain.SlotWithBookings, error) {
	var out []domain.SlotWithBookings
	for rows.Next() {
		var sw domain.SlotWithBookings
		if err := rows.Scan(
			&sw.ID, &sw.OwnerID, &sw.Title, &sw.StartAt, &sw.EndAt,
			&sw.Status, &sw.Capacity, &sw.CreatedAt, &sw.BookedCount,
		); err != nil {
			return nil, err
		}
		out = append(out, sw)
	}
	return out, rows.Err()
}
