package postgres

import (
	"context"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, kind, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, n.UserID, n.Kind, n.Payload).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications SET delivered_at=$2
		WHERE id=$1 AND delivered_at IS NULL
	`, id, at)
	return err
}

// ListByUser — лента пользователя, новые сверху, курсорная пагинация.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int, cursorStr string) ([]domain.Notification, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, user_id, kind, payload, created_at, delivered_at
		FROM notifications
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR created_at < $2
		       OR (created_at = $2 AND id < $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, userID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Payload, &n.CreatedAt, &n.DeliveredAt); err != nil {
			return nil, "", err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next, _ = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, next, nil
}
