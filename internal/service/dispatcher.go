package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"
)

type NotificationRepo interface {
	// Insert заполняет ID и CreatedAt.
	Insert(ctx context.Context, n *domain.Notification) error
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	ListByUser(ctx context.Context, userID int64, limit int, cursor string) ([]domain.Notification, string, error)
}

// PushConn — одно открытое push-соединение получателя.
type PushConn interface {
	Push(kind string, payload any) error
}

// ConnRegistry — живой реестр соединений (hub в транспортном слое).
// Диспетчер только читает его; регистрацией и снятием занимаются
// жизненные циклы самих соединений.
type ConnRegistry interface {
	Connections(userID int64) []PushConn
}

// DeliveryReport — что случилось с одним emit.
type DeliveryReport struct {
	NotificationID string
	Connections    int
	Delivered      int
}

// Dispatcher сначала персистит уведомление, потом рассылает его по открытым
// соединениям получателя — ровно один push на соединение, без ретраев.
// Офлайн-получатель (ноль соединений) — не ошибка: уведомление дождётся
// следующего поллинга.
type Dispatcher struct {
	repo     NotificationRepo
	registry ConnRegistry
	now      func() time.Time
}

func NewDispatcher(repo NotificationRepo, registry ConnRegistry) *Dispatcher {
	return &Dispatcher{repo: repo, registry: registry, now: time.Now}
}

func (d *Dispatcher) SetClock(now func() time.Time) {
	if now != nil {
		d.now = now
	}
}

func (d *Dispatcher) Emit(ctx context.Context, n *domain.Notification) (DeliveryReport, error) {
	var rep DeliveryReport

	if err := d.repo.Insert(ctx, n); err != nil {
		return rep, fmt.Errorf("notificationRepo.Insert: %w", err)
	}
	rep.NotificationID = n.ID

	conns := d.registry.Connections(n.UserID)
	rep.Connections = len(conns)
	for _, c := range conns {
		if err := c.Push(n.Kind, n.Payload); err != nil {
			slog.Debug("notification push failed",
				"notification", n.ID, "user", n.UserID, "err", err)
			continue
		}
		rep.Delivered++
	}

	if rep.Delivered > 0 {
		if err := d.repo.MarkDelivered(ctx, n.ID, d.now()); err != nil {
			// доставка уже случилась, откатывать её нечем — только лог
			slog.Warn("mark delivered failed", "notification", n.ID, "err", err)
		}
	}

	return rep, nil
}

// History — персистентная лента уведомлений пользователя (поллинг на логине).
func (d *Dispatcher) History(ctx context.Context, userID int64, limit int, cursor string) ([]domain.Notification, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return d.repo.ListByUser(ctx, userID, limit, cursor)
}
