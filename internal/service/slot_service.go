package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"
)

type SlotRepo interface {
	Create(ctx context.Context, s *domain.Slot) error
	Get(ctx context.Context, id string) (*domain.Slot, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.SlotWithBookings, string, error)
	// Book защищён от гонок по capacity: строка слота блокируется, пока
	// проверяется лимит (как Join в комнатах).
	Book(ctx context.Context, slotID string, userID int64) error
	CancelBooking(ctx context.Context, slotID string, userID int64) error
}

// SlotService — владельцы создают слоты, пользователи бронируют их.
// Статусами занимается только SlotScheduler; здесь статус лишь читается.
type SlotService struct {
	repo     SlotRepo
	notifier Notifier
}

func NewSlotService(repo SlotRepo, notifier Notifier) *SlotService {
	return &SlotService{repo: repo, notifier: notifier}
}

func (s *SlotService) CreateSlot(ctx context.Context, ownerID int64, title string, startAt, endAt time.Time, capacity int64) (*domain.Slot, error) {
	if !endAt.After(startAt) {
		return nil, fmt.Errorf("%w: end_at must be after start_at", domain.ErrSlotNotOpen)
	}
	if capacity <= 0 || capacity > 100 {
		capacity = 10
	}

	slot := &domain.Slot{
		OwnerID:  ownerID,
		Title:    title,
		StartAt:  startAt,
		EndAt:    endAt,
		Status:   domain.SlotUpcoming,
		Capacity: capacity,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("slotRepo.Create: %w", err)
	}
	return slot, nil
}

func (s *SlotService) GetSlot(ctx context.Context, id string) (*domain.Slot, error) {
	return s.repo.Get(ctx, id)
}

func (s *SlotService) ListSlots(ctx context.Context, limit int, cursor string) ([]domain.SlotWithBookings, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	return s.repo.List(ctx, limit, cursor)
}

// Book бронирует место; владельцу уходит уведомление (best-effort).
func (s *SlotService) Book(ctx context.Context, slotID string, userID int64) error {
	slot, err := s.repo.Get(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.Status != domain.SlotUpcoming {
		return domain.ErrSlotNotOpen
	}

	if err := s.repo.Book(ctx, slotID, userID); err != nil {
		return err
	}

	s.notifyOwner(ctx, slot, domain.NotifySlotBooked, userID)
	return nil
}

// Cancel снимает бронь; отсутствие брони — ErrNotBooked.
func (s *SlotService) Cancel(ctx context.Context, slotID string, userID int64) error {
	slot, err := s.repo.Get(ctx, slotID)
	if err != nil {
		return err
	}

	if err := s.repo.CancelBooking(ctx, slotID, userID); err != nil {
		return err
	}

	s.notifyOwner(ctx, slot, domain.NotifySlotCanceled, userID)
	return nil
}

func (s *SlotService) notifyOwner(ctx context.Context, slot *domain.Slot, kind string, actorID int64) {
	if s.notifier == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"slot_id": slot.ID,
		"title":   slot.Title,
		"user_id": actorID,
	})
	n := &domain.Notification{
		UserID:  slot.OwnerID,
		Kind:    kind,
		Payload: payload,
	}
	if _, err := s.notifier.Emit(ctx, n); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("owner notification failed", "slot", slot.ID, "kind", kind, "err", err)
	}
}
