package service

import (
	"context"
	"fmt"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"
)

type PresenceRepo interface {
	// Join создаёт запись звонка при первом участнике и добавляет либо
	// реактивирует участника. Read-modify-write по записи звонка защищён
	// на уровне стора (блокировка строки звонка).
	Join(ctx context.Context, roomID string, userID int64, now time.Time) (*domain.CallParticipant, error)
	// TouchHeartbeat обновляет last_seen активного участника; отсутствие
	// участника — не ошибка.
	TouchHeartbeat(ctx context.Context, roomID string, userID int64, now time.Time) error
	// Deactivate помечает участника неактивным; отсутствие — не ошибка.
	Deactivate(ctx context.Context, roomID string, userID int64) error
	ListActive(ctx context.Context, roomID string) ([]int64, error)
	Get(ctx context.Context, roomID string) (*domain.VideoCall, error)
}

// PresenceService отслеживает, кто реально находится в живой комнате.
// Запоздавший heartbeat или leave после зачистки — молчаливый no-op.
type PresenceService struct {
	repo PresenceRepo
	now  func() time.Time
}

func NewPresenceService(repo PresenceRepo) *PresenceService {
	return &PresenceService{repo: repo, now: time.Now}
}

// SetClock подменяет источник времени (в тестах).
func (s *PresenceService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *PresenceService) Join(ctx context.Context, roomID string, userID int64) (*domain.CallParticipant, error) {
	p, err := s.repo.Join(ctx, roomID, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("presenceRepo.Join: %w", err)
	}
	return p, nil
}

func (s *PresenceService) Heartbeat(ctx context.Context, roomID string, userID int64) error {
	return s.repo.TouchHeartbeat(ctx, roomID, userID, s.now())
}

func (s *PresenceService) Leave(ctx context.Context, roomID string, userID int64) error {
	return s.repo.Deactivate(ctx, roomID, userID)
}

func (s *PresenceService) ListActive(ctx context.Context, roomID string) ([]int64, error) {
	return s.repo.ListActive(ctx, roomID)
}

func (s *PresenceService) GetCall(ctx context.Context, roomID string) (*domain.VideoCall, error) {
	return s.repo.Get(ctx, roomID)
}
