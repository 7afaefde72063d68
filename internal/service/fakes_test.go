package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meetloop/schedule-service/internal/domain"
)

// In-memory фейки репозиториев: ядро хранит в них те же записи, что и в
// Postgres, но без стора — детерминированные тесты с инжектированным now.

type fakeSlotRepo struct {
	mu       sync.Mutex
	slots    map[string]*domain.Slot
	bookings map[string]map[int64]struct{}
	failIDs  map[string]bool // AdvanceStatus по этим id падает
	seq      int
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{
		slots:    make(map[string]*domain.Slot),
		bookings: make(map[string]map[int64]struct{}),
		failIDs:  make(map[string]bool),
	}
}

func (f *fakeSlotRepo) add(s domain.Slot, bookedBy ...int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("slot-%d", f.seq)
	}
	if s.Status == "" {
		s.Status = domain.SlotUpcoming
	}
	cp := s
	f.slots[s.ID] = &cp
	f.bookings[s.ID] = make(map[int64]struct{})
	for _, uid := range bookedBy {
		f.bookings[s.ID][uid] = struct{}{}
	}
	return s.ID
}

func (f *fakeSlotRepo) Create(ctx context.Context, s *domain.Slot) error {
	s.ID = f.add(*s)
	return nil
}

func (f *fakeSlotRepo) Get(ctx context.Context, id string) (*domain.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSlotRepo) List(ctx context.Context, limit int, cursor string) ([]domain.SlotWithBookings, string, error) {
	out, err := f.ListOpen(ctx, limit)
	return out, "", err
}

func (f *fakeSlotRepo) ListOpen(ctx context.Context, limit int) ([]domain.SlotWithBookings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SlotWithBookings
	for _, s := range f.slots {
		if s.Status.IsTerminal() {
			continue
		}
		out = append(out, domain.SlotWithBookings{Slot: *s, BookedCount: int64(len(f.bookings[s.ID]))})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) ListDue(ctx context.Context, now time.Time) ([]domain.SlotWithBookings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SlotWithBookings
	for _, s := range f.slots {
		if s.Status.IsTerminal() || s.StartAt.After(now) {
			continue
		}
		out = append(out, domain.SlotWithBookings{Slot: *s, BookedCount: int64(len(f.bookings[s.ID]))})
	}
	return out, nil
}

func (f *fakeSlotRepo) AdvanceStatus(ctx context.Context, id string, from, to domain.SlotStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return errors.New("store hiccup")
	}
	s, ok := f.slots[id]
	if !ok || s.Status != from {
		return nil // CAS-промах — не ошибка
	}
	s.Status = to
	return nil
}

func (f *fakeSlotRepo) Book(ctx context.Context, slotID string, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotID]
	if !ok {
		return domain.ErrSlotNotFound
	}
	if s.Status != domain.SlotUpcoming {
		return domain.ErrSlotNotOpen
	}
	bs := f.bookings[slotID]
	if _, ok := bs[userID]; ok {
		return domain.ErrAlreadyBooked
	}
	if int64(len(bs)) >= s.Capacity {
		return domain.ErrSlotFull
	}
	bs[userID] = struct{}{}
	return nil
}

func (f *fakeSlotRepo) CancelBooking(ctx context.Context, slotID string, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bs, ok := f.bookings[slotID]
	if !ok {
		return domain.ErrNotBooked
	}
	if _, ok := bs[userID]; !ok {
		return domain.ErrNotBooked
	}
	delete(bs, userID)
	return nil
}

func (f *fakeSlotRepo) status(id string) domain.SlotStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[id].Status
}

type fakeCallRepo struct {
	mu    sync.Mutex
	calls map[string]*domain.VideoCall
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: make(map[string]*domain.VideoCall)}
}

func (f *fakeCallRepo) addCall(roomID string, createdAt time.Time, parts ...domain.CallParticipant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[roomID] = &domain.VideoCall{
		RoomID:       roomID,
		Status:       domain.CallActive,
		CreatedAt:    createdAt,
		Participants: parts,
	}
}

func (f *fakeCallRepo) Join(ctx context.Context, roomID string, userID int64, now time.Time) (*domain.CallParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[roomID]
	if !ok {
		c = &domain.VideoCall{RoomID: roomID, Status: domain.CallActive, CreatedAt: now}
		f.calls[roomID] = c
	}
	if c.Status == domain.CallEnded {
		c.Status = domain.CallActive
		c.EndedAt = nil
	}
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			c.Participants[i].IsActive = true
			c.Participants[i].LastSeen = now
			cp := c.Participants[i]
			return &cp, nil
		}
	}
	p := domain.CallParticipant{RoomID: roomID, UserID: userID, JoinedAt: now, LastSeen: now, IsActive: true}
	c.Participants = append(c.Participants, p)
	return &p, nil
}

func (f *fakeCallRepo) TouchHeartbeat(ctx context.Context, roomID string, userID int64, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[roomID]
	if !ok {
		return nil
	}
	for i := range c.Participants {
		if c.Participants[i].UserID == userID && c.Participants[i].IsActive {
			c.Participants[i].LastSeen = now
		}
	}
	return nil
}

func (f *fakeCallRepo) Deactivate(ctx context.Context, roomID string, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[roomID]
	if !ok {
		return nil
	}
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			c.Participants[i].IsActive = false
		}
	}
	return nil
}

func (f *fakeCallRepo) ListActive(ctx context.Context, roomID string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[roomID]
	if !ok {
		return nil, nil
	}
	var out []int64
	for _, p := range c.Participants {
		if p.IsActive {
			out = append(out, p.UserID)
		}
	}
	return out, nil
}

func (f *fakeCallRepo) Get(ctx context.Context, roomID string) (*domain.VideoCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[roomID]
	if !ok {
		return nil, domain.ErrCallNotFound
	}
	cp := *c
	cp.Participants = append([]domain.CallParticipant(nil), c.Participants...)
	return &cp, nil
}

func (f *fakeCallRepo) ListActiveCalls(ctx context.Context) ([]domain.VideoCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.VideoCall
	for _, c := range f.calls {
		if c.Status != domain.CallActive {
			continue
		}
		cp := *c
		cp.Participants = append([]domain.CallParticipant(nil), c.Participants...)
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeCallRepo) DeactivateParticipants(ctx context.Context, roomID string, userIDs []int64) error {
	for _, uid := range userIDs {
		if err := f.Deactivate(ctx, roomID, uid); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCallRepo) EndCall(ctx context.Context, roomID string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[roomID]
	if !ok || c.Status != domain.CallActive {
		return nil
	}
	c.Status = domain.CallEnded
	at := endedAt
	c.EndedAt = &at
	return nil
}

func (f *fakeCallRepo) callStatus(roomID string) domain.CallStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[roomID].Status
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	inserted  []*domain.Notification
	delivered map[string]time.Time
	failNext  bool
	seq       int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{delivered: make(map[string]time.Time)}
}

func (f *fakeNotificationRepo) Insert(ctx context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("store hiccup")
	}
	f.seq++
	n.ID = fmt.Sprintf("n-%d", f.seq)
	n.CreatedAt = time.Now()
	cp := *n
	f.inserted = append(f.inserted, &cp)
	return nil
}

func (f *fakeNotificationRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered[id] = at
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID int64, limit int, cursor string) ([]domain.Notification, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.inserted {
		if n.UserID == userID {
			out = append(out, *n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, "", nil
}

type fakePushConn struct {
	mu     sync.Mutex
	pushes int
	fail   bool
}

func (c *fakePushConn) Push(kind string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.pushes++
	return nil
}

type fakeRegistry struct {
	conns map[int64][]PushConn
}

func (r *fakeRegistry) Connections(userID int64) []PushConn {
	return r.conns[userID]
}
