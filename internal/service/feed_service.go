package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/samber/lo"

	"github.com/meetloop/schedule-service/internal/domain"
	"github.com/meetloop/schedule-service/internal/ranking"
)

type FeedRepo interface {
	// ListOpen возвращает слоты, которые ещё можно показать в фиде
	// (UPCOMING и ONGOING), вместе со счётчиками броней.
	ListOpen(ctx context.Context, limit int) ([]domain.SlotWithBookings, error)
}

type RankedSlot struct {
	domain.SlotWithBookings
	Score float64
}

// FeedService собирает поисковую выдачу: текстовая близость к запросу,
// трендовость (заполненность слота) и свежесть сводятся в один балл.
type FeedService struct {
	repo FeedRepo
	now  func() time.Time
}

func NewFeedService(repo FeedRepo) *FeedService {
	return &FeedService{repo: repo, now: time.Now}
}

func (s *FeedService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Search возвращает не больше limit слотов, отсортированных по убыванию
// балла; при равенстве — по id, чтобы порядок был стабильным между запросами.
func (s *FeedService) Search(ctx context.Context, query string, limit int) ([]RankedSlot, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	// кандидатов берём с запасом: ранжирование может перетасовать хвост
	candidates, err := s.repo.ListOpen(ctx, limit*5)
	if err != nil {
		return nil, err
	}

	now := s.now()
	q := strings.ToLower(strings.TrimSpace(query))

	ranked := lo.Map(candidates, func(sw domain.SlotWithBookings, _ int) RankedSlot {
		title := strings.ToLower(sw.Title)
		match := matchDistance(q, title)
		var contains float64
		if q != "" && strings.Contains(title, q) {
			contains = 1
		}
		var trend float64
		if sw.Capacity > 0 {
			trend = float64(sw.BookedCount) / float64(sw.Capacity)
		}
		created := sw.CreatedAt
		return RankedSlot{
			SlotWithBookings: sw,
			Score:            ranking.Score(match, trend, contains, &created, now),
		}
	})

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// matchDistance — левенштейн, нормированный в [0,1]; 0 = точное совпадение.
// Пустой запрос считается совпадающим со всем.
func matchDistance(query, title string) float64 {
	if query == "" {
		return 0
	}
	longest := utf8.RuneCountInString(query)
	if n := utf8.RuneCountInString(title); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(query, title)
	return float64(d) / float64(longest)
}
