package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/pkg/cache"
)

// CachedService кэширует рекомендации в Redis поверх базового AIService.
// Скоринг лидов и сегментация не кэшируются: их входы меняются между вызовами.
type CachedService struct {
	inner  domain.AIService
	cache  cache.Cache
	ttl    time.Duration
	logger *log.Entry
}

// NewCachedService оборачивает сервис кэшем. При нулевом ttl берётся 5 минут.
func NewCachedService(inner domain.AIService, c cache.Cache, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedService{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: log.WithField("component", "ai-cache"),
	}
}

func (s *CachedService) Health(ctx context.Context) error {
	return s.inner.Health(ctx)
}

func (s *CachedService) ScoreLead(ctx context.Context, lead domain.Lead) (domain.LeadScore, error) {
	return s.inner.ScoreLead(ctx, lead)
}

func (s *CachedService) SegmentCustomers(ctx context.Context, customers []domain.Customer) ([]domain.Segment, error) {
	return s.inner.SegmentCustomers(ctx, customers)
}

// RecommendProducts отдаёт рекомендации из кэша; при промахе идёт к AI-сервису
// и сохраняет результат. Ошибки кэша не роняют запрос.
func (s *CachedService) RecommendProducts(ctx context.Context, customerID string, limit int) ([]domain.Recommendation, error) {
	key := s.cache.GenerateKey("recommendations", fmt.Sprintf("%s:%d", customerID, limit))

	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.logger.WithError(err).Warn("ошибка чтения кэша рекомендаций")
	} else if cached != "" {
		var recommendations []domain.Recommendation
		if err := json.Unmarshal([]byte(cached), &recommendations); err != nil {
			s.logger.WithError(err).Warn("повреждённая запись в кэше рекомендаций")
		} else {
			return recommendations, nil
		}
	}

	recommendations, err := s.inner.RecommendProducts(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(recommendations); err == nil {
		if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
			s.logger.WithError(err).Warn("ошибка записи кэша рекомендаций")
		}
	}
	return recommendations, nil
}

var _ domain.AIService = (*CachedService)(nil)
