package ai

import (
	"context"
	"hash/fnv"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

// MockService — детерминированная заглушка AIService для локальной
// разработки и тестов без внешнего сервиса.
type MockService struct{}

// NewMockService создаёт заглушку AI-сервиса.
func NewMockService() *MockService {
	return &MockService{}
}

func (s *MockService) Health(ctx context.Context) error {
	return nil
}

// ScoreLead выдаёт стабильный скоринг, зависящий только от ID лида.
func (s *MockService) ScoreLead(ctx context.Context, lead domain.Lead) (domain.LeadScore, error) {
	score := float64(hashOf(lead.ID)%100) / 100
	return domain.LeadScore{
		Score:       score,
		Probability: score * 0.9,
		Reason:      "mock scoring",
	}, nil
}

func (s *MockService) SegmentCustomers(ctx context.Context, customers []domain.Customer) ([]domain.Segment, error) {
	segments := make([]domain.Segment, 0, len(customers))
	names := []string{"retail", "wholesale", "vip"}
	for _, customer := range customers {
		segments = append(segments, domain.Segment{
			CustomerID: customer.ID,
			Segment:    names[hashOf(customer.ID)%uint32(len(names))],
			Confidence: 0.75,
		})
	}
	return segments, nil
}

func (s *MockService) RecommendProducts(ctx context.Context, customerID string, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		limit = 3
	}
	recommendations := make([]domain.Recommendation, 0, limit)
	for i := 0; i < limit; i++ {
		recommendations = append(recommendations, domain.Recommendation{
			ProductID: "mock-product",
			Score:     1 - float64(i)*0.1,
			Reason:    "mock recommendation",
		})
	}
	return recommendations, nil
}

func hashOf(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

var _ domain.AIService = (*MockService)(nil)
