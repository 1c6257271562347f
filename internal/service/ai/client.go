package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_ai_requests_total",
		Help: "Итоги запросов к AI-сервису по endpoint.",
	}, []string{"endpoint", "result"})

	aiRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_ai_retries_total",
		Help: "Количество повторных попыток запросов к AI-сервису.",
	})
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	baseBackoff       = 200 * time.Millisecond
	maxBackoff        = 2 * time.Second
)

// Client — тонкий HTTP-прокси к внешнему AI-микросервису.
// Модели не реализует, только транспорт с повторами.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	logger     *log.Entry
}

// NewClient создаёт клиент AI-сервиса. При нулевых значениях timeout и
// maxRetries применяются значения по умолчанию.
func NewClient(baseURL string, timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		maxRetries: maxRetries,
		logger:     log.WithField("component", "ai-client"),
	}
}

// Health проверяет доступность AI-сервиса.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

type scoreLeadRequest struct {
	LeadID string `json:"lead_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Source string `json:"source,omitempty"`
	Status string `json:"status,omitempty"`
}

type scoreLeadResponse struct {
	Score       float64 `json:"score"`
	Probability float64 `json:"probability"`
	Reason      string  `json:"reason"`
}

// ScoreLead возвращает AI-оценку лида.
func (c *Client) ScoreLead(ctx context.Context, lead domain.Lead) (domain.LeadScore, error) {
	req := scoreLeadRequest{
		LeadID: lead.ID,
		Name:   lead.Name,
		Email:  lead.Email,
		Phone:  lead.Phone,
		Source: lead.Source,
		Status: string(lead.Status),
	}

	var resp scoreLeadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/score-lead", req, &resp); err != nil {
		return domain.LeadScore{}, err
	}
	return domain.LeadScore{
		Score:       resp.Score,
		Probability: resp.Probability,
		Reason:      resp.Reason,
	}, nil
}

type segmentCustomersRequest struct {
	Customers []segmentCustomerInput `json:"customers"`
}

type segmentCustomerInput struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Segment    string `json:"segment,omitempty"`
}

type segmentCustomersResponse struct {
	Segments []struct {
		CustomerID string  `json:"customer_id"`
		Segment    string  `json:"segment"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

// SegmentCustomers возвращает сегменты для набора клиентов.
func (c *Client) SegmentCustomers(ctx context.Context, customers []domain.Customer) ([]domain.Segment, error) {
	req := segmentCustomersRequest{
		Customers: make([]segmentCustomerInput, 0, len(customers)),
	}
	for _, customer := range customers {
		req.Customers = append(req.Customers, segmentCustomerInput{
			CustomerID: customer.ID,
			Name:       customer.Name,
			Email:      customer.Email,
			Segment:    customer.Segment,
		})
	}

	var resp segmentCustomersResponse
	if err := c.doJSON(ctx, http.MethodPost, "/segment-customers", req, &resp); err != nil {
		return nil, err
	}

	segments := make([]domain.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, domain.Segment{
			CustomerID: s.CustomerID,
			Segment:    s.Segment,
			Confidence: s.Confidence,
		})
	}
	return segments, nil
}

type recommendProductsResponse struct {
	Recommendations []struct {
		ProductID string  `json:"product_id"`
		Score     float64 `json:"score"`
		Reason    string  `json:"reason"`
	} `json:"recommendations"`
}

// RecommendProducts возвращает рекомендации товаров для клиента.
func (c *Client) RecommendProducts(ctx context.Context, customerID string, limit int) ([]domain.Recommendation, error) {
	query := url.Values{}
	query.Set("customer_id", customerID)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp recommendProductsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/recommend-products?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	recommendations := make([]domain.Recommendation, 0, len(resp.Recommendations))
	for _, r := range resp.Recommendations {
		recommendations = append(recommendations, domain.Recommendation{
			ProductID: r.ProductID,
			Score:     r.Score,
			Reason:    r.Reason,
		})
	}
	return recommendations, nil
}

// doJSON выполняет запрос с повторами. Повторяются сетевые ошибки и
// статусы 408/429/5xx, пауза растёт экспоненциально от 200ms до 2s.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal ai request: %w", err)
		}
		payload = data
	}

	endpoint := path
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt-1); err != nil {
				return err
			}
			aiRetriesTotal.Inc()
			c.logger.WithFields(log.Fields{
				"path":    path,
				"attempt": attempt,
			}).Debug("повтор запроса к ai-сервису")
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build ai request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		if retryableStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("ai service returned status %d", resp.StatusCode)
			continue
		}

		err = decodeResponse(resp, out)
		if err != nil {
			aiRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		} else {
			aiRequestsTotal.WithLabelValues(endpoint, "success").Inc()
		}
		return err
	}

	aiRequestsTotal.WithLabelValues(endpoint, "error").Inc()
	return fmt.Errorf("%w: %v", domain.ErrAIUnavailable, lastErr)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ai service returned status %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ai response: %w", err)
	}
	return nil
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= 500
}

func sleepBackoff(ctx context.Context, attempt int) error {
	delay := baseBackoff << attempt
	if delay > maxBackoff {
		delay = maxBackoff
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ domain.AIService = (*Client)(nil)
