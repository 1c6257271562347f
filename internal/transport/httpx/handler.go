package httpx

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/service/order"
)

const defaultIdempotencyTTL = 24 * time.Hour

// Deps — зависимости HTTP-обработчиков.
// Idempotency может быть nil, тогда Idempotency-Key игнорируется.
type Deps struct {
	Coordinator    *order.Coordinator
	Customers      domain.CustomerRepository
	Products       domain.ProductRepository
	Leads          domain.LeadRepository
	AI             domain.AIService
	Idempotency    domain.IdempotencyRepository
	IdempotencyTTL time.Duration
}

// Handler обрабатывает HTTP-запросы CRM API.
type Handler struct {
	coordinator    *order.Coordinator
	customers      domain.CustomerRepository
	products       domain.ProductRepository
	leads          domain.LeadRepository
	ai             domain.AIService
	idempotency    domain.IdempotencyRepository
	idempotencyTTL time.Duration
	logger         *log.Entry
}

// NewHandler создаёт обработчик API.
func NewHandler(deps Deps) *Handler {
	ttl := deps.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Handler{
		coordinator:    deps.Coordinator,
		customers:      deps.Customers,
		products:       deps.Products,
		leads:          deps.Leads,
		ai:             deps.AI,
		idempotency:    deps.Idempotency,
		idempotencyTTL: ttl,
		logger:         log.WithField("component", "http-handler"),
	}
}

// orderResponse собирает ответ по заказу, обогащая позиции именами товаров.
// Ошибки каталога не ломают ответ, имя остаётся пустым.
func (h *Handler) orderResponse(ctx context.Context, o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Lines))
	for _, line := range o.Lines {
		item := orderItemResponse{
			ID:            line.ID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			PriceUnit:     line.PriceUnit,
			OriginalPrice: line.OriginalPrice,
			Discount:      line.Discount,
			Subtotal:      line.Subtotal(),
		}
		if h.products != nil {
			if product, err := h.products.Get(ctx, line.ProductID); err == nil {
				item.ProductName = product.Name
			}
		}
		items = append(items, item)
	}

	return orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		OrderDate:     o.OrderDate,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		Channel:       o.Channel,
		Notes:         o.Notes,
		Version:       o.Version,
		Items:         items,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
