package httpx

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/service/order"
)

type orderItemInput struct {
	ProductID     string  `json:"product_id"`
	Quantity      int32   `json:"quantity"`
	PriceUnit     float64 `json:"price_unit"`
	OriginalPrice float64 `json:"original_price"`
	Discount      float64 `json:"discount"`
}

type createOrderRequest struct {
	CustomerID    string           `json:"customer_id"`
	OrderDate     *string          `json:"order_date,omitempty"`
	TotalAmount   float64          `json:"total_amount"`
	Currency      string           `json:"currency,omitempty"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	Status        string           `json:"status,omitempty"`
	Channel       string           `json:"channel,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Items         []orderItemInput `json:"items,omitempty"`
}

func (r createOrderRequest) toServiceRequest() (order.CreateOrderRequest, error) {
	req := order.CreateOrderRequest{
		CustomerID:    r.CustomerID,
		TotalAmount:   r.TotalAmount,
		Currency:      r.Currency,
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		Status:        domain.OrderStatus(r.Status),
		Channel:       r.Channel,
		Notes:         r.Notes,
		Items:         toLineInputs(r.Items),
	}
	if r.OrderDate != nil {
		parsed, err := parseDate(*r.OrderDate)
		if err != nil {
			return order.CreateOrderRequest{}, err
		}
		req.OrderDate = &parsed
	}
	return req, nil
}

type updateOrderRequest struct {
	OrderDate       *string           `json:"order_date,omitempty"`
	TotalAmount     *float64          `json:"total_amount,omitempty"`
	Currency        *string           `json:"currency,omitempty"`
	PaymentMethod   *string           `json:"payment_method,omitempty"`
	Status          *string           `json:"status,omitempty"`
	Channel         *string           `json:"channel,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	Items           *[]orderItemInput `json:"items,omitempty"`
	ExpectedVersion *int64            `json:"expected_version,omitempty"`
}

func (r updateOrderRequest) toPatch() (order.OrderPatch, error) {
	patch := order.OrderPatch{
		TotalAmount:     r.TotalAmount,
		Currency:        r.Currency,
		Channel:         r.Channel,
		Notes:           r.Notes,
		ExpectedVersion: r.ExpectedVersion,
	}
	if r.OrderDate != nil {
		parsed, err := parseDate(*r.OrderDate)
		if err != nil {
			return order.OrderPatch{}, err
		}
		patch.OrderDate = &parsed
	}
	if r.PaymentMethod != nil {
		method := domain.PaymentMethod(*r.PaymentMethod)
		patch.PaymentMethod = &method
	}
	if r.Status != nil {
		status := domain.OrderStatus(*r.Status)
		patch.Status = &status
	}
	if r.Items != nil {
		items := toLineInputs(*r.Items)
		patch.Items = &items
	}
	return patch, nil
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func toLineInputs(items []orderItemInput) []order.LineInput {
	if items == nil {
		return nil
	}
	inputs := make([]order.LineInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, order.LineInput{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			PriceUnit:     item.PriceUnit,
			OriginalPrice: item.OriginalPrice,
			Discount:      item.Discount,
		})
	}
	return inputs
}

// parseDate принимает RFC3339 или дату без времени.
func parseDate(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format: %q", value)
}

type orderItemResponse struct {
	ID            string  `json:"id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name,omitempty"`
	Quantity      int32   `json:"quantity"`
	PriceUnit     float64 `json:"price_unit"`
	OriginalPrice float64 `json:"original_price,omitempty"`
	Discount      float64 `json:"discount,omitempty"`
	Subtotal      float64 `json:"subtotal"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customer_id"`
	OrderDate     time.Time           `json:"order_date"`
	TotalAmount   float64             `json:"total_amount"`
	Currency      string              `json:"currency"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	Status        string              `json:"status"`
	Channel       string              `json:"channel,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Version       int64               `json:"version"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type statusEventResponse struct {
	OrderID  string    `json:"order_id"`
	Status   string    `json:"status"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred_at"`
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Segment string `json:"segment,omitempty"`
}

type customerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Segment   string    `json:"segment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCustomerResponse(customer domain.Customer) customerResponse {
	return customerResponse{
		ID:        customer.ID,
		Name:      customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Address:   customer.Address,
		Segment:   customer.Segment,
		CreatedAt: customer.CreatedAt,
		UpdatedAt: customer.UpdatedAt,
	}
}

type productRequest struct {
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	PriceUnit float64 `json:"price_unit"`
	Currency  string  `json:"currency,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type productResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	PriceUnit float64   `json:"price_unit"`
	Currency  string    `json:"currency,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:        product.ID,
		Name:      product.Name,
		Category:  product.Category,
		PriceUnit: product.PriceUnit,
		Currency:  product.Currency,
		Active:    product.Active,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
}

type leadRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Source string `json:"source,omitempty"`
	Status string `json:"status,omitempty"`
}

type leadResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Source      string     `json:"source,omitempty"`
	Status      string     `json:"status"`
	Score       float64    `json:"score,omitempty"`
	Probability float64    `json:"probability,omitempty"`
	ScoredAt    *time.Time `json:"scored_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toLeadResponse(lead domain.Lead) leadResponse {
	resp := leadResponse{
		ID:          lead.ID,
		Name:        lead.Name,
		Email:       lead.Email,
		Phone:       lead.Phone,
		Source:      lead.Source,
		Status:      string(lead.Status),
		Score:       lead.Score,
		Probability: lead.Probability,
		CreatedAt:   lead.CreatedAt,
		UpdatedAt:   lead.UpdatedAt,
	}
	if !lead.ScoredAt.IsZero() {
		scoredAt := lead.ScoredAt
		resp.ScoredAt = &scoredAt
	}
	return resp
}

type segmentCustomersRequest struct {
	CustomerIDs []string `json:"customer_ids"`
}

type segmentResponse struct {
	CustomerID string  `json:"customer_id"`
	Segment    string  `json:"segment"`
	Confidence float64 `json:"confidence"`
}

type recommendationResponse struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason,omitempty"`
}

// ErrorResponse — единый формат ошибок API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
