package domain

import (
	"math"
	"time"
)

// OrderStatus описывает жизненный цикл заказа в CRM.
type OrderStatus string

const (
	// OrderStatusDraftCart — корзина собрана, заказ ещё не подтверждён клиентом.
	OrderStatusDraftCart OrderStatus = "draft_cart"
	// OrderStatusAwaitingConfirmation — ожидаем подтверждения клиента.
	OrderStatusAwaitingConfirmation OrderStatus = "awaiting_customer_confirmation"
	// OrderStatusPending — заказ подтверждён, оплата ещё не прошла.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusProcessing — заказ в сборке/обработке.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCompleted — заказ доставлен и закрыт.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён до завершения цикла.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — по заказу выполнен возврат.
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusFailed — обработка заказа завершилась ошибкой.
	OrderStatusFailed OrderStatus = "failed"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraftCart, OrderStatusAwaitingConfirmation, OrderStatusPending,
		OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodPaypal         PaymentMethod = "paypal"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid проверяет способ оплаты. Пустое значение допустимо: способ может быть не указан.
func (m PaymentMethod) Valid() bool {
	switch m {
	case "", PaymentMethodCreditCard, PaymentMethodPaypal, PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	default:
		return false
	}
}

// DefaultCurrency — валюта по умолчанию для новых заказов.
const DefaultCurrency = "VND"

// OrderLine представляет одну позицию заказа.
// Позиция принадлежит ровно одному заказу и не живёт без него.
type OrderLine struct {
	ID        string
	OrderID   string
	ProductID string
	// Quantity — количество единиц товара, целое и неотрицательное.
	Quantity int32
	// PriceUnit — цена за единицу с учётом скидок продавца.
	PriceUnit float64
	// OriginalPrice — цена за единицу до скидки (для отчётности).
	OriginalPrice float64
	// Discount — доля скидки в диапазоне 0..1.
	Discount  float64
	CreatedAt time.Time
}

// Subtotal вычисляет стоимость позиции: price_unit * quantity * (1 - discount),
// не ниже нуля. Значение всегда производное — клиентский subtotal игнорируется.
func (l OrderLine) Subtotal() float64 {
	gross := l.PriceUnit * float64(l.Quantity) * (1 - l.Discount)
	if gross < 0 {
		return 0
	}
	return RoundMoney(gross)
}

// Validate проверяет допустимость одной позиции.
func (l OrderLine) Validate() []error {
	var errs []error

	if l.ProductID == "" {
		errs = append(errs, ErrLineProductRequired)
	}
	if l.Quantity < 0 {
		errs = append(errs, ErrLineQuantityInvalid)
	}
	if l.PriceUnit < 0 {
		errs = append(errs, ErrLinePriceInvalid)
	}
	if l.Discount < 0 || l.Discount > 1 {
		errs = append(errs, ErrLineDiscountInvalid)
	}

	return errs
}

// RoundMoney округляет денежную величину до двух знаков.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// Order агрегирует шапку заказа и его позиции. Шапка и позиции меняются
// только вместе, в одной транзакции.
type Order struct {
	ID            string
	CustomerID    string
	OrderDate     time.Time
	TotalAmount   float64
	Currency      string
	PaymentMethod PaymentMethod
	Status        OrderStatus
	Channel       string
	Notes         string
	Lines         []OrderLine
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LinesTotal возвращает сумму subtotal всех позиций.
func (o *Order) LinesTotal() float64 {
	var total float64
	for _, line := range o.Lines {
		total += line.Subtotal()
	}
	return RoundMoney(total)
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if o.TotalAmount < 0 {
		errs = append(errs, ErrTotalAmountNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusUnknown)
	}
	if !o.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodUnknown)
	}

	for _, line := range o.Lines {
		errs = append(errs, line.Validate()...)
	}

	// Сумма заказа обязана совпадать с суммой позиций, когда позиции заданы.
	if len(o.Lines) > 0 && o.LinesTotal() != RoundMoney(o.TotalAmount) {
		errs = append(errs, ErrTotalAmountMismatch)
	}

	return errs
}

// StatusTransitions задаёт таблицу допустимых переходов статуса заказа.
type StatusTransitions map[OrderStatus][]OrderStatus

// DefaultStatusTransitions возвращает таблицу переходов по умолчанию.
// cancelled/refunded/failed терминальны; completed допускает только возврат.
func DefaultStatusTransitions() StatusTransitions {
	return StatusTransitions{
		OrderStatusDraftCart:            {OrderStatusAwaitingConfirmation, OrderStatusCancelled},
		OrderStatusAwaitingConfirmation: {OrderStatusPending, OrderStatusPaid, OrderStatusCancelled, OrderStatusFailed},
		OrderStatusPending:              {OrderStatusPaid, OrderStatusProcessing, OrderStatusCancelled, OrderStatusFailed},
		OrderStatusPaid:                 {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
		OrderStatusProcessing:           {OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
		OrderStatusShipped:              {OrderStatusCompleted, OrderStatusRefunded},
		OrderStatusCompleted:            {OrderStatusRefunded},
		OrderStatusCancelled:            {},
		OrderStatusRefunded:             {},
		OrderStatusFailed:               {},
	}
}

// CanTransition сообщает, допустим ли переход from -> to.
// Переход в тот же статус всегда допустим (no-op).
func (t StatusTransitions) CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range t[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
