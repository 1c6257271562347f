package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствующей или нулевой суммы заказа при создании.
	ErrTotalAmountRequired = errors.New("total_amount is required and must be non-zero")
	// Ошибка отсутствующей суммы при замене позиций заказа.
	ErrTotalAmountForItems = errors.New("total_amount is required when items are supplied")
	// Ошибка отрицательной суммы заказа.
	ErrTotalAmountNegative = errors.New("total_amount must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalAmountMismatch = errors.New("order total does not match items sum")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка неизвестного статуса заказа.
	ErrOrderStatusUnknown = errors.New("unknown order status")
	// Ошибка недопустимого перехода статуса.
	ErrStatusTransitionDenied = errors.New("status transition is not allowed")
	// Ошибка неизвестного способа оплаты.
	ErrPaymentMethodUnknown = errors.New("unknown payment method")
	// Ошибка позиции без идентификатора товара.
	ErrLineProductRequired = errors.New("order line requires product_id")
	// Ошибка отрицательного количества в позиции.
	ErrLineQuantityInvalid = errors.New("order line quantity must be non-negative")
	// Ошибка отрицательной цены в позиции.
	ErrLinePriceInvalid = errors.New("order line price_unit must be non-negative")
	// Ошибка скидки вне диапазона 0..1.
	ErrLineDiscountInvalid = errors.New("order line discount must be within [0,1]")

	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderAlreadyExists возвращается при попытке создать заказ с занятым ID.
	ErrOrderAlreadyExists = errors.New("order already exists")

	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCustomerNameRequired — у клиента должно быть имя.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductNameRequired — у товара должно быть имя.
	ErrProductNameRequired = errors.New("product name is required")
	// ErrLeadNotFound возвращается, если лид не найден.
	ErrLeadNotFound = errors.New("lead not found")
	// ErrLeadNameRequired — у лида должно быть имя.
	ErrLeadNameRequired = errors.New("lead name is required")

	// ErrAIUnavailable — AI-сервис недоступен после всех повторов.
	ErrAIUnavailable = errors.New("ai service unavailable")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — отсутствует idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — отсутствует хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — запись по ключу не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — ключ использован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is already used with different request payload")
)

// validationErrs перечисляет ошибки, которые транспорт отдаёт как client error (400).
var validationErrs = []error{
	ErrCustomerRequired,
	ErrCurrencyRequired,
	ErrTotalAmountRequired,
	ErrTotalAmountForItems,
	ErrTotalAmountNegative,
	ErrTotalAmountMismatch,
	ErrOrderIDRequired,
	ErrOrderStatusUnknown,
	ErrStatusTransitionDenied,
	ErrPaymentMethodUnknown,
	ErrLineProductRequired,
	ErrLineQuantityInvalid,
	ErrLinePriceInvalid,
	ErrLineDiscountInvalid,
	ErrCustomerNameRequired,
	ErrProductNameRequired,
	ErrLeadNameRequired,
}

// IsValidation проверяет, относится ли ошибка к нарушениям входных предусловий.
func IsValidation(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// IsNotFound проверяет, является ли ошибка отсутствием сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrLeadNotFound)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// StorageError оборачивает сбой хранилища именем операции, внутри которой он произошёл.
// Транзакция к этому моменту уже откатана.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError создаёт StorageError для операции op.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsStorage проверяет, относится ли ошибка к сбоям хранилища.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
