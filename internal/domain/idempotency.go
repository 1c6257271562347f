package domain

import "time"

// IdempotencyStatus описывает состояние обработки запроса по ключу.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing — запрос принят и обрабатывается.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusDone — запрос обработан успешно, ответ сохранён.
	IdempotencyStatusDone IdempotencyStatus = "done"
	// IdempotencyStatusFailed — обработка завершилась ошибкой, ответ сохранён.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

// IdempotencyRecord хранит состояние обработки запроса с Idempotency-Key.
// RequestHash защищает от переиспользования ключа с другим телом запроса.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       IdempotencyStatus
	ResponseBody []byte
	HTTPStatus   int
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired сообщает, истёк ли срок жизни записи на момент now.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.TTLAt.IsZero() && now.After(r.TTLAt)
}
