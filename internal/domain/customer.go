package domain

import "time"

// Customer представляет клиента CRM.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Address   string
	// Segment присваивается AI-сервисом; пустое значение — сегмент не определён.
	Segment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет обязательные поля клиента.
func (c *Customer) ValidateInvariants() []error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	return errs
}
