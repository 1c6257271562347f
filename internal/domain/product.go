package domain

import "time"

// Product представляет товар каталога.
type Product struct {
	ID        string
	Name      string
	Category  string
	PriceUnit float64
	Currency  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет обязательные поля товара.
func (p *Product) ValidateInvariants() []error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceUnit < 0 {
		errs = append(errs, ErrLinePriceInvalid)
	}
	return errs
}
