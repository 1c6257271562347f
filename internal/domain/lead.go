package domain

import "time"

// LeadStatus описывает стадию лида в воронке.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// Lead представляет потенциального клиента.
type Lead struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Source string
	Status LeadStatus
	// Score и Probability заполняются AI-скорингом; нулевые значения — лид не оценён.
	Score       float64
	Probability float64
	ScoredAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет обязательные поля лида.
func (l *Lead) ValidateInvariants() []error {
	var errs []error
	if l.Name == "" {
		errs = append(errs, ErrLeadNameRequired)
	}
	return errs
}
