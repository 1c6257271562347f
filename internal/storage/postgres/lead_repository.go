package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

type leadRepository struct {
	db *sql.DB
}

// NewLeadRepository создаёт PostgreSQL-реализацию LeadRepository.
func NewLeadRepository(store *Store) domain.LeadRepository {
	return &leadRepository{db: store.DB()}
}

func (r *leadRepository) Create(ctx context.Context, lead domain.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, source, status, score, probability, scored_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Source, string(lead.Status),
		lead.Score, lead.Probability, nullTime(lead.ScoredAt), lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *leadRepository) Get(ctx context.Context, id string) (domain.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	lead, err := scanLead(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, source, status, score, probability, scored_at, created_at, updated_at
		FROM leads
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Lead{}, domain.ErrLeadNotFound
		}
		return domain.Lead{}, fmt.Errorf("select lead: %w", err)
	}
	return lead, nil
}

func (r *leadRepository) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, source, status, score, probability, scored_at, created_at, updated_at
		FROM leads
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

func (r *leadRepository) Update(ctx context.Context, lead domain.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE leads
		SET name = $2, email = $3, phone = $4, source = $5, status = $6,
		    score = $7, probability = $8, scored_at = $9, updated_at = $10
		WHERE id = $1
	`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Source, string(lead.Status),
		lead.Score, lead.Probability, nullTime(lead.ScoredAt), lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return requireAffected(res, domain.ErrLeadNotFound)
}

func (r *leadRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return requireAffected(res, domain.ErrLeadNotFound)
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		lead     domain.Lead
		status   string
		scoredAt sql.NullTime
	)
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Source, &status,
		&lead.Score, &lead.Probability, &scoredAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.LeadStatus(status)
	if scoredAt.Valid {
		lead.ScoredAt = scoredAt.Time
	}
	return lead, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
