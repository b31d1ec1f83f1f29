package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines quote data access interface
type Repository interface {
	Create(ctx context.Context, q *Quote) error
	GetByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	List(ctx context.Context, filter ListFilter) ([]*Quote, int, error)
	// UpdateBudget persists the budget fields only if the stored version
	// still equals q.Version. Returns false when another writer got there first.
	UpdateBudget(ctx context.Context, q *Quote) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (bool, error)
	SetFinal(ctx context.Context, id uuid.UUID, final bool) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const quoteColumns = `
	id, client_id, service_id, event_type, event_date, start_date, end_date,
	location, flat_or_house_no, street_name, city, state, postal_code,
	budget, current_budget, previous_budget, quote_status, is_quote_final,
	version, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

// NewRepository creates quote repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, q *Quote) error {
	query := `
		INSERT INTO quotes (
			id, client_id, service_id, event_type, event_date, start_date, end_date,
			location, flat_or_house_no, street_name, city, state, postal_code,
			budget, quote_status, is_quote_final, version, created_at, updated_at
		) VALUES (
			:id, :client_id, :service_id, :event_type, :event_date, :start_date, :end_date,
			:location, :flat_or_house_no, :street_name, :city, :state, :postal_code,
			:budget, :quote_status, :is_quote_final, :version, :created_at, :updated_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("quote repository create: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Quote, error) {
	var q Quote
	err := r.db.GetContext(ctx, &q, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quote repository get: %w", err)
	}
	return &q, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Quote, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("quote_status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM quotes`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("quote repository count: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM quotes%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		quoteColumns, where, len(args)-1, len(args))

	var quotes []*Quote
	if err := r.db.SelectContext(ctx, &quotes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("quote repository list: %w", err)
	}
	return quotes, total, nil
}

func (r *repository) UpdateBudget(ctx context.Context, q *Quote) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE quotes
		SET current_budget = $1, previous_budget = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
	`, q.CurrentBudget, q.PreviousBudget, q.ID, q.Version)
	if err != nil {
		return false, fmt.Errorf("quote repository update budget: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE quotes SET quote_status = $1, version = version + 1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return false, fmt.Errorf("quote repository update status: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *repository) SetFinal(ctx context.Context, id uuid.UUID, final bool) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE quotes SET is_quote_final = $1, version = version + 1, updated_at = NOW() WHERE id = $2
	`, final, id)
	if err != nil {
		return false, fmt.Errorf("quote repository set final: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("quote repository delete: %w", err)
	}
	return nil
}
