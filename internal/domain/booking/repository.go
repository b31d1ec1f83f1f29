package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/veroa/veroa-api/internal/pkg/database"
)

// sequenceName keys the booking counter row in booking_sequences
const sequenceName = "veroa_booking"

// Repository defines booking data access interface
type Repository interface {
	// WithinTx runs fn in one transaction; any error rolls back every write.
	WithinTx(ctx context.Context, fn func(tx TxRepository) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	List(ctx context.Context, filter ListFilter) ([]*Booking, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	UpdateResponse(ctx context.Context, id uuid.UUID, photographerID uuid.UUID, response ResponseStatus) (bool, error)
	AssignPhotographer(ctx context.Context, id, photographerID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error

	LatestBookingID(ctx context.Context) (string, error)
	RaiseSequence(ctx context.Context, atLeast int64) error

	// UnflippedQuoteIDs finds quotes that produced a booking but still sit
	// in yourQuotes.
	UnflippedQuoteIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	MarkQuoteBooked(ctx context.Context, quoteID uuid.UUID) (bool, error)
}

// TxRepository is the subset of writes used by conversion and direct creation
type TxRepository interface {
	Sequencer
	LockQuote(ctx context.Context, quoteID, clientID uuid.UUID) (*QuoteSnapshot, error)
	HasBookingForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error)
	Insert(ctx context.Context, b *Booking) error
	SetQuoteBooked(ctx context.Context, quoteID uuid.UUID) error
}

const bookingColumns = `
	id, veroa_booking_id, service_id, client_id, photographer_id, quote_id,
	booking_source, booking_date, start_date, end_date, flat_or_house_no,
	street_name, city, state, postal_code, total_amount, status,
	booking_status, payment_status, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

// NewRepository creates booking repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithinTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM service_bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking repository get: %w", err)
	}
	return &b, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Booking, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.PhotographerID != nil {
		args = append(args, *filter.PhotographerID)
		conditions = append(conditions, fmt.Sprintf("photographer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM service_bookings`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("booking repository count: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM service_bookings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	var bookings []*Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("booking repository list: %w", err)
	}
	return bookings, total, nil
}

// UpdateStatus moves the booking only if it is still in from
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE service_bookings SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("booking repository update status: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *repository) UpdateResponse(ctx context.Context, id, photographerID uuid.UUID, response ResponseStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE service_bookings SET booking_status = $1, updated_at = NOW()
		WHERE id = $2 AND photographer_id = $3 AND booking_status = 'pending'
	`, response, id, photographerID)
	if err != nil {
		return false, fmt.Errorf("booking repository update response: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *repository) AssignPhotographer(ctx context.Context, id, photographerID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE service_bookings
		SET photographer_id = $1, booking_status = 'pending', updated_at = NOW()
		WHERE id = $2
	`, photographerID, id)
	if err != nil {
		return false, fmt.Errorf("booking repository assign photographer: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM service_bookings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("booking repository delete: %w", err)
	}
	return nil
}

func (r *repository) LatestBookingID(ctx context.Context) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `
		SELECT veroa_booking_id FROM service_bookings
		WHERE veroa_booking_id <> ''
		ORDER BY created_at DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("booking repository latest id: %w", err)
	}
	return id, nil
}

func (r *repository) RaiseSequence(ctx context.Context, atLeast int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO booking_sequences (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(booking_sequences.value, EXCLUDED.value)
	`, sequenceName, atLeast)
	if err != nil {
		return fmt.Errorf("booking repository raise sequence: %w", err)
	}
	return nil
}

func (r *repository) UnflippedQuoteIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT q.id
		FROM quotes q
		JOIN service_bookings b ON b.quote_id = q.id
		WHERE b.booking_source = 'quote' AND q.quote_status = 'yourQuotes'
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("booking repository unflipped quotes: %w", err)
	}
	return ids, nil
}

// MarkQuoteBooked flips a quote still in yourQuotes
func (r *repository) MarkQuoteBooked(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE quotes
		SET quote_status = 'upcommingBookings', version = version + 1, updated_at = NOW()
		WHERE id = $1 AND quote_status = 'yourQuotes'
	`, quoteID)
	if err != nil {
		return false, fmt.Errorf("booking repository flip quote: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

type txRepository struct {
	tx *sqlx.Tx
}

// NextSequence increments the counter row. The row lock is held until the
// surrounding transaction ends, which serializes concurrent allocations.
func (t *txRepository) NextSequence(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.GetContext(ctx, &n, `
		INSERT INTO booking_sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = booking_sequences.value + 1
		RETURNING value
	`, sequenceName)
	if err != nil {
		return 0, fmt.Errorf("booking sequence next: %w", err)
	}
	return n, nil
}

func (t *txRepository) LockQuote(ctx context.Context, quoteID, clientID uuid.UUID) (*QuoteSnapshot, error) {
	var q QuoteSnapshot
	err := t.tx.GetContext(ctx, &q, `
		SELECT id, client_id, service_id, event_date, start_date, end_date, quote_status
		FROM quotes
		WHERE id = $1 AND client_id = $2
		FOR UPDATE
	`, quoteID, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking repository lock quote: %w", err)
	}
	return &q, nil
}

func (t *txRepository) HasBookingForQuote(ctx context.Context, quoteID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM service_bookings WHERE quote_id = $1)`, quoteID)
	if err != nil {
		return false, fmt.Errorf("booking repository quote lookup: %w", err)
	}
	return exists, nil
}

func (t *txRepository) Insert(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO service_bookings (
			id, veroa_booking_id, service_id, client_id, photographer_id, quote_id,
			booking_source, booking_date, start_date, end_date, flat_or_house_no,
			street_name, city, state, postal_code, total_amount, status,
			booking_status, payment_status, created_at, updated_at
		) VALUES (
			:id, :veroa_booking_id, :service_id, :client_id, :photographer_id, :quote_id,
			:booking_source, :booking_date, :start_date, :end_date, :flat_or_house_no,
			:street_name, :city, :state, :postal_code, :total_amount, :status,
			:booking_status, :payment_status, :created_at, :updated_at
		)`
	if _, err := t.tx.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("booking repository insert: %w", err)
	}
	return nil
}

func (t *txRepository) SetQuoteBooked(ctx context.Context, quoteID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE quotes
		SET quote_status = 'upcommingBookings', version = version + 1, updated_at = NOW()
		WHERE id = $1
	`, quoteID)
	if err != nil {
		return fmt.Errorf("booking repository flip quote: %w", err)
	}
	return nil
}
