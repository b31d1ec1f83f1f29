package quote

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the quote's position in the client's dashboard (matches quote_status enum)
type Status string

const (
	StatusYourQuotes       Status = "yourQuotes"
	StatusUpcomingBookings Status = "upcommingBookings"
	StatusPreviousBookings Status = "previousBookings"
)

// ValidStatus reports whether s is a known quote status
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusYourQuotes, StatusUpcomingBookings, StatusPreviousBookings:
		return true
	}
	return false
}

// Quote is a client's event request under negotiation
type Quote struct {
	ID        uuid.UUID     `db:"id"`
	ClientID  uuid.UUID     `db:"client_id"`
	ServiceID uuid.NullUUID `db:"service_id"`

	EventType string       `db:"event_type"`
	EventDate time.Time    `db:"event_date"`
	StartDate sql.NullTime `db:"start_date"`
	EndDate   sql.NullTime `db:"end_date"`

	Location      string `db:"location"`
	FlatOrHouseNo string `db:"flat_or_house_no"`
	StreetName    string `db:"street_name"`
	City          string `db:"city"`
	State         string `db:"state"`
	PostalCode    string `db:"postal_code"`

	Budget         float64         `db:"budget"`
	CurrentBudget  sql.NullFloat64 `db:"current_budget"`
	PreviousBudget sql.NullFloat64 `db:"previous_budget"`

	Status  Status `db:"quote_status"`
	IsFinal bool   `db:"is_quote_final"`
	Version int    `db:"version"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// EffectiveBudget is the latest agreed figure: the current budget when set,
// the original ask otherwise.
func (q *Quote) EffectiveBudget() float64 {
	if q.CurrentBudget.Valid {
		return q.CurrentBudget.Float64
	}
	return q.Budget
}

// ProposeBudget records a counter-offer. The prior effective figure moves to
// PreviousBudget only when the proposal actually changes it, so the quote
// always keeps exactly one step of history.
func (q *Quote) ProposeBudget(amount float64) {
	effective := q.EffectiveBudget()
	if effective != 0 && effective != amount {
		q.PreviousBudget = sql.NullFloat64{Float64: effective, Valid: true}
	}
	q.CurrentBudget = sql.NullFloat64{Float64: amount, Valid: true}
}

// IsOwnedBy returns true if userID created the quote
func (q *Quote) IsOwnedBy(userID uuid.UUID) bool {
	return q.ClientID == userID
}

// IsOpen reports whether the quote is still being negotiated
func (q *Quote) IsOpen() bool {
	return q.Status == StatusYourQuotes
}
