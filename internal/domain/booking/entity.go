package booking

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the booking lifecycle (matches booking_lifecycle enum)
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// transitions lists the lifecycle moves allowed from each status
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusCompleted, StatusCanceled},
}

// CanTransition reports whether a booking may move from one status to another
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ResponseStatus is the photographer's answer to an assignment
type ResponseStatus string

const (
	ResponsePending  ResponseStatus = "pending"
	ResponseAccepted ResponseStatus = "accepted"
	ResponseRejected ResponseStatus = "rejected"
)

// PaymentStatus mirrors the payment collaborator's state
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Source records how a booking came to exist
type Source string

const (
	SourceDirect Source = "direct"
	SourceQuote  Source = "quote"
)

// Booking is a confirmed engagement
type Booking struct {
	ID             uuid.UUID     `db:"id"`
	VeroaBookingID string        `db:"veroa_booking_id"`
	ServiceID      uuid.NullUUID `db:"service_id"`
	ClientID       uuid.UUID     `db:"client_id"`
	PhotographerID uuid.NullUUID `db:"photographer_id"`
	QuoteID        uuid.NullUUID `db:"quote_id"`
	Source         Source        `db:"booking_source"`

	BookingDate time.Time    `db:"booking_date"`
	StartDate   sql.NullTime `db:"start_date"`
	EndDate     sql.NullTime `db:"end_date"`

	FlatOrHouseNo string `db:"flat_or_house_no"`
	StreetName    string `db:"street_name"`
	City          string `db:"city"`
	State         string `db:"state"`
	PostalCode    string `db:"postal_code"`

	TotalAmount   float64        `db:"total_amount"`
	Status        Status         `db:"status"`
	BookingStatus ResponseStatus `db:"booking_status"`
	PaymentStatus PaymentStatus  `db:"payment_status"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsParty reports whether userID is the booking's client or assigned photographer
func (b *Booking) IsParty(userID uuid.UUID) bool {
	return b.ClientID == userID || b.IsAssignedTo(userID)
}

// IsAssignedTo reports whether userID is the assigned photographer
func (b *Booking) IsAssignedTo(userID uuid.UUID) bool {
	return b.PhotographerID.Valid && b.PhotographerID.UUID == userID
}

// QuoteSnapshot is the quote state the converter copies into a booking
type QuoteSnapshot struct {
	ID        uuid.UUID     `db:"id"`
	ClientID  uuid.UUID     `db:"client_id"`
	ServiceID uuid.NullUUID `db:"service_id"`
	EventDate time.Time     `db:"event_date"`
	StartDate sql.NullTime  `db:"start_date"`
	EndDate   sql.NullTime  `db:"end_date"`
	Status    string        `db:"quote_status"`
}
