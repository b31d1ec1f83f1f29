package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/pkg/jsontypes"
)

// Address carries the venue fields shared by conversion and direct creation
type Address struct {
	FlatOrHouseNo string `json:"flatOrHouseNo" validate:"max=100"`
	StreetName    string `json:"streetName" validate:"required,max=255"`
	City          string `json:"city" validate:"required,max=100"`
	State         string `json:"state" validate:"max=100"`
	PostalCode    string `json:"postalCode" validate:"max=20"`
}

// ConvertQuoteRequest for POST /quotes/{quoteId}/convert-to-booking.
// ClientID is optional; when sent it must match the authenticated client.
type ConvertQuoteRequest struct {
	ClientID *uuid.UUID `json:"clientId,omitempty"`
	Address
	TotalAmount jsontypes.Money `json:"totalAmount" validate:"gt=0,lte=9999999999.99"`
}

// CreateBookingRequest for POST /bookings
type CreateBookingRequest struct {
	ServiceID   *uuid.UUID     `json:"serviceId,omitempty"`
	BookingDate jsontypes.Date `json:"bookingDate"`
	StartDate   jsontypes.Date `json:"startDate"`
	EndDate     jsontypes.Date `json:"endDate"`
	Address
	TotalAmount jsontypes.Money `json:"totalAmount" validate:"gt=0,lte=9999999999.99"`
}

// UpdateStatusRequest for PUT /bookings/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,booking_status"`
}

// RespondRequest for PUT /bookings/{id}/respond
type RespondRequest struct {
	Response string `json:"response" validate:"required,booking_response"`
}

// AssignPhotographerRequest for PUT /bookings/{id}/photographer
type AssignPhotographerRequest struct {
	PhotographerID uuid.UUID `json:"photographerId" validate:"required"`
}

// ListFilter narrows booking listings
type ListFilter struct {
	ClientID       *uuid.UUID
	PhotographerID *uuid.UUID
	Status         string
	Page           int
	Limit          int
}

// BookingResponse represents a booking in API
type BookingResponse struct {
	ID             uuid.UUID  `json:"id"`
	VeroaBookingID string     `json:"veroaBookingId"`
	ServiceID      *uuid.UUID `json:"serviceId,omitempty"`
	ClientID       uuid.UUID  `json:"clientId"`
	PhotographerID *uuid.UUID `json:"photographerId,omitempty"`
	QuoteID        *uuid.UUID `json:"quoteId,omitempty"`
	BookingSource  string     `json:"bookingSource"`
	BookingDate    string     `json:"bookingDate"`
	StartDate      *string    `json:"startDate,omitempty"`
	EndDate        *string    `json:"endDate,omitempty"`
	FlatOrHouseNo  string     `json:"flatOrHouseNo"`
	StreetName     string     `json:"streetName"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	PostalCode     string     `json:"postalCode"`
	TotalAmount    float64    `json:"totalAmount"`
	Status         string     `json:"status"`
	BookingStatus  string     `json:"bookingStatus"`
	PaymentStatus  string     `json:"paymentStatus"`
	CreatedAt      string     `json:"createdAt"`
}

// BookingResponseFromEntity converts entity to response
func BookingResponseFromEntity(b *Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:             b.ID,
		VeroaBookingID: b.VeroaBookingID,
		ClientID:       b.ClientID,
		BookingSource:  string(b.Source),
		BookingDate:    b.BookingDate.Format(time.RFC3339),
		FlatOrHouseNo:  b.FlatOrHouseNo,
		StreetName:     b.StreetName,
		City:           b.City,
		State:          b.State,
		PostalCode:     b.PostalCode,
		TotalAmount:    b.TotalAmount,
		Status:         string(b.Status),
		BookingStatus:  string(b.BookingStatus),
		PaymentStatus:  string(b.PaymentStatus),
		CreatedAt:      b.CreatedAt.Format(time.RFC3339),
	}
	if b.ServiceID.Valid {
		resp.ServiceID = &b.ServiceID.UUID
	}
	if b.PhotographerID.Valid {
		resp.PhotographerID = &b.PhotographerID.UUID
	}
	if b.QuoteID.Valid {
		resp.QuoteID = &b.QuoteID.UUID
	}
	if b.StartDate.Valid {
		s := b.StartDate.Time.Format(time.RFC3339)
		resp.StartDate = &s
	}
	if b.EndDate.Valid {
		s := b.EndDate.Time.Format(time.RFC3339)
		resp.EndDate = &s
	}
	return resp
}
