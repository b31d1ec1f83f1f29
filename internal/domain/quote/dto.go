package quote

import (
	"time"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/pkg/jsontypes"
)

// CreateQuoteRequest for POST /quotes
type CreateQuoteRequest struct {
	ServiceID     *uuid.UUID      `json:"serviceId,omitempty"`
	EventType     string          `json:"eventType" validate:"required,max=100"`
	EventDate     jsontypes.Date  `json:"eventDate"`
	StartDate     jsontypes.Date  `json:"startDate"`
	EndDate       jsontypes.Date  `json:"endDate"`
	Location      string          `json:"location" validate:"max=255"`
	FlatOrHouseNo string          `json:"flatOrHouseNo" validate:"max=100"`
	StreetName    string          `json:"streetName" validate:"max=255"`
	City          string          `json:"city" validate:"max=100"`
	State         string          `json:"state" validate:"max=100"`
	PostalCode    string          `json:"postalCode" validate:"max=20"`
	Budget        jsontypes.Money `json:"budget" validate:"gt=0,lte=9999999999.99"`
}

// UpdateBudgetRequest for PUT /quotes/{id}/budget
type UpdateBudgetRequest struct {
	Budget jsontypes.Money `json:"budget" validate:"gt=0,lte=9999999999.99"`
}

// ChangeStatusRequest for PUT /quotes/{id}/changeStatus
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,quote_status"`
}

// MarkFinalRequest for PUT /quotes/{id}/final
type MarkFinalRequest struct {
	IsFinal bool `json:"isQuoteFinal"`
}

// ListFilter narrows quote listings
type ListFilter struct {
	ClientID *uuid.UUID
	Status   string
	Page     int
	Limit    int
}

// QuoteResponse represents a quote in API
type QuoteResponse struct {
	ID             uuid.UUID  `json:"id"`
	ClientID       uuid.UUID  `json:"clientId"`
	ServiceID      *uuid.UUID `json:"serviceId,omitempty"`
	EventType      string     `json:"eventType"`
	EventDate      string     `json:"eventDate"`
	StartDate      *string    `json:"startDate,omitempty"`
	EndDate        *string    `json:"endDate,omitempty"`
	Location       string     `json:"location"`
	FlatOrHouseNo  string     `json:"flatOrHouseNo"`
	StreetName     string     `json:"streetName"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	PostalCode     string     `json:"postalCode"`
	Budget         float64    `json:"budget"`
	CurrentBudget  *float64   `json:"currentBudget,omitempty"`
	PreviousBudget *float64   `json:"previousBudget,omitempty"`
	QuoteStatus    string     `json:"quoteStatus"`
	IsQuoteFinal   bool       `json:"isQuoteFinal"`
	CreatedAt      string     `json:"createdAt"`
	UpdatedAt      string     `json:"updatedAt"`
}

// QuoteResponseFromEntity converts entity to response
func QuoteResponseFromEntity(q *Quote) *QuoteResponse {
	resp := &QuoteResponse{
		ID:            q.ID,
		ClientID:      q.ClientID,
		EventType:     q.EventType,
		EventDate:     q.EventDate.Format(time.RFC3339),
		Location:      q.Location,
		FlatOrHouseNo: q.FlatOrHouseNo,
		StreetName:    q.StreetName,
		City:          q.City,
		State:         q.State,
		PostalCode:    q.PostalCode,
		Budget:        q.Budget,
		QuoteStatus:   string(q.Status),
		IsQuoteFinal:  q.IsFinal,
		CreatedAt:     q.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     q.UpdatedAt.Format(time.RFC3339),
	}

	if q.ServiceID.Valid {
		resp.ServiceID = &q.ServiceID.UUID
	}
	if q.StartDate.Valid {
		s := q.StartDate.Time.Format(time.RFC3339)
		resp.StartDate = &s
	}
	if q.EndDate.Valid {
		s := q.EndDate.Time.Format(time.RFC3339)
		resp.EndDate = &s
	}
	if q.CurrentBudget.Valid {
		resp.CurrentBudget = &q.CurrentBudget.Float64
	}
	if q.PreviousBudget.Valid {
		resp.PreviousBudget = &q.PreviousBudget.Float64
	}

	return resp
}
