package quote

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxBudgetAttempts bounds the read-modify-write loop in UpdateBudget
const maxBudgetAttempts = 3

// Service handles quote business logic
type Service struct {
	repo Repository
}

// NewService creates quote service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new quote owned by clientID
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, req *CreateQuoteRequest) (*Quote, error) {
	if req.Budget <= 0 {
		return nil, ErrInvalidBudget
	}
	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate.Time) {
		return nil, ErrInvalidDateRange
	}

	now := time.Now().UTC()
	q := &Quote{
		ID:            uuid.New(),
		ClientID:      clientID,
		EventType:     req.EventType,
		EventDate:     req.EventDate.Time,
		Location:      req.Location,
		FlatOrHouseNo: req.FlatOrHouseNo,
		StreetName:    req.StreetName,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		Budget:        req.Budget.Float64(),
		Status:        StatusYourQuotes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.ServiceID != nil {
		q.ServiceID = uuid.NullUUID{UUID: *req.ServiceID, Valid: true}
	}
	if !req.StartDate.IsZero() {
		q.StartDate = sql.NullTime{Time: req.StartDate.Time, Valid: true}
	}
	if !req.EndDate.IsZero() {
		q.EndDate = sql.NullTime{Time: req.EndDate.Time, Valid: true}
	}
	// Single-day requests often only carry a start date.
	if q.EventDate.IsZero() {
		if q.StartDate.Valid {
			q.EventDate = q.StartDate.Time
		} else {
			q.EventDate = now
		}
	}

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// GetByID returns a quote visible to the caller
func (s *Service) GetByID(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*Quote, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuoteNotFound
	}
	if !isAdmin && !q.IsOwnedBy(userID) {
		return nil, ErrNotQuoteOwner
	}
	return q, nil
}

// List returns the caller's quotes, or every quote for admins
func (s *Service) List(ctx context.Context, userID uuid.UUID, isAdmin bool, filter ListFilter) ([]*Quote, int, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, 0, ErrInvalidStatus
	}
	if !isAdmin {
		filter.ClientID = &userID
	}
	return s.repo.List(ctx, filter)
}

// UpdateBudget applies a counter-offer. Concurrent edits by the client and an
// admin are detected through the version column and the whole
// read-modify-write is retried.
func (s *Service) UpdateBudget(ctx context.Context, id, userID uuid.UUID, isAdmin bool, amount float64) (*Quote, error) {
	if amount <= 0 {
		return nil, ErrInvalidBudget
	}

	for attempt := 1; attempt <= maxBudgetAttempts; attempt++ {
		q, err := s.GetByID(ctx, id, userID, isAdmin)
		if err != nil {
			return nil, err
		}
		if !q.IsOpen() {
			return nil, ErrQuoteClosed
		}

		q.ProposeBudget(amount)

		ok, err := s.repo.UpdateBudget(ctx, q)
		if err != nil {
			return nil, err
		}
		if ok {
			q.Version++
			return q, nil
		}

		log.Debug().
			Str("quote_id", id.String()).
			Int("attempt", attempt).
			Msg("Quote budget version conflict, retrying")
	}

	return nil, ErrConcurrentUpdate
}

// ChangeStatus moves the quote between dashboard columns
func (s *Service) ChangeStatus(ctx context.Context, id, userID uuid.UUID, isAdmin bool, status string) (*Quote, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	if _, err := s.GetByID(ctx, id, userID, isAdmin); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, id, Status(status))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrQuoteNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// MarkFinal toggles whether the negotiated figure is final. Admin only.
func (s *Service) MarkFinal(ctx context.Context, id uuid.UUID, final bool) (*Quote, error) {
	ok, err := s.repo.SetFinal(ctx, id, final)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrQuoteNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a quote owned by the caller
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID, isAdmin bool) error {
	if _, err := s.GetByID(ctx, id, userID, isAdmin); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
