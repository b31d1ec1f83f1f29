package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/veroa/veroa-api/internal/domain/user"
	"github.com/veroa/veroa-api/internal/pkg/apperr"
)

// Service handles booking business logic
type Service struct {
	repo      Repository
	userRepo  user.Repository
	allocator *Allocator
}

// NewService creates booking service
func NewService(repo Repository, userRepo user.Repository, allocator *Allocator) *Service {
	return &Service{repo: repo, userRepo: userRepo, allocator: allocator}
}

// ConvertQuote materializes a booking from the client's quote and moves the
// quote to upcommingBookings. Both writes share one transaction. A quote
// that does not belong to clientID is reported as not found.
func (s *Service) ConvertQuote(ctx context.Context, quoteID, clientID uuid.UUID, req *ConvertQuoteRequest) (*Booking, error) {
	if req.ClientID != nil && *req.ClientID != clientID {
		return nil, ErrQuoteNotFound
	}
	if req.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	var created *Booking
	err := s.repo.WithinTx(ctx, func(tx TxRepository) error {
		src, err := tx.LockQuote(ctx, quoteID, clientID)
		if err != nil {
			return err
		}
		if src == nil {
			return ErrQuoteNotFound
		}

		converted, err := tx.HasBookingForQuote(ctx, quoteID)
		if err != nil {
			return err
		}
		if converted {
			return ErrQuoteAlreadyConverted
		}

		veroaID, err := s.allocator.Next(ctx, tx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		b := &Booking{
			ID:             uuid.New(),
			VeroaBookingID: veroaID,
			ServiceID:      src.ServiceID,
			ClientID:       src.ClientID,
			QuoteID:        uuid.NullUUID{UUID: src.ID, Valid: true},
			Source:         SourceQuote,
			BookingDate:    src.EventDate,
			StartDate:      src.StartDate,
			EndDate:        src.EndDate,
			FlatOrHouseNo:  req.FlatOrHouseNo,
			StreetName:     req.StreetName,
			City:           req.City,
			State:          req.State,
			PostalCode:     req.PostalCode,
			TotalAmount:    req.TotalAmount.Float64(),
			Status:         StatusPending,
			BookingStatus:  ResponsePending,
			PaymentStatus:  PaymentPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Insert(ctx, b); err != nil {
			return err
		}
		if err := tx.SetQuoteBooked(ctx, quoteID); err != nil {
			return err
		}

		created = b
		return nil
	})
	if err != nil {
		// The partial unique index on quote_id catches a concurrent conversion.
		if apperr.IsUniqueViolation(err) {
			return nil, ErrQuoteAlreadyConverted
		}
		return nil, err
	}

	log.Info().
		Str("booking_id", created.VeroaBookingID).
		Str("quote_id", quoteID.String()).
		Msg("Quote converted to booking")

	return created, nil
}

// Create books a service directly, without a prior quote
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, req *CreateBookingRequest) (*Booking, error) {
	if req.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	b := &Booking{
		ID:            uuid.New(),
		ClientID:      clientID,
		Source:        SourceDirect,
		BookingDate:   req.BookingDate.Time,
		FlatOrHouseNo: req.FlatOrHouseNo,
		StreetName:    req.StreetName,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		TotalAmount:   req.TotalAmount.Float64(),
		Status:        StatusPending,
		BookingStatus: ResponsePending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.ServiceID != nil {
		b.ServiceID = uuid.NullUUID{UUID: *req.ServiceID, Valid: true}
	}
	if !req.StartDate.IsZero() {
		b.StartDate = sql.NullTime{Time: req.StartDate.Time, Valid: true}
	}
	if !req.EndDate.IsZero() {
		b.EndDate = sql.NullTime{Time: req.EndDate.Time, Valid: true}
	}
	if b.BookingDate.IsZero() {
		if b.StartDate.Valid {
			b.BookingDate = b.StartDate.Time
		} else {
			b.BookingDate = now
		}
	}

	err := s.repo.WithinTx(ctx, func(tx TxRepository) error {
		veroaID, err := s.allocator.Next(ctx, tx)
		if err != nil {
			return err
		}
		b.VeroaBookingID = veroaID
		return tx.Insert(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID returns a booking visible to the caller
func (s *Service) GetByID(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	if !isAdmin && !b.IsParty(userID) {
		return nil, ErrNotBookingParty
	}
	return b, nil
}

// List scopes bookings by role: clients see their own, photographers their
// assignments, admins everything.
func (s *Service) List(ctx context.Context, userID uuid.UUID, role string, filter ListFilter) ([]*Booking, int, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, 0, ErrInvalidStatus
	}
	switch user.Role(role) {
	case user.RoleAdmin:
	case user.RolePhotographer:
		filter.PhotographerID = &userID
	default:
		filter.ClientID = &userID
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus applies a lifecycle transition. Admins may make any allowed
// move; clients may only cancel their own bookings.
func (s *Service) UpdateStatus(ctx context.Context, id, userID uuid.UUID, isAdmin bool, status string) (*Booking, error) {
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}
	to := Status(status)

	b, err := s.GetByID(ctx, id, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin && (b.ClientID != userID || to != StatusCanceled) {
		return nil, ErrNotBookingParty
	}
	if !CanTransition(b.Status, to) {
		return nil, ErrInvalidTransition
	}

	ok, err := s.repo.UpdateStatus(ctx, id, b.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved it between the read and the write.
		return nil, ErrInvalidTransition
	}
	b.Status = to
	return b, nil
}

// Respond records the assigned photographer's accept or reject
func (s *Service) Respond(ctx context.Context, id, photographerID uuid.UUID, response string) (*Booking, error) {
	r := ResponseStatus(response)
	if r != ResponseAccepted && r != ResponseRejected {
		return nil, ErrInvalidStatus
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	if !b.IsAssignedTo(photographerID) {
		return nil, ErrNotAssigned
	}
	if b.BookingStatus != ResponsePending {
		return nil, ErrInvalidTransition
	}

	ok, err := s.repo.UpdateResponse(ctx, id, photographerID, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	b.BookingStatus = r
	return b, nil
}

// AssignPhotographer sets the booking's photographer and resets their
// response to pending. Admin only.
func (s *Service) AssignPhotographer(ctx context.Context, id, photographerID uuid.UUID) (*Booking, error) {
	u, err := s.userRepo.GetByID(ctx, photographerID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsPhotographer() {
		return nil, ErrPhotographerNotFound
	}

	ok, err := s.repo.AssignPhotographer(ctx, id, photographerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBookingNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a booking. Admin cleanup only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrBookingNotFound
	}
	return s.repo.Delete(ctx, id)
}

func validStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}
