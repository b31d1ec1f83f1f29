package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/domain/booking"
	"github.com/veroa/veroa-api/internal/domain/quote"
)

// AnchorParties are the non-admin users entitled to an anchor's thread
type AnchorParties struct {
	ClientID       uuid.UUID
	PhotographerID uuid.NullUUID
}

// Includes reports whether userID is the client or the assigned photographer
func (p *AnchorParties) Includes(userID uuid.UUID) bool {
	if p.ClientID == userID {
		return true
	}
	return p.PhotographerID.Valid && p.PhotographerID.UUID == userID
}

// AnchorResolver loads the parties behind an anchor. It returns nil, nil when
// the quote or booking does not exist.
type AnchorResolver interface {
	Resolve(ctx context.Context, anchor Anchor) (*AnchorParties, error)
}

type anchorResolver struct {
	quotes   quote.Repository
	bookings booking.Repository
}

// NewAnchorResolver resolves anchors against the quote and booking tables
func NewAnchorResolver(quotes quote.Repository, bookings booking.Repository) AnchorResolver {
	return &anchorResolver{quotes: quotes, bookings: bookings}
}

func (r *anchorResolver) Resolve(ctx context.Context, anchor Anchor) (*AnchorParties, error) {
	switch anchor.Kind {
	case AnchorQuote:
		q, err := r.quotes.GetByID(ctx, anchor.ID)
		if err != nil || q == nil {
			return nil, err
		}
		return &AnchorParties{ClientID: q.ClientID}, nil
	case AnchorBooking:
		b, err := r.bookings.GetByID(ctx, anchor.ID)
		if err != nil || b == nil {
			return nil, err
		}
		return &AnchorParties{ClientID: b.ClientID, PhotographerID: b.PhotographerID}, nil
	}
	return nil, ErrInvalidAnchor
}
