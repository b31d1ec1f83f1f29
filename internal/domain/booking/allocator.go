package booking

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// BookingIDPrefix precedes the zero-padded sequence number
const BookingIDPrefix = "VEROA-BK-"

// FormatBookingID renders n as VEROA-BK-NNNNNN. Numbers past 999999 simply
// grow wider.
func FormatBookingID(n int64) string {
	return fmt.Sprintf("%s%06d", BookingIDPrefix, n)
}

// ParseBookingID returns the numeric suffix after the last '-'
func ParseBookingID(id string) (int64, error) {
	idx := strings.LastIndex(id, "-")
	if idx < 0 || idx == len(id)-1 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedBookingID, id)
	}
	n, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedBookingID, id)
	}
	return n, nil
}

// Sequencer hands out the next counter value inside a transaction
type Sequencer interface {
	NextSequence(ctx context.Context) (int64, error)
}

// Allocator mints booking identifiers from an atomic counter
type Allocator struct {
	repo Repository
}

// NewAllocator creates an allocator backed by repo's sequence row
func NewAllocator(repo Repository) *Allocator {
	return &Allocator{repo: repo}
}

// Next takes the next counter value from seq, which must be the
// transaction that also inserts the booking so a rollback returns the number.
func (a *Allocator) Next(ctx context.Context, seq Sequencer) (string, error) {
	n, err := seq.NextSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate booking id: %w", err)
	}
	return FormatBookingID(n), nil
}

// Sync raises the counter to the suffix of the most recently created
// booking id. Bookings imported before the counter existed would otherwise
// collide with freshly minted ids. A malformed stored id aborts startup.
func (a *Allocator) Sync(ctx context.Context) error {
	last, err := a.repo.LatestBookingID(ctx)
	if err != nil {
		return err
	}
	if last == "" {
		return nil
	}

	n, err := ParseBookingID(last)
	if err != nil {
		return err
	}

	if err := a.repo.RaiseSequence(ctx, n); err != nil {
		return err
	}

	log.Info().Str("last_booking_id", last).Int64("sequence", n).Msg("Booking id sequence synced")
	return nil
}
