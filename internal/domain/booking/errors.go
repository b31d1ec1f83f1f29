package booking

import (
	"errors"

	"github.com/veroa/veroa-api/internal/pkg/apperr"
)

// ErrMalformedBookingID is returned when a stored id has no numeric suffix
var ErrMalformedBookingID = errors.New("malformed booking id")

var (
	ErrBookingNotFound       = apperr.New(apperr.KindNotFound, "BOOKING_NOT_FOUND", "Booking not found")
	ErrQuoteNotFound         = apperr.New(apperr.KindNotFound, "QUOTE_NOT_FOUND", "Quote not found")
	ErrQuoteAlreadyConverted = apperr.New(apperr.KindConflict, "QUOTE_ALREADY_CONVERTED", "Quote has already been converted to a booking")
	ErrNotBookingParty       = apperr.New(apperr.KindForbidden, "FORBIDDEN", "You do not have access to this booking")
	ErrInvalidTransition     = apperr.New(apperr.KindConflict, "INVALID_TRANSITION", "Booking cannot move to the requested status")
	ErrInvalidStatus         = apperr.New(apperr.KindValidation, "INVALID_STATUS", "Invalid booking status")
	ErrInvalidAmount         = apperr.New(apperr.KindValidation, "INVALID_AMOUNT", "Total amount must be greater than zero")
	ErrPhotographerNotFound  = apperr.New(apperr.KindNotFound, "PHOTOGRAPHER_NOT_FOUND", "Photographer not found")
	ErrNotAssigned           = apperr.New(apperr.KindForbidden, "NOT_ASSIGNED", "Booking is not assigned to you")
)
