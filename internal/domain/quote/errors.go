package quote

import "github.com/veroa/veroa-api/internal/pkg/apperr"

var (
	ErrQuoteNotFound    = apperr.New(apperr.KindNotFound, "QUOTE_NOT_FOUND", "Quote not found")
	ErrNotQuoteOwner    = apperr.New(apperr.KindForbidden, "FORBIDDEN", "You do not have access to this quote")
	ErrInvalidStatus    = apperr.New(apperr.KindValidation, "INVALID_STATUS", "Invalid quote status. Must be: yourQuotes, upcommingBookings, or previousBookings")
	ErrInvalidBudget    = apperr.New(apperr.KindValidation, "INVALID_BUDGET", "Budget must be greater than zero")
	ErrInvalidDateRange = apperr.New(apperr.KindValidation, "INVALID_DATE_RANGE", "End date must not be before start date")
	ErrQuoteClosed      = apperr.New(apperr.KindConflict, "QUOTE_CLOSED", "Quote is no longer open for negotiation")
	ErrConcurrentUpdate = apperr.New(apperr.KindConflict, "CONCURRENT_UPDATE", "Quote was modified concurrently, please retry")
)
