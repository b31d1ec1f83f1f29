package verification

import "github.com/veroa/veroa-api/internal/pkg/apperr"

var (
	ErrInvalidPhone         = apperr.New(apperr.KindValidation, "INVALID_PHONE", "Phone number is not valid for verification")
	ErrVerificationNotFound = apperr.New(apperr.KindNotFound, "VERIFICATION_NOT_FOUND", "Verification not found or expired")
	ErrCodeExpired          = apperr.New(apperr.KindValidation, "CODE_EXPIRED", "Verification code has expired")
	ErrAlreadyVerified      = apperr.New(apperr.KindConflict, "ALREADY_VERIFIED", "Verification was already completed")
	ErrCodeAlreadySent      = apperr.New(apperr.KindRateLimited, "CODE_ALREADY_SENT", "A code was sent recently, please wait before requesting another")
	ErrTooManyAttempts      = apperr.New(apperr.KindRateLimited, "TOO_MANY_ATTEMPTS", "Too many verification attempts")
	ErrProviderRejected     = apperr.New(apperr.KindUpstream, "UPSTREAM_ERROR", "Verification provider rejected the request")
	ErrProviderUnavailable  = apperr.New(apperr.KindUnavailable, "UPSTREAM_ERROR", "Verification provider is unavailable")
)
