package chat

import "github.com/veroa/veroa-api/internal/pkg/apperr"

var (
	ErrConversationNotFound = apperr.New(apperr.KindNotFound, "CONVERSATION_NOT_FOUND", "Conversation not found")
	ErrAnchorNotFound       = apperr.New(apperr.KindNotFound, "NOT_FOUND", "Quote or booking not found")
	ErrForbidden            = apperr.New(apperr.KindForbidden, "FORBIDDEN", "You do not have access to this conversation")
	ErrInvalidAnchor        = apperr.New(apperr.KindValidation, "INVALID_ANCHOR", "Exactly one of quoteId or bookingId is required")
	ErrEmptyMessage         = apperr.New(apperr.KindValidation, "EMPTY_MESSAGE", "Message body or attachment is required")
	ErrNotJoined            = apperr.New(apperr.KindForbidden, "NOT_JOINED", "Join the chat before sending events to it")
	ErrRateLimited          = apperr.New(apperr.KindRateLimited, "RATE_LIMIT_EXCEEDED", "Too many messages, please slow down")
	ErrUnknownEvent         = apperr.New(apperr.KindValidation, "UNKNOWN_EVENT", "Unknown event")
	ErrInvalidPayload       = apperr.New(apperr.KindValidation, "BAD_REQUEST", "Invalid event payload")
	ErrUnauthorized         = apperr.New(apperr.KindUnauthorized, "UNAUTHORIZED", "Authentication required")
	ErrAttachmentRejected   = apperr.New(apperr.KindValidation, "INVALID_ATTACHMENT", "Attachment type or size not allowed")
	ErrStorageUnavailable   = apperr.New(apperr.KindUnavailable, "STORAGE_UNAVAILABLE", "Attachment storage is not configured")
)
