package user

import "github.com/veroa/veroa-api/internal/pkg/apperr"

var ErrUserNotFound = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "User not found")
