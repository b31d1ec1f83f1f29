// Package verification sends and checks one-time phone codes. The API only
// depends on Provider; the vendor client and the Redis-backed fallback are
// interchangeable behind it.
package verification

import "context"

// Provider issues a code to a phone and later checks it by verification id.
type Provider interface {
	SendVerificationCode(ctx context.Context, phone string) (string, error)
	CheckVerificationCode(ctx context.Context, verificationID, code string) (bool, error)
}
