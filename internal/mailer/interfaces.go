package mailer

import "context"

// Service delivers one-time login codes. A non-nil error means the code was
// not delivered and the caller must not leave pending auth state behind.
type Service interface {
	SendLoginCode(ctx context.Context, email, code string) error
}
