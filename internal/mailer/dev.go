package mailer

import (
	"context"

	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

// DevMailer logs codes instead of sending them. Local development only.
type DevMailer struct{}

func NewDevMailer() *DevMailer { return &DevMailer{} }

func (d *DevMailer) SendLoginCode(ctx context.Context, email, code string) error {
	logger.InfoContext(ctx, "DEV MAILER: login code",
		"to", email,
		"code", code,
	)
	return nil
}
