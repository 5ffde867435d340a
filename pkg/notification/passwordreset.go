package notification

import (
	"context"
	"math"
	"strconv"
	"time"
)

// SendPasswordReset delivers a reset link by email. The expiry is rendered
// both as an RFC 3339 timestamp and as whole minutes from the manager's clock.
func (nm *NotificationManager) SendPasswordReset(ctx context.Context, email, username, resetLink string, expiresAt time.Time) error {
	minutes := int(math.Ceil(expiresAt.Sub(nm.now()).Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	return nm.Send(ctx, PasswordResetNotice, EmailSystem, NotificationData{
		To: email,
		Data: map[string]string{
			"Username":      username,
			"Link":          resetLink,
			"ExpiresAt":     expiresAt.UTC().Format(time.RFC3339),
			"ExpiryMinutes": strconv.Itoa(minutes),
		},
	})
}
