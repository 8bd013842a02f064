package push

import (
	"context"

	"github.com/rs/zerolog/log"

	"disco-backend/internal/models"
)

// LogContactSender is the emergency contact transport used when no SMS or
// email provider is configured. Alerts are recorded in the log with the
// contact's stored reachability details instead of being delivered.
type LogContactSender struct{}

func (LogContactSender) Alert(ctx context.Context, contact *models.EmergencyContact, title, body string) error {
	log.Info().
		Str("contactId", contact.ID).
		Str("email", contact.Email).
		Str("phone", contact.Phone).
		Str("title", title).
		Msg("Emergency contact alert logged, no out-of-band transport configured")
	return nil
}
