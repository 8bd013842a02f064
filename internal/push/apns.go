// Package push delivers notifications to user devices over APNs.
package push

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"

	"disco-backend/internal/config"
)

// APNSSender pushes notifications through Apple's push service.
type APNSSender struct {
	client *apns2.Client
	topic  string
}

func NewAPNSSender(cfg config.APNSConfig) (*APNSSender, error) {
	cert, err := certificate.FromP12File(cfg.CertPath, cfg.CertPass)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &APNSSender{client: client, topic: cfg.Topic}, nil
}

// Push sends a single alert notification to the device token.
func (s *APNSSender) Push(ctx context.Context, deviceToken, title, body string) error {
	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload: payload.NewPayload().
			AlertTitle(title).
			AlertBody(body).
			Sound("default"),
	}

	res, err := s.client.PushWithContext(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %s (%d)", res.Reason, res.StatusCode)
	}
	return nil
}

// LogSender is used when APNs is disabled. It records the notification
// instead of delivering it.
type LogSender struct{}

func (LogSender) Push(ctx context.Context, deviceToken, title, body string) error {
	log.Debug().
		Str("deviceToken", deviceToken).
		Str("title", title).
		Msg("Push delivery disabled, notification logged only")
	return nil
}
