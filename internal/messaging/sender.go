package messaging

import (
	"context"
	"net/http"
	"strings"
	"time"

	"notapilot/internal/config"
)

// Sender delivers one WhatsApp text. It never retries; retry policy belongs to the dispatcher.
type Sender interface {
	Send(ctx context.Context, to, body string) (messageID string, err error)
	// From is the sender address recorded in the message history.
	From() string
}

// NewSender picks the provider named by WHATSAPP_PROVIDER.
func NewSender(cfg config.Config) Sender {
	client := &http.Client{Timeout: 10 * time.Second}
	switch strings.ToLower(cfg.WhatsAppProvider) {
	case "meta":
		return &Meta{
			AccessToken:   cfg.MetaAccessToken,
			PhoneNumberID: cfg.MetaPhoneNumberID,
			Version:       cfg.MetaGraphVersion,
			Client:        client,
		}
	default:
		return &Twilio{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFrom,
			Client:     client,
		}
	}
}
