package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const twilioBaseURL = "https://api.twilio.com"

var ErrTwilioNotConfigured = errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN or TWILIO_FROM not configured")

type Twilio struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Client     *http.Client
}

func (t *Twilio) From() string { return t.FromNumber }

func (t *Twilio) Send(ctx context.Context, to, body string) (string, error) {
	if t.AccountSID == "" || t.AuthToken == "" || t.FromNumber == "" {
		return "", ErrTwilioNotConfigured
	}

	form := url.Values{
		"To":   {whatsappAddr(to)},
		"From": {whatsappAddr(t.FromNumber)},
		"Body": {body},
	}
	base := t.BaseURL
	if base == "" {
		base = twilioBaseURL
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(base, "/"), t.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("twilio: new request: %w", err)
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient(t.Client).Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Message != "" {
			return "", errors.New(out.Message)
		}
		return "", fmt.Errorf("Twilio HTTP %d", resp.StatusCode)
	}
	return out.SID, nil
}

func whatsappAddr(n string) string {
	if strings.HasPrefix(n, "whatsapp:") {
		return n
	}
	return "whatsapp:" + n
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
