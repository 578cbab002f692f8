package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const metaBaseURL = "https://graph.facebook.com"

var ErrMetaNotConfigured = errors.New("META_ACCESS_TOKEN or META_PHONE_NUMBER_ID not configured")

// Meta sends through the WhatsApp Cloud API (Graph /{phone_number_id}/messages).
type Meta struct {
	AccessToken   string
	PhoneNumberID string
	Version       string
	BaseURL       string
	Client        *http.Client
}

func (m *Meta) From() string { return m.PhoneNumberID }

func (m *Meta) Send(ctx context.Context, to, body string) (string, error) {
	if m.AccessToken == "" || m.PhoneNumberID == "" {
		return "", ErrMetaNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(to, "whatsapp:"),
		"type":              "text",
		"text":              map[string]any{"body": body},
	})
	if err != nil {
		return "", fmt.Errorf("meta: body marshal: %w", err)
	}

	base := m.BaseURL
	if base == "" {
		base = metaBaseURL
	}
	version := m.Version
	if version == "" {
		version = "v21.0"
	}
	endpoint := fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(base, "/"), version, m.PhoneNumberID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("meta: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(m.Client).Do(req)
	if err != nil {
		return "", fmt.Errorf("meta: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		Error *struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return "", errors.New(out.Error.Message)
		}
		return "", fmt.Errorf("Meta Graph HTTP %d", resp.StatusCode)
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}
