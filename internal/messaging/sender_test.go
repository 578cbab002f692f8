package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"notapilot/internal/config"
)

func TestTwilio_Send(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		_ = r.ParseForm()
		gotTo, gotFrom, gotBody = r.PostForm.Get("To"), r.PostForm.Get("From"), r.PostForm.Get("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer srv.Close()

	tw := &Twilio{AccountSID: "AC1", AuthToken: "tok", FromNumber: "+5511000000000", BaseURL: srv.URL, Client: srv.Client()}
	sid, err := tw.Send(context.Background(), "+5511999990000", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sid != "SM123" {
		t.Fatalf("want sid SM123, got %q", sid)
	}
	if gotPath != "/2010-04-01/Accounts/AC1/Messages.json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotUser != "AC1" {
		t.Fatalf("basic auth user %q", gotUser)
	}
	if gotTo != "whatsapp:+5511999990000" || gotFrom != "whatsapp:+5511000000000" || gotBody != "hello" {
		t.Fatalf("unexpected form to=%q from=%q body=%q", gotTo, gotFrom, gotBody)
	}
}

func TestTwilio_SendErrors(t *testing.T) {
	withMessage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number."}`))
	}))
	defer withMessage.Close()
	bare := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bare.Close()

	tw := &Twilio{AccountSID: "AC1", AuthToken: "tok", FromNumber: "whatsapp:+55", BaseURL: withMessage.URL}
	_, err := tw.Send(context.Background(), "bad", "x")
	if err == nil || err.Error() != "The 'To' number is not a valid phone number." {
		t.Fatalf("want provider message, got %v", err)
	}

	tw.BaseURL = bare.URL
	_, err = tw.Send(context.Background(), "bad", "x")
	if err == nil || err.Error() != "Twilio HTTP 502" {
		t.Fatalf("want status error, got %v", err)
	}

	_, err = (&Twilio{}).Send(context.Background(), "+55", "x")
	if !errors.Is(err, ErrTwilioNotConfigured) {
		t.Fatalf("want ErrTwilioNotConfigured, got %v", err)
	}
}

func TestMeta_Send(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.ABC"}]}`))
	}))
	defer srv.Close()

	m := &Meta{AccessToken: "tok", PhoneNumberID: "123", Version: "v21.0", BaseURL: srv.URL, Client: srv.Client()}
	id, err := m.Send(context.Background(), "whatsapp:+5511999990000", "oi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "wamid.ABC" {
		t.Fatalf("want wamid.ABC, got %q", id)
	}
	if gotPath != "/v21.0/123/messages" || gotAuth != "Bearer tok" {
		t.Fatalf("unexpected request path=%q auth=%q", gotPath, gotAuth)
	}
	if gotBody["to"] != "+5511999990000" || gotBody["messaging_product"] != "whatsapp" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestMeta_SendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","code":190}}`))
	}))
	defer srv.Close()

	m := &Meta{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL, Client: srv.Client()}
	_, err := m.Send(context.Background(), "+55", "oi")
	if err == nil || err.Error() != "Invalid OAuth access token." {
		t.Fatalf("want graph error message, got %v", err)
	}

	_, err = (&Meta{}).Send(context.Background(), "+55", "oi")
	if !errors.Is(err, ErrMetaNotConfigured) {
		t.Fatalf("want ErrMetaNotConfigured, got %v", err)
	}
}

func TestNewSender(t *testing.T) {
	if _, ok := NewSender(config.Config{WhatsAppProvider: "meta"}).(*Meta); !ok {
		t.Fatalf("meta provider should build *Meta")
	}
	if _, ok := NewSender(config.Config{}).(*Twilio); !ok {
		t.Fatalf("default provider should build *Twilio")
	}
}
