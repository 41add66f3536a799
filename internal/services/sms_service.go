package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/churchapp/backend/internal/config"
)

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// NewSMSSender picks Twilio when credentials are configured. Outside
// production the codes are only logged.
func NewSMSSender(cfg config.SMSConfig, production bool) SMSSender {
	switch {
	case cfg.Enabled():
		return NewTwilioSender(cfg)
	case production:
		log.Printf("[SMS] Twilio credentials missing, verification codes cannot be delivered")
		return disabledSender{}
	default:
		log.Printf("[SMS] Twilio not configured, verification codes will be logged")
		return LogSender{}
	}
}

// TwilioSender sends through the Twilio Messages API.
type TwilioSender struct {
	from   string
	client *twilio.RestClient
}

// NewTwilioSender builds a REST client for cfg. A non-empty BaseURL sends
// every API call to that host instead of api.twilio.com.
func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if cfg.BaseURL != "" {
		if target, err := url.Parse(cfg.BaseURL); err == nil && target.Host != "" {
			httpClient.Transport = &baseURLTransport{target: target, next: http.DefaultTransport}
		} else {
			log.Printf("[SMS] ignoring invalid Twilio base URL %q", cfg.BaseURL)
		}
	}

	c := &client.Client{
		Credentials: client.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	c.SetAccountSid(cfg.AccountSID)

	return &TwilioSender{
		from:   cfg.FromNumber,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Client: c}),
	}
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		var apiErr *client.TwilioRestError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("send sms: twilio error %d: %s", apiErr.Code, apiErr.Message)
		}
		log.Printf("[SMS] request to Twilio failed: %v", err)
		return fmt.Errorf("send sms: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("[SMS] message %s sent to %s", sid, maskPhone(to))
	return nil
}

// baseURLTransport rewrites the scheme and host of every request.
type baseURLTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *baseURLTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return t.next.RoundTrip(out)
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, body string) error {
	log.Printf("[SMS] (not sent) to %s: %s", to, body)
	return nil
}

type disabledSender struct{}

func (disabledSender) Send(context.Context, string, string) error {
	return errors.New("sms delivery is not configured")
}

// maskPhone keeps the last four digits.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
