// Package dispatch delivers rendered prescriptions to patients over WhatsApp
// through the Twilio Messages API.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
)

const whatsappPrefix = "whatsapp:"

var (
	// ErrNotConfigured indicates no messaging account was configured.
	ErrNotConfigured = errors.New("message dispatch is not configured")
	// ErrRejected indicates the provider refused the message.
	ErrRejected = errors.New("message rejected by provider")
	// ErrUnavailable indicates the provider could not be reached.
	ErrUnavailable = errors.New("messaging provider unavailable")
)

// MapHTTPStatus maps dispatch errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// Compile-time check to ensure WhatsApp implements Dispatcher
var _ interfaces.Dispatcher = (*WhatsApp)(nil)

// Config holds the messaging account credentials.
type Config struct {
	AccountSID string
	AuthToken  string
	// From is the sender number, with or without the whatsapp: prefix.
	From string
	// BaseURL replaces the provider API host; empty keeps the default.
	BaseURL string
	Timeout time.Duration
}

// WhatsApp sends media messages from one sender number.
type WhatsApp struct {
	accountSID string
	authToken  string
	from       string
	baseURL    *url.URL
	timeout    time.Duration
}

// New creates a WhatsApp dispatcher.
func New(cfg Config) (*WhatsApp, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid messaging base URL %q", cfg.BaseURL)
		}
		base = u
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &WhatsApp{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       Address(cfg.From),
		baseURL:    base,
		timeout:    timeout,
	}, nil
}

// Address returns number in the provider's WhatsApp address form.
func Address(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}

// requestTransport binds SDK requests to the caller's context and, when
// set, redirects them to another API host.
type requestTransport struct {
	ctx  context.Context
	base *url.URL
	next http.RoundTripper
}

func (t *requestTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if t.base != nil {
		req.URL.Scheme = t.base.Scheme
		req.URL.Host = t.base.Host
		req.Host = t.base.Host
	}
	return t.next.RoundTrip(req)
}

// restClient builds an SDK client whose requests follow ctx. The SDK calls
// take no context, so one client is made per message.
func (d *WhatsApp) restClient(ctx context.Context) *twilio.RestClient {
	c := &client.Client{
		Credentials: client.NewCredentials(d.accountSID, d.authToken),
		HTTPClient: &http.Client{
			Timeout:   d.timeout,
			Transport: &requestTransport{ctx: ctx, base: d.baseURL, next: http.DefaultTransport},
		},
	}
	c.SetAccountSid(d.accountSID)
	return twilio.NewRestClientWithParams(twilio.ClientParams{Client: c})
}

// providerError sorts an SDK failure into ErrRejected or ErrUnavailable.
func providerError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) && restErr.Status < http.StatusInternalServerError {
		return fmt.Errorf("%w: %d %s", ErrRejected, restErr.Code, restErr.Message)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// SendMedia implements the Dispatcher interface
func (d *WhatsApp) SendMedia(ctx context.Context, to, body, mediaURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetFrom(d.from)
	params.SetTo(Address(to))
	if body != "" {
		params.SetBody(body)
	}
	if mediaURL != "" {
		params.SetMediaUrl([]string{mediaURL})
	}

	msg, err := d.restClient(ctx).Api.CreateMessage(params)
	if err != nil {
		return "", providerError(err)
	}

	var sid, status string
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	if msg.Status != nil {
		status = *msg.Status
	}
	if sid == "" {
		return "", fmt.Errorf("%w: response carried no message SID", ErrUnavailable)
	}

	logging.Info("Message dispatched", "sid", sid, "status", status)
	return sid, nil
}
