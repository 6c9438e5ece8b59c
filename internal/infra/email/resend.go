// Package email sends transactional mail through Resend.
package email

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
)

const serviceName = "resend"

type Config struct {
	APIKey string
	From   string
	// BaseURL overrides the API endpoint, used against local fakes.
	BaseURL    string
	HTTPClient *http.Client
}

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	// IdempotencyKey makes a redelivered send a no-op on the provider side.
	IdempotencyKey string
	Tags           map[string]string
}

type Mailer struct {
	client *resend.Client
	from   string
}

func NewMailer(cfg Config) (*Mailer, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("email sender address is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := resend.NewCustomClient(httpClient, strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		parsed, err := url.Parse(strings.TrimRight(base, "/") + "/")
		if err != nil {
			return nil, err
		}
		client.BaseURL = parsed
	}

	return &Mailer{client: client, from: strings.TrimSpace(cfg.From)}, nil
}

// Send delivers msg and returns the provider message id.
func (m *Mailer) Send(ctx context.Context, msg Message) (string, error) {
	if m == nil || m.client == nil {
		return "", &errs.UpstreamError{Service: serviceName, Op: "send email", Err: errors.New("mailer is not configured")}
	}
	if strings.TrimSpace(msg.To) == "" {
		return "", errs.Invalid("email recipient is required")
	}

	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{strings.TrimSpace(msg.To)},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	for _, name := range slices.Sorted(maps.Keys(msg.Tags)) {
		req.Tags = append(req.Tags, resend.Tag{Name: name, Value: msg.Tags[name]})
	}

	resp, err := m.client.Emails.SendWithOptions(ctx, req, &resend.SendEmailOptions{IdempotencyKey: msg.IdempotencyKey})
	if err != nil {
		return "", &errs.UpstreamError{Service: serviceName, Op: "send email", Err: err}
	}
	return resp.Id, nil
}
