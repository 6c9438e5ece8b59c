// Package stripe adapts the Stripe SDK to the storefront: catalog prices,
// checkout session creation and webhook verification.
package stripe

import (
	"errors"
	"net/http"
	"strings"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/domain/errs"
)

const serviceName = "stripe"

var errNotConfigured = errors.New("stripe client is not configured")

type Config struct {
	SecretKey string
	// APIURL overrides the API base, used against local fakes.
	APIURL     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient builds a per-key API client. The package-level stripe.Key is never set.
func NewClient(cfg Config) *client.API {
	backendCfg := &stripego.BackendConfig{
		HTTPClient: cfg.HTTPClient,
		// Checkout is user initiated; a failed call is retried by the user.
		MaxNetworkRetries: stripego.Int64(0),
	}
	if cfg.Logger != nil {
		backendCfg.LeveledLogger = cfg.Logger.Named("stripe").Sugar()
	}
	if u := strings.TrimSpace(cfg.APIURL); u != "" {
		backendCfg.URL = stripego.String(u)
	}

	return client.New(strings.TrimSpace(cfg.SecretKey), stripego.NewBackendsWithConfig(backendCfg))
}

func upstreamError(op string, err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		msg := strings.TrimSpace(stripeErr.Msg)
		if msg == "" {
			msg = string(stripeErr.Code)
		}
		return &errs.UpstreamError{
			Service:    serviceName,
			Op:         op,
			StatusCode: stripeErr.HTTPStatusCode,
			Err:        errors.New(msg),
		}
	}
	return &errs.UpstreamError{Service: serviceName, Op: op, Err: err}
}
