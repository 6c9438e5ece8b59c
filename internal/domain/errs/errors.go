package errs

import (
	"errors"
	"fmt"

	"github.com/HyperSlump/shop-sub000/internal/domain/enums"
)

var (
	ErrVerification   = errors.New("webhook verification failed")
	ErrInvalidRequest = errors.New("invalid request")
)

// UpstreamError reports a failed call to the payment processor, the print
// partner, the email sender or the ledger.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("%s %s: status=%d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s %s: status=%d", e.Service, e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s", e.Service, e.Op)
	}
}

func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message is the upstream's own wording, safe to show to the caller.
func (e *UpstreamError) Message() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// FulfillmentError is the caught failure of one fulfillment branch.
type FulfillmentError struct {
	Kind enums.FulfillmentKind
	Err  error
}

func (e *FulfillmentError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s fulfillment: %v", e.Kind, e.Err)
}

func (e *FulfillmentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
