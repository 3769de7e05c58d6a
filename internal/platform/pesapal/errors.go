package pesapal

import (
	"errors"
	"fmt"
)

// Gateway failures bucket into four conditions. Purchase initiation maps all
// of them to a provider-unavailable style response; reconciliation treats
// ErrUnavailable as retryable and never as a payment failure.
var (
	ErrAuth        = errors.New("pesapal: authentication rejected")
	ErrConfig      = errors.New("pesapal: IPN registration rejected")
	ErrOrder       = errors.New("pesapal: order submission rejected")
	ErrUnavailable = errors.New("pesapal: gateway unreachable")
)

// apiError is the error object Pesapal embeds in response bodies.
type apiError struct {
	Type    string `json:"error_type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) empty() bool {
	return e == nil || (e.Code == "" && e.Message == "" && e.Type == "")
}

// wrap tolerates a nil receiver: a gateway 5xx can decode to a body with no
// error object and no payload fields, which still has to surface as the
// sentinel rather than a panic.
func (e *apiError) wrap(sentinel error) error {
	if e == nil {
		return sentinel
	}
	return fmt.Errorf("%w: code=%s message=%s", sentinel, e.Code, e.Message)
}
