package push

import (
	"errors"
	"net/http"
)

// ErrGone marks a registration the provider will never accept again.
// Gateways wrap provider-specific errors with it.
var ErrGone = errors.New("push registration is gone")

type Outcome int

const (
	Delivered Outcome = iota
	Gone
	Transient
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Gone:
		return "gone"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classify maps a delivery attempt to an Outcome. status is the provider's
// HTTP status, or 0 when the gateway SDK does not expose one; it is ignored
// when err is set.
func Classify(status int, err error) Outcome {
	if err != nil {
		if errors.Is(err, ErrGone) {
			return Gone
		}
		return Transient
	}
	switch {
	case status == http.StatusGone || status == http.StatusNotFound:
		return Gone
	case status >= http.StatusInternalServerError:
		return Transient
	default:
		return Delivered
	}
}
