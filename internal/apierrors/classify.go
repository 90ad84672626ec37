package apierrors

import (
	"errors"

	"github.com/fyrsmithlabs/daybook/internal/apiclient"
)

// Kind is a coarse failure category.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindCancelled  Kind = "cancelled"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
	KindUnknown    Kind = "unknown"
)

// Classify places err in the failure taxonomy. 4xx responses carrying field
// errors are validation failures; other non-2xx answers except 401 are
// server failures.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if IsCancelled(err) {
		return KindCancelled
	}

	var se *apiclient.StructuredError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 401:
			return KindAuth
		case se.StatusCode >= 400 && se.StatusCode < 500 && Decode(se.Payload).Kind == ShapeFieldErrors:
			return KindValidation
		default:
			return KindServer
		}
	}

	var nf *apiclient.NetworkFault
	if errors.As(err, &nf) {
		return KindNetwork
	}
	return KindUnknown
}
