// Package apierrors turns request failures into display text.
//
// Normalize is the only place that inspects error payloads; callers never
// look at payload shapes themselves.
package apierrors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/daybook/internal/apiclient"
)

// Fixed messages.
const (
	MsgCancelled  = "The request was cancelled."
	MsgUnknown    = "An unknown error occurred."
	MsgBadRequest = "The request was not in a valid format."
	MsgLogin      = "You need to log in."
	MsgForbidden  = "You do not have permission to do that."
	MsgNotFound   = "The requested item could not be found."
)

// Normalize maps err to a non-empty message. It never fails.
func Normalize(err error) string {
	if err == nil {
		return MsgUnknown
	}
	if IsCancelled(err) {
		return MsgCancelled
	}

	var se *apiclient.StructuredError
	if errors.As(err, &se) {
		return structured(se)
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return MsgUnknown
}

// IsCancelled reports whether err came from the caller ending the context.
func IsCancelled(err error) bool {
	return errors.Is(err, apiclient.ErrCancelled) || errors.Is(err, context.Canceled)
}

func structured(se *apiclient.StructuredError) string {
	shape := Decode(se.Payload)
	switch shape.Kind {
	case ShapeDetail:
		if shape.Detail != "" {
			return shape.Detail
		}
	case ShapeFieldErrors:
		lines := make([]string, 0, len(shape.Fields))
		for _, f := range shape.Fields {
			lines = append(lines, f.Field+": "+strings.Join(f.Messages, ", "))
		}
		return strings.Join(lines, "\n")
	}
	return StatusMessage(se.StatusCode)
}

// StatusMessage is the fallback text for a status without a usable payload.
func StatusMessage(code int) string {
	switch code {
	case 400:
		return MsgBadRequest
	case 401:
		return MsgLogin
	case 403:
		return MsgForbidden
	case 404:
		return MsgNotFound
	default:
		return fmt.Sprintf("A server error occurred. (HTTP %d)", code)
	}
}
