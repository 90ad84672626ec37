// Package resolver maps a calendar day to "open the existing entry" or
// "write a new one".
//
// A failed lookup never blocks writing: every failure resolves to the
// create route.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/apierrors"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"go.uber.org/zap"
)

// DateLayout is the date key format.
const DateLayout = "2006-01-02"

// ErrInvalidDateKey is returned by ParseDateKey for malformed keys.
var ErrInvalidDateKey = errors.New("invalid date key")

// Lookup asks the backend about one day. *diary.Client implements it.
type Lookup interface {
	EntryByDate(ctx context.Context, dateKey string) (*diary.ByDate, error)
}

// Decision is the outcome of Resolve.
type Decision struct {
	Exists  bool
	EntryID int64
	DateKey string
	// FailedOpen is set when the lookup failed and the decision defaulted
	// to create.
	FailedOpen bool
}

// Route returns the navigation target for d.
func (d Decision) Route() string {
	if d.Exists {
		return fmt.Sprintf("/entries/%d", d.EntryID)
	}
	if d.DateKey == "" {
		return "/write"
	}
	return "/write?" + url.Values{"date": {d.DateKey}}.Encode()
}

// Resolver resolves date keys with a single lookup each.
type Resolver struct {
	lookup Lookup
	logger *zap.Logger
}

// New creates a Resolver. logger may be nil.
func New(lookup Lookup, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve never fails. Any lookup error, including 401, yields the create
// decision for dateKey.
func (r *Resolver) Resolve(ctx context.Context, dateKey string) Decision {
	if _, err := ParseDateKey(dateKey); err != nil {
		r.logger.Warn("date key rejected, routing to write", zap.String("date", dateKey), zap.Error(err))
		return Decision{FailedOpen: true}
	}

	res, err := r.lookup.EntryByDate(ctx, dateKey)
	if err != nil {
		fields := []zap.Field{
			zap.String("date", dateKey),
			zap.String("kind", string(apierrors.Classify(err))),
			zap.String("reason", apierrors.Normalize(err)),
		}
		if apierrors.IsCancelled(err) {
			r.logger.Debug("date lookup cancelled, routing to write", fields...)
		} else {
			r.logger.Warn("date lookup failed, routing to write", fields...)
		}
		return Decision{DateKey: dateKey, FailedOpen: true}
	}

	if res != nil && res.Exists && res.EntryID() != 0 {
		return Decision{Exists: true, EntryID: res.EntryID(), DateKey: dateKey}
	}
	return Decision{DateKey: dateKey}
}

// DateKey formats t's local calendar day.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey validates key and returns midnight UTC of that day.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDateKey, key)
	}
	return t, nil
}

// MonthKey formats t's month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
