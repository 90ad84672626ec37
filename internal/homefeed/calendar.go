package homefeed

import (
	"context"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/daybook/internal/apierrors"
	"go.uber.org/zap"
)

// CalendarSource returns date key -> entry count for a month (YYYY-MM).
// *diary.Client implements it.
type CalendarSource interface {
	CalendarMonth(ctx context.Context, month string) (map[string]int, error)
}

// CalendarFeed holds the entry counts of the displayed month.
type CalendarFeed struct {
	src     CalendarSource
	logger  *zap.Logger
	tracker Tracker

	mu    sync.RWMutex
	month string
	days  map[string]int
}

// NewCalendarFeed creates an empty feed. logger may be nil.
func NewCalendarFeed(src CalendarSource, logger *zap.Logger) *CalendarFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarFeed{src: src, logger: logger, days: map[string]int{}}
}

// Load fetches month and applies it if still current. A failed fetch
// applies an empty month. The bool reports whether the result was applied.
func (f *CalendarFeed) Load(ctx context.Context, month string) (map[string]int, bool) {
	loadCtx, tk := f.tracker.Begin(ctx, month)

	days, err := f.src.CalendarMonth(loadCtx, month)
	if err != nil {
		if !apierrors.IsCancelled(err) {
			f.logger.Warn("calendar load failed", zap.String("month", month), zap.String("reason", apierrors.Normalize(err)))
		}
		days = map[string]int{}
	}

	if !f.tracker.Commit(tk) {
		f.logger.Debug("discarding stale calendar result", zap.String("month", month))
		return nil, false
	}

	f.mu.Lock()
	f.month, f.days = month, days
	f.mu.Unlock()
	return days, true
}

// Month returns the month currently applied.
func (f *CalendarFeed) Month() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.month
}

// HasEntry reports whether dateKey has at least one entry.
func (f *CalendarFeed) HasEntry(dateKey string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.days[dateKey] > 0
}

// CountInMonth returns how many days of the applied month have entries.
func (f *CalendarFeed) CountInMonth() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return countInMonth(f.days, f.month)
}

func countInMonth(days map[string]int, month string) int {
	prefix := month + "-"
	n := 0
	for k, v := range days {
		if strings.HasPrefix(k, prefix) && v > 0 {
			n++
		}
	}
	return n
}

// Close discards in-flight loads. The feed keeps its last applied month.
func (f *CalendarFeed) Close() {
	f.tracker.Close()
}
