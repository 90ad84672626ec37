package homefeed

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/daybook/internal/apierrors"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"go.uber.org/zap"
)

// FallbackQuotes are shown when the server has none to offer.
var FallbackQuotes = []diary.Quote{
	{En: "Consistency beats perfection.", Ko: "꾸준함은 완벽함을 이깁니다."},
	{En: "Small steps make big changes.", Ko: "작은 걸음이 큰 변화를 만듭니다."},
	{En: "Learn something new every day.", Ko: "매일 새로운 것을 배우세요."},
}

// QuoteSource returns the server's quotes. *diary.Client implements it.
type QuoteSource interface {
	Quotes(ctx context.Context) ([]diary.Quote, error)
}

// QuoteFeed holds the quotes to display.
type QuoteFeed struct {
	src     QuoteSource
	logger  *zap.Logger
	tracker Tracker

	mu     sync.RWMutex
	quotes []diary.Quote
}

// NewQuoteFeed creates a feed. logger may be nil.
func NewQuoteFeed(src QuoteSource, logger *zap.Logger) *QuoteFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteFeed{src: src, logger: logger}
}

// Load fetches quotes. Errors and empty replies leave the fallback in place.
// The bool reports whether the result was applied.
func (f *QuoteFeed) Load(ctx context.Context) ([]diary.Quote, bool) {
	loadCtx, tk := f.tracker.Begin(ctx, "quotes")

	quotes, err := f.src.Quotes(loadCtx)
	if err != nil && !apierrors.IsCancelled(err) {
		f.logger.Warn("quotes load failed", zap.String("reason", apierrors.Normalize(err)))
	}

	if !f.tracker.Commit(tk) {
		return nil, false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		f.quotes = quotes
	}
	return f.current(), true
}

// Quotes returns the loaded quotes, or FallbackQuotes.
func (f *QuoteFeed) Quotes() []diary.Quote {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current()
}

func (f *QuoteFeed) current() []diary.Quote {
	if len(f.quotes) == 0 {
		return FallbackQuotes
	}
	return f.quotes
}

// Close discards in-flight loads.
func (f *QuoteFeed) Close() {
	f.tracker.Close()
}
