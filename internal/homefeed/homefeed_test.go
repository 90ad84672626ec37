package homefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/apiclient"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// blockingCalendar answers immediately except for months listed in hold,
// which wait for ctx to end.
type blockingCalendar struct {
	mu      sync.Mutex
	hold    map[string]chan struct{}
	replies map[string]map[string]int
	err     error
}

func (b *blockingCalendar) CalendarMonth(ctx context.Context, month string) (map[string]int, error) {
	b.mu.Lock()
	started := b.hold[month]
	b.mu.Unlock()
	if started != nil {
		close(started)
		<-ctx.Done()
		return nil, errors.Join(apiclient.ErrCancelled, ctx.Err())
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.replies[month], nil
}

func TestTracker(t *testing.T) {
	var tr Tracker
	ctx1, first := tr.Begin(context.Background(), "2024-03")
	_, second := tr.Begin(context.Background(), "2024-04")

	assert.Error(t, ctx1.Err(), "superseded load is cancelled")
	assert.False(t, tr.Commit(first))
	assert.True(t, tr.Commit(second))

	_, third := tr.Begin(context.Background(), "2024-05")
	tr.Close()
	assert.False(t, tr.Commit(third))

	ctx4, fourth := tr.Begin(context.Background(), "2024-06")
	assert.Error(t, ctx4.Err(), "loads after close start cancelled")
	assert.False(t, tr.Commit(fourth))
}

func TestCalendarFeed_Load(t *testing.T) {
	src := &blockingCalendar{replies: map[string]map[string]int{
		"2024-03": {"2024-03-01": 1, "2024-03-09": 2, "2024-03-10": 0, "2024-02-28": 1},
	}}
	feed := NewCalendarFeed(src, nil)

	days, applied := feed.Load(context.Background(), "2024-03")
	require.True(t, applied)
	assert.Len(t, days, 4)
	assert.Equal(t, "2024-03", feed.Month())
	assert.True(t, feed.HasEntry("2024-03-09"))
	assert.False(t, feed.HasEntry("2024-03-10"))
	assert.Equal(t, 2, feed.CountInMonth())
}

func TestCalendarFeed_ErrorDegradesToEmpty(t *testing.T) {
	src := &blockingCalendar{err: &apiclient.StructuredError{StatusCode: 500, Payload: apiclient.NewPayload(nil)}}
	tl := logging.NewTestLogger()
	feed := NewCalendarFeed(src, tl.Underlying())

	days, applied := feed.Load(context.Background(), "2024-03")
	assert.True(t, applied)
	assert.Empty(t, days)
	assert.Equal(t, 0, feed.CountInMonth())
	tl.AssertLogged(t, zapcore.WarnLevel, "calendar load failed")
}

func TestCalendarFeed_StaleResultDiscarded(t *testing.T) {
	started := make(chan struct{})
	src := &blockingCalendar{
		hold:    map[string]chan struct{}{"2024-03": started},
		replies: map[string]map[string]int{"2024-04": {"2024-04-02": 1}},
	}
	feed := NewCalendarFeed(src, nil)

	done := make(chan bool)
	go func() {
		_, applied := feed.Load(context.Background(), "2024-03")
		done <- applied
	}()
	<-started

	_, applied := feed.Load(context.Background(), "2024-04")
	require.True(t, applied)

	select {
	case applied := <-done:
		assert.False(t, applied, "March finished after April began")
	case <-time.After(time.Second):
		t.Fatal("superseded load was not cancelled")
	}
	assert.Equal(t, "2024-04", feed.Month())
	assert.True(t, feed.HasEntry("2024-04-02"))
}

func TestCalendarFeed_CloseDiscardsInFlight(t *testing.T) {
	started := make(chan struct{})
	src := &blockingCalendar{hold: map[string]chan struct{}{"2024-03": started}}
	feed := NewCalendarFeed(src, nil)

	done := make(chan bool)
	go func() {
		_, applied := feed.Load(context.Background(), "2024-03")
		done <- applied
	}()
	<-started
	feed.Close()

	assert.False(t, <-done)
	assert.Empty(t, feed.Month())
}

type stubQuotes struct {
	quotes []diary.Quote
	err    error
}

func (s *stubQuotes) Quotes(context.Context) ([]diary.Quote, error) {
	return s.quotes, s.err
}

func TestQuoteFeed(t *testing.T) {
	src := &stubQuotes{}
	feed := NewQuoteFeed(src, nil)
	assert.Equal(t, FallbackQuotes, feed.Quotes())

	quotes, applied := feed.Load(context.Background())
	assert.True(t, applied)
	assert.Equal(t, FallbackQuotes, quotes, "empty reply keeps the fallback")

	src.quotes = []diary.Quote{{En: "Carpe diem.", Ko: "오늘을 잡아라."}}
	quotes, _ = feed.Load(context.Background())
	assert.Equal(t, src.quotes, quotes)

	src.err = errors.New("offline")
	quotes, _ = feed.Load(context.Background())
	assert.Equal(t, []diary.Quote{{En: "Carpe diem.", Ko: "오늘을 잡아라."}}, quotes, "an error keeps what was loaded")

	feed.Close()
	_, applied = feed.Load(context.Background())
	assert.False(t, applied)
}

func TestFallbackQuotes(t *testing.T) {
	require.Len(t, FallbackQuotes, 3)
	assert.Equal(t, "Consistency beats perfection.", FallbackQuotes[0].En)
}
