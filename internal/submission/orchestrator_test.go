package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/adgate"
	"github.com/fyrsmithlabs/daybook/internal/apiclient"
	"github.com/fyrsmithlabs/daybook/internal/apierrors"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// MockEntryWriter is a mock implementation of EntryWriter
type MockEntryWriter struct {
	mock.Mock
}

func (m *MockEntryWriter) CreateEntry(ctx context.Context, entry diary.NewEntry) (*diary.Entry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diary.Entry), args.Error(1)
}

func (m *MockEntryWriter) AnalyzeEntry(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fakeGate struct {
	ready   bool
	outcome adgate.ShowOutcome
	shows   int
}

func (g *fakeGate) Ready() bool { return g.ready }

func (g *fakeGate) Show(context.Context) adgate.ShowOutcome {
	g.shows++
	g.ready = false
	return g.outcome
}

func goodDraft() Draft {
	return Draft{
		Title:   "A good day",
		Body:    "I woke up early and felt great about it today, truly.",
		Mood:    diary.MoodGood,
		Weather: diary.WeatherSunny,
	}
}

func wantEntry() diary.NewEntry {
	return diary.NewEntry{
		Title:        "A good day",
		Meta:         diary.Meta{Weather: diary.WeatherSunny, Mood: diary.MoodGood},
		OriginalLang: "en",
		OriginalText: "I woke up early and felt great about it today, truly.",
	}
}

func recordTransitions(o *Orchestrator) *[]Transition {
	var trs []Transition
	o.OnTransition(func(tr Transition) { trs = append(trs, tr) })
	return &trs
}

func states(trs []Transition) []State {
	out := make([]State, 0, len(trs)+1)
	for i, tr := range trs {
		if i == 0 {
			out = append(out, tr.From)
		}
		out = append(out, tr.To)
	}
	return out
}

func TestSubmit_EndToEndSuccess(t *testing.T) {
	w := new(MockEntryWriter)
	var calls []string
	w.On("CreateEntry", mock.Anything, wantEntry()).
		Run(func(mock.Arguments) { calls = append(calls, "create") }).
		Return(&diary.Entry{ID: 42}, nil).Once()
	w.On("AnalyzeEntry", mock.Anything, int64(42)).
		Run(func(mock.Arguments) { calls = append(calls, "analyze") }).
		Return(nil).Once()

	o := New(w, WithAdGate(&fakeGate{}))
	trs := recordTransitions(o)

	res := o.Submit(context.Background(), goodDraft())

	require.True(t, res.Succeeded())
	assert.Equal(t, int64(42), res.EntryID)
	assert.Equal(t, "/entries/42", res.Route())
	assert.Empty(t, res.Message)
	assert.Equal(t, []string{"create", "analyze"}, calls)
	assert.Equal(t, []State{
		StateIdle, StateValidating, StateCreatingEntry, StateRequestingAnalysis, StateSucceeded,
	}, states(*trs))
	w.AssertExpectations(t)
}

func TestSubmit_PayloadTrimsTitleAndCarriesDate(t *testing.T) {
	d := goodDraft()
	d.Title = "  A good day \n"
	d.Date = "2024-03-01"
	want := wantEntry()
	want.Date = "2024-03-01"

	w := new(MockEntryWriter)
	w.On("CreateEntry", mock.Anything, want).Return(&diary.Entry{ID: 1}, nil)
	w.On("AnalyzeEntry", mock.Anything, int64(1)).Return(nil)

	res := New(w).Submit(context.Background(), d)
	assert.True(t, res.Succeeded())
	w.AssertExpectations(t)
}

func TestSubmit_ShortTitleMakesNoCalls(t *testing.T) {
	for _, body := range []string{"", "short", goodDraft().Body} {
		t.Run(fmt.Sprintf("body=%d", len(body)), func(t *testing.T) {
			w := new(MockEntryWriter)
			d := goodDraft()
			d.Title = " A "
			d.Body = body

			res := New(w).Submit(context.Background(), d)

			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, ReasonInvalid, res.Reason)
			assert.True(t, res.Violations.Has(FieldTitle, TooShort))
			assert.Empty(t, res.Route())
			w.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything)
			w.AssertNotCalled(t, "AnalyzeEntry", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_ShortBody(t *testing.T) {
	w := new(MockEntryWriter)
	d := goodDraft()
	d.Body = "short"

	res := New(w).Submit(context.Background(), d)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonInvalid, res.Reason)
	assert.Equal(t, ValidationResult{{Field: FieldBody, Kind: TooShort}}, res.Violations)
	assert.Equal(t, "Write at least 50 characters.", res.Message)
	w.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything)
}

func TestValidate_CollectsEverythingInOrder(t *testing.T) {
	got := Validate(Draft{Title: "가", Body: "오늘은 좋은 날", Mood: "ecstatic"})
	assert.Equal(t, ValidationResult{
		{Field: FieldTitle, Kind: TooShort},
		{Field: FieldTitle, Kind: DisallowedScript},
		{Field: FieldBody, Kind: DisallowedScript},
		{Field: FieldBody, Kind: TooShort},
		{Field: FieldMood, Kind: UnknownValue},
		{Field: FieldWeather, Kind: UnknownValue},
	}, got)
}

func TestValidate_CountsRunes(t *testing.T) {
	d := goodDraft()
	d.Body = strings.Repeat("é", MinBodyRunes-1)
	assert.True(t, Validate(d).Has(FieldBody, TooShort))

	d.Body += "é"
	assert.Empty(t, Validate(d))

	d.Body = strings.Repeat(" ", 80)
	assert.True(t, Validate(d).Has(FieldBody, TooShort))
}

func TestContainsHangul(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hello", false},
		{"café ☕", false},
		{"日本語", false},
		{"안녕", true},
		{"ㄱ", true},
		{"ㅏ", true},
		{"mixed 한 word", true},
		{"ᄀ", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsHangul(tt.in))
		})
	}
}

func TestSubmit_AdDismissedMakesNoCalls(t *testing.T) {
	w := new(MockEntryWriter)
	gate := &fakeGate{ready: true, outcome: adgate.Dismissed}
	o := New(w, WithAdGate(gate))
	trs := recordTransitions(o)

	res := o.Submit(context.Background(), goodDraft())

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonAdDismissed, res.Reason)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, 1, gate.shows)
	assert.Equal(t, []State{StateIdle, StateValidating, StateAwaitingAd, StateFailed}, states(*trs))
	w.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything)
	w.AssertNotCalled(t, "AnalyzeEntry", mock.Anything, mock.Anything)
}

func TestSubmit_AdOutcomesThatProceed(t *testing.T) {
	for _, out := range []adgate.ShowOutcome{adgate.RewardEarned, adgate.FailedToShow} {
		t.Run(string(out), func(t *testing.T) {
			w := new(MockEntryWriter)
			w.On("CreateEntry", mock.Anything, wantEntry()).Return(&diary.Entry{ID: 3}, nil)
			w.On("AnalyzeEntry", mock.Anything, int64(3)).Return(nil)
			o := New(w, WithAdGate(&fakeGate{ready: true, outcome: out}))
			trs := recordTransitions(o)

			res := o.Submit(context.Background(), goodDraft())

			assert.True(t, res.Succeeded())
			assert.Equal(t, []State{
				StateIdle, StateValidating, StateAwaitingAd, StateCreatingEntry, StateRequestingAnalysis, StateSucceeded,
			}, states(*trs))
		})
	}
}

func TestSubmit_RealGate(t *testing.T) {
	sdk, err := adgate.Simulated(adgate.SimulateDismiss)
	require.NoError(t, err)
	gate := adgate.New(sdk, "placement", nil)
	gate.Load(context.Background())
	require.True(t, gate.Ready())

	w := new(MockEntryWriter)
	res := New(w, WithAdGate(gate)).Submit(context.Background(), goodDraft())

	assert.Equal(t, ReasonAdDismissed, res.Reason)
	assert.Equal(t, adgate.NotLoaded, gate.State())
	w.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything)
}

func TestSubmit_CreateError(t *testing.T) {
	w := new(MockEntryWriter)
	w.On("CreateEntry", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("create entry: %w", &apiclient.StructuredError{
		StatusCode: 400,
		Payload:    apiclient.NewPayload([]byte(`{"title":["Ensure this field has no more than 100 characters."]}`)),
	}))
	tl := logging.NewTestLogger()

	res := New(w, WithLogger(tl.Underlying())).Submit(context.Background(), goodDraft())

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonCreateError, res.Reason)
	assert.Equal(t, "title: Ensure this field has no more than 100 characters.", res.Message)
	assert.Zero(t, res.EntryID)
	assert.False(t, res.Cancelled)
	w.AssertNotCalled(t, "AnalyzeEntry", mock.Anything, mock.Anything)
	tl.AssertLogged(t, zapcore.WarnLevel, "submission failed")
	tl.AssertField(t, "submission failed", "kind", "validation")
}

func TestSubmit_AnalysisErrorKeepsEntry(t *testing.T) {
	w := new(MockEntryWriter)
	w.On("CreateEntry", mock.Anything, mock.Anything).Return(&diary.Entry{ID: 42}, nil)
	w.On("AnalyzeEntry", mock.Anything, int64(42)).Return(&apiclient.StructuredError{
		StatusCode: 503,
		Payload:    apiclient.NewPayload([]byte(`{"detail":"Analysis is temporarily unavailable."}`)),
	})

	res := New(w).Submit(context.Background(), goodDraft())

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonAnalysisError, res.Reason)
	assert.Equal(t, int64(42), res.EntryID)
	assert.Equal(t, "Analysis is temporarily unavailable.", res.Message)
	assert.Equal(t, "/entries/42", res.Route())
}

func TestSubmit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := new(MockEntryWriter)
	w.On("CreateEntry", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, fmt.Errorf("create entry: %w", fmt.Errorf("%w: %w", apiclient.ErrCancelled, context.Canceled)))
	tl := logging.NewTestLogger()

	res := New(w, WithLogger(tl.Underlying())).Submit(ctx, goodDraft())

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, ReasonCreateError, res.Reason)
	assert.True(t, res.Cancelled)
	assert.Equal(t, apierrors.MsgCancelled, res.Message)
	tl.AssertNotLogged(t, zapcore.WarnLevel, "submission failed")
}

func TestSubmit_BusyWhileRunning(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	w := new(MockEntryWriter)
	w.On("CreateEntry", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&diary.Entry{ID: 8}, nil).Once()
	w.On("AnalyzeEntry", mock.Anything, int64(8)).Return(nil).Once()

	o := New(w)
	var wg sync.WaitGroup
	wg.Add(1)
	var first Result
	go func() {
		defer wg.Done()
		first = o.Submit(context.Background(), goodDraft())
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first submit did not reach create")
	}

	second := o.Submit(context.Background(), goodDraft())
	assert.True(t, second.Busy)
	assert.Equal(t, StateCreatingEntry, second.State)
	assert.ErrorIs(t, o.Reset(), ErrIllegalTransition)

	close(release)
	wg.Wait()
	assert.True(t, first.Succeeded())
	w.AssertExpectations(t)
}

func TestSubmit_RetryAfterFailure(t *testing.T) {
	w := new(MockEntryWriter)
	w.On("CreateEntry", mock.Anything, mock.Anything).Return(nil, &apiclient.NetworkFault{Op: "POST /entries/", Err: errors.New("refused")}).Once()
	w.On("CreateEntry", mock.Anything, mock.Anything).Return(&diary.Entry{ID: 5}, nil).Once()
	w.On("AnalyzeEntry", mock.Anything, int64(5)).Return(nil).Once()

	o := New(w)
	trs := recordTransitions(o)

	first := o.Submit(context.Background(), goodDraft())
	require.Equal(t, ReasonCreateError, first.Reason)

	*trs = nil
	second := o.Submit(context.Background(), goodDraft())
	assert.True(t, second.Succeeded())
	assert.Equal(t, Transition{From: StateFailed, To: StateIdle}, (*trs)[0])
}

func TestSubmit_SucceededNeedsReset(t *testing.T) {
	w := new(MockEntryWriter)
	w.On("CreateEntry", mock.Anything, mock.Anything).Return(&diary.Entry{ID: 5}, nil)
	w.On("AnalyzeEntry", mock.Anything, int64(5)).Return(nil)

	o := New(w)
	require.True(t, o.Submit(context.Background(), goodDraft()).Succeeded())

	again := o.Submit(context.Background(), goodDraft())
	assert.True(t, again.Busy)
	assert.Equal(t, StateSucceeded, again.State)

	require.NoError(t, o.Reset())
	assert.Equal(t, StateIdle, o.State())
	assert.True(t, o.Submit(context.Background(), goodDraft()).Succeeded())
	w.AssertNumberOfCalls(t, "CreateEntry", 2)
}

func TestReset_IdleIsNoop(t *testing.T) {
	o := New(new(MockEntryWriter))
	trs := recordTransitions(o)
	require.NoError(t, o.Reset())
	assert.Empty(t, *trs)
}

func TestCanTransition(t *testing.T) {
	assert.NoError(t, CanTransition(StateIdle, StateValidating))
	assert.NoError(t, CanTransition(StateRequestingAnalysis, StateFailed))
	assert.NoError(t, CanTransition(StateFailed, StateIdle))
	assert.ErrorIs(t, CanTransition(StateIdle, StateCreatingEntry), ErrIllegalTransition)
	assert.ErrorIs(t, CanTransition(StateValidating, StateRequestingAnalysis), ErrIllegalTransition)
	assert.ErrorIs(t, CanTransition(StateSucceeded, StateFailed), ErrIllegalTransition)
	assert.ErrorIs(t, CanTransition(StateAwaitingAd, StateSucceeded), ErrIllegalTransition)
}

func TestSubmit_CountsOutcomes(t *testing.T) {
	counter := SubmissionsTotal.WithLabelValues("failed", "invalid")
	before := testutil.ToFloat64(counter)

	New(new(MockEntryWriter)).Submit(context.Background(), Draft{})

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
