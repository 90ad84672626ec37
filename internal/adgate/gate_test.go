package adgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// manualSDK hands its callbacks to the test instead of firing them.
type manualSDK struct {
	mu       sync.Mutex
	onLoad   []func(LoadEvent)
	onShow   func(ShowEvent)
	showCall chan struct{}
	cleaned  int
}

func newManualSDK() *manualSDK {
	return &manualSDK{showCall: make(chan struct{}, 1)}
}

func (m *manualSDK) Supported() bool { return true }

func (m *manualSDK) Load(_ context.Context, _ string, onEvent func(LoadEvent)) func() {
	m.mu.Lock()
	m.onLoad = append(m.onLoad, onEvent)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.cleaned++
		m.mu.Unlock()
	}
}

func (m *manualSDK) Show(_ context.Context, _ string, onEvent func(ShowEvent)) {
	m.mu.Lock()
	m.onShow = onEvent
	m.mu.Unlock()
	m.showCall <- struct{}{}
}

func (m *manualSDK) load(i int, ev LoadEvent) {
	m.mu.Lock()
	fn := m.onLoad[i]
	m.mu.Unlock()
	fn(ev)
}

func (m *manualSDK) show(ev ShowEvent) {
	m.mu.Lock()
	fn := m.onShow
	m.mu.Unlock()
	fn(ev)
}

func TestGate_Unsupported(t *testing.T) {
	g := New(Unsupported{}, "placement", nil)
	g.Load(context.Background())
	assert.Equal(t, NotLoaded, g.State())
	assert.False(t, g.Ready())
	assert.Equal(t, FailedToShow, g.Show(context.Background()))
	assert.Equal(t, NotLoaded, g.AwaitLoad(context.Background()))
}

func TestGate_NilSDK(t *testing.T) {
	g := New(nil, "placement", nil)
	g.Load(context.Background())
	assert.Equal(t, NotLoaded, g.State())
}

func TestGate_LoadTransitions(t *testing.T) {
	tests := []struct {
		name string
		ev   LoadEvent
		want LoadState
	}{
		{"loaded", LoadEvent{Type: LoadEventLoaded}, Loaded},
		{"error", LoadEvent{Type: LoadEventError, Err: errors.New("no fill")}, Failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sdk := newManualSDK()
			g := New(sdk, "p", nil)
			g.Load(context.Background())
			assert.Equal(t, NotLoaded, g.State())

			sdk.load(0, tt.ev)
			assert.Equal(t, tt.want, g.AwaitLoad(context.Background()))
		})
	}
}

func TestGate_LoadErrorIsLogged(t *testing.T) {
	tl := logging.NewTestLogger()
	sdk, err := Simulated(SimulateLoadError)
	require.NoError(t, err)

	g := New(sdk, "p", tl.Underlying())
	g.Load(context.Background())
	assert.Equal(t, Failed, g.State())
	tl.AssertLogged(t, zapcore.WarnLevel, "ad load failed")
	assert.Equal(t, FailedToShow, g.Show(context.Background()))
}

func TestGate_ReloadResetsAndIgnoresStaleEvents(t *testing.T) {
	sdk := newManualSDK()
	g := New(sdk, "p", nil)

	g.Load(context.Background())
	sdk.load(0, LoadEvent{Type: LoadEventLoaded})
	require.Equal(t, Loaded, g.State())

	g.Load(context.Background())
	assert.Equal(t, NotLoaded, g.State(), "reload starts from not_loaded")
	assert.Equal(t, 1, sdk.cleaned, "previous load released")

	sdk.load(0, LoadEvent{Type: LoadEventError})
	assert.Equal(t, NotLoaded, g.State(), "events from the old load are ignored")

	sdk.load(1, LoadEvent{Type: LoadEventLoaded})
	assert.Equal(t, Loaded, g.State())
}

func TestGate_ShowRequiresLoaded(t *testing.T) {
	sdk := &ScriptedSDK{ShowEvents: []ShowEvent{{Type: ShowEventRewardEarned}}}
	g := New(sdk, "p", nil)

	assert.Equal(t, FailedToShow, g.Show(context.Background()))
	_, shows, _ := sdk.Counts()
	assert.Zero(t, shows, "sdk not asked to show")
}

func TestGate_ShowOutcomes(t *testing.T) {
	tests := []struct {
		simulation string
		want       ShowOutcome
	}{
		{SimulateReward, RewardEarned},
		{SimulateDismiss, Dismissed},
		{SimulateFail, FailedToShow},
	}
	for _, tt := range tests {
		t.Run(tt.simulation, func(t *testing.T) {
			sdk, err := Simulated(tt.simulation)
			require.NoError(t, err)
			g := New(sdk, "p", nil)
			g.Load(context.Background())
			require.True(t, g.Ready())

			assert.Equal(t, tt.want, g.Show(context.Background()))
			assert.Equal(t, NotLoaded, g.State(), "no auto reload")
		})
	}
}

func TestGate_ShowErrorIsFailedToShow(t *testing.T) {
	tl := logging.NewTestLogger()
	sdk := &ScriptedSDK{
		LoadEvents: []LoadEvent{{Type: LoadEventLoaded}},
		ShowEvents: []ShowEvent{{Type: ShowEventError, Err: errors.New("renderer crashed")}},
	}
	g := New(sdk, "p", tl.Underlying())
	g.Load(context.Background())

	assert.Equal(t, FailedToShow, g.Show(context.Background()))
	tl.AssertLogged(t, zapcore.WarnLevel, "ad show error")
}

func TestGate_FirstTerminalEventWins(t *testing.T) {
	sdk := &ScriptedSDK{
		LoadEvents: []LoadEvent{{Type: LoadEventLoaded}},
		ShowEvents: []ShowEvent{
			{Type: ShowEventRequested},
			{Type: ShowEventDismissed},
			{Type: ShowEventRewardEarned},
			{Type: ShowEventFailedToShow},
		},
	}
	g := New(sdk, "p", nil)
	g.Load(context.Background())
	assert.Equal(t, Dismissed, g.Show(context.Background()))
}

func TestGate_StateResetsWhenShowStarts(t *testing.T) {
	sdk := newManualSDK()
	g := New(sdk, "p", nil)
	g.Load(context.Background())
	sdk.load(0, LoadEvent{Type: LoadEventLoaded})

	done := make(chan ShowOutcome, 1)
	go func() { done <- g.Show(context.Background()) }()

	<-sdk.showCall
	assert.Equal(t, NotLoaded, g.State())
	sdk.show(ShowEvent{Type: ShowEventRequested})
	sdk.show(ShowEvent{Type: ShowEventRewardEarned})

	select {
	case out := <-done:
		assert.Equal(t, RewardEarned, out)
	case <-time.After(time.Second):
		t.Fatal("show did not return")
	}

	// Late events after the outcome are ignored.
	sdk.show(ShowEvent{Type: ShowEventDismissed})
	assert.Equal(t, FailedToShow, g.Show(context.Background()), "needs a fresh load")
}

func TestGate_ShowCancelled(t *testing.T) {
	sdk := newManualSDK()
	g := New(sdk, "p", nil)
	g.Load(context.Background())
	sdk.load(0, LoadEvent{Type: LoadEventLoaded})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan ShowOutcome, 1)
	go func() { done <- g.Show(ctx) }()

	<-sdk.showCall
	cancel()

	select {
	case out := <-done:
		assert.Equal(t, FailedToShow, out)
	case <-time.After(time.Second):
		t.Fatal("show did not return after cancel")
	}
	sdk.show(ShowEvent{Type: ShowEventRewardEarned})
}

func TestGate_AsyncScripted(t *testing.T) {
	sdk, err := Simulated(SimulateReward)
	require.NoError(t, err)
	sdk.(*ScriptedSDK).Async = true

	g := New(sdk, "p", nil)
	g.Load(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Equal(t, Loaded, g.AwaitLoad(ctx))
	assert.Equal(t, RewardEarned, g.Show(ctx))
}

func TestGate_CloseRunsCleanup(t *testing.T) {
	sdk := newManualSDK()
	g := New(sdk, "p", nil)
	g.Load(context.Background())
	g.Close()

	assert.Equal(t, 1, sdk.cleaned)
	sdk.load(0, LoadEvent{Type: LoadEventLoaded})
	assert.Equal(t, NotLoaded, g.State(), "events after close are ignored")
}

func TestSimulated_Unknown(t *testing.T) {
	_, err := Simulated("jackpot")
	assert.Error(t, err)

	sdk, err := Simulated(SimulateNone)
	require.NoError(t, err)
	assert.False(t, sdk.Supported())
}
