package adgate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnsupported is reported when an unsupported SDK is asked to show.
var ErrUnsupported = errors.New("ads are not supported in this environment")

// Unsupported is the SDK for environments without ads.
type Unsupported struct{}

func (Unsupported) Supported() bool { return false }

func (Unsupported) Load(context.Context, string, func(LoadEvent)) func() { return func() {} }

func (Unsupported) Show(_ context.Context, _ string, onEvent func(ShowEvent)) {
	onEvent(ShowEvent{Type: ShowEventError, Err: ErrUnsupported})
}

// Simulation names accepted by Simulated.
const (
	SimulateNone      = ""
	SimulateReward    = "reward"
	SimulateDismiss   = "dismiss"
	SimulateFail      = "fail"
	SimulateLoadError = "load_error"
)

// ScriptedSDK replays fixed event sequences. It backs the simulated ad
// modes of the CLI and the tests.
type ScriptedSDK struct {
	LoadEvents []LoadEvent
	ShowEvents []ShowEvent
	// Async delivers events from a goroutine instead of inline.
	Async bool

	mu       sync.Mutex
	loads    int
	shows    int
	cleanups int
}

// Simulated returns the SDK for a simulation name. The empty name means no
// ads at all.
func Simulated(name string) (SDK, error) {
	requested := ShowEvent{Type: ShowEventRequested}
	loaded := []LoadEvent{{Type: LoadEventLoaded}}

	switch name {
	case SimulateNone:
		return Unsupported{}, nil
	case SimulateReward:
		// The real provider reports dismissal after the reward as well.
		return &ScriptedSDK{LoadEvents: loaded, ShowEvents: []ShowEvent{
			requested, {Type: ShowEventRewardEarned}, {Type: ShowEventDismissed},
		}}, nil
	case SimulateDismiss:
		return &ScriptedSDK{LoadEvents: loaded, ShowEvents: []ShowEvent{
			requested, {Type: ShowEventDismissed},
		}}, nil
	case SimulateFail:
		return &ScriptedSDK{LoadEvents: loaded, ShowEvents: []ShowEvent{
			requested, {Type: ShowEventFailedToShow},
		}}, nil
	case SimulateLoadError:
		return &ScriptedSDK{LoadEvents: []LoadEvent{
			{Type: LoadEventError, Err: errors.New("no fill")},
		}}, nil
	default:
		return nil, fmt.Errorf("unknown ad simulation %q", name)
	}
}

func (s *ScriptedSDK) Supported() bool { return true }

func (s *ScriptedSDK) Load(_ context.Context, _ string, onEvent func(LoadEvent)) func() {
	s.mu.Lock()
	s.loads++
	events := append([]LoadEvent(nil), s.LoadEvents...)
	s.mu.Unlock()

	s.deliver(func() {
		for _, ev := range events {
			onEvent(ev)
		}
	})
	return func() {
		s.mu.Lock()
		s.cleanups++
		s.mu.Unlock()
	}
}

func (s *ScriptedSDK) Show(_ context.Context, _ string, onEvent func(ShowEvent)) {
	s.mu.Lock()
	s.shows++
	events := append([]ShowEvent(nil), s.ShowEvents...)
	s.mu.Unlock()

	s.deliver(func() {
		for _, ev := range events {
			onEvent(ev)
		}
	})
}

func (s *ScriptedSDK) deliver(fn func()) {
	if s.Async {
		go fn()
		return
	}
	fn()
}

// Counts returns how many loads, shows and cleanups have happened.
func (s *ScriptedSDK) Counts() (loads, shows, cleanups int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads, s.shows, s.cleanups
}
