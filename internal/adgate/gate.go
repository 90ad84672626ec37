// Package adgate wraps a reward-granting ad as a small state machine.
//
// The load lifecycle moves NotLoaded -> Loaded or NotLoaded -> Failed. A show
// attempt consumes the loaded ad: the state returns to NotLoaded as soon as
// the attempt starts, and the gate never reloads on its own. SDK errors are
// logged and folded into Failed or FailedToShow; they never reach callers as
// errors.
package adgate

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SDK is the boundary to the ad provider.
type SDK interface {
	Supported() bool
	// Load starts loading placement and reports progress through onEvent,
	// synchronously or later. The returned cleanup releases the load.
	Load(ctx context.Context, placement string, onEvent func(LoadEvent)) (cleanup func())
	// Show displays placement and reports progress through onEvent.
	Show(ctx context.Context, placement string, onEvent func(ShowEvent))
}

// Gate tracks one placement.
type Gate struct {
	sdk       SDK
	placement string
	logger    *zap.Logger

	mu       sync.Mutex
	state    LoadState
	gen      uint64
	cleanup  func()
	loadDone chan struct{}
}

// New creates a gate in NotLoaded. logger may be nil.
func New(sdk SDK, placement string, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sdk == nil {
		sdk = Unsupported{}
	}
	return &Gate{sdk: sdk, placement: placement, logger: logger, state: NotLoaded}
}

// Placement returns the placement identifier.
func (g *Gate) Placement() string {
	return g.placement
}

// State returns the current load state.
func (g *Gate) State() LoadState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Ready reports whether a show may be attempted.
func (g *Gate) Ready() bool {
	return g.State() == Loaded
}

// Load starts loading. An unsupported SDK leaves the gate NotLoaded. A
// reload resets the state to NotLoaded and releases the previous load.
func (g *Gate) Load(ctx context.Context) {
	if !g.sdk.Supported() {
		g.logger.Debug("ads unsupported, gate stays not loaded", zap.String("placement", g.placement))
		return
	}

	g.mu.Lock()
	prev := g.cleanup
	g.gen++
	gen := g.gen
	g.state = NotLoaded
	g.cleanup = nil
	done := make(chan struct{})
	g.loadDone = done
	g.mu.Unlock()

	if prev != nil {
		prev()
	}

	var once sync.Once
	cleanup := g.sdk.Load(ctx, g.placement, func(ev LoadEvent) {
		g.onLoadEvent(gen, ev)
		once.Do(func() { close(done) })
	})

	g.mu.Lock()
	if g.gen == gen {
		g.cleanup = cleanup
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	// Superseded or closed while the SDK was starting.
	if cleanup != nil {
		cleanup()
	}
}

func (g *Gate) onLoadEvent(gen uint64, ev LoadEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return
	}
	switch ev.Type {
	case LoadEventLoaded:
		g.state = Loaded
		LoadOutcomes.WithLabelValues(string(Loaded)).Inc()
		g.logger.Debug("ad loaded", zap.String("placement", g.placement))
	case LoadEventError:
		g.state = Failed
		LoadOutcomes.WithLabelValues(string(Failed)).Inc()
		g.logger.Warn("ad load failed", zap.String("placement", g.placement), zap.Error(ev.Err))
	default:
		g.logger.Debug("ignoring load event", zap.String("type", string(ev.Type)))
	}
}

// AwaitLoad blocks until the current load reports a result or ctx ends,
// then returns the state.
func (g *Gate) AwaitLoad(ctx context.Context) LoadState {
	g.mu.Lock()
	done := g.loadDone
	g.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	return g.State()
}

// Show runs one show attempt and returns its first terminal outcome. It
// returns FailedToShow without calling the SDK unless the gate is Loaded,
// and FailedToShow when ctx ends first.
func (g *Gate) Show(ctx context.Context) ShowOutcome {
	g.mu.Lock()
	if g.state != Loaded {
		state := g.state
		g.mu.Unlock()
		g.logger.Debug("show skipped, ad not loaded", zap.String("state", string(state)))
		return g.record(FailedToShow)
	}
	g.state = NotLoaded
	g.mu.Unlock()

	result := make(chan ShowOutcome, 1)
	var once sync.Once
	g.sdk.Show(ctx, g.placement, func(ev ShowEvent) {
		if ev.Type == ShowEventError {
			g.logger.Warn("ad show error", zap.String("placement", g.placement), zap.Error(ev.Err))
		}
		out, terminal := ev.outcome()
		if !terminal {
			return
		}
		once.Do(func() { result <- out })
	})

	select {
	case out := <-result:
		return g.record(out)
	case <-ctx.Done():
		g.logger.Debug("show abandoned", zap.Error(ctx.Err()))
		return g.record(FailedToShow)
	}
}

func (g *Gate) record(out ShowOutcome) ShowOutcome {
	ShowOutcomes.WithLabelValues(string(out)).Inc()
	return out
}

// Close releases the current load and ignores any later load events.
func (g *Gate) Close() {
	g.mu.Lock()
	cleanup := g.cleanup
	g.cleanup = nil
	g.gen++
	g.state = NotLoaded
	g.mu.Unlock()

	if cleanup != nil {
		cleanup()
	}
}
