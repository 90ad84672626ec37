package devserver

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Route names as "METHOD /pattern", matching the registered echo routes.
const (
	RouteLogin    = "POST /api/accounts/login"
	RouteCreate   = "POST /api/entries/"
	RouteAnalyze  = "POST /api/entries/:id/analyze/"
	RouteGet      = "GET /api/entries/:id/"
	RouteByDate   = "GET /api/entries/by-date/"
	RouteCalendar = "GET /api/entries/"
	RouteQuotes   = "GET /api/quotes/"
)

// Fault replaces a route's reply.
type Fault struct {
	Status int
	// Body is written verbatim. Empty means no body.
	Body        string
	ContentType string
	// Delay holds the reply back, or until the client goes away.
	Delay time.Duration
	// Times limits how often the fault fires. 0 means always.
	Times int
}

// Request is one logged call.
type Request struct {
	Route         string
	Method        string
	URI           string
	Authorization string
	RequestID     string
	Body          string
	Status        int
}

type faults struct {
	mu    sync.Mutex
	byKey map[string]*Fault
	log   []Request
}

func newFaults() *faults {
	return &faults{byKey: make(map[string]*Fault)}
}

func (f *faults) set(route string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey[route] = &fault
}

func (f *faults) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byKey = make(map[string]*Fault)
}

// take returns the fault for route, consuming one use.
func (f *faults) take(route string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fault, ok := f.byKey[route]
	if !ok {
		return Fault{}, false
	}
	out := *fault
	if fault.Times > 0 {
		fault.Times--
		if fault.Times == 0 {
			delete(f.byKey, route)
		}
	}
	return out, true
}

func (f *faults) record(r Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, r)
}

func (f *faults) requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.log...)
}

func (f *faults) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = nil
}

func routeKey(c echo.Context) string {
	return c.Request().Method + " " + c.Path()
}

// faultMiddleware answers with an injected fault instead of the handler.
func (s *Server) faultMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		fault, ok := s.faults.take(routeKey(c))
		if !ok {
			return next(c)
		}

		if fault.Delay > 0 {
			select {
			case <-time.After(fault.Delay):
			case <-c.Request().Context().Done():
				return nil
			}
		}
		status := fault.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if fault.Body == "" {
			return c.NoContent(status)
		}
		ct := fault.ContentType
		if ct == "" {
			ct = echo.MIMEApplicationJSON
			if !strings.HasPrefix(strings.TrimSpace(fault.Body), "{") && !strings.HasPrefix(strings.TrimSpace(fault.Body), "[") {
				ct = echo.MIMETextHTMLCharsetUTF8
			}
		}
		return c.Blob(status, ct, []byte(fault.Body))
	}
}
