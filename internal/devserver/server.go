// Package devserver is an in-memory stand-in for the daybook backend.
//
// It serves the REST surface under /api with the same payload shapes as the
// production server, including DRF-style error bodies, so the client can be
// exercised end to end without a network dependency. Faults can be injected
// per route and every request is logged for inspection.
package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const userKeyContext = "daybook.user"

// Server serves the dev backend.
type Server struct {
	echo    *echo.Echo
	backend *Backend
	faults  *faults
	logger  *zap.Logger
	config  *Config
}

// Config holds dev server configuration.
type Config struct {
	Host string
	Port int
	// Token is the bearer handed out by the login endpoint. Empty means a
	// fresh random token per login.
	Token string
}

// DetailResponse is the body of non-field errors.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

type loginUser struct {
	UserKey string `json:"userKey"`
}

type loginResponse struct {
	JWT  string    `json:"jwt"`
	User loginUser `json:"user"`
}

// NewServer creates a dev server with an empty backend.
func NewServer(logger *zap.Logger, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8000,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		backend: NewBackend(),
		faults:  newFaults(),
		logger:  logger,
		config:  cfg,
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLog)
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(s.faultMiddleware)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.POST("/accounts/login", s.handleLogin)
	api.GET("/quotes/", s.handleQuotes)

	api.POST("/entries/", s.handleCreate, s.requireAuth)
	api.GET("/entries/", s.handleCalendar, s.requireAuth)
	api.GET("/entries/by-date/", s.handleByDate, s.requireAuth)
	api.GET("/entries/:id/", s.handleGet, s.requireAuth)
	api.POST("/entries/:id/analyze/", s.handleAnalyze, s.requireAuth)
}

// Backend returns the in-memory state.
func (s *Server) Backend() *Backend {
	return s.backend
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Fail makes route answer with fault until cleared or used up.
func (s *Server) Fail(route string, fault Fault) {
	s.faults.set(route, fault)
}

// ClearFaults removes every injected fault.
func (s *Server) ClearFaults() {
	s.faults.clear()
}

// Requests returns the request log in arrival order.
func (s *Server) Requests() []Request {
	return s.faults.requests()
}

// ResetRequests empties the request log.
func (s *Server) ResetRequests() {
	s.faults.reset()
}

// requestLog records every call and logs it.
func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		var body []byte
		if req.Body != nil {
			body, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		s.faults.record(Request{
			Route:         routeKey(c),
			Method:        req.Method,
			URI:           req.RequestURI,
			Authorization: req.Header.Get(echo.HeaderAuthorization),
			RequestID:     requestID,
			Body:          string(body),
			Status:        status,
		})

		s.logger.Info("http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID),
		)
		return nil
	}
}

// requireAuth resolves the bearer token to a user.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "Authentication credentials were not provided."})
		}
		user, ok := s.backend.user(token)
		if !ok {
			return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "Given token not valid for any token type"})
		}
		c.Set(userKeyContext, user)
		return next(c)
	}
}

func currentUser(c echo.Context) string {
	u, _ := c.Get(userKeyContext).(string)
	return u
}

// handleError renders echo errors as {"detail": ...}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	detail := "A server error occurred."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(status)
		}
	} else {
		s.logger.Error("handler failed", zap.Error(err))
	}
	if status == http.StatusNotFound {
		detail = "Not found."
	}
	if werr := c.JSON(status, DetailResponse{Detail: detail}); werr != nil {
		s.logger.Warn("writing error response", zap.Error(werr))
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req diary.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "JSON parse error."})
	}
	if req.AuthorizationCode == "" {
		return c.JSON(http.StatusBadRequest, fieldErrors{"authorizationCode": {"This field is required."}})
	}

	userKey := "dev-" + req.AuthorizationCode
	token := s.backend.IssueToken(s.config.Token, userKey)
	s.logger.Debug("issued dev token", zap.String("referrer", req.Referrer))
	return c.JSON(http.StatusOK, loginResponse{JWT: token, User: loginUser{UserKey: userKey}})
}

func (s *Server) handleQuotes(c echo.Context) error {
	return c.JSON(http.StatusOK, s.backend.Quotes())
}

func (s *Server) handleCreate(c echo.Context) error {
	var in diary.NewEntry
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "JSON parse error."})
	}
	entry, errs := s.backend.create(currentUser(c), in)
	if errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleGet(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	entry, ok := s.backend.get(currentUser(c), id)
	if !ok {
		return echo.ErrNotFound
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleAnalyze(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.ErrNotFound
	}
	entry, ok := s.backend.analyze(currentUser(c), id)
	if !ok {
		return echo.ErrNotFound
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) handleByDate(c echo.Context) error {
	date := c.QueryParam("date")
	if _, err := time.Parse(DateLayout, date); err != nil {
		return c.JSON(http.StatusBadRequest, fieldErrors{"date": {"Enter a valid date."}})
	}
	id, ok := s.backend.byDate(currentUser(c), date)
	if !ok {
		return c.JSON(http.StatusOK, diary.ByDate{Exists: false})
	}
	return c.JSON(http.StatusOK, diary.ByDate{Exists: true, Entry: &diary.EntryRef{ID: id}})
}

func (s *Server) handleCalendar(c echo.Context) error {
	month := c.QueryParam("month")
	if c.QueryParam("calendar") != "1" || month == "" {
		return c.JSON(http.StatusBadRequest, fieldErrors{"month": {"This field is required."}})
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return c.JSON(http.StatusBadRequest, fieldErrors{"month": {"Enter a valid month."}})
	}
	return c.JSON(http.StatusOK, s.backend.calendar(currentUser(c), month))
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting dev server", zap.String("addr", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dev server")
	return s.echo.Shutdown(ctx)
}
