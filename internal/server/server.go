// Package server exposes the clinic over HTTP: patient registration,
// inspection endpoints and the WebSocket event feed.
package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/tomasbasham/clinic"
	"github.com/tomasbasham/clinic/internal/board"
	"github.com/tomasbasham/clinic/internal/ws"
)

// Server holds the collaborators behind the HTTP handlers.
type Server struct {
	Clinic *clinic.Clinic
	Board  *board.Board
	Hub    *ws.Hub
	Logger zerolog.Logger
}

type response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, response{Status: status, Message: message, Data: data})
}

// New creates an echo instance with every route registered.
func New(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.Logger.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Err(v.Error).
				Msg("request")
			return nil
		},
	}))

	s.Routes(e)
	return e
}

// Routes registers the clinic endpoints on e.
func (s *Server) Routes(e *echo.Echo) {
	api := e.Group("/api")
	api.POST("/patients", s.RegisterPatient)
	api.GET("/queue", s.ListQueue)
	api.GET("/stats", s.Stats)
	api.GET("/doctors", s.ListDoctors)
	api.DELETE("/doctors/:name", s.StopDoctor)
	api.GET("/log", s.ActivityLog)

	e.GET("/ws", ws.ServeWS(s.Hub))
}

type registerRequest struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
}

// RegisterPatient validates the form and enqueues the patient.
func (s *Server) RegisterPatient(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "invalid request body", nil)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return respond(c, http.StatusBadRequest, "name is required", nil)
	}

	priority := clinic.ParsePriority(req.Priority)
	if !priority.IsValid() {
		return respond(c, http.StatusBadRequest, "priority must be one of emergency, urgent or general-consultation", nil)
	}

	p, err := s.Clinic.Register(name, priority)
	if err != nil {
		if errors.Is(err, clinic.ErrInvalidName) || errors.Is(err, clinic.ErrInvalidPriority) {
			return respond(c, http.StatusBadRequest, err.Error(), nil)
		}
		return respond(c, http.StatusInternalServerError, "failed to register patient: "+err.Error(), nil)
	}

	return respond(c, http.StatusCreated, "patient registered", p)
}

// ListQueue returns the waiting patients in the order they will be called.
func (s *Server) ListQueue(c echo.Context) error {
	return respond(c, http.StatusOK, "queue retrieved", s.Clinic.Queue().Snapshot())
}

type stats struct {
	Served  int64 `json:"served"`
	Waiting int   `json:"waiting"`
	Doctors int   `json:"doctors"`
	Clients int   `json:"clients"`
}

func (s *Server) Stats(c echo.Context) error {
	onDuty := 0
	for _, d := range s.Clinic.Doctors() {
		if d.State != clinic.DoctorStopped.String() {
			onDuty++
		}
	}

	return respond(c, http.StatusOK, "stats retrieved", stats{
		Served:  s.Clinic.Served(),
		Waiting: s.Clinic.Waiting(),
		Doctors: onDuty,
		Clients: s.Hub.Clients(),
	})
}

type doctorView struct {
	Name   string `json:"name"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// ListDoctors merges the state of every doctor with the last status line it
// reported.
func (s *Server) ListDoctors(c echo.Context) error {
	lines := make(map[string]string)
	for _, l := range s.Board.Doctors() {
		lines[l.Name] = l.Status
	}

	doctors := s.Clinic.Doctors()
	out := make([]doctorView, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, doctorView{Name: d.Name, State: d.State, Status: lines[d.Name]})
	}
	return respond(c, http.StatusOK, "doctors retrieved", out)
}

// StopDoctor asks a doctor to leave after the current patient.
func (s *Server) StopDoctor(c echo.Context) error {
	name := c.Param("name")
	// Echo only leaves parameters escaped when it routed on the raw path.
	if c.Request().URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	if !s.Clinic.StopDoctor(name) {
		return respond(c, http.StatusNotFound, "no doctor on duty named "+strconv.Quote(name), nil)
	}
	return respond(c, http.StatusOK, "doctor stopping", map[string]string{"name": name})
}

// ActivityLog returns the newest activity lines, limited by the optional
// limit query parameter.
func (s *Server) ActivityLog(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return respond(c, http.StatusBadRequest, "limit must be a non-negative number", nil)
		}
		limit = n
	}
	return respond(c, http.StatusOK, "log retrieved", s.Board.Log(limit))
}
