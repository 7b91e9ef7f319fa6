package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/engine"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const requestTimeout = 30 * time.Second

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.POST("/api/run/:strategy", s.RunStrategyHandler)
	e.POST("/api/balancing/complete", s.CompleteBalancingHandler)
	e.GET("/api/state", s.EntryStateHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// RunStrategyHandler triggers one decision flow on demand. A run that
// aborts on missing sensors reports "aborted" with 200, the schedule will
// try again; only real failures are 5xx.
func (s *Server) RunStrategyHandler(c echo.Context) error {
	strategy, ok := domain.ParseStrategy(c.Param("strategy"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": "unknown strategy " + c.Param("strategy"),
		})
	}

	request := domain.RunStrategyRequest{
		Strategy: strategy,
		EntryID:  c.QueryParam("entry_id"),
		SellType: domain.SellType(c.QueryParam("sell_type")),
	}
	if raw := c.QueryParam("margin"); raw != "" {
		margin, err := strconv.ParseFloat(raw, 64)
		if err != nil || margin <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error": "margin must be a positive number",
			})
		}
		request.Margin = &margin
	}
	if strategy == domain.StrategySellRestore && request.SellType == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": "sell_type query parameter is required for sell_restore",
		})
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, request, requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
	}
	response, ok := res.(domain.RunStrategyResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "unexpected response"})
	}
	if response.HasResponseError() {
		respErr := response.GetResponseError()
		if errors.Is(respErr, engine.ErrAborted) {
			return c.JSON(http.StatusOK, map[string]any{
				"result": "aborted",
				"detail": respErr.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": respErr.Error()})
	}
	if response.Outcome == nil {
		return c.JSON(http.StatusOK, map[string]any{"result": "nothing_to_do"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"result":  "ok",
		"outcome": response.Outcome,
	})
}

func (s *Server) CompleteBalancingHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.CompleteBalancingRequest{
		EntryID: c.QueryParam("entry_id"),
	}, requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
	}
	response, ok := res.(domain.CompleteBalancingResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"completed": response.Completed})
}

func (s *Server) EntryStateHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetEntryStateRequest{
		EntryID: c.QueryParam("entry_id"),
	}, requestTimeout).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
	}
	response, ok := res.(domain.GetEntryStateResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, response.State)
}
