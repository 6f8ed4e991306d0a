package api

import (
	"net/http"
	"time"

	models "FinSight/internal/domain/models"
	svcmetrics "FinSight/internal/service/metrics"
	"FinSight/internal/service/ratelimit"
	"FinSight/internal/usecase"
	xhttp "FinSight/pkg/http"
	xlogger "FinSight/pkg/logger"
	"FinSight/pkg/queue"

	"github.com/labstack/echo/v4"
)

// ViewsEchoHandler exposes the read-only analytics views and the refresh
// trigger over Echo following Clean Architecture.
type ViewsEchoHandler struct {
	logger *xlogger.Logger
	views  *usecase.Views
	coord  *usecase.RefreshCoordinator
	qsvc   queue.QueueService
}

func NewViewsEchoHandler(logger *xlogger.Logger, views *usecase.Views, coord *usecase.RefreshCoordinator, qsvc queue.QueueService) *ViewsEchoHandler {
	return &ViewsEchoHandler{logger: logger, views: views, coord: coord, qsvc: qsvc}
}

func (h *ViewsEchoHandler) RegisterRoutes(e *echo.Echo) {
	svcmetrics.Register()
	g := e.Group("/api")
	g.GET("/indicators", h.Indicators)
	g.GET("/anomalies", h.Anomalies)
	g.GET("/correlations", h.Correlations)
	g.GET("/performance", h.Performance)
	g.GET("/report", h.Report)

	// A refresh rebuilds every result table, so throttle the trigger harder
	// than the read views.
	g.POST("/refresh", h.Refresh, ratelimit.Middleware(ratelimit.New(), 3, 0.1))
}

func (h *ViewsEchoHandler) Indicators(c echo.Context) error {
	start := time.Now()
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.views.Indicators(c.Request().Context(), req)
	svcmetrics.Observe("indicators", start, err)
	if err != nil {
		h.logger.Error("indicators usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=30")
	return xhttp.SuccessResponse(c, res)
}

func (h *ViewsEchoHandler) Anomalies(c echo.Context) error {
	start := time.Now()
	req := &models.AnomaliesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.views.Anomalies(c.Request().Context(), req)
	svcmetrics.Observe("anomalies", start, err)
	if err != nil {
		h.logger.Error("anomalies usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ViewsEchoHandler) Correlations(c echo.Context) error {
	start := time.Now()
	req := &models.CorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.views.Correlations(c.Request().Context(), req)
	svcmetrics.Observe("correlations", start, err)
	if err != nil {
		h.logger.Error("correlations usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ViewsEchoHandler) Performance(c echo.Context) error {
	start := time.Now()
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.views.Performance(c.Request().Context(), req)
	svcmetrics.Observe("performance", start, err)
	if err != nil {
		h.logger.Error("performance usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Report returns the most recent run's accounting, or 404 before the first
// completed run.
func (h *ViewsEchoHandler) Report(c echo.Context) error {
	report := h.coord.LastReport()
	if report == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no completed run yet"})
	}
	return xhttp.SuccessResponse(c, report)
}

// Refresh triggers a pipeline run. By default the run is enqueued and the
// call returns immediately; with wait=true the run executes inline and the
// report is returned.
func (h *ViewsEchoHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	// Without a queue the run executes inline regardless of wait.
	if req.Wait || h.qsvc == nil {
		report, err := h.coord.Refresh(c.Request().Context())
		if err == usecase.ErrRefreshInProgress {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		if err != nil {
			h.logger.Error("refresh error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		return xhttp.SuccessResponse(c, report)
	}

	if err := h.qsvc.PublishMessage(c.Request().Context(), "refresh", usecase.RefreshPayload{Trigger: "api"}); err != nil {
		h.logger.Error("enqueue refresh", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "enqueued"})
}
