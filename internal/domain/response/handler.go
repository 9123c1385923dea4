package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the clinic-facing response endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/responses", h.List)
	g.GET("/responses/keywords", h.Keywords)
	g.GET("/responses/:id", h.Get)
	g.PUT("/responses/:id", h.Correct)
	g.POST("/responses/:id/reanalyze", h.Reanalyze)
}

// RegisterPublicRoutes mounts the unauthenticated submission endpoint used by
// the patient portal.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/responses/submit", h.Submit)
}

func clinicIDFromEcho(c echo.Context) (uuid.UUID, error) {
	s, _ := c.Get("clinic_id").(string)
	return uuid.Parse(s)
}

type submitRequest struct {
	ReminderID   string `json:"reminder_id"`
	ResponseText string `json:"response_text"`
}

func (h *Handler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ReminderID == "" || req.ResponseText == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reminder_id and response_text are required")
	}
	reminderID, err := uuid.Parse(req.ReminderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reminder_id")
	}

	r, err := h.svc.Submit(c.Request().Context(), reminderID, req.ResponseText)
	if err != nil {
		if errors.Is(err, ErrReminderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message":  "Response submitted successfully",
		"response": r,
	})
}

func (h *Handler) List(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	pg := pagination.FromContext(c)

	filter := ListFilter{AIStatus: c.QueryParam("ai_status")}
	if v := c.QueryParam("patient_id"); v != "" {
		pid, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		filter.PatientID = pid
	}

	items, total, err := h.svc.List(c.Request().Context(), clinicID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), clinicID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "response not found")
	}
	return c.JSON(http.StatusOK, r)
}

type correctRequest struct {
	AISummary    *string  `json:"ai_summary"`
	AIStatus     *string  `json:"ai_status"`
	AIConfidence *float64 `json:"ai_confidence"`
}

func (h *Handler) Correct(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req correctRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	r, err := h.svc.Correct(c.Request().Context(), clinicID, id, req.AISummary, req.AIStatus, req.AIConfidence)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Reanalyze(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	r, err := h.svc.Reanalyze(c.Request().Context(), clinicID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "response not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Keywords(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	days := 30
	if v := c.QueryParam("days"); v != "" {
		if days, err = strconv.Atoi(v); err != nil || days <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
	}

	stats, err := h.svc.KeywordStats(c.Request().Context(), clinicID, days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
