package reminder

import (
	"errors"
	"fmt"
	"net/http"
	"time"

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

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/reminders", h.Create)
	g.GET("/reminders", h.List)
	g.GET("/reminders/stats", h.Stats)
	g.GET("/reminders/:id", h.Get)
	g.PUT("/reminders/:id", h.Update)
	g.DELETE("/reminders/:id", h.Cancel)
	g.POST("/reminders/:id/send", h.SendNow)
}

func clinicIDFromEcho(c echo.Context) (uuid.UUID, error) {
	s, _ := c.Get("clinic_id").(string)
	return uuid.Parse(s)
}

type reminderRequest struct {
	PatientID     string  `json:"patient_id"`
	Message       string  `json:"message"`
	ScheduledDate string  `json:"scheduled_date"`
	ScheduledTime *string `json:"scheduled_time"`
	ContactMethod *string `json:"contact_method"`
}

func (req *reminderRequest) toReminder() (*Reminder, error) {
	r := &Reminder{
		Message:       req.Message,
		ScheduledTime: req.ScheduledTime,
		ContactMethod: req.ContactMethod,
	}
	if req.PatientID != "" {
		pid, err := uuid.Parse(req.PatientID)
		if err != nil {
			return nil, fmt.Errorf("invalid patient_id")
		}
		r.PatientID = pid
	}
	if req.ScheduledDate != "" {
		d, err := time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			if d, err = time.Parse(time.RFC3339, req.ScheduledDate); err != nil {
				return nil, fmt.Errorf("invalid scheduled_date %q, expected YYYY-MM-DD", req.ScheduledDate)
			}
		}
		r.ScheduledDate = d
	}
	return r, nil
}

func (h *Handler) Create(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := req.toReminder()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ClinicID = clinicID

	if err := h.svc.Create(c.Request().Context(), r); err != nil {
		if errors.Is(err, ErrReminderLimit) {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
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
		return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) List(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	pg := pagination.FromContext(c)

	filter := ListFilter{Status: c.QueryParam("status")}
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

func (h *Handler) Update(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req reminderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := req.toReminder()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	r.ClinicID = clinicID

	if err := h.svc.Update(c.Request().Context(), r); err != nil {
		if errors.Is(err, ErrNotPending) {
			return echo.NewHTTPError(http.StatusConflict, "reminder has already been sent or cancelled")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Cancel(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Cancel(c.Request().Context(), clinicID, id); err != nil {
		if errors.Is(err, ErrNotPending) {
			return echo.NewHTTPError(http.StatusConflict, "only pending reminders can be cancelled")
		}
		return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SendNow(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.SendNow(c.Request().Context(), clinicID, id)
	if err != nil {
		if errors.Is(err, ErrNotPending) {
			return echo.NewHTTPError(http.StatusConflict, "reminder has already been sent or cancelled")
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Stats(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	stats, err := h.svc.Stats(c.Request().Context(), clinicID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
