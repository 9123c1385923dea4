package patient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
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
	g.POST("/patients", h.Create)
	g.GET("/patients", h.List)
	g.GET("/patients/follow-ups/upcoming", h.Upcoming)
	g.GET("/patients/:id", h.Get)
	g.PUT("/patients/:id", h.Update)
	g.DELETE("/patients/:id", h.Deactivate)
}

func clinicIDFromEcho(c echo.Context) (uuid.UUID, error) {
	s, _ := c.Get("clinic_id").(string)
	return uuid.Parse(s)
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}

type patientRequest struct {
	Name                   string  `json:"name"`
	Email                  *string `json:"email"`
	Phone                  *string `json:"phone"`
	DateOfBirth            string  `json:"date_of_birth"`
	LastVisitDate          string  `json:"last_visit_date"`
	NextFollowUpDate       string  `json:"next_follow_up_date"`
	Notes                  *string `json:"notes"`
	PreferredContactMethod string  `json:"preferred_contact_method"`
	IsActive               *bool   `json:"is_active"`
}

func (req *patientRequest) toPatient() (*Patient, error) {
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	lastVisit, err := parseDate(req.LastVisitDate)
	if err != nil {
		return nil, err
	}
	nextFollowUp, err := parseDate(req.NextFollowUpDate)
	if err != nil {
		return nil, err
	}
	p := &Patient{
		Name:                   req.Name,
		Email:                  req.Email,
		Phone:                  req.Phone,
		DateOfBirth:            dob,
		LastVisitDate:          lastVisit,
		NextFollowUpDate:       nextFollowUp,
		Notes:                  req.Notes,
		PreferredContactMethod: req.PreferredContactMethod,
		IsActive:               true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p, nil
}

func (h *Handler) Create(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := req.toPatient()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ClinicID = clinicID

	if err := h.svc.Create(c.Request().Context(), p); err != nil {
		if errors.Is(err, ErrPatientLimit) {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
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
	p, err := h.svc.Get(c.Request().Context(), clinicID, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	pg := pagination.FromContext(c)

	filter := ListFilter{Search: c.QueryParam("search")}
	if v := c.QueryParam("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid is_active")
		}
		filter.IsActive = &active
	}

	items, total, err := h.svc.List(c.Request().Context(), clinicID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
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
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := req.toPatient()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	p.ClinicID = clinicID

	if err := h.svc.Update(c.Request().Context(), p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Deactivate(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Deactivate(c.Request().Context(), clinicID, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Upcoming(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	days := 7
	if v := c.QueryParam("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
	}
	items, err := h.svc.UpcomingFollowUps(c.Request().Context(), clinicID, days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
