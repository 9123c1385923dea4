package insight

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/insights/dashboard", h.Dashboard)
	g.GET("/insights/range", h.Range)
}

func clinicIDFromEcho(c echo.Context) (uuid.UUID, error) {
	s, _ := c.Get("clinic_id").(string)
	return uuid.Parse(s)
}

func (h *Handler) Dashboard(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	d, err := h.svc.Dashboard(c.Request().Context(), clinicID, c.QueryParam("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Range(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	startParam, endParam := c.QueryParam("start_date"), c.QueryParam("end_date")
	if startParam == "" || endParam == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date and end_date are required")
	}
	start, err := time.Parse("2006-01-02", startParam)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", endParam)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
	}

	insights, err := h.svc.Range(c.Request().Context(), clinicID, start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, insights)
}
