package clinic

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the clinic endpoints. The register endpoint only needs
// a valid token; everything else requires a resolved clinic.
func (h *Handler) RegisterRoutes(authed *echo.Group, scoped *echo.Group) {
	authed.POST("/clinics/register", h.Register)

	scoped.GET("/clinics/me", h.Me)
	scoped.PUT("/clinics/me", h.UpdateMe)
	scoped.GET("/clinics/dashboard", h.GetDashboard)
}

func clinicIDFromEcho(c echo.Context) (uuid.UUID, error) {
	s, _ := c.Get("clinic_id").(string)
	return uuid.Parse(s)
}

type registerRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// The account email comes from the verified token, never from the body.
	email := auth.UserEmailFromContext(c.Request().Context())
	if email == "" {
		email = req.Email
	}

	clinic := &Clinic{
		Name:    req.Name,
		Email:   email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := h.svc.Register(c.Request().Context(), clinic); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, clinic)
}

func (h *Handler) Me(c echo.Context) error {
	id, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	clinic, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	return c.JSON(http.StatusOK, clinic)
}

type updateProfileRequest struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *Handler) UpdateMe(c echo.Context) error {
	id, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	clinic, err := h.svc.UpdateProfile(c.Request().Context(), id, req.Name, req.Phone, req.Address)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	id, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	d, err := h.svc.Dashboard(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}
