package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the clinic-scoped billing endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/billing/current", h.Current)
	g.POST("/billing/initialize", h.Initialize)
	g.POST("/billing/verify", h.Verify)
	g.POST("/billing/cancel", h.Cancel)
	g.GET("/billing/payments", h.ListPayments)
	g.GET("/billing/usage", h.Usage)
}

// RegisterPublicRoutes mounts the endpoints that need no session: the plan
// catalog and the gateway webhook.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/billing/plans", h.Plans)
	g.POST("/billing/webhook", h.Webhook)
}

func clinicIDFromEcho(c echo.Context) (uuid.UUID, error) {
	s, _ := c.Get("clinic_id").(string)
	return uuid.Parse(s)
}

func (h *Handler) Plans(c echo.Context) error {
	plans, err := h.service.Plans(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load plans")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"plans": plans})
}

func (h *Handler) Current(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	cur, err := h.service.Current(c.Request().Context(), clinicID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load subscription")
	}
	return c.JSON(http.StatusOK, cur)
}

type initializeRequest struct {
	PlanID        string `json:"plan_id"`
	BillingPeriod string `json:"billing_period"`
}

func (h *Handler) Initialize(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	var req initializeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan_id")
	}

	checkout, err := h.service.InitializePayment(c.Request().Context(), clinicID, planID, req.BillingPeriod)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "subscription plan not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, checkout)
}

type verifyRequest struct {
	Reference string `json:"reference"`
}

func (h *Handler) Verify(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	payment, err := h.service.VerifyPayment(c.Request().Context(), clinicID, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, ErrPaymentNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "payment record not found")
		case errors.Is(err, ErrAlreadyProcessed):
			return echo.NewHTTPError(http.StatusConflict, "payment already processed")
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Payment verified",
		"payment": payment,
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	if err := h.service.Cancel(c.Request().Context(), clinicID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Subscription cancelled"})
}

func (h *Handler) ListPayments(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	p := pagination.FromContext(c)
	payments, total, err := h.service.Payments(c.Request().Context(), clinicID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list payments")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(payments, total, p.Limit, p.Offset))
}

func (h *Handler) Usage(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}

	usage, err := h.service.Usage(c.Request().Context(), clinicID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "subscription plan not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load usage")
	}
	return c.JSON(http.StatusOK, usage)
}

// Webhook receives gateway event posts. The raw body is needed for the
// signature check, so this skips Bind.
func (h *Handler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}
	signature := c.Request().Header.Get("x-paystack-signature")

	if err := h.service.HandleWebhook(c.Request().Context(), body, signature); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
