package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/platform/notify"
	"github.com/caresync/caresync/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications/logs", h.ListLogs)
	g.POST("/notifications/test", h.TestSend)
}

func clinicIDFromEcho(c echo.Context) (uuid.UUID, error) {
	s, _ := c.Get("clinic_id").(string)
	return uuid.Parse(s)
}

func (h *Handler) ListLogs(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	pg := pagination.FromContext(c)

	filter := ListFilter{
		Type:   c.QueryParam("type"),
		Status: c.QueryParam("status"),
	}
	items, total, err := h.svc.List(c.Request().Context(), clinicID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type testSendRequest struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
}

func (h *Handler) TestSend(c echo.Context) error {
	clinicID, err := clinicIDFromEcho(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no clinic in context")
	}
	var req testSendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	l, err := h.svc.TestSend(c.Request().Context(), clinicID, notify.Channel(req.Channel), req.Recipient)
	if err != nil {
		if l != nil {
			// Provider rejected the message; return the failed log entry.
			return c.JSON(http.StatusBadGateway, l)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, l)
}
