package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/platform/ai"
)

func newInsightContext(target string, clinicID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if clinicID != uuid.Nil {
		c.Set("clinic_id", clinicID.String())
	}
	return c, rec
}

func TestHandlerDashboard(t *testing.T) {
	svc := NewService(newMockInsightRepo())
	clinicID := uuid.New()
	svc.Increment(context.Background(), clinicID, time.Now().UTC(), ai.StatusUrgent)
	h := NewHandler(svc)

	c, rec := newInsightContext("/insights/dashboard?period=30d", clinicID)
	if err := h.Dashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var d Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if d.Period != "30d" || d.Summary.UrgentCount != 1 {
		t.Errorf("unexpected dashboard payload: %s", rec.Body.String())
	}
}

func TestHandlerDashboard_NoClinic(t *testing.T) {
	h := NewHandler(NewService(newMockInsightRepo()))

	c, _ := newInsightContext("/insights/dashboard", uuid.Nil)
	err := h.Dashboard(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandlerRange(t *testing.T) {
	svc := NewService(newMockInsightRepo())
	clinicID := uuid.New()
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	svc.Increment(context.Background(), clinicID, day, ai.StatusFine)
	h := NewHandler(svc)

	c, rec := newInsightContext("/insights/range?start_date=2026-08-01&end_date=2026-08-31", clinicID)
	if err := h.Range(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rows []*DailyInsight
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rows) != 1 || rows[0].FineCount != 1 {
		t.Errorf("unexpected rows: %s", rec.Body.String())
	}
}

func TestHandlerRange_BadDates(t *testing.T) {
	h := NewHandler(NewService(newMockInsightRepo()))
	clinicID := uuid.New()

	for _, target := range []string{
		"/insights/range",
		"/insights/range?start_date=2026-08-01",
		"/insights/range?start_date=01/08/2026&end_date=2026-08-31",
	} {
		c, _ := newInsightContext(target, clinicID)
		err := h.Range(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", target, err)
		}
	}
}
