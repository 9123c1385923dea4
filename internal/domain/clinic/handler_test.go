package clinic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/caresync/caresync/internal/platform/auth"
)

func setupHandler() (*Handler, *mockClinicRepo) {
	repo := newMockClinicRepo()
	svc := NewService(repo)
	return NewHandler(svc), repo
}

func TestHandlerRegister(t *testing.T) {
	h, _ := setupHandler()

	body := `{"name": "Sunrise Family Practice", "phone": "+15550100"}`
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clinics/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := context.WithValue(req.Context(), auth.UserEmailKey, "admin@sunrise.test")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var got Clinic
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Email != "admin@sunrise.test" {
		t.Errorf("expected email from token, got %s", got.Email)
	}
	if got.SubscriptionPlan != PlanFree {
		t.Errorf("expected free plan, got %s", got.SubscriptionPlan)
	}
}

func TestHandlerRegister_Conflict(t *testing.T) {
	h, _ := setupHandler()
	e := echo.New()

	register := func() error {
		body := `{"name": "Sunrise"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clinics/register", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		ctx := context.WithValue(req.Context(), auth.UserEmailKey, "admin@sunrise.test")
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		return h.Register(e.NewContext(req, rec))
	}

	if err := register(); err != nil {
		t.Fatalf("unexpected error on first register: %v", err)
	}
	err := register()
	if err == nil {
		t.Fatal("expected conflict on second register")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandlerMe(t *testing.T) {
	h, repo := setupHandler()

	clinic := &Clinic{Name: "Lakeside", Email: "desk@lakeside.test"}
	if err := h.svc.Register(context.Background(), clinic); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clinics/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("clinic_id", clinic.ID.String())

	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Clinic
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != clinic.ID {
		t.Errorf("expected clinic %s, got %s", clinic.ID, got.ID)
	}
	_ = repo
}

func TestHandlerMe_NoClinicInContext(t *testing.T) {
	h, _ := setupHandler()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clinics/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Me(c)
	if err == nil {
		t.Fatal("expected error without clinic in context")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandlerUpdateMe(t *testing.T) {
	h, _ := setupHandler()

	clinic := &Clinic{Name: "Lakeside", Email: "desk@lakeside.test"}
	if err := h.svc.Register(context.Background(), clinic); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"name": "Lakeside Medical Group", "phone": "+15550123"}`
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/clinics/me", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("clinic_id", clinic.ID.String())

	if err := h.UpdateMe(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got Clinic
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Name != "Lakeside Medical Group" {
		t.Errorf("expected updated name, got %s", got.Name)
	}
	if got.Phone == nil || *got.Phone != "+15550123" {
		t.Error("expected updated phone")
	}
}
