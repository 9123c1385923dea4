package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caresync/caresync/internal/domain/response"
	"github.com/caresync/caresync/internal/platform/ai"
)

const (
	recentLimit = 10
	urgentLimit = 5
)

var periodDays = map[string]int{
	"1d": 1, "7d": 7, "30d": 30, "90d": 90,
}

// ResponseSource supplies the response listings shown on the dashboard.
type ResponseSource interface {
	Recent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*response.WithPatient, error)
	Urgent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*response.WithPatient, error)
}

type Service struct {
	insights  Repository
	responses ResponseSource
}

func NewService(insights Repository) *Service {
	return &Service{insights: insights}
}

// SetResponseSource wires the response listings into the dashboard.
func (s *Service) SetResponseSource(responses ResponseSource) {
	s.responses = responses
}

// Increment folds one classification result into the clinic's counters for
// the given day. The triage status decides which counter moves.
func (s *Service) Increment(ctx context.Context, clinicID uuid.UUID, day time.Time, status string) error {
	if clinicID == uuid.Nil {
		return fmt.Errorf("clinic_id is required")
	}
	var fine, mild, urgent int
	switch status {
	case ai.StatusFine:
		fine = 1
	case ai.StatusMildIssue:
		mild = 1
	case ai.StatusUrgent:
		urgent = 1
	default:
		return fmt.Errorf("unknown triage status %q", status)
	}
	return s.insights.Increment(ctx, clinicID, dateOf(day), fine, mild, urgent)
}

// Today returns the clinic's counters for the current day. A missing row
// reads as all zeroes.
func (s *Service) Today(ctx context.Context, clinicID uuid.UUID) (*DailyInsight, error) {
	day := dateOf(time.Now().UTC())
	i, err := s.insights.GetByDate(ctx, clinicID, day)
	if errors.Is(err, pgx.ErrNoRows) {
		return &DailyInsight{ClinicID: clinicID, Date: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// Range lists daily rows between start and end inclusive.
func (s *Service) Range(ctx context.Context, clinicID uuid.UUID, start, end time.Time) ([]*DailyInsight, error) {
	start, end = dateOf(start), dateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end_date is before start_date")
	}
	return s.insights.Range(ctx, clinicID, start, end)
}

// Dashboard assembles the insights overview for the trailing period
// (1d, 7d, 30d or 90d; anything else falls back to 7d).
func (s *Service) Dashboard(ctx context.Context, clinicID uuid.UUID, period string) (*Dashboard, error) {
	days, ok := periodDays[period]
	if !ok {
		period = "7d"
		days = 7
	}

	end := dateOf(time.Now().UTC())
	start := end.AddDate(0, 0, -days)

	insights, err := s.insights.Range(ctx, clinicID, start, end)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Insights: insights, Period: period}
	for _, i := range insights {
		d.Summary.TotalResponses += i.TotalResponses
		d.Summary.FineCount += i.FineCount
		d.Summary.MildIssueCount += i.MildIssueCount
		d.Summary.UrgentCount += i.UrgentCount
	}

	if s.responses != nil {
		if d.RecentResponses, err = s.responses.Recent(ctx, clinicID, recentLimit); err != nil {
			return nil, fmt.Errorf("recent responses: %w", err)
		}
		if d.UrgentCases, err = s.responses.Urgent(ctx, clinicID, urgentLimit); err != nil {
			return nil, fmt.Errorf("urgent cases: %w", err)
		}
	}
	return d, nil
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
