package response

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caresync/caresync/internal/platform/ai"
)

// ErrReminderNotFound is returned when a submission names an unknown reminder.
var ErrReminderNotFound = errors.New("reminder not found")

const classifyTimeout = 30 * time.Second

// ReminderSource resolves the reminder a response answers and closes its
// delivery loop.
type ReminderSource interface {
	ResponseTarget(ctx context.Context, id uuid.UUID) (clinicID, patientID uuid.UUID, status string, err error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// InsightSink folds a classified response into the clinic's daily counters.
type InsightSink interface {
	Increment(ctx context.Context, clinicID uuid.UUID, day time.Time, status string) error
}

type Service struct {
	responses  Repository
	reminders  ReminderSource
	classifier ai.Classifier
	insights   InsightSink
	logger     zerolog.Logger
}

func NewService(responses Repository, reminders ReminderSource, classifier ai.Classifier, logger zerolog.Logger) *Service {
	return &Service{
		responses:  responses,
		reminders:  reminders,
		classifier: classifier,
		logger:     logger,
	}
}

// SetInsightSink wires the daily aggregate updated after each submission.
func (s *Service) SetInsightSink(insights InsightSink) {
	s.insights = insights
}

// Submit accepts a patient reply from the public portal. Classification is
// best-effort: a failing classifier substitutes the neutral fallback so the
// submission itself never fails. The reminder delivery update and the insight
// increment are best-effort too; the persisted response is the source of
// truth.
func (s *Service) Submit(ctx context.Context, reminderID uuid.UUID, text string) (*PatientResponse, error) {
	text = strings.TrimSpace(text)
	if reminderID == uuid.Nil {
		return nil, fmt.Errorf("reminder_id is required")
	}
	if text == "" {
		return nil, fmt.Errorf("response_text is required")
	}

	clinicID, patientID, _, err := s.reminders.ResponseTarget(ctx, reminderID)
	if err != nil {
		return nil, ErrReminderNotFound
	}

	analysis := s.classify(ctx, reminderID, text)

	r := &PatientResponse{
		ClinicID:     clinicID,
		PatientID:    patientID,
		ReminderID:   reminderID,
		ResponseText: text,
		AISummary:    &analysis.Summary,
		AIStatus:     &analysis.Status,
		AIConfidence: &analysis.Confidence,
		AIKeywords:   analysis.Keywords,
	}
	if err := s.responses.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}

	now := time.Now().UTC()
	if _, err := s.reminders.MarkDelivered(ctx, reminderID, now); err != nil {
		s.logger.Warn().Err(err).
			Str("reminder_id", reminderID.String()).
			Msg("failed to mark reminder delivered")
	}

	if s.insights != nil {
		if err := s.insights.Increment(ctx, clinicID, now, analysis.Status); err != nil {
			s.logger.Warn().Err(err).
				Str("clinic_id", clinicID.String()).
				Msg("failed to update daily insights")
		}
	}
	return r, nil
}

func (s *Service) classify(ctx context.Context, reminderID uuid.UUID, text string) *ai.Analysis {
	if s.classifier == nil {
		return ai.FallbackAnalysis()
	}
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	analysis, err := s.classifier.Classify(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("reminder_id", reminderID.String()).
			Msg("classification failed, using fallback")
		return ai.FallbackAnalysis()
	}
	return analysis
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*WithPatient, error) {
	return s.responses.GetByID(ctx, clinicID, id)
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*WithPatient, int, error) {
	if filter.AIStatus != "" && !ai.ValidStatus(filter.AIStatus) {
		return nil, 0, fmt.Errorf("invalid ai_status filter: %s", filter.AIStatus)
	}
	return s.responses.List(ctx, clinicID, filter, limit, offset)
}

// Correct applies a manual override of the classifier's result. Nil fields
// are left as classified.
func (s *Service) Correct(ctx context.Context, clinicID, id uuid.UUID, summary, status *string, confidence *float64) (*PatientResponse, error) {
	if summary == nil && status == nil && confidence == nil {
		return nil, fmt.Errorf("nothing to update")
	}
	if status != nil && !ai.ValidStatus(*status) {
		return nil, fmt.Errorf("invalid ai_status: %s", *status)
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return nil, fmt.Errorf("ai_confidence must be between 0 and 1")
	}
	return s.responses.UpdateAnalysis(ctx, clinicID, id, summary, status, confidence, nil)
}

// Reanalyze runs the classifier again over the stored text and overwrites the
// ai_* fields. The same fallback policy as Submit applies.
func (s *Service) Reanalyze(ctx context.Context, clinicID, id uuid.UUID) (*PatientResponse, error) {
	existing, err := s.responses.GetByID(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	analysis := s.classify(ctx, existing.ReminderID, existing.ResponseText)
	return s.responses.UpdateAnalysis(ctx, clinicID, id,
		&analysis.Summary, &analysis.Status, &analysis.Confidence, analysis.Keywords)
}

// Recent returns the latest responses for the insights dashboard.
func (s *Service) Recent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*WithPatient, error) {
	return s.responses.ListRecent(ctx, clinicID, limit)
}

// Urgent returns the latest urgent responses still needing attention.
func (s *Service) Urgent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*WithPatient, error) {
	return s.responses.ListUrgent(ctx, clinicID, limit)
}

// CountOnDate reports how many responses arrived on the given day and how
// many of them were urgent.
func (s *Service) CountOnDate(ctx context.Context, clinicID uuid.UUID, day time.Time) (int, int, error) {
	return s.responses.CountOnDate(ctx, clinicID, day)
}

// KeywordStats aggregates classifier keywords over the trailing window.
func (s *Service) KeywordStats(ctx context.Context, clinicID uuid.UUID, days int) ([]*KeywordStat, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	responses, err := s.responses.ListSince(ctx, clinicID, since)
	if err != nil {
		return nil, err
	}

	byKeyword := make(map[string]*KeywordStat)
	for _, r := range responses {
		status := ""
		if r.AIStatus != nil {
			status = *r.AIStatus
		}
		for _, kw := range r.AIKeywords {
			stat, ok := byKeyword[kw]
			if !ok {
				stat = &KeywordStat{Keyword: kw}
				byKeyword[kw] = stat
			}
			stat.Count++
			switch status {
			case ai.StatusFine:
				stat.Fine++
			case ai.StatusMildIssue:
				stat.Mild++
			case ai.StatusUrgent:
				stat.Urgent++
			}
		}
	}

	out := make([]*KeywordStat, 0, len(byKeyword))
	for _, stat := range byKeyword {
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out, nil
}
