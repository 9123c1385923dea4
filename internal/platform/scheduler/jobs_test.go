package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caresync/caresync/internal/domain/clinic"
	"github.com/caresync/caresync/internal/domain/insight"
	"github.com/caresync/caresync/internal/domain/patient"
	"github.com/caresync/caresync/internal/domain/reminder"
	"github.com/caresync/caresync/internal/platform/notify"
)

type stubDispatcher struct {
	stats reminder.DispatchStats
	err   error
	runs  int
}

func (s *stubDispatcher) DispatchDue(context.Context, time.Time) (reminder.DispatchStats, error) {
	s.runs++
	return s.stats, s.err
}

type stubClinicLister struct {
	clinics []*clinic.Clinic
	err     error
}

func (s *stubClinicLister) ListActive(context.Context) ([]*clinic.Clinic, error) {
	return s.clinics, s.err
}

type stubInsightReader struct {
	byClinic map[uuid.UUID]*insight.DailyInsight
	errFor   uuid.UUID
}

func (s *stubInsightReader) Today(_ context.Context, clinicID uuid.UUID) (*insight.DailyInsight, error) {
	if clinicID == s.errFor {
		return nil, errors.New("insight lookup failed")
	}
	if in, ok := s.byClinic[clinicID]; ok {
		return in, nil
	}
	return &insight.DailyInsight{ClinicID: clinicID}, nil
}

type stubOverdueLister struct {
	rows []*patient.OverdueFollowUp
	err  error
}

func (s *stubOverdueLister) OverdueFollowUps(context.Context, time.Time) ([]*patient.OverdueFollowUp, error) {
	return s.rows, s.err
}

type stubLogCleaner struct {
	deleted   int64
	err       error
	retention time.Duration
}

func (s *stubLogCleaner) Cleanup(_ context.Context, retention time.Duration) (int64, error) {
	s.retention = retention
	return s.deleted, s.err
}

type jobsFixture struct {
	dispatcher *stubDispatcher
	clinics    *stubClinicLister
	insights   *stubInsightReader
	overdue    *stubOverdueLister
	cleaner    *stubLogCleaner
	email      *notify.MockEmailSender
	jobs       *Jobs
}

func newJobsFixture() *jobsFixture {
	f := &jobsFixture{
		dispatcher: &stubDispatcher{},
		clinics:    &stubClinicLister{},
		insights:   &stubInsightReader{byClinic: make(map[uuid.UUID]*insight.DailyInsight)},
		overdue:    &stubOverdueLister{},
		cleaner:    &stubLogCleaner{},
		email:      &notify.MockEmailSender{},
	}
	f.jobs = NewJobs(
		f.dispatcher, f.clinics, f.insights, f.overdue, f.cleaner,
		f.email, notify.NewTemplateEngine(), zerolog.Nop(),
	)
	return f
}

func TestRunDailyDispatch(t *testing.T) {
	f := newJobsFixture()
	f.dispatcher.stats = reminder.DispatchStats{Processed: 3, Sent: 2, Failed: 1}

	if err := f.jobs.RunDailyDispatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.dispatcher.runs != 1 {
		t.Errorf("dispatch ran %d times, want 1", f.dispatcher.runs)
	}

	f.dispatcher.err = errors.New("database down")
	if err := f.jobs.RunDailyDispatch(context.Background()); err == nil {
		t.Error("expected dispatch error to propagate")
	}
}

func TestRunDailySummaries(t *testing.T) {
	f := newJobsFixture()

	busy := &clinic.Clinic{ID: uuid.New(), Name: "Sunrise Clinic", Email: "front@sunrise.example"}
	quiet := &clinic.Clinic{ID: uuid.New(), Name: "Hillside Clinic", Email: "desk@hillside.example"}
	f.clinics.clinics = []*clinic.Clinic{busy, quiet}
	f.insights.byClinic[busy.ID] = &insight.DailyInsight{
		ClinicID: busy.ID, TotalResponses: 5, FineCount: 3, MildIssueCount: 1, UrgentCount: 1,
	}

	if err := f.jobs.RunDailySummaries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := f.email.Calls()
	if len(calls) != 1 {
		t.Fatalf("sent %d emails, want 1 (clinics without responses are skipped)", len(calls))
	}
	if calls[0].To != busy.Email {
		t.Errorf("summary sent to %q, want %q", calls[0].To, busy.Email)
	}
	if !strings.Contains(calls[0].HTML, "Sunrise Clinic") || !strings.Contains(calls[0].HTML, ">5<") {
		t.Errorf("summary body is missing the clinic name or total: %s", calls[0].HTML)
	}
}

func TestRunDailySummaries_LookupFailureContinues(t *testing.T) {
	f := newJobsFixture()

	broken := &clinic.Clinic{ID: uuid.New(), Name: "Broken", Email: "a@b.example"}
	fine := &clinic.Clinic{ID: uuid.New(), Name: "Fine Clinic", Email: "fine@clinic.example"}
	f.clinics.clinics = []*clinic.Clinic{broken, fine}
	f.insights.errFor = broken.ID
	f.insights.byClinic[fine.ID] = &insight.DailyInsight{ClinicID: fine.ID, TotalResponses: 2, FineCount: 2}

	if err := f.jobs.RunDailySummaries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := f.email.Calls(); len(calls) != 1 || calls[0].To != fine.Email {
		t.Errorf("expected exactly the healthy clinic to get a summary, got %+v", calls)
	}
}

func TestRunDailySummaries_RenderFailureContinues(t *testing.T) {
	f := newJobsFixture()
	// An engine with no registered templates makes every render fail.
	f.jobs = NewJobs(
		f.dispatcher, f.clinics, f.insights, f.overdue, f.cleaner,
		f.email, new(notify.TemplateEngine), zerolog.Nop(),
	)

	a := &clinic.Clinic{ID: uuid.New(), Name: "Sunrise Clinic", Email: "front@sunrise.example"}
	b := &clinic.Clinic{ID: uuid.New(), Name: "Hillside Clinic", Email: "desk@hillside.example"}
	f.clinics.clinics = []*clinic.Clinic{a, b}
	f.insights.byClinic[a.ID] = &insight.DailyInsight{ClinicID: a.ID, TotalResponses: 4, FineCount: 4}
	f.insights.byClinic[b.ID] = &insight.DailyInsight{ClinicID: b.ID, TotalResponses: 1, UrgentCount: 1}

	if err := f.jobs.RunDailySummaries(context.Background()); err != nil {
		t.Fatalf("expected the run to survive render failures, got %v", err)
	}
	if calls := f.email.Calls(); len(calls) != 0 {
		t.Errorf("sent %d emails with a broken template, want 0", len(calls))
	}
}

func TestRunOverdueSweep(t *testing.T) {
	f := newJobsFixture()

	clinicA := uuid.New()
	clinicB := uuid.New()
	f.overdue.rows = []*patient.OverdueFollowUp{
		{PatientID: uuid.New(), PatientName: "Bola Ade", NextFollowUpDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			ClinicID: clinicA, ClinicName: "Sunrise Clinic", ClinicEmail: "front@sunrise.example"},
		{PatientID: uuid.New(), PatientName: "Chidi Okeke", NextFollowUpDate: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			ClinicID: clinicA, ClinicName: "Sunrise Clinic", ClinicEmail: "front@sunrise.example"},
		{PatientID: uuid.New(), PatientName: "Efe Omo", NextFollowUpDate: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
			ClinicID: clinicB, ClinicName: "Hillside Clinic", ClinicEmail: "desk@hillside.example"},
	}

	if err := f.jobs.RunOverdueSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := f.email.Calls()
	if len(calls) != 2 {
		t.Fatalf("sent %d emails, want one per clinic", len(calls))
	}
	for _, call := range calls {
		if call.To == "front@sunrise.example" {
			if !strings.Contains(call.Subject, "2 patient(s)") {
				t.Errorf("subject = %q, want overdue count of 2", call.Subject)
			}
			// Oldest follow-up first.
			if strings.Index(call.HTML, "Chidi Okeke") > strings.Index(call.HTML, "Bola Ade") {
				t.Error("overdue list is not sorted by follow-up date")
			}
		}
	}
}

func TestRunOverdueSweep_NothingDue(t *testing.T) {
	f := newJobsFixture()

	if err := f.jobs.RunOverdueSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := f.email.Calls(); len(calls) != 0 {
		t.Errorf("sent %d emails with nothing due", len(calls))
	}
}

func TestRunLogCleanup(t *testing.T) {
	f := newJobsFixture()
	f.cleaner.deleted = 42

	if err := f.jobs.RunLogCleanup(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cleaner.retention != 30*24*time.Hour {
		t.Errorf("retention = %v, want 30 days", f.cleaner.retention)
	}
}

func TestRegister(t *testing.T) {
	f := newJobsFixture()
	s := New(zerolog.Nop())

	if err := f.jobs.Register(s, Specs{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := f.jobs.Register(s, Specs{Dispatch: "not a cron spec"}); err == nil {
		t.Error("expected an error for an invalid cron spec")
	}
}
