package scheduler

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caresync/caresync/internal/domain/clinic"
	"github.com/caresync/caresync/internal/domain/insight"
	"github.com/caresync/caresync/internal/domain/patient"
	"github.com/caresync/caresync/internal/domain/reminder"
	"github.com/caresync/caresync/internal/platform/notify"
)

// logRetention is how long notification log rows are kept.
const logRetention = 30 * 24 * time.Hour

// Default cron specs for the recurring jobs.
const (
	SpecDailyDispatch  = "0 9 * * *"
	SpecDailySummaries = "0 18 * * *"
	SpecOverdueSweep   = "0 */6 * * *"
	SpecLogCleanup     = "0 2 * * 0"
)

// Specs overrides the default schedules. Empty fields keep the default.
type Specs struct {
	Dispatch  string
	Summaries string
	Overdue   string
	Cleanup   string
}

type ReminderDispatcher interface {
	DispatchDue(ctx context.Context, date time.Time) (reminder.DispatchStats, error)
}

type ClinicLister interface {
	ListActive(ctx context.Context) ([]*clinic.Clinic, error)
}

type InsightReader interface {
	Today(ctx context.Context, clinicID uuid.UUID) (*insight.DailyInsight, error)
}

type OverdueLister interface {
	OverdueFollowUps(ctx context.Context, asOf time.Time) ([]*patient.OverdueFollowUp, error)
}

type LogCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// Jobs holds the wiring for every recurring task.
type Jobs struct {
	reminders ReminderDispatcher
	clinics   ClinicLister
	insights  InsightReader
	patients  OverdueLister
	logs      LogCleaner
	email     notify.EmailSender
	templates *notify.TemplateEngine
	logger    zerolog.Logger
}

func NewJobs(
	reminders ReminderDispatcher,
	clinics ClinicLister,
	insights InsightReader,
	patients OverdueLister,
	logs LogCleaner,
	email notify.EmailSender,
	templates *notify.TemplateEngine,
	logger zerolog.Logger,
) *Jobs {
	return &Jobs{
		reminders: reminders,
		clinics:   clinics,
		insights:  insights,
		patients:  patients,
		logs:      logs,
		email:     email,
		templates: templates,
		logger:    logger,
	}
}

// Register mounts all jobs on the scheduler.
func (j *Jobs) Register(s *Scheduler, specs Specs) error {
	pick := func(spec, fallback string) string {
		if spec == "" {
			return fallback
		}
		return spec
	}

	jobs := []struct {
		spec string
		name string
		run  func(ctx context.Context) error
	}{
		{pick(specs.Dispatch, SpecDailyDispatch), "daily-dispatch", j.RunDailyDispatch},
		{pick(specs.Summaries, SpecDailySummaries), "daily-summaries", j.RunDailySummaries},
		{pick(specs.Overdue, SpecOverdueSweep), "overdue-sweep", j.RunOverdueSweep},
		{pick(specs.Cleanup, SpecLogCleanup), "log-cleanup", j.RunLogCleanup},
	}
	for _, job := range jobs {
		if err := s.Add(job.spec, job.name, job.run); err != nil {
			return fmt.Errorf("register %s: %w", job.name, err)
		}
	}
	return nil
}

// RunDailyDispatch sends every reminder scheduled for today.
func (j *Jobs) RunDailyDispatch(ctx context.Context) error {
	stats, err := j.reminders.DispatchDue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	j.logger.Info().
		Int("processed", stats.Processed).
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Msg("reminder dispatch run finished")
	return nil
}

// RunDailySummaries emails each active clinic its response counts for the
// day. Clinics with no responses are skipped; one clinic's failure does not
// stop the rest.
func (j *Jobs) RunDailySummaries(ctx context.Context) error {
	clinics, err := j.clinics.ListActive(ctx)
	if err != nil {
		return err
	}

	date := time.Now().UTC().Format("Jan 2, 2006")
	for _, c := range clinics {
		today, err := j.insights.Today(ctx, c.ID)
		if err != nil {
			j.logger.Warn().Err(err).Str("clinic_id", c.ID.String()).Msg("daily summary: insight lookup failed")
			continue
		}
		if today.TotalResponses == 0 {
			continue
		}

		subject, body, err := j.templates.Render(notify.TemplateDailySummary, map[string]string{
			"date":        date,
			"clinic_name": c.Name,
			"total":       strconv.Itoa(today.TotalResponses),
			"fine":        strconv.Itoa(today.FineCount),
			"mild":        strconv.Itoa(today.MildIssueCount),
			"urgent":      strconv.Itoa(today.UrgentCount),
		})
		if err != nil {
			j.logger.Warn().Err(err).Str("clinic_id", c.ID.String()).Msg("daily summary: render failed")
			continue
		}
		if _, err := j.email.SendEmail(ctx, c.Email, subject, body); err != nil {
			j.logger.Warn().Err(err).Str("clinic_id", c.ID.String()).Msg("daily summary: send failed")
		}
	}
	return nil
}

// RunOverdueSweep mails each clinic a list of patients whose follow-up date
// has passed. No overdue patients means no mail.
func (j *Jobs) RunOverdueSweep(ctx context.Context) error {
	overdue, err := j.patients.OverdueFollowUps(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		return nil
	}

	byClinic := make(map[uuid.UUID][]*patient.OverdueFollowUp)
	for _, o := range overdue {
		byClinic[o.ClinicID] = append(byClinic[o.ClinicID], o)
	}

	for _, group := range byClinic {
		sort.Slice(group, func(i, k int) bool {
			return group[i].NextFollowUpDate.Before(group[k].NextFollowUpDate)
		})

		list := ""
		for _, o := range group {
			list += fmt.Sprintf("<li>%s (due %s)</li>",
				html.EscapeString(o.PatientName), o.NextFollowUpDate.Format("Jan 2, 2006"))
		}

		subject, body, err := j.templates.Render(notify.TemplateOverdue, map[string]string{
			"count":        strconv.Itoa(len(group)),
			"clinic_name":  group[0].ClinicName,
			"patient_list": list,
		})
		if err != nil {
			return err
		}
		if _, err := j.email.SendEmail(ctx, group[0].ClinicEmail, subject, body); err != nil {
			j.logger.Warn().Err(err).
				Str("clinic_id", group[0].ClinicID.String()).
				Msg("overdue sweep: send failed")
		}
	}
	return nil
}

// RunLogCleanup drops notification log rows older than the retention window.
func (j *Jobs) RunLogCleanup(ctx context.Context) error {
	deleted, err := j.logs.Cleanup(ctx, logRetention)
	if err != nil {
		return err
	}
	j.logger.Info().Int64("deleted", deleted).Msg("notification log cleanup finished")
	return nil
}
