package reminder

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caresync/caresync/internal/domain/notification"
	"github.com/caresync/caresync/internal/domain/patient"
	"github.com/caresync/caresync/internal/platform/notify"
)

type mockReminderRepo struct {
	items map[uuid.UUID]*Reminder
	due   map[uuid.UUID]*DueReminder // dispatch join data keyed by reminder id
}

func newMockReminderRepo() *mockReminderRepo {
	return &mockReminderRepo{
		items: make(map[uuid.UUID]*Reminder),
		due:   make(map[uuid.UUID]*DueReminder),
	}
}

func (m *mockReminderRepo) Create(_ context.Context, r *Reminder) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.items[r.ID] = r
	return nil
}

func (m *mockReminderRepo) GetByID(_ context.Context, clinicID, id uuid.UUID) (*Reminder, error) {
	if r, ok := m.items[id]; ok && r.ClinicID == clinicID {
		return r, nil
	}
	return nil, fmt.Errorf("reminder not found")
}

func (m *mockReminderRepo) GetAny(_ context.Context, id uuid.UUID) (*Reminder, error) {
	if r, ok := m.items[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("reminder not found")
}

func (m *mockReminderRepo) Update(_ context.Context, r *Reminder) error {
	existing, ok := m.items[r.ID]
	if !ok || existing.ClinicID != r.ClinicID {
		return fmt.Errorf("reminder not found")
	}
	m.items[r.ID] = r
	return nil
}

func (m *mockReminderRepo) List(_ context.Context, clinicID uuid.UUID, filter ListFilter, limit, offset int) ([]*Reminder, int, error) {
	var out []*Reminder
	for _, r := range m.items {
		if r.ClinicID != clinicID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.PatientID != uuid.Nil && r.PatientID != filter.PatientID {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockReminderRepo) GetDue(_ context.Context, date time.Time) ([]*DueReminder, error) {
	day := date.UTC().Format("2006-01-02")
	var out []*DueReminder
	for id, r := range m.items {
		if r.Status != StatusPending || r.ScheduledDate.UTC().Format("2006-01-02") != day {
			continue
		}
		if d, ok := m.due[id]; ok {
			d.Reminder = *r
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockReminderRepo) LoadForDispatch(_ context.Context, clinicID, id uuid.UUID) (*DueReminder, error) {
	r, ok := m.items[id]
	if !ok || r.ClinicID != clinicID {
		return nil, fmt.Errorf("reminder not found")
	}
	d, ok := m.due[id]
	if !ok {
		return nil, fmt.Errorf("reminder not found")
	}
	d.Reminder = *r
	return d, nil
}

func (m *mockReminderRepo) Cancel(_ context.Context, clinicID, id uuid.UUID) (bool, error) {
	r, ok := m.items[id]
	if !ok || r.ClinicID != clinicID || r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusCancelled
	return true, nil
}

func (m *mockReminderRepo) MarkSent(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r, ok := m.items[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusSent
	r.SentAt = &at
	return true, nil
}

func (m *mockReminderRepo) MarkFailed(_ context.Context, id uuid.UUID) (bool, error) {
	r, ok := m.items[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.Status = StatusFailed
	return true, nil
}

func (m *mockReminderRepo) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r, ok := m.items[id]
	if !ok || (r.Status != StatusSent && r.Status != StatusPending) {
		return false, nil
	}
	r.Status = StatusDelivered
	r.ResponseReceivedAt = &at
	return true, nil
}

func (m *mockReminderRepo) CountByStatus(_ context.Context, clinicID uuid.UUID) (map[string]int, error) {
	counts := make(map[string]int)
	for _, r := range m.items {
		if r.ClinicID == clinicID {
			counts[r.Status]++
		}
	}
	return counts, nil
}

func (m *mockReminderRepo) CountCreatedSince(_ context.Context, clinicID uuid.UUID, since time.Time) (int, error) {
	n := 0
	for _, r := range m.items {
		if r.ClinicID == clinicID && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type stubPatientSource struct {
	patients map[uuid.UUID]*patient.Patient
}

func (s *stubPatientSource) Get(_ context.Context, clinicID, id uuid.UUID) (*patient.Patient, error) {
	if p, ok := s.patients[id]; ok && p.ClinicID == clinicID {
		return p, nil
	}
	return nil, fmt.Errorf("patient not found")
}

type stubPlanSource struct{ plan string }

func (s stubPlanSource) PlanFor(context.Context, uuid.UUID) (string, error) { return s.plan, nil }

type mockLogWriter struct {
	logs []*notification.Log
}

func (m *mockLogWriter) Record(_ context.Context, l *notification.Log) error {
	m.logs = append(m.logs, l)
	return nil
}

func strPtr(s string) *string { return &s }

type dispatchFixture struct {
	svc      *Service
	repo     *mockReminderRepo
	patients *stubPatientSource
	email    *notify.MockEmailSender
	text     *notify.MockTextSender
	logs     *mockLogWriter
	clinicID uuid.UUID
}

func newDispatchFixture(plan string) *dispatchFixture {
	f := &dispatchFixture{
		repo:     newMockReminderRepo(),
		patients: &stubPatientSource{patients: make(map[uuid.UUID]*patient.Patient)},
		email:    &notify.MockEmailSender{},
		text:     &notify.MockTextSender{},
		logs:     &mockLogWriter{},
		clinicID: uuid.New(),
	}
	f.svc = NewService(f.repo, f.patients, stubPlanSource{plan: plan})
	f.svc.ConfigureDispatch(DispatchConfig{
		Email:     f.email,
		SMS:       f.text,
		WhatsApp:  f.text,
		Templates: notify.NewTemplateEngine(),
		Logs:      f.logs,
		ClientURL: "https://app.caresync.test",
		Logger:    zerolog.Nop(),
	})
	return f
}

// addDue seeds a pending reminder with its dispatch join data.
func (f *dispatchFixture) addDue(t *testing.T, p *patient.Patient, contactMethod *string) *Reminder {
	t.Helper()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.ClinicID = f.clinicID
	f.patients.patients[p.ID] = p

	r := &Reminder{
		ClinicID:      f.clinicID,
		PatientID:     p.ID,
		Message:       "How are you feeling after your visit?",
		ScheduledDate: time.Now().UTC(),
		ContactMethod: contactMethod,
	}
	if err := f.svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error creating reminder: %v", err)
	}

	preferred := p.PreferredContactMethod
	if preferred == "" {
		preferred = "email"
	}
	f.repo.due[r.ID] = &DueReminder{
		PatientName:            p.Name,
		PatientEmail:           p.Email,
		PatientPhone:           p.Phone,
		PreferredContactMethod: preferred,
		ClinicName:             "Sunrise Family Practice",
	}
	return r
}

func TestCreateReminder_Validation(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{ID: uuid.New(), ClinicID: f.clinicID, Name: "Ade"}
	f.patients.patients[p.ID] = p

	date := time.Now().AddDate(0, 0, 1)
	tests := []struct {
		name string
		r    Reminder
	}{
		{"missing patient", Reminder{ClinicID: f.clinicID, Message: "hi", ScheduledDate: date}},
		{"missing message", Reminder{ClinicID: f.clinicID, PatientID: p.ID, ScheduledDate: date}},
		{"missing date", Reminder{ClinicID: f.clinicID, PatientID: p.ID, Message: "hi"}},
		{"bad contact method", Reminder{ClinicID: f.clinicID, PatientID: p.ID, Message: "hi", ScheduledDate: date, ContactMethod: strPtr("fax")}},
		{"unknown patient", Reminder{ClinicID: f.clinicID, PatientID: uuid.New(), Message: "hi", ScheduledDate: date}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.svc.Create(context.Background(), &tt.r); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateReminder_StartsPending(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)
	if r.Status != StatusPending {
		t.Errorf("expected pending, got %s", r.Status)
	}
}

func TestCreateReminder_FreePlanCap(t *testing.T) {
	f := newDispatchFixture("free")
	p := &patient.Patient{ID: uuid.New(), ClinicID: f.clinicID, Name: "Ade", Email: strPtr("ade@b.test")}
	f.patients.patients[p.ID] = p

	for i := 0; i < freeMonthlyReminderLimit; i++ {
		r := &Reminder{
			ClinicID:      f.clinicID,
			PatientID:     p.ID,
			Message:       "check in",
			ScheduledDate: time.Now().AddDate(0, 0, 1),
		}
		if err := f.svc.Create(context.Background(), r); err != nil {
			t.Fatalf("unexpected error at %d: %v", i, err)
		}
	}

	over := &Reminder{
		ClinicID:      f.clinicID,
		PatientID:     p.ID,
		Message:       "one too many",
		ScheduledDate: time.Now().AddDate(0, 0, 1),
	}
	if err := f.svc.Create(context.Background(), over); err != ErrReminderLimit {
		t.Errorf("expected ErrReminderLimit, got %v", err)
	}
}

func TestCancelReminder(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)

	if err := f.svc.Cancel(context.Background(), f.clinicID, r.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.items[r.ID].Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", f.repo.items[r.ID].Status)
	}

	// A cancelled reminder cannot be cancelled again.
	if err := f.svc.Cancel(context.Background(), f.clinicID, r.ID); err != ErrNotPending {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
}

func TestDispatchDue_Email(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade Okafor", Email: strPtr("ade@example.test")}
	r := f.addDue(t, p, nil)

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 1 || stats.Sent != 1 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if f.repo.items[r.ID].Status != StatusSent {
		t.Errorf("expected sent, got %s", f.repo.items[r.ID].Status)
	}
	if f.repo.items[r.ID].SentAt == nil {
		t.Error("expected sent_at to be set")
	}

	calls := f.email.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "ade@example.test" {
		t.Errorf("unexpected recipient %s", calls[0].To)
	}
	if !strings.Contains(calls[0].HTML, "/respond/"+r.ID.String()) {
		t.Error("expected respond link in the email body")
	}
	if !strings.Contains(calls[0].HTML, "Sunrise Family Practice") {
		t.Error("expected clinic name in the email body")
	}

	if len(f.logs.logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(f.logs.logs))
	}
	if f.logs.logs[0].Status != notification.StatusSent {
		t.Errorf("expected sent log, got %s", f.logs.logs[0].Status)
	}
	if f.logs.logs[0].ExternalID == nil {
		t.Error("expected provider id on the log entry")
	}
}

func TestDispatchDue_OverrideBeatsPreference(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{
		Name:                   "Ade",
		Email:                  strPtr("ade@b.test"),
		Phone:                  strPtr("+2348030000000"),
		PreferredContactMethod: "email",
	}
	f.addDue(t, p, strPtr("sms"))

	if _, err := f.svc.DispatchDue(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.email.Calls()) != 0 {
		t.Error("expected no email when sms override is set")
	}
	texts := f.text.Calls()
	if len(texts) != 1 {
		t.Fatalf("expected 1 sms, got %d", len(texts))
	}
	if texts[0].To != "+2348030000000" {
		t.Errorf("unexpected recipient %s", texts[0].To)
	}
}

func TestDispatchDue_MissingRecipient(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "No Contact", PreferredContactMethod: "email"}
	p.Email = strPtr("x@b.test") // needed to pass create validation via patient check
	r := f.addDue(t, p, nil)
	f.repo.due[r.ID].PatientEmail = nil // contact removed after scheduling

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failed != 1 || stats.Sent != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if f.repo.items[r.ID].Status != StatusFailed {
		t.Errorf("expected failed, got %s", f.repo.items[r.ID].Status)
	}
	if len(f.email.Calls()) != 0 {
		t.Error("expected no provider call without a recipient")
	}
	if len(f.logs.logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(f.logs.logs))
	}
	l := f.logs.logs[0]
	if l.Status != notification.StatusFailed || l.Recipient != "" {
		t.Errorf("expected failed log with empty recipient, got %+v", l)
	}
	if l.ErrorMessage == nil || !strings.Contains(*l.ErrorMessage, "email") {
		t.Error("expected the missing email to be named in the error")
	}
}

func TestDispatchDue_ProviderFailure(t *testing.T) {
	f := newDispatchFixture("pro")
	f.email.ShouldFail = true
	f.email.FailError = "mailbox unavailable"
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failure, got %+v", stats)
	}
	if f.repo.items[r.ID].Status != StatusFailed {
		t.Errorf("expected failed, got %s", f.repo.items[r.ID].Status)
	}
	if len(f.logs.logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(f.logs.logs))
	}
	l := f.logs.logs[0]
	if l.Status != notification.StatusFailed {
		t.Errorf("expected failed log, got %s", l.Status)
	}
	if l.ErrorMessage == nil || !strings.Contains(*l.ErrorMessage, "mailbox unavailable") {
		t.Error("expected provider error on the log entry")
	}
}

func TestDispatchDue_UnsupportedChannel(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test"), PreferredContactMethod: "email"}
	r := f.addDue(t, p, nil)
	f.repo.due[r.ID].PreferredContactMethod = "carrier-pigeon"

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("expected 1 failure, got %+v", stats)
	}
	if f.repo.items[r.ID].Status != StatusFailed {
		t.Errorf("expected failed, got %s", f.repo.items[r.ID].Status)
	}
}

func TestDispatchDue_OneFailureDoesNotAbortRun(t *testing.T) {
	f := newDispatchFixture("pro")

	bad := &patient.Patient{Name: "Broken", Email: strPtr("bad@b.test")}
	rBad := f.addDue(t, bad, nil)
	f.repo.due[rBad.ID].PatientEmail = nil

	good := &patient.Patient{Name: "Fine", Email: strPtr("good@b.test")}
	rGood := f.addDue(t, good, nil)

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 2 || stats.Sent != 1 || stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if f.repo.items[rGood.ID].Status != StatusSent {
		t.Error("expected the healthy reminder to go out")
	}
}

func TestDispatchDue_OnlyTodaysReminders(t *testing.T) {
	f := newDispatchFixture("pro")

	today := &patient.Patient{Name: "Today", Email: strPtr("today@b.test")}
	rToday := f.addDue(t, today, nil)

	past := &patient.Patient{Name: "Past", Email: strPtr("past@b.test")}
	rPast := f.addDue(t, past, nil)
	f.repo.items[rPast.ID].ScheduledDate = time.Now().UTC().AddDate(0, 0, -3)

	future := &patient.Patient{Name: "Future", Email: strPtr("future@b.test")}
	rFuture := f.addDue(t, future, nil)
	f.repo.items[rFuture.ID].ScheduledDate = time.Now().UTC().AddDate(0, 0, 1)

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 1 || stats.Sent != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if f.repo.items[rToday.ID].Status != StatusSent {
		t.Error("expected today's reminder to go out")
	}
	if f.repo.items[rPast.ID].Status != StatusPending {
		t.Errorf("expected the past-dated reminder to stay pending, got %s", f.repo.items[rPast.ID].Status)
	}
	if f.repo.items[rFuture.ID].Status != StatusPending {
		t.Errorf("expected the future reminder to stay pending, got %s", f.repo.items[rFuture.ID].Status)
	}
	if len(f.email.Calls()) != 1 {
		t.Errorf("expected exactly 1 email, got %d", len(f.email.Calls()))
	}
}

// racingRepo simulates a concurrent cancel landing between the due query and
// the conditional status update: every transition loses.
type racingRepo struct {
	*mockReminderRepo
}

func (r *racingRepo) MarkSent(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	r.items[id].Status = StatusCancelled
	return false, nil
}

func (r *racingRepo) MarkFailed(_ context.Context, id uuid.UUID) (bool, error) {
	r.items[id].Status = StatusCancelled
	return false, nil
}

// swapRepo rebuilds the service around a different repository, keeping the
// dispatch wiring.
func (f *dispatchFixture) swapRepo(repo Repository) {
	f.svc = NewService(repo, f.patients, stubPlanSource{plan: "pro"})
	f.svc.ConfigureDispatch(DispatchConfig{
		Email:     f.email,
		SMS:       f.text,
		WhatsApp:  f.text,
		Templates: notify.NewTemplateEngine(),
		Logs:      f.logs,
		ClientURL: "https://app.caresync.test",
		Logger:    zerolog.Nop(),
	})
}

func TestDispatchDue_LostSendRaceWritesNoLog(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)
	f.swapRepo(&racingRepo{f.repo})

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 1 || stats.Sent != 0 || stats.Failed != 0 {
		t.Errorf("expected the race loser to count as skipped, got %+v", stats)
	}
	if f.repo.items[r.ID].Status != StatusCancelled {
		t.Errorf("expected the winner's status to stand, got %s", f.repo.items[r.ID].Status)
	}
	if len(f.logs.logs) != 0 {
		t.Errorf("expected no log row from the losing side, got %d", len(f.logs.logs))
	}
}

func TestDispatchDue_LostFailRaceWritesNoLog(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "No Contact", Email: strPtr("x@b.test")}
	r := f.addDue(t, p, nil)
	f.repo.due[r.ID].PatientEmail = nil
	f.swapRepo(&racingRepo{f.repo})

	stats, err := f.svc.DispatchDue(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 1 || stats.Failed != 0 {
		t.Errorf("expected the race loser to count as skipped, got %+v", stats)
	}
	if len(f.logs.logs) != 0 {
		t.Errorf("expected no log row from the losing side, got %d", len(f.logs.logs))
	}
	if len(f.email.Calls()) != 0 {
		t.Error("expected no provider call without a recipient")
	}
}

func TestSendNow_LostRace(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)
	f.swapRepo(&racingRepo{f.repo})

	if _, err := f.svc.SendNow(context.Background(), f.clinicID, r.ID); err != ErrNotPending {
		t.Errorf("expected ErrNotPending for a lost race, got %v", err)
	}
	if len(f.logs.logs) != 0 {
		t.Errorf("expected no log row, got %d", len(f.logs.logs))
	}
}

func TestSendNow(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)

	got, err := f.svc.SendNow(context.Background(), f.clinicID, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusSent {
		t.Errorf("expected sent, got %s", got.Status)
	}

	// A second send-now must refuse: the reminder is no longer pending.
	if _, err := f.svc.SendNow(context.Background(), f.clinicID, r.ID); err != ErrNotPending {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
	if len(f.email.Calls()) != 1 {
		t.Errorf("expected exactly 1 email, got %d", len(f.email.Calls()))
	}
}

func TestUpdateReminder_FailedResetsToPending(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)
	f.repo.items[r.ID].Status = StatusFailed

	upd := &Reminder{
		ID:            r.ID,
		ClinicID:      f.clinicID,
		PatientID:     r.PatientID,
		Message:       "trying again",
		ScheduledDate: time.Now().AddDate(0, 0, 1),
	}
	if err := f.svc.Update(context.Background(), upd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.items[r.ID].Status != StatusPending {
		t.Errorf("expected pending after edit, got %s", f.repo.items[r.ID].Status)
	}
}

func TestUpdateReminder_SentIsImmutable(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}
	r := f.addDue(t, p, nil)
	f.repo.items[r.ID].Status = StatusSent

	upd := &Reminder{ID: r.ID, ClinicID: f.clinicID, Message: "too late"}
	if err := f.svc.Update(context.Background(), upd); err != ErrNotPending {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
}

func TestMarkDelivered_FromSentAndPending(t *testing.T) {
	f := newDispatchFixture("pro")
	p := &patient.Patient{Name: "Ade", Email: strPtr("ade@b.test")}

	sent := f.addDue(t, p, nil)
	f.repo.items[sent.ID].Status = StatusSent
	ok, err := f.svc.MarkDelivered(context.Background(), sent.ID, time.Now())
	if err != nil || !ok {
		t.Errorf("expected delivery from sent, got ok=%v err=%v", ok, err)
	}

	pending := f.addDue(t, p, nil)
	ok, err = f.svc.MarkDelivered(context.Background(), pending.ID, time.Now())
	if err != nil || !ok {
		t.Errorf("expected delivery from pending, got ok=%v err=%v", ok, err)
	}

	cancelled := f.addDue(t, p, nil)
	f.repo.items[cancelled.ID].Status = StatusCancelled
	ok, _ = f.svc.MarkDelivered(context.Background(), cancelled.ID, time.Now())
	if ok {
		t.Error("expected no delivery from cancelled")
	}
}
