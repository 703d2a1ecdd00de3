package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omsorg/care-api/internal/model"
	"github.com/omsorg/care-api/internal/push"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/metrics"
)

type fakePatientRepo struct {
	patients []*model.Patient
	listErr  error
}

func (f *fakePatientRepo) Create(_ context.Context, p *model.Patient) error { return nil }
func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range f.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}
func (f *fakePatientRepo) Update(_ context.Context, p *model.Patient) error { return nil }
func (f *fakePatientRepo) ListAll(_ context.Context) ([]*model.Patient, error) {
	return f.patients, f.listErr
}
func (f *fakePatientRepo) ListByAccess(_ context.Context, _ uuid.UUID, _ string) ([]*model.Patient, error) {
	return f.patients, nil
}

type fakeReminderRepo struct {
	reminders []*model.Reminder
}

func (f *fakeReminderRepo) Create(_ context.Context, r *model.Reminder) error {
	f.reminders = append(f.reminders, r)
	return nil
}
func (f *fakeReminderRepo) Get(_ context.Context, _, _ uuid.UUID) (*model.Reminder, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeReminderRepo) Update(_ context.Context, _ *model.Reminder) error { return nil }
func (f *fakeReminderRepo) Delete(_ context.Context, _, _ uuid.UUID) error    { return nil }
func (f *fakeReminderRepo) List(_ context.Context, patientID uuid.UUID) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for _, r := range f.reminders {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeReminderRepo) ListByTime(_ context.Context, patientID uuid.UUID, hhmm string) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for _, r := range f.reminders {
		if r.PatientID == patientID && r.Time == hhmm {
			out = append(out, r)
		}
	}
	return out, nil
}
func (f *fakeReminderRepo) Exists(_ context.Context, patientID uuid.UUID, name, hhmm string) (bool, error) {
	for _, r := range f.reminders {
		if r.PatientID == patientID && r.Name == name && r.Time == hhmm {
			return true, nil
		}
	}
	return false, nil
}

type fakeLogRepo struct {
	entries []*model.LogEntry
}

func (f *fakeLogRepo) Create(_ context.Context, e *model.LogEntry) error {
	f.entries = append(f.entries, e)
	return nil
}
func (f *fakeLogRepo) Delete(_ context.Context, _, _ uuid.UUID) error { return nil }
func (f *fakeLogRepo) ListBetween(_ context.Context, patientID uuid.UUID, fromMs, toMs int64, _ bool) ([]*model.LogEntry, error) {
	var out []*model.LogEntry
	for _, e := range f.entries {
		if e.PatientID == patientID && e.Timestamp >= fromMs && e.Timestamp < toMs {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeLogRepo) LatestByTypeAndName(_ context.Context, _ uuid.UUID, _ model.LogType, _ string) (*model.LogEntry, error) {
	return nil, nil
}

type fakeTokenRepo struct {
	tokens map[string]*model.DeliveryToken
}

func newFakeTokenRepo(values ...string) *fakeTokenRepo {
	f := &fakeTokenRepo{tokens: make(map[string]*model.DeliveryToken)}
	for _, v := range values {
		f.tokens[v] = &model.DeliveryToken{Token: v, UpdatedAt: time.Now()}
	}
	return f
}

func (f *fakeTokenRepo) Upsert(_ context.Context, t *model.DeliveryToken) error {
	f.tokens[t.Token] = t
	return nil
}
func (f *fakeTokenRepo) Delete(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}
func (f *fakeTokenRepo) List(_ context.Context) ([]*model.DeliveryToken, error) {
	var out []*model.DeliveryToken
	for _, t := range f.tokens {
		out = append(out, t)
	}
	return out, nil
}
func (f *fakeTokenRepo) Status(_ context.Context) (int, *time.Time, error) {
	return len(f.tokens), nil, nil
}

type fakeUserRepo struct {
	users []*model.User
}

func (f *fakeUserRepo) Create(_ context.Context, _ *model.User) error { return nil }
func (f *fakeUserRepo) Get(_ context.Context, _ uuid.UUID) (*model.User, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeUserRepo) UpdateSubscriptions(_ context.Context, _ *model.User) error { return nil }
func (f *fakeUserRepo) ListMissedDoseSubscribers(_ context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.MissedDoseAlerts {
			out = append(out, u)
		}
	}
	return out, nil
}
func (f *fakeUserRepo) ListDailyReportSubscribers(_ context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.DailyReports {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeChecklistRepo struct {
	items []*model.ChecklistItem
}

func (f *fakeChecklistRepo) Create(_ context.Context, i *model.ChecklistItem) error {
	f.items = append(f.items, i)
	return nil
}
func (f *fakeChecklistRepo) Get(_ context.Context, _, _ uuid.UUID) (*model.ChecklistItem, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeChecklistRepo) Delete(_ context.Context, _, _ uuid.UUID) error { return nil }
func (f *fakeChecklistRepo) List(_ context.Context, patientID uuid.UUID) ([]*model.ChecklistItem, error) {
	var out []*model.ChecklistItem
	for _, i := range f.items {
		if i.PatientID == patientID {
			out = append(out, i)
		}
	}
	return out, nil
}
func (f *fakeChecklistRepo) GetByNameCategory(_ context.Context, _ uuid.UUID, _ string, _ model.ChecklistCategory) (*model.ChecklistItem, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeChecklistRepo) AdjustStock(_ context.Context, _, _ uuid.UUID, _ float64) error {
	return nil
}

// fakeSender records sends and marks configured tokens invalid.
type fakeSender struct {
	sends   [][]string
	invalid map[string]bool
	err     error
}

func (f *fakeSender) Send(_ context.Context, tokens []string, _ push.Message) ([]push.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sends = append(f.sends, append([]string(nil), tokens...))
	results := make([]push.Result, len(tokens))
	for i, token := range tokens {
		results[i] = push.Result{Token: token}
		if f.invalid[token] {
			results[i].Err = errors.New("push delivery failed: NotRegistered")
			results[i].Invalid = true
		}
	}
	return results, nil
}

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(to []string, subject, htmlBody string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return uuid.NewString(), nil
}

type fixture struct {
	scheduler *ServerScheduler
	patients  *fakePatientRepo
	reminders *fakeReminderRepo
	logs      *fakeLogRepo
	tokens    *fakeTokenRepo
	users     *fakeUserRepo
	sender    *fakeSender
	mailer    *fakeMailer
	loc       *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	f := &fixture{
		patients:  &fakePatientRepo{},
		reminders: &fakeReminderRepo{},
		logs:      &fakeLogRepo{},
		tokens:    newFakeTokenRepo(),
		users:     &fakeUserRepo{},
		sender:    &fakeSender{invalid: make(map[string]bool)},
		mailer:    &fakeMailer{},
		loc:       loc,
	}
	f.scheduler = NewServerScheduler(
		f.patients, f.reminders, f.logs, f.tokens, f.users, &fakeChecklistRepo{},
		f.sender, f.mailer, metrics.NewTestMetrics(), logger.NewLogger(nil), loc,
		Config{ReportHour: 21},
	)
	return f
}

func (f *fixture) addPatient(name string) *model.Patient {
	p := &model.Patient{ID: uuid.New(), Name: name}
	f.patients.patients = append(f.patients.patients, p)
	return p
}

func (f *fixture) addReminder(patientID uuid.UUID, name, hhmm string) {
	f.reminders.reminders = append(f.reminders.reminders, &model.Reminder{
		ID: uuid.New(), PatientID: patientID, Name: name, Time: hhmm,
	})
}

func (f *fixture) logMedicine(patientID uuid.UUID, name string, at time.Time) {
	entry := &model.LogEntry{
		ID: uuid.New(), PatientID: patientID, Type: model.LogTypeMedicine, Name: name,
	}
	entry.Stamp(at, f.loc)
	f.logs.entries = append(f.logs.entries, entry)
}

func TestCheckRemindersPrunesInvalidTokens(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient("Emma")
	f.addReminder(patient.ID, "Nexium", "14:30")

	f.tokens = newFakeTokenRepo("token-good", "token-dead")
	f.scheduler.tokens = f.tokens
	f.sender.invalid["token-dead"] = true

	now := time.Date(2026, 8, 25, 14, 30, 0, 0, f.loc)
	require.NoError(t, f.scheduler.CheckReminders(context.Background(), now))

	require.Len(t, f.sender.sends, 1, "one multicast for the one matching reminder")
	assert.Len(t, f.sender.sends[0], 2, "one attempt per token")

	_, goodKept := f.tokens.tokens["token-good"]
	_, deadKept := f.tokens.tokens["token-dead"]
	assert.True(t, goodKept, "healthy token must remain")
	assert.False(t, deadKept, "unregistered token must be pruned")
}

func TestCheckRemindersNoMatchIsNoOp(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient("Emma")
	f.addReminder(patient.ID, "Nexium", "14:30")
	f.tokens.Upsert(context.Background(), &model.DeliveryToken{Token: "token"})

	now := time.Date(2026, 8, 25, 9, 0, 0, 0, f.loc)
	require.NoError(t, f.scheduler.CheckReminders(context.Background(), now))
	assert.Empty(t, f.sender.sends)
}

func TestCheckRemindersAbortsOnStoreError(t *testing.T) {
	f := newFixture(t)
	f.patients.listErr = errors.New("store down")

	now := time.Date(2026, 8, 25, 14, 30, 0, 0, f.loc)
	err := f.scheduler.CheckReminders(context.Background(), now)
	assert.Error(t, err)
}

func TestCheckMissedMedicinesAlertsOnce(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient("Emma")
	f.addReminder(patient.ID, "Nexium", "14:30")
	f.addReminder(patient.ID, "Bactrim", "14:30")
	f.users.users = []*model.User{
		{ID: uuid.New(), Email: "mamma@example.com", MissedDoseAlerts: true},
		{ID: uuid.New(), Email: "pappa@example.com", MissedDoseAlerts: true},
	}

	// 10 minutes after the 14:30 reminders, nothing logged.
	now := time.Date(2026, 8, 25, 14, 40, 0, 0, f.loc)
	require.NoError(t, f.scheduler.CheckMissedMedicines(context.Background(), now))

	require.Len(t, f.mailer.sent, 1, "exactly one alert, not one per missed item")
	mail := f.mailer.sent[0]
	assert.Len(t, mail.to, 2)
	assert.Contains(t, mail.body, "Nexium (skulle vært gitt kl. 14:30)")
	assert.Contains(t, mail.body, "Bactrim (skulle vært gitt kl. 14:30)")
}

func TestCheckMissedMedicinesSuppressedWhenLogged(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient("Emma")
	f.addReminder(patient.ID, "Nexium", "14:30")
	f.users.users = []*model.User{
		{ID: uuid.New(), Email: "mamma@example.com", MissedDoseAlerts: true},
	}

	// A dose earlier the same day counts, whatever its hour.
	f.logMedicine(patient.ID, "Nexium", time.Date(2026, 8, 25, 8, 0, 0, 0, f.loc))

	now := time.Date(2026, 8, 25, 14, 40, 0, 0, f.loc)
	require.NoError(t, f.scheduler.CheckMissedMedicines(context.Background(), now))
	assert.Empty(t, f.mailer.sent)
}

func TestCheckMissedMedicinesScopedPerPatient(t *testing.T) {
	f := newFixture(t)
	emma := f.addPatient("Emma")
	noah := f.addPatient("Noah")
	f.addReminder(emma.ID, "Nexium", "14:30")
	f.addReminder(noah.ID, "Nexium", "14:30")
	f.users.users = []*model.User{
		{ID: uuid.New(), Email: "mamma@example.com", MissedDoseAlerts: true},
	}

	// Only Emma got the dose; Noah's identical reminder must still alert.
	f.logMedicine(emma.ID, "Nexium", time.Date(2026, 8, 25, 14, 32, 0, 0, f.loc))

	now := time.Date(2026, 8, 25, 14, 40, 0, 0, f.loc)
	require.NoError(t, f.scheduler.CheckMissedMedicines(context.Background(), now))

	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0].subject, "Noah")
}

func TestGenerateAndSendReport(t *testing.T) {
	f := newFixture(t)
	patient := f.addPatient("Emma")
	f.users.users = []*model.User{
		{ID: uuid.New(), Email: "mamma@example.com", DailyReports: true},
	}
	f.logMedicine(patient.ID, "Nexium", time.Date(2026, 8, 25, 8, 0, 0, 0, f.loc))

	now := time.Date(2026, 8, 25, 21, 0, 0, 0, f.loc)
	result, err := f.scheduler.GenerateAndSendReport(context.Background(), now)
	require.NoError(t, err)
	assert.NotEmpty(t, result.EmailID)
	assert.Equal(t, []string{"mamma@example.com"}, result.Recipients)

	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0].body, "Nexium")

	// Idempotent: a second on-demand run just sends again, no state change.
	_, err = f.scheduler.GenerateAndSendReport(context.Background(), now)
	require.NoError(t, err)
	assert.Len(t, f.mailer.sent, 2)
}

func TestGenerateAndSendReportNoSubscribers(t *testing.T) {
	f := newFixture(t)
	f.addPatient("Emma")

	result, err := f.scheduler.GenerateAndSendReport(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, result.Recipients)
	assert.Empty(t, f.mailer.sent)
}
