package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/b2bflow/front-forms/internal/domain"
)

type fakeStore struct {
	convs     map[string]domain.Conversation
	createErr error
	loadErr   error
	saveErr   error
	saves     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{convs: map[string]domain.Conversation{}}
}

func (s *fakeStore) Create(_ context.Context, conv domain.Conversation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.convs[conv.ID] = conv
	return nil
}

func (s *fakeStore) Load(_ context.Context, id string) (domain.Conversation, error) {
	if s.loadErr != nil {
		return domain.Conversation{}, s.loadErr
	}
	conv, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, domain.ErrConversationNotFound
	}
	return conv, nil
}

func (s *fakeStore) Save(_ context.Context, conv domain.Conversation, appended []domain.Message) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	stored, ok := s.convs[conv.ID]
	if !ok {
		return domain.ErrConversationNotFound
	}
	if stored.Version != conv.Version-1 {
		return domain.ErrVersionConflict
	}
	transcript := append(append([]domain.Message(nil), stored.Transcript...), appended...)
	conv.Transcript = transcript
	s.convs[conv.ID] = conv
	s.saves++
	return nil
}

type fakeLeads struct {
	calls []string

	created   domain.CreatedLead
	createErr error
	updated   []domain.QualifiedLead
	updateErr error
	days      []domain.AvailableDay
	daysErr   error
	booked    []domain.AppointmentRequest
	appt      domain.Appointment
	apptErr   error
}

func (f *fakeLeads) CreateLead(_ context.Context, _ domain.LeadIdentity) (domain.CreatedLead, error) {
	f.calls = append(f.calls, "create")
	return f.created, f.createErr
}

func (f *fakeLeads) UpdateLead(_ context.Context, lead domain.QualifiedLead) error {
	f.calls = append(f.calls, "update")
	f.updated = append(f.updated, lead)
	return f.updateErr
}

func (f *fakeLeads) GetAvailableDays(_ context.Context) ([]domain.AvailableDay, error) {
	f.calls = append(f.calls, "days")
	return f.days, f.daysErr
}

func (f *fakeLeads) CreateAppointment(_ context.Context, req domain.AppointmentRequest) (domain.Appointment, error) {
	f.calls = append(f.calls, "appointment")
	f.booked = append(f.booked, req)
	return f.appt, f.apptErr
}

type fakeRecorder struct {
	steps []domain.Step
	ops   map[string]int
	fails map[string]int
}

func (r *fakeRecorder) StepReached(step domain.Step) {
	r.steps = append(r.steps, step)
}

func (r *fakeRecorder) RemoteCall(op string, err error, _ time.Duration) {
	if r.ops == nil {
		r.ops = map[string]int{}
		r.fails = map[string]int{}
	}
	r.ops[op]++
	if err != nil {
		r.fails[op]++
	}
}

type httpError struct{ code int }

func (e *httpError) Error() string       { return http.StatusText(e.code) }
func (e *httpError) HTTPStatusCode() int { return e.code }

func defaultLeads() *fakeLeads {
	return &fakeLeads{
		created: domain.CreatedLead{Token: testTok, LeadID: "42"},
		days:    sampleDays(),
		appt:    domain.Appointment{Success: true, EventID: "evt_1", ConfirmedDate: "2026-10-21", ConfirmedTime: "10:00"},
	}
}

func newTestIntake(t *testing.T, store ConversationStore, leads LeadClient, opts ...IntakeOption) *IntakeService {
	t.Helper()
	opts = append([]IntakeOption{WithClock(func() time.Time { return t0 }), WithLocation(time.UTC)}, opts...)
	svc, err := NewIntakeService(store, leads, opts...)
	require.NoError(t, err)
	return svc
}

func withFixedUUID(t *testing.T, id string) {
	t.Helper()
	orig := newUUID
	newUUID = func() string { return id }
	t.Cleanup(func() { newUUID = orig })
}

// startedAt drives a new conversation through the given answers.
func startedAt(t *testing.T, svc *IntakeService, answers ...string) string {
	t.Helper()
	res, err := svc.Start(context.Background(), StartInput{})
	require.NoError(t, err)
	id := res.Conversation.ID
	for _, a := range answers {
		_, err := svc.Answer(context.Background(), id, a)
		require.NoError(t, err)
	}
	return id
}

var allAnswers = []string{"Ana", "11987654321", "ana@acme.com", "Acme", "Tecnologia", "SDR IA", "Até R$100 mil/ano", "1 a 5"}

func TestNewIntakeService_ValidatesDependencies(t *testing.T) {
	_, err := NewIntakeService(nil, defaultLeads())
	require.Error(t, err)

	_, err = NewIntakeService(newFakeStore(), nil)
	require.Error(t, err)
}

func TestStart_ExistingSessionRedirects(t *testing.T) {
	store := newFakeStore()
	svc := newTestIntake(t, store, defaultLeads())

	res, err := svc.Start(context.Background(), StartInput{HasSession: true})
	require.NoError(t, err)
	require.Equal(t, "/confirmacao", res.Redirect)
	require.Empty(t, store.convs)
}

func TestStart_CreatesConversation(t *testing.T) {
	withFixedUUID(t, "conv-1")
	store := newFakeStore()
	rec := &fakeRecorder{}
	svc := newTestIntake(t, store, defaultLeads(), WithRecorder(rec))

	res, err := svc.Start(context.Background(), StartInput{})
	require.NoError(t, err)
	require.Equal(t, "conv-1", res.Conversation.ID)
	require.Equal(t, "conv-1", res.View.ID)
	require.Len(t, res.View.Messages, 2)
	require.Equal(t, InputText, res.View.Input.Kind)
	require.Contains(t, store.convs, "conv-1")
	require.Equal(t, []domain.Step{domain.StepName}, rec.steps)
}

func TestStart_StoreError(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("dynamodb down")
	svc := newTestIntake(t, store, defaultLeads())

	_, err := svc.Start(context.Background(), StartInput{})
	expectCode(t, err, ErrorInternal, "store_create_error")
}

func TestIntake_FullConversation(t *testing.T) {
	store := newFakeStore()
	leads := defaultLeads()
	svc := newTestIntake(t, store, leads)
	ctx := context.Background()

	id := startedAt(t, svc, allAnswers...)
	require.Equal(t, []string{"create", "update", "days"}, leads.calls)

	res, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StepSchedule, res.Conversation.Step)
	require.Equal(t, domain.PickerReady, res.Conversation.Picker.Phase)
	require.Len(t, res.View.Picker.Days, 2)

	_, err = svc.SelectDate(ctx, id, "2026-10-21")
	require.NoError(t, err)
	_, err = svc.SelectSlot(ctx, id, "10:00")
	require.NoError(t, err)

	res, err = svc.Confirm(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StepSuccess, res.Conversation.Step)
	require.Equal(t, []domain.AppointmentRequest{{LeadToken: testTok, Date: oct21, Time: "10:00"}}, leads.booked)
	require.NotNil(t, res.Session)
	require.Equal(t, "tok-1", res.Session.Token)
	require.Equal(t, time.Date(2026, time.October, 22, 0, 0, 0, 0, time.UTC), res.Session.Expires)
	require.NotNil(t, res.View.Summary)

	stored := store.convs[id]
	require.Equal(t, res.Conversation.Version, stored.Version)
	require.Equal(t, res.Conversation.Transcript, stored.Transcript)
}

func TestIntake_LeadCreateFailureKeepsStep(t *testing.T) {
	leads := defaultLeads()
	leads.createErr = &httpError{code: http.StatusBadGateway}
	rec := &fakeRecorder{}
	svc := newTestIntake(t, newFakeStore(), leads, WithRecorder(rec))

	id := startedAt(t, svc, "Ana", "11987654321", "ana@acme.com")
	res, err := svc.Answer(context.Background(), id, "Acme")
	require.NoError(t, err)
	require.Equal(t, domain.StepCompany, res.Conversation.Step)
	require.False(t, res.Conversation.Submitting)
	require.Equal(t, msgRequestFailed, lastMessage(res.Conversation).Text)
	require.Equal(t, 1, rec.fails["create_lead"])

	leads.createErr = nil
	res, err = svc.Answer(context.Background(), id, "Acme")
	require.NoError(t, err)
	require.Equal(t, domain.StepSegment, res.Conversation.Step)
	require.Equal(t, []string{"create", "create"}, leads.calls)
}

func TestIntake_AvailabilityFailureThenReload(t *testing.T) {
	leads := defaultLeads()
	leads.daysErr = errors.New("timeout")
	svc := newTestIntake(t, newFakeStore(), leads)
	id := startedAt(t, svc, allAnswers...)

	res, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, msgNoAvailability, res.View.Picker.Error)
	require.True(t, res.View.Picker.Empty)

	leads.daysErr = nil
	res, err = svc.ReloadAvailability(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, res.View.Picker.Error)
	require.Len(t, res.View.Picker.Days, 2)
}

func TestIntake_BookingFailureKeepsSelection(t *testing.T) {
	leads := defaultLeads()
	leads.apptErr = errors.New("slot taken")
	svc := newTestIntake(t, newFakeStore(), leads)
	ctx := context.Background()
	id := startedAt(t, svc, allAnswers...)

	_, err := svc.SelectDate(ctx, id, "2026-10-21")
	require.NoError(t, err)
	_, err = svc.SelectSlot(ctx, id, "14:00")
	require.NoError(t, err)

	res, err := svc.Confirm(ctx, id)
	require.NoError(t, err)
	require.Nil(t, res.Session)
	require.Equal(t, domain.StepSchedule, res.Conversation.Step)
	require.Equal(t, msgBookingFailed, res.View.Picker.Error)
	require.Equal(t, "14:00", res.View.Picker.SelectedTime)
}

func TestIntake_SessionExpiryPrefersServerValue(t *testing.T) {
	leads := defaultLeads()
	expires := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
	leads.appt.ExpiresAt = expires
	svc := newTestIntake(t, newFakeStore(), leads)
	ctx := context.Background()
	id := startedAt(t, svc, allAnswers...)

	_, err := svc.SelectDate(ctx, id, "2026-10-21")
	require.NoError(t, err)
	_, err = svc.SelectSlot(ctx, id, "10:00")
	require.NoError(t, err)
	res, err := svc.Confirm(ctx, id)
	require.NoError(t, err)
	require.Equal(t, expires, res.Session.Expires)
}

func TestSessionExpiry_Fallbacks(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	svc := newTestIntake(t, newFakeStore(), defaultLeads(), WithLocation(loc))

	got := svc.sessionExpiry(domain.Appointment{ConfirmedDate: "2026-10-21"}, domain.Date{})
	require.Equal(t, time.Date(2026, time.October, 22, 0, 0, 0, 0, loc), got)

	got = svc.sessionExpiry(domain.Appointment{ConfirmedDate: "garbage"}, oct22)
	require.Equal(t, time.Date(2026, time.October, 23, 0, 0, 0, 0, loc), got)

	got = svc.sessionExpiry(domain.Appointment{}, domain.Date{})
	require.Equal(t, t0.AddDate(0, 0, 30), got)
}

func TestIntake_ErrorMapping(t *testing.T) {
	store := newFakeStore()
	svc := newTestIntake(t, store, defaultLeads())
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	expectCode(t, err, ErrorNotFound, "conversation_not_found")

	_, err = svc.Get(ctx, " ")
	expectCode(t, err, ErrorInvalidInput, "empty_conversation_id")

	id := startedAt(t, svc)
	_, err = svc.SelectDate(ctx, id, "21/10/2026")
	expectCode(t, err, ErrorInvalidInput, "invalid_date")

	_, err = svc.SelectSlot(ctx, id, "")
	expectCode(t, err, ErrorInvalidInput, "empty_time")

	_, err = svc.Answer(ctx, id, "")
	expectCode(t, err, ErrorValidation, "empty_answer")

	store.saveErr = domain.ErrVersionConflict
	_, err = svc.Answer(ctx, id, "Ana")
	expectCode(t, err, ErrorConflict, "conversation_changed")

	store.saveErr = errors.New("throttled")
	_, err = svc.Answer(ctx, id, "Ana")
	expectCode(t, err, ErrorInternal, "store_write_error")

	store.loadErr = errors.New("throttled")
	_, err = svc.Get(ctx, id)
	expectCode(t, err, ErrorInternal, "store_load_error")
}

func TestIntake_RejectedAnswerIsNotPersisted(t *testing.T) {
	store := newFakeStore()
	svc := newTestIntake(t, store, defaultLeads())
	id := startedAt(t, svc, "Ana")
	saves := store.saves

	_, err := svc.Answer(context.Background(), id, "12")
	expectCode(t, err, ErrorValidation, "invalid_phone")
	require.Equal(t, saves, store.saves)
}

func TestIntake_ReleasesStaleSubmission(t *testing.T) {
	store := newFakeStore()
	conv := pendingCompany(t)
	conv.UpdatedAt = t0.Add(-5 * time.Minute)
	store.convs[conv.ID] = conv
	svc := newTestIntake(t, store, defaultLeads())

	res, err := svc.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	require.False(t, res.Conversation.Submitting)
	require.Equal(t, domain.StepCompany, res.Conversation.Step)
	require.Equal(t, msgRequestFailed, lastMessage(res.Conversation).Text)
	require.Equal(t, conv.Version+1, store.convs[conv.ID].Version)
}

func TestIntake_RecordsStepsAndCalls(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newTestIntake(t, newFakeStore(), defaultLeads(), WithRecorder(rec))

	startedAt(t, svc, allAnswers...)
	require.Equal(t, []domain.Step{
		domain.StepName,
		domain.StepPhone,
		domain.StepEmail,
		domain.StepCompany,
		domain.StepSegment,
		domain.StepProduct,
		domain.StepRevenue,
		domain.StepHeadcount,
		domain.StepSchedule,
	}, rec.steps)
	require.Equal(t, map[string]int{"create_lead": 1, "update_lead": 1, "get_available_days": 1}, rec.ops)
	require.Empty(t, rec.fails)
}
