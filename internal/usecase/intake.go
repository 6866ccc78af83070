package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/b2bflow/front-forms/internal/domain"
)

const (
	defaultTimezone      = "America/Sao_Paulo"
	fallbackSessionDays  = 30
	defaultStaleAfter    = 2 * time.Minute
	confirmationRedirect = "/confirmacao"
)

type LeadClient interface {
	CreateLead(ctx context.Context, lead domain.LeadIdentity) (domain.CreatedLead, error)
	UpdateLead(ctx context.Context, lead domain.QualifiedLead) error
	GetAvailableDays(ctx context.Context) ([]domain.AvailableDay, error)
	CreateAppointment(ctx context.Context, req domain.AppointmentRequest) (domain.Appointment, error)
}

// ConversationStore persists conversations. Save must reject the write with
// domain.ErrVersionConflict unless the stored version is conv.Version-1, and
// appends only the given messages to the stored transcript.
type ConversationStore interface {
	Create(ctx context.Context, conv domain.Conversation) error
	Load(ctx context.Context, id string) (domain.Conversation, error)
	Save(ctx context.Context, conv domain.Conversation, appended []domain.Message) error
}

// Recorder receives intake metrics.
type Recorder interface {
	StepReached(step domain.Step)
	RemoteCall(op string, err error, elapsed time.Duration)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type IntakeService struct {
	store      ConversationStore
	leads      LeadClient
	metrics    Recorder
	loc        *time.Location
	now        func() time.Time
	staleAfter time.Duration
}

type IntakeOption func(*IntakeService)

func WithRecorder(r Recorder) IntakeOption {
	return func(s *IntakeService) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithLocation(loc *time.Location) IntakeOption {
	return func(s *IntakeService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) IntakeOption {
	return func(s *IntakeService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStaleAfter sets how long a submission may stay pending before the
// conversation is released for a retry.
func WithStaleAfter(d time.Duration) IntakeOption {
	return func(s *IntakeService) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// IntakeResult is the outcome of an intake operation.
type IntakeResult struct {
	Conversation domain.Conversation
	View         ConversationView
	// Session is set when the operation booked an appointment.
	Session *SessionGrant
	// Redirect is set instead of a conversation when the visitor already
	// holds a session.
	Redirect string
}

type SessionGrant struct {
	Token   string
	Expires time.Time
}

type StartInput struct {
	HasSession bool
}

func NewIntakeService(store ConversationStore, leads LeadClient, opts ...IntakeOption) (*IntakeService, error) {
	if store == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	if leads == nil {
		return nil, errors.New("usecase: lead client must not be nil")
	}
	s := &IntakeService{
		store:      store,
		leads:      leads,
		metrics:    noopRecorder{},
		now:        time.Now,
		staleAfter: defaultStaleAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		loc, err := time.LoadLocation(defaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("usecase: load timezone: %w", err)
		}
		s.loc = loc
	}
	return s, nil
}

func (s *IntakeService) Start(ctx context.Context, in StartInput) (IntakeResult, error) {
	if in.HasSession {
		return IntakeResult{Redirect: confirmationRedirect}, nil
	}
	conv := NewConversation(newUUID(), s.now())
	if err := s.store.Create(ctx, conv); err != nil {
		return IntakeResult{}, newError(ErrorInternal, "store_create_error", err)
	}
	s.metrics.StepReached(conv.Step)
	return s.result(conv, nil), nil
}

func (s *IntakeService) Get(ctx context.Context, id string) (IntakeResult, error) {
	conv, err := s.load(ctx, id)
	if err != nil {
		return IntakeResult{}, err
	}
	return s.result(conv, nil), nil
}

func (s *IntakeService) Answer(ctx context.Context, id, answer string) (IntakeResult, error) {
	return s.apply(ctx, id, AnswerSubmitted{Text: answer})
}

func (s *IntakeService) SelectDate(ctx context.Context, id, date string) (IntakeResult, error) {
	d, err := domain.ParseDate(date)
	if err != nil {
		return IntakeResult{}, newError(ErrorInvalidInput, "invalid_date", err)
	}
	return s.apply(ctx, id, DateSelected{Date: d, Today: s.today()})
}

func (s *IntakeService) SelectSlot(ctx context.Context, id, slot string) (IntakeResult, error) {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return IntakeResult{}, newError(ErrorInvalidInput, "empty_time", nil)
	}
	return s.apply(ctx, id, SlotSelected{Time: slot})
}

func (s *IntakeService) Confirm(ctx context.Context, id string) (IntakeResult, error) {
	return s.apply(ctx, id, ConfirmRequested{})
}

func (s *IntakeService) ReloadAvailability(ctx context.Context, id string) (IntakeResult, error) {
	return s.apply(ctx, id, PickerReloaded{})
}

// apply dispatches ev, persists the new state and then runs the resulting
// effects one at a time, persisting after each outcome.
func (s *IntakeService) apply(ctx context.Context, id string, ev Event) (IntakeResult, error) {
	conv, err := s.load(ctx, id)
	if err != nil {
		return IntakeResult{}, err
	}
	next, effects, err := Dispatch(conv, ev, s.now())
	if err != nil {
		return IntakeResult{}, err
	}
	conv, err = s.persist(ctx, conv, next)
	if err != nil {
		return IntakeResult{}, err
	}

	// Outcomes are stored even if the caller went away, so the conversation
	// never stays pending.
	bg := context.WithoutCancel(ctx)
	var grant *SessionGrant
	for len(effects) > 0 {
		eff := effects[0]
		effects = effects[1:]

		if w, ok := eff.(WriteSessionEffect); ok {
			grant = &SessionGrant{Token: string(w.Token), Expires: w.Expires}
			continue
		}
		outcome := s.run(ctx, conv.ID, eff)
		next, more, err := Dispatch(conv, outcome, s.now())
		if err != nil {
			return IntakeResult{}, newError(ErrorInternal, "dispatch_outcome", err)
		}
		conv, err = s.persist(bg, conv, next)
		if err != nil {
			return IntakeResult{}, err
		}
		effects = append(effects, more...)
	}
	return s.result(conv, grant), nil
}

// run performs one remote effect and converts its result into an event.
func (s *IntakeService) run(ctx context.Context, convID string, eff Effect) Event {
	start := time.Now()
	switch e := eff.(type) {
	case CreateLeadEffect:
		lead, err := s.leads.CreateLead(ctx, e.Lead)
		s.observe(convID, "create_lead", err, start)
		if err != nil {
			return LeadCreateFailed{Err: err}
		}
		return LeadCreated{Lead: lead}
	case UpdateLeadEffect:
		err := s.leads.UpdateLead(ctx, e.Lead)
		s.observe(convID, "update_lead", err, start)
		if err != nil {
			return LeadUpdateFailed{Err: err}
		}
		return LeadUpdated{}
	case LoadAvailabilityEffect:
		days, err := s.leads.GetAvailableDays(ctx)
		s.observe(convID, "get_available_days", err, start)
		if err != nil {
			return AvailabilityFailed{Err: err}
		}
		return AvailabilityLoaded{Days: days}
	case CreateAppointmentEffect:
		appt, err := s.leads.CreateAppointment(ctx, e.Request)
		s.observe(convID, "create_appointment", err, start)
		if err != nil {
			return AppointmentFailed{Err: err}
		}
		return AppointmentBooked{Appointment: appt, Expires: s.sessionExpiry(appt, e.Request.Date)}
	default:
		panic(fmt.Sprintf("usecase: unhandled effect %T", eff))
	}
}

func (s *IntakeService) observe(convID, op string, err error, start time.Time) {
	s.metrics.RemoteCall(op, err, time.Since(start))
	if err == nil {
		return
	}
	attrs := []any{"conversation_id", convID, "op", op, "err", err}
	if status, ok := upstreamStatusCode(err); ok {
		attrs = append(attrs, "status", status)
	}
	slog.Error("lead service call failed", attrs...)
}

// sessionExpiry prefers the expiry sent by the service, then the end of the
// confirmed appointment day, then a fixed lifetime.
func (s *IntakeService) sessionExpiry(appt domain.Appointment, requested domain.Date) time.Time {
	if !appt.ExpiresAt.IsZero() {
		return appt.ExpiresAt
	}
	day, err := domain.ParseDate(appt.ConfirmedDate)
	if err != nil {
		day = requested
	}
	if !day.IsZero() {
		return day.In(s.loc).AddDate(0, 0, 1)
	}
	return s.now().AddDate(0, 0, fallbackSessionDays)
}

func (s *IntakeService) load(ctx context.Context, id string) (domain.Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Conversation{}, newError(ErrorInvalidInput, "empty_conversation_id", nil)
	}
	conv, err := s.store.Load(ctx, id)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return domain.Conversation{}, newError(ErrorNotFound, "conversation_not_found", err)
	}
	if err != nil {
		return domain.Conversation{}, newError(ErrorInternal, "store_load_error", err)
	}
	return s.releaseStale(ctx, conv)
}

// releaseStale fails a submission that has been pending for longer than
// staleAfter, which happens when the process handling it died mid-call.
func (s *IntakeService) releaseStale(ctx context.Context, conv domain.Conversation) (domain.Conversation, error) {
	if s.now().Sub(conv.UpdatedAt) < s.staleAfter {
		return conv, nil
	}
	abandoned := errors.New("submission abandoned")
	var ev Event
	switch {
	case conv.Step == domain.StepCompany && conv.Submitting:
		ev = LeadCreateFailed{Err: abandoned}
	case conv.Step == domain.StepHeadcount && conv.Submitting:
		ev = LeadUpdateFailed{Err: abandoned}
	case conv.Step == domain.StepSchedule && conv.Picker.Phase == domain.PickerLoading:
		ev = AvailabilityFailed{Err: abandoned}
	case conv.Step == domain.StepSchedule && conv.Picker.Phase == domain.PickerConfirming:
		ev = AppointmentFailed{Err: abandoned}
	default:
		return conv, nil
	}
	slog.Warn("releasing stale submission", "conversation_id", conv.ID, "step", conv.Step)
	next, _, err := Dispatch(conv, ev, s.now())
	if err != nil {
		return domain.Conversation{}, newError(ErrorInternal, "dispatch_release", err)
	}
	return s.persist(ctx, conv, next)
}

func (s *IntakeService) persist(ctx context.Context, prev, next domain.Conversation) (domain.Conversation, error) {
	next.Version = prev.Version + 1
	next.UpdatedAt = s.now()
	appended := next.Transcript[len(prev.Transcript):]
	err := s.store.Save(ctx, next, appended)
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		return domain.Conversation{}, newError(ErrorConflict, "conversation_changed", err)
	case errors.Is(err, domain.ErrConversationNotFound):
		return domain.Conversation{}, newError(ErrorNotFound, "conversation_not_found", err)
	case err != nil:
		return domain.Conversation{}, newError(ErrorInternal, "store_write_error", err)
	}
	if next.Step != prev.Step {
		s.metrics.StepReached(next.Step)
	}
	return next, nil
}

func (s *IntakeService) result(conv domain.Conversation, grant *SessionGrant) IntakeResult {
	return IntakeResult{
		Conversation: conv,
		View:         NewConversationView(conv, s.today(), s.loc.String()),
		Session:      grant,
	}
}

func (s *IntakeService) today() domain.Date {
	return domain.DateOf(s.now().In(s.loc))
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

type noopRecorder struct{}

func (noopRecorder) StepReached(domain.Step) {}
func (noopRecorder) RemoteCall(string, error, time.Duration) {}

var newUUID = func() string {
	return uuid.NewString()
}
