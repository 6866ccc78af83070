package usecase

import (
	"fmt"
	"time"

	"github.com/b2bflow/front-forms/internal/domain"
)

// Event is an input to Dispatch: a visitor action or the outcome of an effect.
type Event interface {
	event()
}

type AnswerSubmitted struct {
	Text string
}

type LeadCreated struct {
	Lead domain.CreatedLead
}

type LeadCreateFailed struct {
	Err error
}

type LeadUpdated struct{}

type LeadUpdateFailed struct {
	Err error
}

type AvailabilityLoaded struct {
	Days []domain.AvailableDay
}

type AvailabilityFailed struct {
	Err error
}

// PickerReloaded asks for availability to be fetched again.
type PickerReloaded struct{}

// DateSelected picks a day. Today is the visitor's current date in the
// configured timezone; earlier dates are rejected.
type DateSelected struct {
	Date  domain.Date
	Today domain.Date
}

type SlotSelected struct {
	Time string
}

type ConfirmRequested struct{}

// AppointmentBooked carries the booking result and the session expiry derived
// from it.
type AppointmentBooked struct {
	Appointment domain.Appointment
	Expires     time.Time
}

type AppointmentFailed struct {
	Err error
}

func (AnswerSubmitted) event()    {}
func (LeadCreated) event()        {}
func (LeadCreateFailed) event()   {}
func (LeadUpdated) event()        {}
func (LeadUpdateFailed) event()   {}
func (AvailabilityLoaded) event() {}
func (AvailabilityFailed) event() {}
func (PickerReloaded) event()     {}
func (DateSelected) event()       {}
func (SlotSelected) event()       {}
func (ConfirmRequested) event()   {}
func (AppointmentBooked) event()  {}
func (AppointmentFailed) event()  {}

// Effect is work Dispatch asks the caller to perform. Effects are run in the
// order returned and each outcome is fed back as an Event.
type Effect interface {
	effect()
}

type CreateLeadEffect struct {
	Lead domain.LeadIdentity
}

type UpdateLeadEffect struct {
	Lead domain.QualifiedLead
}

type LoadAvailabilityEffect struct{}

type CreateAppointmentEffect struct {
	Request domain.AppointmentRequest
}

// WriteSessionEffect stores the lead token as the visitor's session.
type WriteSessionEffect struct {
	Token   domain.LeadToken
	Expires time.Time
}

func (CreateLeadEffect) effect()        {}
func (UpdateLeadEffect) effect()        {}
func (LoadAvailabilityEffect) effect()  {}
func (CreateAppointmentEffect) effect() {}
func (WriteSessionEffect) effect()      {}

// NewConversation returns a conversation at the first step with the greeting
// already in the transcript.
func NewConversation(id string, now time.Time) domain.Conversation {
	c := domain.Conversation{
		ID:        id,
		Step:      domain.StepName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	appendMessage(&c, domain.SpeakerSystem, msgGreeting, 0, now)
	appendMessage(&c, domain.SpeakerSystem, msgAskName, greetingStagger, now)
	return c
}

// Dispatch applies ev to conv and returns the next state together with the
// effects to run. It performs no I/O. On error conv is returned unchanged.
func Dispatch(conv domain.Conversation, ev Event, now time.Time) (domain.Conversation, []Effect, error) {
	next := conv
	var (
		effects []Effect
		err     error
	)
	switch e := ev.(type) {
	case AnswerSubmitted:
		effects, err = onAnswer(&next, e, now)
	case LeadCreated:
		err = onLeadCreated(&next, e, now)
	case LeadCreateFailed:
		err = onCheckpointFailed(&next, domain.StepCompany, now)
	case LeadUpdated:
		effects, err = onLeadUpdated(&next, now)
	case LeadUpdateFailed:
		err = onCheckpointFailed(&next, domain.StepHeadcount, now)
	case AvailabilityLoaded:
		err = onAvailability(&next, e.Days, "")
	case AvailabilityFailed:
		err = onAvailability(&next, nil, msgNoAvailability)
	case PickerReloaded:
		effects, err = onReload(&next)
	case DateSelected:
		err = onDateSelected(&next, e)
	case SlotSelected:
		err = onSlotSelected(&next, e)
	case ConfirmRequested:
		effects, err = onConfirm(&next)
	case AppointmentBooked:
		effects, err = onBooked(&next, e)
	case AppointmentFailed:
		err = onBookingFailed(&next, now)
	default:
		err = newError(ErrorInternal, fmt.Sprintf("unknown_event_%T", ev), nil)
	}
	if err != nil {
		return conv, nil, err
	}
	return next, effects, nil
}

func onAnswer(c *domain.Conversation, e AnswerSubmitted, now time.Time) ([]Effect, error) {
	switch {
	case c.Step.Terminal():
		return nil, rejected("conversation_complete")
	case c.Submitting:
		return nil, busy("submission_in_flight")
	case c.Step == domain.StepSchedule:
		return nil, rejected("schedule_expects_picker")
	}

	v, err := validateAnswer(c.Step, e.Text)
	if err != nil {
		return nil, err
	}

	a := &c.Answers
	switch c.Step {
	case domain.StepName:
		a.Name = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		appendMessage(c, domain.SpeakerSystem, msgAskPhone(v), replyDelay, now)
		c.Step = domain.StepPhone
	case domain.StepPhone:
		a.Phone = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		appendMessage(c, domain.SpeakerSystem, msgAskEmail, replyDelay, now)
		c.Step = domain.StepEmail
	case domain.StepEmail:
		a.Email = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		appendMessage(c, domain.SpeakerSystem, msgAskCompany, replyDelay, now)
		c.Step = domain.StepCompany
	case domain.StepCompany:
		a.CompanyName = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		c.Submitting = true
		return []Effect{CreateLeadEffect{Lead: identityOf(*a)}}, nil
	case domain.StepSegment:
		a.Segment = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		appendMessage(c, domain.SpeakerSystem, msgAskProduct(a.CompanyName), replyDelay, now)
		c.Step = domain.StepProduct
	case domain.StepProduct:
		a.ProductInterest = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		appendMessage(c, domain.SpeakerSystem, msgAskRevenue, replyDelay, now)
		c.Step = domain.StepRevenue
	case domain.StepRevenue:
		a.RevenueBand = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		appendMessage(c, domain.SpeakerSystem, msgAskHeadcount, replyDelay, now)
		c.Step = domain.StepHeadcount
	case domain.StepHeadcount:
		a.Headcount = v
		appendMessage(c, domain.SpeakerUser, v, 0, now)
		c.Submitting = true
		return []Effect{UpdateLeadEffect{Lead: qualifiedOf(*a)}}, nil
	default:
		return nil, newError(ErrorInternal, "unknown_step", nil)
	}
	return nil, nil
}

func onLeadCreated(c *domain.Conversation, e LeadCreated, now time.Time) error {
	if err := requirePending(c, domain.StepCompany); err != nil {
		return err
	}
	c.Submitting = false
	c.LeadToken = e.Lead.Token
	c.LeadID = e.Lead.LeadID
	appendMessage(c, domain.SpeakerSystem, msgAskSegment(c.Answers.CompanyName), replyDelay, now)
	c.Step = domain.StepSegment
	return nil
}

func onLeadUpdated(c *domain.Conversation, now time.Time) ([]Effect, error) {
	if err := requirePending(c, domain.StepHeadcount); err != nil {
		return nil, err
	}
	c.Submitting = false
	appendMessage(c, domain.SpeakerSystem, msgValueProposition(c.Answers.Name), replyDelay, now)
	appendMessage(c, domain.SpeakerSystem, msgAskSchedule, followUpDelay, now)
	c.Step = domain.StepSchedule
	c.Picker = domain.PickerState{Phase: domain.PickerLoading}
	return []Effect{LoadAvailabilityEffect{}}, nil
}

// onCheckpointFailed releases the pending submission and keeps the step so the
// visitor can answer again.
func onCheckpointFailed(c *domain.Conversation, step domain.Step, now time.Time) error {
	if err := requirePending(c, step); err != nil {
		return err
	}
	c.Submitting = false
	appendMessage(c, domain.SpeakerSystem, msgRequestFailed, 0, now)
	return nil
}

func requirePending(c *domain.Conversation, step domain.Step) error {
	if c.Step != step || !c.Submitting {
		return rejected("no_pending_" + string(step))
	}
	return nil
}

func onAvailability(c *domain.Conversation, days []domain.AvailableDay, failure string) error {
	if c.Step != domain.StepSchedule || c.Picker.Phase != domain.PickerLoading {
		return rejected("availability_not_requested")
	}
	c.Picker = domain.PickerState{
		Phase: domain.PickerReady,
		Days:  NewAvailability(days).Days(),
		Error: failure,
	}
	return nil
}

func onReload(c *domain.Conversation) ([]Effect, error) {
	if c.Step != domain.StepSchedule || c.Picker.Phase != domain.PickerReady {
		return nil, rejected("picker_not_ready")
	}
	c.Picker = domain.PickerState{Phase: domain.PickerLoading}
	return []Effect{LoadAvailabilityEffect{}}, nil
}

func onDateSelected(c *domain.Conversation, e DateSelected) error {
	if c.Step != domain.StepSchedule || c.Picker.Phase != domain.PickerReady {
		return rejected("picker_not_ready")
	}
	if !NewAvailability(c.Picker.Days).IsSelectable(e.Date, e.Today) {
		return validationError("date_not_selectable")
	}
	c.Picker.SelectedDate = e.Date
	c.Picker.SelectedTime = ""
	c.Picker.Error = ""
	return nil
}

func onSlotSelected(c *domain.Conversation, e SlotSelected) error {
	if c.Step != domain.StepSchedule || c.Picker.Phase != domain.PickerReady {
		return rejected("picker_not_ready")
	}
	if c.Picker.SelectedDate.IsZero() {
		return rejected("date_not_selected")
	}
	if !NewAvailability(c.Picker.Days).HasSlot(c.Picker.SelectedDate, e.Time) {
		return validationError("slot_not_available")
	}
	c.Picker.SelectedTime = e.Time
	c.Picker.Error = ""
	return nil
}

func onConfirm(c *domain.Conversation) ([]Effect, error) {
	p := &c.Picker
	switch {
	case c.Step != domain.StepSchedule:
		return nil, rejected("not_scheduling")
	case p.Phase == domain.PickerConfirming:
		return nil, busy("booking_in_flight")
	case p.Phase != domain.PickerReady || p.SelectedDate.IsZero() || p.SelectedTime == "":
		return nil, rejected("selection_incomplete")
	case c.LeadToken == "":
		return nil, rejected("missing_lead_token")
	}
	p.Phase = domain.PickerConfirming
	p.Error = ""
	c.Submitting = true
	return []Effect{CreateAppointmentEffect{Request: domain.AppointmentRequest{
		LeadToken: c.LeadToken,
		Date:      p.SelectedDate,
		Time:      p.SelectedTime,
	}}}, nil
}

func onBooked(c *domain.Conversation, e AppointmentBooked) ([]Effect, error) {
	if c.Picker.Phase != domain.PickerConfirming {
		return nil, rejected("no_pending_booking")
	}
	c.Submitting = false
	c.Picker.Phase = domain.PickerDone
	c.Answers.AppointmentDate = c.Picker.SelectedDate
	c.Answers.AppointmentTime = c.Picker.SelectedTime
	c.Step = domain.StepSuccess
	return []Effect{WriteSessionEffect{Token: c.LeadToken, Expires: e.Expires}}, nil
}

func onBookingFailed(c *domain.Conversation, now time.Time) error {
	if c.Picker.Phase != domain.PickerConfirming {
		return rejected("no_pending_booking")
	}
	c.Submitting = false
	c.Picker.Phase = domain.PickerReady
	c.Picker.Error = msgBookingFailed
	appendMessage(c, domain.SpeakerSystem, msgBookingFailed, 0, now)
	return nil
}

func identityOf(a domain.LeadAnswers) domain.LeadIdentity {
	return domain.LeadIdentity{Contact: a.Contact(), CompanyName: a.CompanyName}
}

func qualifiedOf(a domain.LeadAnswers) domain.QualifiedLead {
	return domain.QualifiedLead{
		LeadIdentity:    identityOf(a),
		Segment:         a.Segment,
		ProductInterest: a.ProductInterest,
		RevenueBand:     a.RevenueBand,
		Headcount:       a.Headcount,
	}
}

// appendMessage adds a transcript entry. The transcript slice is always
// reallocated so states returned by Dispatch never share a backing array.
func appendMessage(c *domain.Conversation, speaker domain.Speaker, text string, delay time.Duration, now time.Time) {
	seq := len(c.Transcript)
	msg := domain.Message{
		Key:       fmt.Sprintf("%04d-%s", seq, speaker),
		Seq:       seq,
		Text:      text,
		Speaker:   speaker,
		Delay:     delay,
		CreatedAt: now,
	}
	c.Transcript = append(c.Transcript[:seq:seq], msg)
}
