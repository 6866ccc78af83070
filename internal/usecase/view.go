package usecase

import "github.com/b2bflow/front-forms/internal/domain"

// ConversationView is what the chat widget renders for one conversation.
type ConversationView struct {
	ID         string        `json:"id"`
	Step       domain.Step   `json:"step"`
	Input      Prompt        `json:"input"`
	Messages   []MessageView `json:"messages"`
	Submitting bool          `json:"submitting"`
	Picker     *PickerView   `json:"picker,omitempty"`
	Summary    *SummaryView  `json:"summary,omitempty"`
}

type MessageView struct {
	Key     string         `json:"key"`
	Text    string         `json:"text"`
	Speaker domain.Speaker `json:"speaker"`
	DelayMs int64          `json:"delayMs"`
}

// PickerView is the date grid and slot list of the schedule step.
type PickerView struct {
	Phase        domain.PickerPhase `json:"phase"`
	Timezone     string             `json:"timezone"`
	Days         []CalendarDay      `json:"days"`
	Empty        bool               `json:"empty"`
	SelectedDate string             `json:"selectedDate,omitempty"`
	Slots        []domain.TimeSlot  `json:"slots,omitempty"`
	SelectedTime string             `json:"selectedTime,omitempty"`
	CanConfirm   bool               `json:"canConfirm"`
	ConfirmLabel string             `json:"confirmLabel"`
	Error        string             `json:"error,omitempty"`
}

// SummaryView recaps the booking on the success step.
type SummaryView struct {
	Name          string `json:"name"`
	Company       string `json:"company"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Date          string `json:"date"`
	FormattedDate string `json:"formattedDate"`
	Time          string `json:"time"`
	Savings       string `json:"estimatedSavings"`
}

// NewConversationView projects conv for the widget. today decides which
// dates are selectable; timezone labels the picker.
func NewConversationView(conv domain.Conversation, today domain.Date, timezone string) ConversationView {
	v := ConversationView{
		ID:         conv.ID,
		Step:       conv.Step,
		Input:      PromptFor(conv.Step),
		Messages:   make([]MessageView, 0, len(conv.Transcript)),
		Submitting: conv.Submitting,
	}
	for _, m := range conv.Transcript {
		v.Messages = append(v.Messages, MessageView{
			Key:     m.Key,
			Text:    m.Text,
			Speaker: m.Speaker,
			DelayMs: m.Delay.Milliseconds(),
		})
	}

	switch conv.Step {
	case domain.StepSchedule:
		v.Picker = newPickerView(conv.Picker, today, timezone)
	case domain.StepSuccess:
		a := conv.Answers
		v.Summary = &SummaryView{
			Name:          a.Name,
			Company:       a.CompanyName,
			Email:         a.Email,
			Phone:         a.Phone,
			Date:          a.AppointmentDate.String(),
			FormattedDate: FormatLongDate(a.AppointmentDate),
			Time:          a.AppointmentTime,
			Savings:       estimatedSavings,
		}
	}
	return v
}

func newPickerView(p domain.PickerState, today domain.Date, timezone string) *PickerView {
	avail := NewAvailability(p.Days)
	v := &PickerView{
		Phase:        p.Phase,
		Timezone:     timezone,
		Days:         avail.Calendar(today),
		Empty:        p.Phase == domain.PickerReady && avail.Empty(),
		SelectedDate: p.SelectedDate.String(),
		SelectedTime: p.SelectedTime,
		ConfirmLabel: ConfirmLabel(p.SelectedDate, p.SelectedTime),
		Error:        p.Error,
	}
	if !p.SelectedDate.IsZero() {
		v.Slots = avail.Slots(p.SelectedDate)
	}
	v.CanConfirm = p.Phase == domain.PickerReady && !p.SelectedDate.IsZero() && p.SelectedTime != ""
	if p.Phase == domain.PickerConfirming {
		v.ConfirmLabel = "Agendando..."
	}
	return v
}
