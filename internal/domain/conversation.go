package domain

import "time"

// Step is one position in the fixed intake sequence.
type Step string

const (
	StepName      Step = "name"
	StepPhone     Step = "phone"
	StepEmail     Step = "email"
	StepCompany   Step = "company"
	StepSegment   Step = "segment"
	StepProduct   Step = "product"
	StepRevenue   Step = "revenue"
	StepHeadcount Step = "headcount"
	StepSchedule  Step = "schedule"
	StepSuccess   Step = "success"
)

var stepOrder = []Step{
	StepName,
	StepPhone,
	StepEmail,
	StepCompany,
	StepSegment,
	StepProduct,
	StepRevenue,
	StepHeadcount,
	StepSchedule,
	StepSuccess,
}

// Steps returns the intake sequence in order.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// Next returns the step that follows s. The terminal step has no successor.
func (s Step) Next() (Step, bool) {
	for i, step := range stepOrder {
		if step == s && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return "", false
}

func (s Step) Valid() bool {
	for _, step := range stepOrder {
		if step == s {
			return true
		}
	}
	return false
}

func (s Step) Terminal() bool {
	return s == StepSuccess
}

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerSystem Speaker = "system"
)

// Message is one transcript entry. Seq is its position in the transcript and
// never changes once assigned.
type Message struct {
	Key       string        `json:"key"`
	Seq       int           `json:"seq"`
	Text      string        `json:"text"`
	Speaker   Speaker       `json:"speaker"`
	Delay     time.Duration `json:"delay"`
	CreatedAt time.Time     `json:"createdAt"`
}

type PickerPhase string

const (
	PickerIdle       PickerPhase = ""
	PickerLoading    PickerPhase = "loading"
	PickerReady      PickerPhase = "ready"
	PickerConfirming PickerPhase = "confirming"
	PickerDone       PickerPhase = "done"
)

// PickerState is the date/time selection sub-state of the schedule step.
type PickerState struct {
	Phase        PickerPhase    `json:"phase"`
	Days         []AvailableDay `json:"days,omitempty"`
	SelectedDate Date           `json:"selectedDate"`
	SelectedTime string         `json:"selectedTime,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Conversation is the full state of one intake conversation. Transcript is
// persisted separately from the rest of the record.
type Conversation struct {
	ID         string      `json:"id"`
	Step       Step        `json:"step"`
	Answers    LeadAnswers `json:"answers"`
	Transcript []Message   `json:"-"`
	Submitting bool        `json:"submitting"`
	LeadToken  LeadToken   `json:"leadToken,omitempty"`
	LeadID     string      `json:"leadId,omitempty"`
	Picker     PickerState `json:"picker"`
	Version    int         `json:"version"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}
