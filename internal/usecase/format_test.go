package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/b2bflow/front-forms/internal/domain"
)

func TestFormatLongDate(t *testing.T) {
	require.Equal(t, "quarta-feira, 21 de outubro de 2026", FormatLongDate(oct21))
	require.Equal(t, "domingo, 1 de março de 2026", FormatLongDate(domain.Date{Year: 2026, Month: time.March, Day: 1}))
	require.Empty(t, FormatLongDate(domain.Date{}))
}

func TestConfirmLabel(t *testing.T) {
	require.Equal(t, "Confirmar Agendamento - 21/10 às 10:00", ConfirmLabel(oct21, "10:00"))
	require.Equal(t, "Confirmar Agendamento", ConfirmLabel(oct21, ""))
	require.Equal(t, "05/01", FormatShortDate(domain.Date{Year: 2027, Month: time.January, Day: 5}))
}

func TestFormatSessionDate(t *testing.T) {
	require.Equal(t, "quarta-feira, 21 de outubro de 2026", formatSessionDate("2026-10-21"))
	require.Equal(t, "quarta-feira, 21 de outubro de 2026", formatSessionDate("2026-10-21T13:00:00-03:00"))
	require.Equal(t, "amanhã", formatSessionDate("amanhã"))
}

func TestNewConversationView_Picker(t *testing.T) {
	v := NewConversationView(selected(t), today, "America/Sao_Paulo")

	require.Equal(t, domain.StepSchedule, v.Step)
	require.Equal(t, InputDateTime, v.Input.Kind)
	require.NotNil(t, v.Picker)
	require.Nil(t, v.Summary)
	require.Equal(t, "America/Sao_Paulo", v.Picker.Timezone)
	require.Equal(t, "2026-10-21", v.Picker.SelectedDate)
	require.Equal(t, []domain.TimeSlot{{Time: "10:00", Available: true}, {Time: "14:00", Available: true}}, v.Picker.Slots)
	require.True(t, v.Picker.CanConfirm)
	require.Equal(t, "Confirmar Agendamento - 21/10 às 10:00", v.Picker.ConfirmLabel)
	require.False(t, v.Picker.Empty)
	require.Len(t, v.Messages, len(selected(t).Transcript))
}

func TestNewConversationView_EmptyAvailability(t *testing.T) {
	c, _ := dispatch(t, loadingPicker(t), AvailabilityLoaded{Days: nil})
	v := NewConversationView(c, today, "UTC")

	require.True(t, v.Picker.Empty)
	require.False(t, v.Picker.CanConfirm)
	require.Empty(t, v.Picker.Days)
}

func TestNewConversationView_Summary(t *testing.T) {
	c, _ := dispatch(t, selected(t), ConfirmRequested{})
	c, _ = dispatch(t, c, AppointmentBooked{})
	v := NewConversationView(c, today, "UTC")

	require.Nil(t, v.Picker)
	require.Equal(t, InputNone, v.Input.Kind)
	require.Equal(t, &SummaryView{
		Name:          "Ana",
		Company:       "Acme",
		Email:         "ana@acme.com",
		Phone:         "+55 (11) 98765-4321",
		Date:          "2026-10-21",
		FormattedDate: "quarta-feira, 21 de outubro de 2026",
		Time:          "10:00",
		Savings:       estimatedSavings,
	}, v.Summary)
}

func TestNewConversationView_MessageDelays(t *testing.T) {
	v := NewConversationView(NewConversation("conv-1", t0), today, "UTC")

	require.Equal(t, int64(0), v.Messages[0].DelayMs)
	require.Equal(t, int64(500), v.Messages[1].DelayMs)
}
