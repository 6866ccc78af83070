package usecase

import (
	"fmt"
	"time"

	"github.com/b2bflow/front-forms/internal/domain"
)

var (
	ptWeekdays = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}
	ptMonths   = [...]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}
)

// FormatLongDate renders d in Brazilian Portuguese, e.g.
// "quarta-feira, 21 de outubro de 2026".
func FormatLongDate(d domain.Date) string {
	if d.IsZero() {
		return ""
	}
	t := d.In(time.UTC)
	return fmt.Sprintf("%s, %d de %s de %d", ptWeekdays[t.Weekday()], d.Day, ptMonths[d.Month-1], d.Year)
}

// FormatShortDate renders d as dd/MM.
func FormatShortDate(d domain.Date) string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d/%02d", d.Day, int(d.Month))
}

// ConfirmLabel is the caption of the booking button for the current selection.
func ConfirmLabel(d domain.Date, slot string) string {
	if d.IsZero() || slot == "" {
		return "Confirmar Agendamento"
	}
	return fmt.Sprintf("Confirmar Agendamento - %s às %s", FormatShortDate(d), slot)
}

// formatSessionDate formats the appointment date returned by session
// validation, falling back to the raw value when it cannot be parsed.
func formatSessionDate(raw string) string {
	d, err := domain.ParseDate(raw)
	if err != nil {
		return raw
	}
	return FormatLongDate(d)
}
