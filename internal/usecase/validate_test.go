package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b2bflow/front-forms/internal/domain"
)

func TestValidateAnswer(t *testing.T) {
	tests := []struct {
		name   string
		step   domain.Step
		input  string
		want   string
		reason string
	}{
		{name: "name trimmed", step: domain.StepName, input: "  Ana Souza ", want: "Ana Souza"},
		{name: "blank", step: domain.StepName, input: " \t", reason: "empty_answer"},
		{name: "long name", step: domain.StepName, input: strings.Repeat("a", maxNameLen+1), reason: "name_too_long"},
		{name: "formatted phone", step: domain.StepPhone, input: "+55 (11) 98765-4321", want: "+55 (11) 98765-4321"},
		{name: "plain phone", step: domain.StepPhone, input: "1133334444", want: "1133334444"},
		{name: "short phone", step: domain.StepPhone, input: "98765-432", reason: "invalid_phone"},
		{name: "phone with letters", step: domain.StepPhone, input: "11 9876A-4321", reason: "invalid_phone"},
		{name: "email", step: domain.StepEmail, input: "ana@acme.com.br", want: "ana@acme.com.br"},
		{name: "email with display name", step: domain.StepEmail, input: "Ana <ana@acme.com>", reason: "invalid_email"},
		{name: "email without domain dot", step: domain.StepEmail, input: "ana@acme", reason: "invalid_email"},
		{name: "company", step: domain.StepCompany, input: "Acme", want: "Acme"},
		{name: "listed option", step: domain.StepHeadcount, input: "+200", want: "+200"},
		{name: "unlisted option", step: domain.StepRevenue, input: "muito", reason: "unknown_option"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateAnswer(tt.step, tt.input)
			if tt.reason != "" {
				expectCode(t, err, ErrorValidation, tt.reason)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
