package usecase

import (
	"fmt"
	"time"

	"github.com/b2bflow/front-forms/internal/domain"
)

const (
	replyDelay       = 400 * time.Millisecond
	followUpDelay    = 600 * time.Millisecond
	greetingStagger  = 500 * time.Millisecond
	estimatedSavings = "R$ 8.000 a R$ 15.000/mês"
)

var (
	segmentOptions = []string{"Tecnologia", "Serviços", "Indústria", "Comércio", "Saúde", "Educação", "Outro"}
	productOptions = []string{"SDR IA", "CONSULTOIA DE IA", "AGENTE IA", "SAAS", "AUTOMAÇÕES", "AINDA NÃO SEI RESPONDER", "OUTRO"}
	revenueOptions = []string{
		"Até R$100 mil/ano",
		"R$100 mil a R$500 mil/ano",
		"R$500 mil a R$2 milhões/ano",
		"R$2 milhões/ano a R$10 milhões/ano",
		"Acima de R$10 milhões/ano",
	}
	headcountOptions = []string{"apenas eu", "1 a 5", "6 a 20", "21 a 50", "51 a 200", "+200"}
)

const (
	msgGreeting       = "Olá! 👋 Sou o assistente da B2B Flow. Vou criar um Plano 100% Personalizado de IA para sua empresa - focado em aumentar receita, reduzir custos e multiplicar sua margem."
	msgAskName        = "Então bora começar! Qual seu nome?"
	msgAskEmail       = "Ótimo! E qual seu e-mail?"
	msgAskCompany     = "Perfeito! Qual o nome da sua empresa?"
	msgAskRevenue     = "Excelente! Sua posição é estratégica para identificar onde a IA pode gerar os maiores resultados. Hoje, qual é o seu faturamento anual?"
	msgAskHeadcount   = "Estamos quase lá! Quantos colaboradores a empresa possui?"
	msgAskSchedule    = "Agende abaixo o melhor dia e horário para falar com a nossa equipe e garantir sua sessão estratégica!"
	msgRequestFailed  = "Ocorreu um erro. Por favor, tente novamente."
	msgBookingFailed  = "Ocorreu um erro ao agendar. Por favor, tente novamente."
	msgNoAvailability = "Não foi possível carregar os horários disponíveis. Tente novamente."
)

func msgAskPhone(name string) string {
	return fmt.Sprintf("Prazer, %s! Qual seu telefone?", name)
}

func msgAskSegment(company string) string {
	return fmt.Sprintf("%s! É sempre um prazer conhecer empresas assim. A IA pode trazer um diferencial incrível para vocês. Qual o segmento da sua empresa?", company)
}

func msgAskProduct(company string) string {
	return fmt.Sprintf("Ótimo! E qual é o produto que você busca para a %s?", company)
}

func msgValueProposition(name string) string {
	return fmt.Sprintf("%s, uma empresa com a estrutura de vocês tem um potencial imenso para ganhos de eficiência com IA. Identificamos uma economia estimada de %s com as automações certas! 🚀", name, estimatedSavings)
}

// InputKind tells the widget which control to render for a step.
type InputKind string

const (
	InputText     InputKind = "text"
	InputTel      InputKind = "tel"
	InputEmail    InputKind = "email"
	InputOptions  InputKind = "options"
	InputDateTime InputKind = "datetime"
	InputNone     InputKind = "none"
)

// Prompt describes the input widget of a step.
type Prompt struct {
	Kind        InputKind `json:"kind"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
}

// PromptFor returns the input widget shown while the conversation is at step.
func PromptFor(step domain.Step) Prompt {
	switch step {
	case domain.StepName:
		return Prompt{Kind: InputText, Placeholder: "Digite seu nome..."}
	case domain.StepPhone:
		return Prompt{Kind: InputTel, Placeholder: "+55 (00) 00000-0000"}
	case domain.StepEmail:
		return Prompt{Kind: InputEmail, Placeholder: "seu@email.com"}
	case domain.StepCompany:
		return Prompt{Kind: InputText, Placeholder: "Nome da empresa..."}
	case domain.StepSegment:
		return Prompt{Kind: InputOptions, Options: segmentOptions}
	case domain.StepProduct:
		return Prompt{Kind: InputOptions, Options: productOptions}
	case domain.StepRevenue:
		return Prompt{Kind: InputOptions, Options: revenueOptions}
	case domain.StepHeadcount:
		return Prompt{Kind: InputOptions, Options: headcountOptions}
	case domain.StepSchedule:
		return Prompt{Kind: InputDateTime}
	default:
		return Prompt{Kind: InputNone}
	}
}
