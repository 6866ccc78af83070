package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/b2bflow/front-forms/internal/domain"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (domain.SessionData, bool)
}

// ConfirmationView is the post-booking page of a returning visitor.
type ConfirmationView struct {
	Session       domain.SessionData `json:"session"`
	FormattedDate string             `json:"formattedDate"`
}

// ConfirmationResult tells the caller what to render. When Valid is false the
// visitor goes back to the intake, and ClearSession says whether the stored
// token must be dropped first.
type ConfirmationResult struct {
	Valid        bool
	ClearSession bool
	View         ConfirmationView
}

type ConfirmationService struct {
	sessions SessionValidator
}

func NewConfirmationService(v SessionValidator) (*ConfirmationService, error) {
	if v == nil {
		return nil, errors.New("usecase: session validator must not be nil")
	}
	return &ConfirmationService{sessions: v}, nil
}

// Check validates the session token. A missing token skips the remote call.
func (s *ConfirmationService) Check(ctx context.Context, token string) ConfirmationResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return ConfirmationResult{}
	}
	data, ok := s.sessions.ValidateSession(ctx, token)
	if !ok {
		return ConfirmationResult{ClearSession: true}
	}
	return ConfirmationResult{
		Valid: true,
		View: ConfirmationView{
			Session:       data,
			FormattedDate: formatSessionDate(data.AppointmentDate),
		},
	}
}
