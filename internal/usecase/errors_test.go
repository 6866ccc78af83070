package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	code, reason := CodeOf(fmt.Errorf("wrapped: %w", busy("submission_in_flight")))
	require.Equal(t, ErrorBusy, code)
	require.Equal(t, "submission_in_flight", reason)

	code, reason = CodeOf(errors.New("boom"))
	require.Equal(t, ErrorInternal, code)
	require.Empty(t, reason)
}

func TestErrorMessage(t *testing.T) {
	require.Equal(t, "usecase: INVALID_TRANSITION (picker_not_ready)", rejected("picker_not_ready").Error())

	cause := errors.New("dial tcp: timeout")
	err := newError(ErrorUpstream, "create_lead", cause)
	require.Equal(t, "usecase: UPSTREAM_ERROR (create_lead): dial tcp: timeout", err.Error())
	require.ErrorIs(t, err, cause)
}
