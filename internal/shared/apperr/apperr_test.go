package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Conflict("round %s already settled", "r1")
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrBusy)

	wrapped := fmt.Errorf("play: %w", err)
	require.ErrorIs(t, wrapped, ErrConflict)
	require.Equal(t, CodeConflict, CodeOf(wrapped))
}

func TestInternalKeepsDomainCode(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("debit", cause)
	require.Equal(t, CodeInternal, CodeOf(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "connection reset")

	dom := Internal("debit", ErrInsufficientFunds)
	require.Equal(t, CodeInsufficientFunds, CodeOf(dom))
	require.NoError(t, Internal("noop", nil))
	require.Equal(t, CodeInternal, CodeOf(cause))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeNotFound:          http.StatusNotFound,
		CodeConflict:          http.StatusConflict,
		CodeInsufficientFunds: http.StatusPaymentRequired,
		CodeBusy:              http.StatusTooManyRequests,
		CodeInvalidAction:     http.StatusUnprocessableEntity,
		CodeInternal:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, code.HTTPStatus(), code)
	}
	require.True(t, CodeBusy.Retryable())
	require.False(t, CodeConflict.Retryable())
}
