package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{apperr.Newf(apperr.CodeInsufficientFunds, "balance 1"), http.StatusPaymentRequired, `{"code":"INSUFFICIENT_FUNDS","message":"balance 1"}`},
		{apperr.New(apperr.CodeBusy, "player busy"), http.StatusTooManyRequests, `{"code":"BUSY","message":"player busy"}`},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, `{"code":"INTERNAL","message":"internal error"}`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		WriteError(rr, zap.NewNop(), tc.err)
		require.Equal(t, tc.status, rr.Code)
		require.JSONEq(t, tc.body, rr.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		A string `json:"a"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"x"}`))
	require.NoError(t, DecodeJSON(req, &v))
	require.Equal(t, "x", v.A)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"b":1}`))
	require.ErrorIs(t, DecodeJSON(req, &v), apperr.ErrValidation)
}
