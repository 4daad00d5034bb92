package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newVerifier() *Verifier {
	v := NewVerifier([]Operator{{ID: "op-1", APIKey: "key-1", Secret: "s3cret"}}, 5*time.Minute, nil)
	v.now = func() time.Time { return fixedNow }
	return v
}

func echoOperator() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := OperatorFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write([]byte(id + "|" + string(b)))
	})
}

func signed(method, target, body, secret string, ts time.Time) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	stamp := strconv.FormatInt(ts.UnixMilli(), 10)
	req.Header.Set(HeaderAPIKey, "key-1")
	req.Header.Set(HeaderTimestamp, stamp)
	req.Header.Set(HeaderSignature, Sign(secret, stamp, method, req.URL.RequestURI(), []byte(body)))
	return req
}

func TestMiddlewareAcceptsSignedRequest(t *testing.T) {
	h := newVerifier().Middleware(echoOperator())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, signed(http.MethodPost, "/games/play?x=1", `{"roundId":"r"}`, "s3cret", fixedNow))

	require.Equal(t, http.StatusOK, rr.Code)
	// body is still readable downstream
	require.Equal(t, `op-1|{"roundId":"r"}`, rr.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	h := newVerifier().Middleware(echoOperator())

	cases := map[string]*http.Request{
		"wrong secret": signed(http.MethodPost, "/games/play", `{}`, "other", fixedNow),
		"stale":        signed(http.MethodPost, "/games/play", `{}`, "s3cret", fixedNow.Add(-6*time.Minute)),
		"future":       signed(http.MethodPost, "/games/play", `{}`, "s3cret", fixedNow.Add(6*time.Minute)),
		"missing":      httptest.NewRequest(http.MethodGet, "/games", nil),
	}

	tampered := signed(http.MethodPost, "/games/play", `{"bet":"1"}`, "s3cret", fixedNow)
	tampered.Body = io.NopCloser(strings.NewReader(`{"bet":"100"}`))
	cases["tampered body"] = tampered

	unknown := signed(http.MethodGet, "/games", "", "s3cret", fixedNow)
	unknown.Header.Set(HeaderAPIKey, "nope")
	cases["unknown key"] = unknown

	badTS := signed(http.MethodGet, "/games", "", "s3cret", fixedNow)
	badTS.Header.Set(HeaderTimestamp, "yesterday")
	cases["bad timestamp"] = badTS

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.Contains(t, rr.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestParseOperators(t *testing.T) {
	ops, err := ParseOperators("k1:op-1:s1, k2:op-2:s:with:colons,")
	require.NoError(t, err)
	require.Equal(t, []Operator{
		{APIKey: "k1", ID: "op-1", Secret: "s1"},
		{APIKey: "k2", ID: "op-2", Secret: "s:with:colons"},
	}, ops)

	_, err = ParseOperators("k1:op-1")
	require.Error(t, err)

	ops, err = ParseOperators("")
	require.NoError(t, err)
	require.Empty(t, ops)
}
