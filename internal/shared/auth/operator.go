// Package auth verifies operator-signed requests and hands the operator id to
// handlers through the request context.
package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	HeaderAPIKey    = "X-API-KEY"
	HeaderSignature = "X-SIGNATURE"
	HeaderTimestamp = "X-TIMESTAMP"
)

type Operator struct {
	ID     string
	APIKey string
	Secret string
}

// ParseOperators reads "apiKey:operatorId:secret" entries separated by commas.
func ParseOperators(s string) ([]Operator, error) {
	var out []Operator
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("operator entry %q: want apiKey:operatorId:secret", entry)
		}
		out = append(out, Operator{APIKey: parts[0], ID: parts[1], Secret: parts[2]})
	}
	return out, nil
}

type ctxKey struct{}

// WithOperator stores the verified operator id.
func WithOperator(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, operatorID)
}

// OperatorFromContext returns the operator id set by the middleware.
func OperatorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Sign computes the request signature:
// hex(HMAC-SHA256(secret, "<ts>.<METHOD>.<requestURI>.<sha256hex(body)>")).
func Sign(secret, timestamp, method, requestURI string, body []byte) string {
	sum := sha256.Sum256(body)
	payload := timestamp + "." + strings.ToUpper(method) + "." + requestURI + "." + hex.EncodeToString(sum[:])
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

type Verifier struct {
	byKey   map[string]Operator
	maxSkew time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewVerifier(ops []Operator, maxSkew time.Duration, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	byKey := make(map[string]Operator, len(ops))
	for _, op := range ops {
		byKey[op.APIKey] = op
	}
	return &Verifier{byKey: byKey, maxSkew: maxSkew, log: log, now: time.Now}
}

// Middleware rejects unsigned, stale or forged requests with 401.
// X-TIMESTAMP is unix milliseconds.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(HeaderAPIKey)
		sig := r.Header.Get(HeaderSignature)
		ts := r.Header.Get(HeaderTimestamp)
		if apiKey == "" || sig == "" || ts == "" {
			unauthorized(w, "missing operator headers")
			return
		}
		op, ok := v.byKey[apiKey]
		if !ok {
			v.log.Warn("unknown api key", zap.String("path", r.URL.Path))
			unauthorized(w, "unknown operator")
			return
		}

		ms, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			unauthorized(w, "invalid timestamp")
			return
		}
		skew := v.now().Sub(time.UnixMilli(ms))
		if skew < 0 {
			skew = -skew
		}
		if skew > v.maxSkew {
			unauthorized(w, "signature timestamp outside allowed window")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			unauthorized(w, "unreadable body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		want := Sign(op.Secret, ts, r.Method, r.URL.RequestURI(), body)
		if !hmac.Equal([]byte(strings.ToLower(sig)), []byte(want)) {
			v.log.Warn("signature mismatch", zap.String("operator", op.ID), zap.String("path", r.URL.Path))
			unauthorized(w, "invalid signature")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op.ID)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": "UNAUTHORIZED", "message": msg})
}
