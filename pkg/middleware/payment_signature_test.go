package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"staybook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsk_test"

func sign(secret, timestamp, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParsePaymentSignature(t *testing.T) {
	sig, err := ParsePaymentSignature("t=1700000000, te=abc,li=")
	require.NoError(t, err)
	assert.Equal(t, PaymentSignature{Timestamp: "1700000000", Test: "abc"}, sig)

	_, err = ParsePaymentSignature("")
	assert.ErrorIs(t, err, ErrMissingSignature)

	_, err = ParsePaymentSignature("te=abc")
	assert.ErrorIs(t, err, ErrMalformedSignature)

	_, err = ParsePaymentSignature("t=1700000000,te=,li=")
	assert.ErrorIs(t, err, ErrMalformedSignature)
}

func TestVerifyPaymentSignature(t *testing.T) {
	body := `{"data":{"id":"evt_1"}}`
	good := sign(webhookSecret, "1700000000", body)

	tests := []struct {
		name    string
		header  string
		body    string
		wantErr error
	}{
		{"test signature", "t=1700000000,te=" + good + ",li=", body, nil},
		{"live signature", "t=1700000000,te=,li=" + good, body, nil},
		{"either candidate", "t=1700000000,te=deadbeef,li=" + good, body, nil},
		{"tampered body", "t=1700000000,te=" + good, body + " ", ErrSignatureMismatch},
		{"different timestamp", "t=1700000001,te=" + good, body, ErrSignatureMismatch},
		{"wrong secret", "t=1700000000,te=" + sign("other", "1700000000", body), body, ErrSignatureMismatch},
		{"missing", "", body, ErrMissingSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPaymentSignature(webhookSecret, tt.header, []byte(tt.body))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPaymentSignatureVerification(t *testing.T) {
	body := `{"data":{"attributes":{"type":"checkout_session.payment.paid"}}}`

	var received string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		received = string(data)
		w.WriteHeader(http.StatusOK)
	})

	serve := func(secret, header string) *httptest.ResponseRecorder {
		received = ""
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
		if header != "" {
			req.Header.Set(PaymentSignatureHeader, header)
		}
		rec := httptest.NewRecorder()
		PaymentSignatureVerification(secret, logger.Discard())(next).ServeHTTP(rec, req)
		return rec
	}

	rec := serve(webhookSecret, "t=1,te="+sign(webhookSecret, "1", body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, received, "body must be restored for the handler")

	rec = serve(webhookSecret, "t=1,te=00")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, received)

	rec = serve(webhookSecret, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve("", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
